// Package solve decides definitional equality between core expressions
// and collects the universe level constraints the comparison produces.
//
// A Solver belongs to one checker run and is not safe for concurrent use.
// Equations that cannot be decided because an inference variable is still
// unknown are deferred and retried by Solve; every equation ends up
// solved, reported as stuck by Finish, or failed.
package solve

import (
	"context"
	"fmt"

	"fortio.org/safecast"

	"kappa/internal/core"
	"kappa/internal/level"
	"kappa/internal/normalize"
	"kappa/internal/source"
	"kappa/internal/trace"
)

// ErrInterrupted is the cancellation error of the solver; it is the same
// sentinel the normaliser uses.
var ErrInterrupted = normalize.ErrInterrupted

// DefaultPollInterval is used when Options.PollInterval is zero.
const DefaultPollInterval = 64

type Options struct {
	// PollInterval is the number of comparison steps between context
	// checks.
	PollInterval int
}

type Solver struct {
	arena  *core.Arena
	norm   *normalize.Normalizer
	levels *LevelEquations
	owner  uint32
	opts   Options

	state    State
	pending  []*Equation
	outcomes []Outcome
	vars     []*core.InferenceVar
	nextLvl  uint32
	steps    int

	failLeft, failRight core.Expr
	failReason          string
	src                 source.Span

	tracer trace.Tracer
	span   trace.SpanContext
}

// New creates a solver for the checker run owner. Bindings created while
// comparing binders come from arena.
func New(arena *core.Arena, norm *normalize.Normalizer, owner uint32, opts Options) *Solver {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Solver{
		arena:  arena,
		norm:   norm,
		levels: NewLevelEquations(),
		owner:  owner,
		opts:   opts,
		state:  StateCollecting,
		tracer: trace.Nop,
	}
}

// WithTracer sends solver events to t under the span parent.
func (s *Solver) WithTracer(t trace.Tracer, parent trace.SpanContext) *Solver {
	if t != nil {
		s.tracer, s.span = t, parent
	}
	return s
}

func (s *Solver) State() State                        { return s.state }
func (s *Solver) Levels() *LevelEquations             { return s.levels }
func (s *Solver) Outcomes() []Outcome                 { return s.outcomes }
func (s *Solver) InferenceVars() []*core.InferenceVar { return s.vars }

// NewInferenceVar creates a placeholder whose solution may mention only
// the bindings of scope.
func (s *Solver) NewInferenceVar(name string, typ core.Expr, scope []*core.Binding, sp source.Span) *core.InferenceVar {
	id, err := safecast.Conv[uint32](len(s.vars) + 1)
	if err != nil {
		panic(fmt.Errorf("inference variable overflow: %w", err))
	}
	v := &core.InferenceVar{
		ID:    id,
		Name:  name,
		Type:  typ,
		Span:  sp,
		Scope: scope,
	}
	s.vars = append(s.vars, v)
	return v
}

// NewLevelVar creates an inference level variable of dimension dim.
func (s *Solver) NewLevelVar(dim level.Dim) level.Var {
	s.nextLvl++
	return level.InferVar(dim, s.owner, s.nextLvl)
}

// Unsolved lists the inference variables that still have no solution.
func (s *Solver) Unsolved() []*core.InferenceVar {
	var out []*core.InferenceVar
	for _, v := range s.vars {
		if !v.IsSolved() {
			out = append(out, v)
		}
	}
	return out
}

// Pending lists the deferred equations that mention v.
func (s *Solver) Pending(v *core.InferenceVar) []*Equation {
	var out []*Equation
	for _, eq := range s.pending {
		if mentionsVar(eq.Left, v) || mentionsVar(eq.Right, v) {
			out = append(out, eq)
		}
	}
	return out
}

// Compare decides left cmp right now. An equation that cannot be decided
// yet is deferred and reported with StateStuck; a failure is recorded and
// reported with StateFailed and the normal forms that disagree.
func (s *Solver) Compare(ctx context.Context, left, right, typ core.Expr, cmp Cmp, src source.Span) (Outcome, error) {
	eq := NewEquation(left, right, typ, cmp, src)
	out, err := s.attempt(ctx, eq)
	if err != nil {
		return Outcome{}, err
	}
	switch out.State {
	case StateStuck:
		s.pending = append(s.pending, eq)
		trace.Point(s.tracer, trace.ScopeNode, "defer", eq.String(), s.span)
	case StateFailed:
		s.fail(out)
	}
	return out, nil
}

// AddEquation defers an equation without attempting it.
func (s *Solver) AddEquation(eq *Equation) {
	eq.state = StateCollecting
	s.pending = append(s.pending, eq)
}

// Solve retries the deferred equations until none of them makes progress.
func (s *Solver) Solve(ctx context.Context) (State, error) {
	if s.state != StateFailed {
		s.state = StateSolving
	}
	for len(s.pending) > 0 {
		solvedBefore := s.solvedCount()
		progress := false
		pending := s.pending
		s.pending = nil
		for i, eq := range pending {
			out, err := s.attempt(ctx, eq)
			if err != nil {
				s.pending = append(s.pending, pending[i:]...)
				return s.state, err
			}
			switch out.State {
			case StateStuck:
				s.pending = append(s.pending, eq)
			case StateFailed:
				s.fail(out)
				progress = true
			default:
				progress = true
			}
		}
		if !progress && s.solvedCount() == solvedBefore {
			break
		}
	}
	switch {
	case s.state == StateFailed:
	case len(s.pending) > 0:
		s.state = StateStuck
	default:
		s.state = StateSolved
	}
	return s.state, nil
}

// Finish runs Solve and turns every equation still deferred into a stuck
// outcome. The solver keeps no pending equations afterwards.
func (s *Solver) Finish(ctx context.Context) ([]Outcome, error) {
	if _, err := s.Solve(ctx); err != nil {
		return nil, err
	}
	for _, eq := range s.pending {
		eq.state = StateStuck
		s.outcomes = append(s.outcomes, Outcome{Equation: eq, State: StateStuck, Reason: "unsolved inference variables"})
	}
	s.pending = nil
	return s.outcomes, nil
}

func (s *Solver) fail(out Outcome) {
	s.state = StateFailed
	s.outcomes = append(s.outcomes, out)
	trace.Point(s.tracer, trace.ScopeNode, "fail", out.String(), s.span)
}

func (s *Solver) solvedCount() int {
	n := 0
	for _, v := range s.vars {
		if v.IsSolved() {
			n++
		}
	}
	return n
}

func (s *Solver) attempt(ctx context.Context, eq *Equation) (Outcome, error) {
	s.failLeft, s.failRight, s.failReason = nil, nil, ""
	s.src = eq.Source
	r, err := s.compare(ctx, eq.Left, eq.Right, eq.Cmp)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Equation: eq}
	switch r {
	case resOK:
		out.State = StateSolved
	case resStuck:
		out.State = StateStuck
	default:
		out.State = StateFailed
		out.LeftNF, out.RightNF, out.Reason = s.failLeft, s.failRight, s.failReason
	}
	eq.state = out.State
	return out, nil
}

func (s *Solver) poll(ctx context.Context) error {
	s.steps++
	if s.steps%s.opts.PollInterval != 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return nil
}

func mentionsVar(e core.Expr, v *core.InferenceVar) bool {
	found := false
	var walk func(core.Expr)
	walk = func(x core.Expr) {
		if found {
			return
		}
		if ref, ok := x.(*core.InferenceRefExpr); ok && ref.Var == v {
			found = true
			return
		}
		core.Children(x, walk)
	}
	walk(e)
	return found
}

func hasUnsolved(e core.Expr) bool {
	found := false
	var walk func(core.Expr)
	walk = func(x core.Expr) {
		if found {
			return
		}
		if ref, ok := x.(*core.InferenceRefExpr); ok && !ref.Var.IsSolved() {
			found = true
			return
		}
		core.Children(x, walk)
	}
	walk(e)
	return found
}
