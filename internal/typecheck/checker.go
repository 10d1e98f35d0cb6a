// Package typecheck elaborates resolved declarations into core
// definitions.
//
// A Checker owns the arena, normaliser and solver of one definition and is
// not safe for concurrent use; independent definitions are checked by
// independent checkers that share only the Registry. Elaboration errors
// are reported to a diag.Reporter and the failing subexpression is
// replaced by a core.ErrorExpr, so a method returns a non-nil error only
// when the run was interrupted.
package typecheck

import (
	"context"
	"math/big"
	"slices"

	"github.com/hashicorp/go-set/v3"

	"kappa/internal/concrete"
	"kappa/internal/core"
	"kappa/internal/deps"
	"kappa/internal/diag"
	"kappa/internal/level"
	"kappa/internal/normalize"
	"kappa/internal/prelude"
	"kappa/internal/solve"
	"kappa/internal/source"
	"kappa/internal/trace"
)

// ErrInterrupted is returned when the context of a check is cancelled.
var ErrInterrupted = solve.ErrInterrupted

// ErrStepLimit is returned when normalisation exceeds Options.MaxSteps.
// It matches ErrInterrupted.
var ErrStepLimit = normalize.ErrStepLimit

// Options tune the normaliser and solver of every checker.
type Options struct {
	PollInterval int
	MaxSteps     int
}

// countingReporter counts errors on their way to next.
type countingReporter struct {
	next diag.Reporter
	errs int
}

func (r *countingReporter) Report(d diag.Diagnostic) {
	if d.Severity >= diag.SevError {
		r.errs++
	}
	if r.next != nil {
		r.next.Report(d)
	}
}

// Checker elaborates the expressions of one definition.
type Checker struct {
	reg    *Registry
	pre    *prelude.Prelude
	arena  *core.Arena
	norm   *normalize.Normalizer
	solver *solve.Solver
	rep    *countingReporter
	rec    deps.Recorder
	tracer trace.Tracer
	span   trace.SpanContext

	name string
	self map[string]core.Definition
	// selfAllowed is set where the definition may refer to itself:
	// constructor parameters and clause bodies.
	selfAllowed bool
	std         bool

	locals map[*concrete.Local]*core.Binding
	scope  []*core.Binding
	fields map[string]*core.Binding

	deps     *set.Set[string]
	reported map[*solve.Equation]bool
	holes    map[*core.InferenceVar]bool
	goals    int
}

// NewChecker creates a checker for the definition name. Diagnostics go
// to rep.
func NewChecker(reg *Registry, name string, rep diag.Reporter, opts Options) *Checker {
	arena := core.NewArena(256)
	norm := normalize.New(arena, normalize.Options{PollInterval: opts.PollInterval, MaxSteps: opts.MaxSteps})
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return &Checker{
		reg:      reg,
		pre:      reg.Prelude(),
		arena:    arena,
		norm:     norm,
		solver:   solve.New(arena, norm, arena.Generation(), solve.Options{PollInterval: opts.PollInterval}),
		rep:      &countingReporter{next: rep},
		tracer:   trace.Nop,
		name:     name,
		self:     make(map[string]core.Definition),
		locals:   make(map[*concrete.Local]*core.Binding),
		fields:   make(map[string]*core.Binding),
		deps:     set.New[string](8),
		reported: make(map[*solve.Equation]bool),
		holes:    make(map[*core.InferenceVar]bool),
	}
}

// WithRecorder reports each distinct dependency on a published unit to rec.
func (c *Checker) WithRecorder(rec deps.Recorder) *Checker {
	c.rec = rec
	return c
}

// WithTracer sends checker and solver events to t under parent.
func (c *Checker) WithTracer(t trace.Tracer, parent trace.SpanContext) *Checker {
	if t != nil {
		c.tracer, c.span = t, parent
		c.solver.WithTracer(t, parent)
	}
	return c
}

// Arena is the arena core terms of this checker are allocated from.
func (c *Checker) Arena() *core.Arena { return c.arena }

// Solver exposes the equations collected so far.
func (c *Checker) Solver() *solve.Solver { return c.solver }

// Errors counts the errors reported so far.
func (c *Checker) Errors() int { return c.rep.errs }

// Goals counts the inference variables left unsolved.
func (c *Checker) Goals() int { return c.goals }

// Deps lists the published units the checked terms refer to.
func (c *Checker) Deps() []string {
	out := c.deps.Slice()
	slices.Sort(out)
	return out
}

// Typecheck elaborates e against expected, or infers its type.
func (c *Checker) Typecheck(ctx context.Context, e concrete.Expr, expected core.Expr) (Result, error) {
	if expected == nil {
		term, typ, err := c.infer(ctx, e)
		if err != nil {
			return Result{}, err
		}
		return Result{Expr: term, Type: typ}, nil
	}
	term, err := c.check(ctx, e, expected)
	if err != nil {
		return Result{}, err
	}
	return Result{Expr: term, Type: expected}, nil
}

// Compare records left cmp right with the solver.
func (c *Checker) Compare(ctx context.Context, left, right, typ core.Expr, cmp solve.Cmp, sp source.Span) (bool, error) {
	out, err := c.solver.Compare(ctx, left, right, typ, cmp, sp)
	if err != nil {
		return false, err
	}
	return out.State != solve.StateFailed, nil
}

func (c *Checker) Normalize(ctx context.Context, e core.Expr, mode NormalizationMode) (core.Expr, error) {
	if mode == NF {
		return c.norm.Normalize(ctx, e)
	}
	return c.norm.WHNF(ctx, e)
}

// Elaborate checks a standalone expression: it typechecks e, solves the
// collected equations, reports what stays unsolved and strips the
// result. Levels are left unsolved.
func (c *Checker) Elaborate(ctx context.Context, e concrete.Expr, expected core.Expr) (Result, error) {
	r, err := c.Typecheck(ctx, e, expected)
	if err != nil {
		return Result{}, err
	}
	if err := c.solveAll(ctx); err != nil {
		return Result{}, err
	}
	s := core.NewStripper()
	return Result{Expr: s.Strip(r.Expr), Type: s.Strip(r.Type)}, nil
}

var _ ExpressionTypechecker = (*Checker)(nil)

func (c *Checker) whnf(ctx context.Context, e core.Expr) (core.Expr, error) {
	return c.norm.WHNF(ctx, e)
}

func (c *Checker) whnfFunc(ctx context.Context) func(core.Expr) (core.Expr, error) {
	return func(e core.Expr) (core.Expr, error) { return c.norm.WHNF(ctx, e) }
}

func errorExpr(expected core.Expr, reason string) *core.ErrorExpr {
	return &core.ErrorExpr{Expected: expected, Reason: reason}
}

func isError(e core.Expr) bool {
	_, ok := e.(*core.ErrorExpr)
	return ok
}

func (c *Checker) errorf(code diag.Code, sp source.Span, msg string) *diag.ReportBuilder {
	return diag.ReportError(c.rep, code, sp, msg)
}

// pushScope makes bs visible to later holes; the returned mark restores
// the scope.
func (c *Checker) pushScope(bs ...*core.Binding) int {
	mark := len(c.scope)
	c.scope = append(c.scope, bs...)
	return mark
}

func (c *Checker) popScope(mark int) { c.scope = c.scope[:mark] }

// newVar creates an inference variable whose solution may use the
// current scope.
func (c *Checker) newVar(name string, typ core.Expr, sp source.Span) *core.InferenceRefExpr {
	return c.newVarIn(name, typ, slices.Clone(c.scope), sp)
}

func (c *Checker) newVarIn(name string, typ core.Expr, scope []*core.Binding, sp source.Span) *core.InferenceRefExpr {
	v := c.solver.NewInferenceVar(name, typ, scope, sp)
	trace.Point(c.tracer, trace.ScopeNode, "var", v.String(), c.span)
	return &core.InferenceRefExpr{Var: v}
}

// freshLevel is an inference level variable. Without level parameters it
// defaults to 0, in a definition with \lp and \lh to the standard
// variable of its dimension.
func (c *Checker) freshLevel(dim level.Dim, sp source.Span) level.Level {
	v := c.solver.NewLevelVar(dim)
	if c.std {
		c.solver.Levels().Cat(v, sp)
	} else {
		c.solver.Levels().LowerBound(0, v, sp)
	}
	return level.OfVar(v)
}

func (c *Checker) freshSort(sp source.Span) level.Sort {
	return level.NewSort(c.freshLevel(level.DimP, sp), c.freshLevel(level.DimH, sp))
}

// freshType is a hole standing for a type of a fresh sort.
func (c *Checker) freshType(name string, sp source.Span) core.Type {
	s := c.freshSort(sp)
	return core.Type{Expr: c.newVar(name, core.Universe(s), sp), Sort: s}
}

// sortOf computes s with t : \Type s.
func (c *Checker) sortOf(ctx context.Context, t core.Expr) (level.Sort, error) {
	if s, ok := core.SortOf(t); ok {
		return s, nil
	}
	if isError(t) {
		return level.Prop, nil
	}
	nf, err := c.whnf(ctx, t)
	if err != nil {
		return level.Sort{}, err
	}
	if s, ok := core.SortOf(nf); ok {
		return s, nil
	}
	return c.freshSort(source.NoSpan), nil
}

func (c *Checker) typeOf(ctx context.Context, t core.Expr) (core.Type, error) {
	s, err := c.sortOf(ctx, t)
	if err != nil {
		return core.Type{}, err
	}
	return core.Type{Expr: t, Sort: s}, nil
}

// bigInt copies n into a numeral of d.
func bigInt(n *big.Int, d *core.DataDef) *core.IntegerExpr {
	return &core.IntegerExpr{Value: new(big.Int).Set(n), Data: d}
}
