package typecheck

import (
	"context"
	"errors"
	"strings"

	"kappa/internal/core"
	"kappa/internal/diag"
	"kappa/internal/level"
	"kappa/internal/solve"
	"kappa/internal/source"
)

// solveAll retries the deferred equations and reports what is left: the
// failed equations not reported yet and the unsolved inference
// variables. Implicit arguments left unsolved next to an earlier error
// are not reported again; goals written by the user always are.
func (c *Checker) solveAll(ctx context.Context) error {
	if _, err := c.solver.Solve(ctx); err != nil {
		return err
	}
	unsolved := c.solver.Unsolved()
	pending := make(map[*core.InferenceVar][]*solve.Equation, len(unsolved))
	for _, v := range unsolved {
		pending[v] = c.solver.Pending(v)
	}
	outs, err := c.solver.Finish(ctx)
	if err != nil {
		return err
	}
	for _, o := range outs {
		if o.State != solve.StateFailed || c.reported[o.Equation] {
			continue
		}
		c.reported[o.Equation] = true
		code := diag.TCTypeMismatch
		if strings.HasPrefix(o.Reason, "recursive solution") {
			code = diag.TCRecursiveSolution
		}
		c.errorf(code, o.Equation.Source, "cannot satisfy "+o.Equation.String()).
			WithNote(o.Equation.Source, o.String()).
			Emit()
	}
	quiet := c.rep.errs > 0
	for _, v := range unsolved {
		hole := c.holes[v]
		if !hole && quiet {
			continue
		}
		code, msg := diag.TCUnsolvedGoal, "cannot infer "+v.String()
		if hole {
			msg = "unsolved goal " + v.String() + " : " + core.Format(v.Type)
		}
		if escapes(v, pending[v]) {
			code, msg = diag.TCScopeEscape, "the solution of "+v.String()+" refers to a variable out of its scope"
		}
		b := c.errorf(code, v.Span, msg)
		for _, eq := range pending[v] {
			b = b.WithNote(eq.Source, "pending "+eq.String())
		}
		b.Emit()
		c.goals++
	}
	return nil
}

// escapes reports whether some equation pins v to a term without
// unknowns, which only stays stuck when the term leaves v's scope.
func escapes(v *core.InferenceVar, eqs []*solve.Equation) bool {
	for _, eq := range eqs {
		for _, side := range [2][2]core.Expr{{eq.Left, eq.Right}, {eq.Right, eq.Left}} {
			if ref, ok := side[0].(*core.InferenceRefExpr); ok && ref.Var == v && !hasUnknowns(side[1]) {
				return true
			}
		}
	}
	return false
}

func hasUnknowns(e core.Expr) bool {
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

// strip replaces solved inference references in every term of defs.
func strip(defs []core.Definition) {
	s := core.NewStripper()
	for _, d := range defs {
		s.StripLink(d.Parameters())
		switch x := d.(type) {
		case *core.FunctionDef:
			x.ResultType.Expr = s.Strip(x.ResultType.Expr)
			x.Body = s.Strip(x.Body)
			for _, cl := range x.Clauses {
				for _, b := range cl.PatternBindings() {
					b.Strip(s)
				}
				cl.Body = s.Strip(cl.Body)
			}
		case *core.Constructor:
			for _, b := range core.PatternBindings(x.Patterns) {
				b.Strip(s)
			}
		case *core.ClassField:
			x.Type.Expr = s.Strip(x.Type.Expr)
		}
	}
}

// generalize solves the level equations and substitutes the solution
// into defs in place. It runs once per definition; gate enforces that.
// An unsatisfiable system is reported and leaves the terms untouched.
func (c *Checker) generalize(ctx context.Context, defs []core.Definition, gate *core.InPlaceGate, sp source.Span) error {
	sol, err := c.solver.Levels().SolveLevels(ctx)
	if err != nil {
		if errors.Is(err, ErrInterrupted) {
			return err
		}
		var cycle *solve.LevelCycleError
		var bad *solve.LevelInconsistencyError
		switch {
		case errors.As(err, &cycle):
			c.errorf(diag.LvlInfinite, sp, err.Error()).Emit()
		case errors.As(err, &bad):
			c.errorf(diag.LvlInconsistency, bad.Equation.Source, err.Error()).Emit()
		default:
			c.errorf(diag.LvlInconsistency, sp, err.Error()).Emit()
		}
		return nil
	}
	for _, v := range sol.Vars() {
		if l, _ := sol.Lookup(v); l.IsInfinity() {
			c.errorf(diag.LvlInfinite, sp, "level "+v.String()+" has no finite solution").Emit()
			return nil
		}
	}
	s, err := core.BeginInPlaceLevelSubst(gate, sol)
	if err != nil {
		return err
	}
	for _, d := range defs {
		substDef(s, d, sol)
	}
	return nil
}

func substDef(s *core.InPlaceLevelSubst, d core.Definition, sol level.Subst) {
	s.Link(d.Parameters())
	switch x := d.(type) {
	case *core.FunctionDef:
		s.Type(&x.ResultType)
		s.Expr(x.Body)
		for _, cl := range x.Clauses {
			for _, b := range cl.PatternBindings() {
				s.Binding(b)
			}
			s.Expr(cl.Body)
		}
	case *core.DataDef:
		x.Sort = x.Sort.Subst(sol)
	case *core.Constructor:
		for _, b := range core.PatternBindings(x.Patterns) {
			s.Binding(b)
		}
	case *core.ClassField:
		s.Type(&x.Type)
	}
}
