// Package normalize reduces core expressions to weak-head and full
// normal form. Reduction polls the caller's context every PollInterval
// steps and stops with ErrInterrupted once it is done.
package normalize

import (
	"context"
	"errors"
	"fmt"

	"kappa/internal/core"
	"kappa/internal/level"
)

var (
	ErrInterrupted = errors.New("normalization interrupted")
	// ErrStepLimit is returned when MaxSteps is exceeded; it matches
	// ErrInterrupted.
	ErrStepLimit = fmt.Errorf("%w: step limit reached", ErrInterrupted)
)

// DefaultPollInterval is used when Options.PollInterval is zero.
const DefaultPollInterval = 256

type Options struct {
	PollInterval int
	// MaxSteps bounds the reduction steps of one normalizer; zero means
	// unbounded.
	MaxSteps int
}

// Normalizer is owned by one checker and is not safe for concurrent use.
type Normalizer struct {
	arena *core.Arena
	opts  Options
	steps int
}

func New(arena *core.Arena, opts Options) *Normalizer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Normalizer{arena: arena, opts: opts}
}

// Steps reports how many reduction steps were taken so far.
func (n *Normalizer) Steps() int { return n.steps }

func (n *Normalizer) tick(ctx context.Context) error {
	n.steps++
	if n.opts.MaxSteps > 0 && n.steps > n.opts.MaxSteps {
		return ErrStepLimit
	}
	if n.steps%n.opts.PollInterval == 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
	}
	return nil
}

func (n *Normalizer) whnfFunc(ctx context.Context) func(core.Expr) (core.Expr, error) {
	return func(e core.Expr) (core.Expr, error) { return n.WHNF(ctx, e) }
}

// WHNF reduces e until its head is a constructor, a binder, or stuck.
func (n *Normalizer) WHNF(ctx context.Context, e core.Expr) (core.Expr, error) {
	for {
		if err := n.tick(ctx); err != nil {
			return nil, err
		}
		next, final, err := n.step(ctx, e)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return e, nil
		}
		if final {
			return next, nil
		}
		e = next
	}
}

// step performs one head reduction. It returns nil when e is already in
// WHNF, and final when the result is a rebuilt node whose head is stuck.
func (n *Normalizer) step(ctx context.Context, e core.Expr) (next core.Expr, final bool, err error) {
	switch x := e.(type) {
	case *core.InferenceRefExpr:
		return x.Var.Solution, false, nil
	case *core.AppExpr:
		return n.stepApp(ctx, x)
	case *core.LetExpr:
		return n.stepLet(x), false, nil
	case *core.ProjExpr:
		t, err := n.WHNF(ctx, x.Tuple)
		if err != nil {
			return nil, false, err
		}
		if tup, ok := t.(*core.TupleExpr); ok && x.Field < len(tup.Fields) {
			return tup.Fields[x.Field], false, nil
		}
		if t != x.Tuple {
			return &core.ProjExpr{Tuple: t, Field: x.Field}, true, nil
		}
	case *core.FieldCallExpr:
		arg, err := n.WHNF(ctx, x.Arg)
		if err != nil {
			return nil, false, err
		}
		if call, ok := arg.(*core.ConCallExpr); ok && call.Con.Data == x.Field.Record && x.Field.Index < len(call.Args) {
			return call.Args[x.Field.Index], false, nil
		}
		if arg != x.Arg {
			return &core.FieldCallExpr{Field: x.Field, Levels: x.Levels, Arg: arg}, true, nil
		}
	case *core.FunCallExpr:
		r, err := n.stepFunCall(ctx, x)
		return r, false, err
	case *core.CaseExpr:
		r, err := n.stepCase(ctx, x)
		return r, false, err
	}
	return nil, false, nil
}

func (n *Normalizer) stepApp(ctx context.Context, app *core.AppExpr) (core.Expr, bool, error) {
	head, args := core.SpineOf(app)
	h, err := n.WHNF(ctx, head)
	if err != nil {
		return nil, false, err
	}
	if lam, ok := h.(*core.LamExpr); ok {
		return n.beta(lam, args), false, nil
	}
	if h != head {
		return core.Apps(h, args...), true, nil
	}
	return nil, false, nil
}

// beta instantiates as many parameters of lam as there are arguments.
func (n *Normalizer) beta(lam *core.LamExpr, args []core.Expr) core.Expr {
	subst := core.NewExprSubst()
	link := lam.Params
	k := 0
	for ; k < len(args) && link.HasNext(); k++ {
		subst.Add(link.Binding(), args[k])
		link = link.Next()
	}
	v := core.NewSubstVisitor(n.arena, subst, nil)
	if link.HasNext() {
		rest := link.Subst(v, link.Len(), false)
		return &core.LamExpr{ResultSort: lam.ResultSort, Params: rest, Body: v.Apply(lam.Body)}
	}
	return core.Apps(v.Apply(lam.Body), args[k:]...)
}

func (n *Normalizer) stepLet(let *core.LetExpr) core.Expr {
	v := core.NewSubstVisitor(n.arena, nil, nil)
	for _, c := range let.Clauses {
		v.Exprs().AddSubst(c.Binding, v.Apply(c.Value))
	}
	return v.Apply(let.Body)
}

// instantiate substitutes the parameters and level parameters of a
// definition into body.
func (n *Normalizer) instantiate(params *core.DependentLink, args []core.Expr, levels level.Levels, extra *core.ExprSubst, body core.Expr) core.Expr {
	subst := extra
	if subst == nil {
		subst = core.NewExprSubst()
	}
	i := 0
	for it := params; it.HasNext() && i < len(args); it = it.Next() {
		subst.AddSubst(it.Binding(), args[i])
		i++
	}
	var ls level.Subst = levels
	if levels == nil || level.EqualLevels(levels, level.StdPair) {
		ls = level.Empty{}
	}
	return core.NewSubstVisitor(n.arena, subst, ls).Apply(body)
}

func (n *Normalizer) stepFunCall(ctx context.Context, call *core.FunCallExpr) (core.Expr, error) {
	def := call.Def
	if def.Hook != nil {
		r, err := def.Hook(call, n.whnfFunc(ctx))
		if err != nil || r != nil {
			return r, err
		}
	}
	if def.Body != nil {
		return n.instantiate(def.Parameters(), call.Args, call.Levels, nil, def.Body), nil
	}
	if len(def.Clauses) == 0 {
		return nil, nil
	}
	for _, c := range def.Clauses {
		subst := core.NewExprSubst()
		r, err := core.Match(c.Patterns, call.Args, n.whnfFunc(ctx), subst)
		if err != nil {
			return nil, err
		}
		switch r {
		case core.MatchOK:
			if c.Body == nil {
				return nil, nil
			}
			return n.instantiate(core.EmptyLink, nil, call.Levels, subst, c.Body), nil
		case core.MatchStuck:
			return nil, nil
		}
	}
	return nil, nil
}

func (n *Normalizer) stepCase(ctx context.Context, cs *core.CaseExpr) (core.Expr, error) {
	for _, c := range cs.Clauses {
		subst := core.NewExprSubst()
		r, err := core.Match(c.Patterns, cs.Args, n.whnfFunc(ctx), subst)
		if err != nil {
			return nil, err
		}
		switch r {
		case core.MatchOK:
			if c.Body == nil {
				return nil, nil
			}
			return core.Subst(n.arena, c.Body, subst), nil
		case core.MatchStuck:
			return nil, nil
		}
	}
	return nil, nil
}
