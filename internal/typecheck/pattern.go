package typecheck

import (
	"context"
	"fmt"

	"kappa/internal/concrete"
	"kappa/internal/core"
	"kappa/internal/diag"
	"kappa/internal/source"
)

// checkPattern elaborates p against typ. It returns the core pattern and
// the term the pattern stands for; pattern variables are bound and left
// in scope.
func (c *Checker) checkPattern(ctx context.Context, p concrete.Pattern, typ core.Expr, sp source.Span) (core.Pattern, core.Expr, error) {
	switch n := p.(type) {
	case *concrete.PatVar:
		t, err := c.typeOf(ctx, typ)
		if err != nil {
			return nil, nil, err
		}
		b := c.arena.NewBindingAt(n.Local.Name, t, core.Explicit, sp)
		c.locals[n.Local] = b
		c.pushScope(b)
		return &core.BindingPattern{Binding: b}, core.Ref(b), nil
	case *concrete.PatAbsurd:
		if err := c.checkAbsurd(ctx, typ, n.Span()); err != nil {
			return nil, nil, err
		}
		return &core.AbsurdPattern{}, errorExpr(typ, "absurd pattern"), nil
	case *concrete.PatCon:
		return c.checkConPattern(ctx, n, typ)
	}
	panic(fmt.Errorf("typecheck: unexpected pattern %T", p))
}

func (c *Checker) checkConPattern(ctx context.Context, n *concrete.PatCon, typ core.Expr) (core.Pattern, core.Expr, error) {
	nf, err := c.whnf(ctx, typ)
	if err != nil {
		return nil, nil, err
	}
	dc, ok := nf.(*core.DataCallExpr)
	if !ok {
		c.errorf(diag.TCPatternMismatch, n.Span(), "constructor pattern "+n.Con+" at a type that is not a data type").
			WithNote(n.Span(), "expected "+core.Format(nf)).
			Emit()
		return c.wildcard(ctx, typ, n.Span())
	}
	con := dc.Data.Constructor(n.Con)
	if con == nil {
		c.errorf(diag.TCUnknownConstructor, n.Span(), fmt.Sprintf("%s is not a constructor of %s", n.Con, dc.Data.Name())).Emit()
		return c.wildcard(ctx, typ, n.Span())
	}
	c.depend(dc.Data.Name())
	sub := core.NewExprSubst()
	for i, b := range dc.Data.Parameters().Bindings() {
		sub.Add(b, dc.Args[i])
	}
	if con.Patterns != nil {
		res, err := core.Match(con.Patterns, dc.Args, c.whnfFunc(ctx), sub)
		if err != nil {
			return nil, nil, err
		}
		switch res {
		case core.MatchFail:
			c.errorf(diag.TCConstructorPatterns, n.Span(), fmt.Sprintf("%s is not available at %s", n.Con, core.Format(dc))).Emit()
			return c.wildcard(ctx, typ, n.Span())
		case core.MatchStuck:
			for _, b := range core.PatternBindings(con.Patterns) {
				if _, ok := sub.Get(b); !ok {
					sub.Add(b, c.newVar(b.Name, b.Type.Expr, n.Span()))
				}
			}
		}
	}
	if want := con.Parameters().Len(); want != len(n.Args) {
		c.errorf(diag.TCArityMismatch, n.Span(), fmt.Sprintf("%s takes %d arguments, the pattern has %d", n.Con, want, len(n.Args))).Emit()
		return c.wildcard(ctx, typ, n.Span())
	}
	v := core.NewSubstVisitor(c.arena, sub, dc.Levels)
	pats := make([]core.Pattern, len(n.Args))
	args := make([]core.Expr, len(n.Args))
	it := con.Parameters()
	for i, a := range n.Args {
		b := it.Binding()
		p, e, err := c.checkPattern(ctx, a, v.Apply(b.Type.Expr), n.Span())
		if err != nil {
			return nil, nil, err
		}
		pats[i], args[i] = p, e
		v.Exprs().Add(b, e)
		it = it.Next()
	}
	call := &core.ConCallExpr{Con: con, Levels: dc.Levels, DataArgs: dc.Args, Args: args}
	return &core.ConPattern{Con: con, Args: pats}, call, nil
}

// wildcard replaces a pattern that failed to check by a fresh variable.
func (c *Checker) wildcard(ctx context.Context, typ core.Expr, sp source.Span) (core.Pattern, core.Expr, error) {
	t, err := c.typeOf(ctx, typ)
	if err != nil {
		return nil, nil, err
	}
	b := c.arena.NewBindingAt("_", t, core.Explicit, sp)
	c.pushScope(b)
	return &core.BindingPattern{Binding: b}, core.Ref(b), nil
}

// checkAbsurd accepts typ when no constructor is available at it.
func (c *Checker) checkAbsurd(ctx context.Context, typ core.Expr, sp source.Span) error {
	nf, err := c.whnf(ctx, typ)
	if err != nil {
		return err
	}
	dc, ok := nf.(*core.DataCallExpr)
	if !ok {
		c.errorf(diag.TCPatternMismatch, sp, "absurd pattern at a type that is not a data type").
			WithNote(sp, "expected "+core.Format(nf)).
			Emit()
		return nil
	}
	for _, con := range dc.Data.Constructors {
		if con.Patterns == nil {
			c.errorf(diag.TCPatternMismatch, sp, fmt.Sprintf("absurd pattern, but %s is available", con.Name())).Emit()
			return nil
		}
		res, err := core.Match(con.Patterns, dc.Args, c.whnfFunc(ctx), core.NewExprSubst())
		if err != nil {
			return err
		}
		if res != core.MatchFail {
			c.errorf(diag.TCPatternMismatch, sp, fmt.Sprintf("absurd pattern, but %s may be available", con.Name())).Emit()
			return nil
		}
	}
	return nil
}

func isAbsurd(ps []core.Pattern) bool {
	for _, p := range ps {
		switch n := p.(type) {
		case *core.AbsurdPattern:
			return true
		case *core.ConPattern:
			if isAbsurd(n.Args) {
				return true
			}
		}
	}
	return false
}

// catchAll reports whether every pattern is a variable.
func catchAll(ps []core.Pattern) bool {
	for _, p := range ps {
		if _, ok := p.(*core.BindingPattern); !ok {
			return false
		}
	}
	return true
}
