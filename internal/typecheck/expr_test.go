package typecheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"kappa/internal/concrete"
	"kappa/internal/core"
	"kappa/internal/diag"
	"kappa/internal/solve"
	"kappa/internal/source"
)

func (f *fixture) checker() *Checker {
	return NewChecker(f.reg, "expr", diag.BagReporter{Bag: f.bag}, f.opts)
}

func TestApplicationSubstitutesCodomain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fn, n := f.local("f"), f.local("n")
	piType := &concrete.Pi{
		Params:   []concrete.Param{mkParam(global("Nat"), n)},
		Codomain: app(global("Fin"), app(global("suc"), ref(n))),
	}
	lam := &concrete.Lam{
		Params: []concrete.Param{mkParam(piType, fn)},
		Body:   app(ref(fn), num(0)),
	}
	c := f.checker()
	r, err := c.Elaborate(ctx, lam, nil)
	require.NoError(t, err)
	f.clean()

	pi, ok := r.Type.(*core.PiExpr)
	require.True(t, ok, "lambda type %s", core.Format(r.Type))
	cod, err := c.Normalize(ctx, pi.Codomain, NF)
	require.NoError(t, err)
	dc, ok := cod.(*core.DataCallExpr)
	require.True(t, ok, "codomain %s", core.Format(cod))
	require.Equal(t, "Fin", dc.Data.Name())
	require.Equal(t, int64(1), integer(t, dc.Args[0]))
}

func TestPiOverNatAndFin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.local("n")
	c := f.checker()
	r, err := c.Elaborate(ctx, &concrete.Pi{
		Params:   []concrete.Param{mkParam(global("Nat"), n)},
		Codomain: app(global("Fin"), ref(n)),
	}, nil)
	require.NoError(t, err)
	f.clean()

	pre := f.reg.Prelude()
	pi, ok := r.Expr.(*core.PiExpr)
	require.True(t, ok, "elaborated %s", core.Format(r.Expr))
	nb := pi.Params.Binding()
	dom, ok := nb.Type.Expr.(*core.DataCallExpr)
	require.True(t, ok, "domain %s", core.Format(nb.Type.Expr))
	require.Same(t, pre.Nat, dom.Data)

	cod, ok := pi.Codomain.(*core.DataCallExpr)
	require.True(t, ok, "codomain %s", core.Format(pi.Codomain))
	require.Same(t, pre.Fin, cod.Data)
	require.Len(t, cod.Args, 1)
	arg, ok := cod.Args[0].(*core.RefExpr)
	require.True(t, ok, "argument %s", core.Format(cod.Args[0]))
	require.Same(t, nb, arg.Binding)

	zero, err := c.Elaborate(ctx, global("zero"), nil)
	require.NoError(t, err)
	got := core.Subst(c.arena, pi.Codomain, core.SingleSubst(nb, zero.Expr))
	fin, ok := got.(*core.DataCallExpr)
	require.True(t, ok, "substituted %s", core.Format(got))
	require.Same(t, pre.Fin, fin.Data)
	require.True(t, core.AlphaEquivalent(fin.Args[0], zero.Expr), "Fin %s", core.Format(fin.Args[0]))
}

func TestPathOfConstantFunction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	i := f.local("i")
	e := app(global("path"), &concrete.Lam{
		Params: []concrete.Param{mkParam(global("I"), i)},
		Body:   num(0),
	})
	c := f.checker()
	r, err := c.Elaborate(ctx, e, nil)
	require.NoError(t, err)
	f.clean()
	typ, err := c.Normalize(ctx, r.Type, WHNF)
	require.NoError(t, err)
	dc, ok := typ.(*core.DataCallExpr)
	require.True(t, ok, "path type %s", core.Format(typ))
	require.Same(t, f.reg.Prelude().Path, dc.Data)
	p, ok := r.Expr.(*core.PathExpr)
	require.True(t, ok, "path term %s", core.Format(r.Expr))
	require.Nil(t, p.ArgType, "a constant family needs no type argument")
}

func TestTupleProjectionAndLet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.checker()

	proj := &concrete.Proj{Tuple: &concrete.Tuple{Fields: []concrete.Expr{num(1), universe()}}, Field: 0}
	r, err := c.Elaborate(ctx, proj, nil)
	require.NoError(t, err)
	dc, ok := r.Type.(*core.DataCallExpr)
	require.True(t, ok, "projection type %s", core.Format(r.Type))
	require.Same(t, f.reg.Prelude().Nat, dc.Data)

	x := f.local("x")
	let := &concrete.Let{
		Clauses: []concrete.LetClause{{Local: x, Value: num(2)}},
		Body:    app(global("suc"), ref(x)),
	}
	r, err = c.Elaborate(ctx, let, nil)
	require.NoError(t, err)
	f.clean()
	nf, err := c.Normalize(ctx, r.Expr, NF)
	require.NoError(t, err)
	require.Equal(t, int64(3), integer(t, nf))
}

func TestArrayLiteral(t *testing.T) {
	f := newFixture(t)
	c := f.checker()
	r, err := c.Elaborate(context.Background(), &concrete.Array{Elements: []concrete.Expr{num(1), num(2)}}, nil)
	require.NoError(t, err)
	f.clean()
	arr, ok := r.Expr.(*core.ArrayExpr)
	require.True(t, ok, "array term %s", core.Format(r.Expr))
	require.Len(t, arr.Elements, 2)
	dc, ok := r.Type.(*core.DataCallExpr)
	require.True(t, ok)
	require.Same(t, f.reg.Prelude().Array, dc.Data)
}

func TestCompare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.checker()
	nat, err := c.Elaborate(ctx, global("Nat"), nil)
	require.NoError(t, err)
	fin, err := c.Elaborate(ctx, app(global("Fin"), num(0)), nil)
	require.NoError(t, err)

	same, err := c.Compare(ctx, nat.Expr, nat.Expr, nat.Type, solve.CmpEQ, source.NoSpan)
	require.NoError(t, err)
	require.True(t, same)
	differ, err := c.Compare(ctx, nat.Expr, fin.Expr, nil, solve.CmpEQ, source.NoSpan)
	require.NoError(t, err)
	require.False(t, differ)
}

func TestUnknownNamesAndLevels(t *testing.T) {
	f := newFixture(t)
	c := f.checker()
	r, err := c.Elaborate(context.Background(), global("nowhere"), nil)
	require.NoError(t, err)
	require.True(t, r.Failed())
	require.True(t, f.has(diag.TCUnknownDefinition))

	_, err = c.Elaborate(context.Background(), &concrete.Universe{P: concrete.LevelStd{}}, nil)
	require.NoError(t, err)
	require.True(t, f.has(diag.LvlArityMismatch), "\\lp outside a definition with level parameters")
	require.Equal(t, 2, c.Errors())
}
