package solve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"kappa/internal/core"
	"kappa/internal/level"
	"kappa/internal/normalize"
	"kappa/internal/prelude"
	"kappa/internal/source"
)

type fixture struct {
	p     *prelude.Prelude
	arena *core.Arena
	s     *Solver
}

func newFixture() *fixture {
	arena := core.NewArena(32)
	return &fixture{
		p:     prelude.New(),
		arena: arena,
		s:     New(arena, normalize.New(arena, normalize.Options{}), 1, Options{}),
	}
}

func (f *fixture) nat() core.Expr { return core.MustDataCall(f.p.Nat, nil) }

func (f *fixture) natType() core.Type { return core.Type{Expr: f.nat(), Sort: level.Set0} }

func (f *fixture) v(name string) *core.Binding {
	return f.arena.NewBinding(name, f.natType(), core.Explicit)
}

func (f *fixture) zero() core.Expr { return core.MustConCall(f.p.Zero, nil, nil) }

func (f *fixture) suc(e core.Expr) core.Expr { return core.MustConCall(f.p.Suc, nil, nil, e) }

func (f *fixture) hole(name string, scope ...*core.Binding) (*core.InferenceVar, core.Expr) {
	v := f.s.NewInferenceVar(name, f.nat(), scope, source.NoSpan)
	return v, &core.InferenceRefExpr{Var: v}
}

// double n by recursion on n.
func (f *fixture) double() *core.FunctionDef {
	def := core.NewFunctionDef("double", source.NoSpan)
	def.SetParameters(core.Telescope(f.v("n")))
	def.ResultType = f.natType()
	m := f.v("m")
	def.Clauses = []*core.Clause{
		{Patterns: []core.Pattern{&core.ConPattern{Con: f.p.Zero}}, Body: f.zero()},
		{Patterns: []core.Pattern{&core.ConPattern{Con: f.p.Suc, Args: []core.Pattern{&core.BindingPattern{Binding: m}}}}},
	}
	def.Clauses[1].Body = f.suc(f.suc(core.MustFunCall(def, nil, core.Ref(m))))
	return def
}

func (f *fixture) compare(t *testing.T, a, b core.Expr, cmp Cmp) Outcome {
	t.Helper()
	out, err := f.s.Compare(context.Background(), a, b, nil, cmp, source.NoSpan)
	require.NoError(t, err)
	return out
}

func TestDistinctConstructorsFail(t *testing.T) {
	f := newFixture()
	n := f.v("n")
	out := f.compare(t, f.zero(), f.suc(core.Ref(n)), CmpEQ)
	require.Equal(t, StateFailed, out.State)
	require.NotNil(t, out.LeftNF)
	require.NotNil(t, out.RightNF)
	require.Equal(t, StateFailed, f.s.State())
	require.Len(t, f.s.Outcomes(), 1)

	// A numeral against a successor fails the same way.
	out = f.compare(t, f.p.NatLit(0), f.suc(core.Ref(n)), CmpEQ)
	require.Equal(t, StateFailed, out.State)
}

func TestNumeralsMeetConstructors(t *testing.T) {
	f := newFixture()
	out := f.compare(t, f.p.NatLit(2), f.suc(f.suc(f.zero())), CmpEQ)
	require.Equal(t, StateSolved, out.State)
	out = f.compare(t, f.p.NatLit(2), f.p.NatLit(3), CmpEQ)
	require.Equal(t, StateFailed, out.State)
}

func TestInferenceSolvedOnce(t *testing.T) {
	f := newFixture()
	v, hole := f.hole("x")

	require.Equal(t, StateSolved, f.compare(t, hole, f.p.NatLit(2), CmpEQ).State)
	require.True(t, v.IsSolved())
	first := v.Solution

	require.Equal(t, StateSolved, f.compare(t, f.suc(hole), f.p.NatLit(3), CmpEQ).State)
	require.Equal(t, StateFailed, f.compare(t, hole, f.p.NatLit(5), CmpEQ).State)
	require.Same(t, first, v.Solution)
	require.Empty(t, f.s.Unsolved())
}

func TestDeferredEquationIsRetried(t *testing.T) {
	f := newFixture()
	double := f.double()
	v, hole := f.hole("x")

	out := f.compare(t, core.MustFunCall(double, nil, hole), f.p.NatLit(4), CmpEQ)
	require.Equal(t, StateStuck, out.State)
	require.Len(t, f.s.Pending(v), 1)

	require.Equal(t, StateSolved, f.compare(t, hole, f.p.NatLit(2), CmpEQ).State)
	state, err := f.s.Solve(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateSolved, state)
	require.Empty(t, f.s.Pending(v))
}

func TestStuckEquationsAreReported(t *testing.T) {
	f := newFixture()
	double := f.double()
	_, hole := f.hole("x")
	require.Equal(t, StateStuck, f.compare(t, core.MustFunCall(double, nil, hole), f.p.NatLit(4), CmpEQ).State)

	outcomes, err := f.s.Finish(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, StateStuck, outcomes[0].State)
	require.Equal(t, StateStuck, f.s.State())
}

func TestScopeEscapeDefers(t *testing.T) {
	f := newFixture()
	y := f.v("y")
	v, hole := f.hole("x")
	require.Equal(t, StateStuck, f.compare(t, hole, core.Ref(y), CmpEQ).State)
	require.False(t, v.IsSolved())

	w, scoped := f.hole("z", y)
	require.Equal(t, StateSolved, f.compare(t, scoped, core.Ref(y), CmpEQ).State)
	require.True(t, w.IsSolved())
}

func TestRecursiveSolutionFails(t *testing.T) {
	f := newFixture()
	_, hole := f.hole("x")
	require.Equal(t, StateFailed, f.compare(t, hole, f.suc(hole), CmpEQ).State)
}

func TestGreaterIsStoredAsLess(t *testing.T) {
	eq := NewEquation(core.Universe(level.Set0), core.Universe(level.Prop), nil, CmpGE, source.NoSpan)
	require.Equal(t, CmpLE, eq.Cmp)
	_, ok := eq.Left.(*core.UniverseExpr)
	require.True(t, ok)
	require.True(t, eq.Left.(*core.UniverseExpr).Sort.IsProp())
}

func TestUniverseCumulativity(t *testing.T) {
	f := newFixture()
	small := core.Universe(level.Set0)
	big := core.Universe(level.NewSort(level.Const(1), level.Const(0)))
	require.Equal(t, StateSolved, f.compare(t, small, big, CmpLE).State)
	require.Equal(t, StateFailed, f.compare(t, big, small, CmpLE).State)
	require.Equal(t, StateFailed, f.compare(t, small, big, CmpEQ).State)
}

func TestUniverseLevelInference(t *testing.T) {
	f := newFixture()
	p, h := f.s.NewLevelVar(level.DimP), f.s.NewLevelVar(level.DimH)
	target := core.Universe(level.NewSort(level.OfVar(p), level.OfVar(h)))

	require.Equal(t, StateSolved, f.compare(t, core.Universe(level.NewSort(level.Const(2), level.Const(0))), target, CmpLE).State)
	require.Equal(t, StateSolved, f.compare(t, core.Universe(level.NewSort(level.Const(1), level.Const(1))), target, CmpLE).State)

	sol, err := f.s.Levels().SolveLevels(context.Background())
	require.NoError(t, err)
	lp, ok := sol.Lookup(p)
	require.True(t, ok)
	require.True(t, lp.Equal(level.Const(2)), "got %s", lp)
	lh, _ := sol.Lookup(h)
	require.True(t, lh.Equal(level.Const(1)), "got %s", lh)
}

func TestPiTelescopesSplit(t *testing.T) {
	f := newFixture()
	x1, y1 := f.v("x"), f.v("y")
	joined := core.Pi(core.Telescope(x1, y1), f.natType())
	x2, y2 := f.v("x"), f.v("y")
	nested := core.Pi(core.Telescope(x2), core.Type{Expr: core.Pi(core.Telescope(y2), f.natType()), Sort: level.Set0})
	require.Equal(t, StateSolved, f.compare(t, joined, nested, CmpEQ).State)

	x3 := f.v("x")
	other := core.Pi(core.Telescope(x3), core.Type{Expr: core.Universe(level.Set0), Sort: level.Set0.Succ()})
	require.Equal(t, StateFailed, f.compare(t, joined, other, CmpEQ).State)
}

func TestLambdaEta(t *testing.T) {
	f := newFixture()
	fn := f.arena.NewBinding("f", core.Type{Expr: core.Pi(core.Telescope(f.v("_")), f.natType()), Sort: level.Set0}, core.Explicit)
	x := f.v("x")
	eta := core.Lam(core.Telescope(x), core.Apps(core.Ref(fn), core.Ref(x)))
	require.Equal(t, StateSolved, f.compare(t, eta, core.Ref(fn), CmpEQ).State)
	require.Equal(t, StateSolved, f.compare(t, core.Ref(fn), eta, CmpEQ).State)
}

func TestPathsCompareByFunction(t *testing.T) {
	f := newFixture()
	family := f.p.ConstFamily(f.arena, f.natType())
	lhs := &core.PathExpr{Levels: level.StdPair, Arg: f.p.ConstFamily(f.arena, core.Type{Expr: f.p.NatLit(1), Sort: level.Set0})}
	rhs := &core.PathExpr{Levels: level.StdPair, ArgType: family, Arg: f.p.ConstFamily(f.arena, core.Type{Expr: f.p.NatLit(1), Sort: level.Set0})}
	require.Equal(t, StateSolved, f.compare(t, lhs, rhs, CmpEQ).State)

	diff := &core.PathExpr{Levels: level.StdPair, Arg: f.p.ConstFamily(f.arena, core.Type{Expr: f.p.NatLit(2), Sort: level.Set0})}
	require.Equal(t, StateFailed, f.compare(t, lhs, diff, CmpEQ).State)
}

func TestPathsCompareLevelsAndFamilies(t *testing.T) {
	f := newFixture()
	fn := func() core.Expr { return f.p.ConstFamily(f.arena, core.Type{Expr: f.p.NatLit(1), Sort: level.Set0}) }
	low := &core.PathExpr{Levels: level.Pair{P: level.Const(1), H: level.Const(0)}, Arg: fn()}
	high := &core.PathExpr{Levels: level.Pair{P: level.Const(2), H: level.Const(0)}, Arg: fn()}
	require.Equal(t, StateFailed, f.compare(t, low, high, CmpEQ).State)

	i := f.arena.NewBinding("i", core.Type{Expr: core.MustDataCall(f.p.I, nil), Sort: level.Set0}, core.Explicit)
	constant := core.Lam(core.Telescope(i), core.MustDataCall(f.p.Fin, nil, f.p.NatLit(1)))
	dependent := &core.PathExpr{Levels: level.StdPair, ArgType: constant, Arg: fn()}
	plain := &core.PathExpr{Levels: level.StdPair, Arg: fn()}
	require.Equal(t, StateSolved, f.compare(t, plain, dependent, CmpEQ).State,
		"a lambda that ignores i is still constant")

	j := f.arena.NewBinding("j", core.Type{Expr: core.MustDataCall(f.p.I, nil), Sort: level.Set0}, core.Explicit)
	along := core.Lam(core.Telescope(j), core.Ref(j))
	require.True(t, dependentFamily(along))
	require.False(t, dependentFamily(constant))
	require.Equal(t, StateFailed, f.compare(t, plain, &core.PathExpr{Levels: level.StdPair, ArgType: along, Arg: fn()}, CmpEQ).State)
}

func TestArraysWithTail(t *testing.T) {
	f := newFixture()
	tail := f.arena.NewBinding("xs", f.natType(), core.Explicit)
	closed := &core.ArrayExpr{Elements: []core.Expr{f.p.NatLit(1), f.p.NatLit(2)}}
	open := &core.ArrayExpr{Elements: []core.Expr{f.p.NatLit(1)}, Tail: &core.ArrayExpr{Elements: []core.Expr{f.p.NatLit(2)}}}
	require.Equal(t, StateSolved, f.compare(t, closed, open, CmpEQ).State)

	short := &core.ArrayExpr{Elements: []core.Expr{f.p.NatLit(1)}}
	require.Equal(t, StateFailed, f.compare(t, closed, short, CmpEQ).State)

	withVar := &core.ArrayExpr{Elements: []core.Expr{f.p.NatLit(1)}, Tail: core.Ref(tail)}
	require.Equal(t, StateFailed, f.compare(t, closed, withVar, CmpEQ).State)
}

func TestErrorPlaceholderEqualsAnything(t *testing.T) {
	f := newFixture()
	require.Equal(t, StateSolved, f.compare(t, &core.ErrorExpr{Reason: "bad"}, f.p.NatLit(3), CmpEQ).State)
}

func TestCompareHonoursCancellation(t *testing.T) {
	arena := core.NewArena(4)
	p := prelude.New()
	s := New(arena, normalize.New(arena, normalize.Options{}), 1, Options{PollInterval: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Compare(ctx, p.NatLit(1), p.NatLit(2), nil, CmpEQ, source.NoSpan)
	require.True(t, errors.Is(err, ErrInterrupted))
	require.True(t, errors.Is(err, context.Canceled))
}
