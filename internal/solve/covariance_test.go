package solve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kappa/internal/core"
	"kappa/internal/level"
	"kappa/internal/source"
)

func typeParam(arena *core.Arena, name string) *core.Binding {
	return arena.NewBinding(name, core.Type{Expr: core.Universe(level.Set0), Sort: level.Set0.Succ()}, core.Explicit)
}

// listData builds List (A : \Type) with nil and cons (x : A) (xs : List A).
func listData(arena *core.Arena) *core.DataDef {
	d := core.NewDataDef("List", source.NoSpan)
	a := typeParam(arena, "A")
	d.SetParameters(core.Telescope(a))
	d.AddConstructor(core.NewConstructor("nil", source.NoSpan))
	cons := core.NewConstructor("cons", source.NoSpan)
	x := arena.NewBinding("x", core.Type{Expr: core.Ref(a), Sort: level.Set0}, core.Explicit)
	xs := arena.NewBinding("xs", core.Type{Expr: core.MustDataCall(d, nil, core.Ref(a)), Sort: level.Set0}, core.Explicit)
	cons.SetParameters(core.Telescope(x, xs))
	d.AddConstructor(cons)
	return d
}

// negData builds Neg (A : \Type) with mk (f : A -> Nat).
func negData(arena *core.Arena, nat core.Type) *core.DataDef {
	d := core.NewDataDef("Neg", source.NoSpan)
	a := typeParam(arena, "A")
	d.SetParameters(core.Telescope(a))
	mk := core.NewConstructor("mk", source.NoSpan)
	arg := arena.NewBinding("_", core.Type{Expr: core.Ref(a), Sort: level.Set0}, core.Explicit)
	fn := arena.NewBinding("f", core.Type{Expr: core.Pi(core.Telescope(arg), nat), Sort: level.Set0}, core.Explicit)
	mk.SetParameters(core.Telescope(fn))
	d.AddConstructor(mk)
	return d
}

func TestCovarianceFlags(t *testing.T) {
	f := newFixture()
	list := listData(f.arena)
	require.Equal(t, []bool{true}, CheckCovariance(list))

	neg := negData(f.arena, f.natType())
	require.Equal(t, []bool{false}, CheckCovariance(neg))

	box := listData(f.arena)
	box.TruncatedLevel = level.PropH
	require.Equal(t, []bool{false}, CheckCovariance(box))

	vec := core.NewDataDef("Vec", source.NoSpan)
	vec.SetParameters(core.Telescope(f.v("n")))
	require.Equal(t, []bool{false}, CheckCovariance(vec))
}

func TestCovariantParametersAllowSubtyping(t *testing.T) {
	f := newFixture()
	list := listData(f.arena)
	CheckCovariance(list)
	neg := negData(f.arena, f.natType())
	CheckCovariance(neg)

	small := core.Universe(level.Set0)
	big := core.Universe(level.NewSort(level.Const(1), level.Const(0)))

	out := f.compare(t, core.MustDataCall(list, nil, small), core.MustDataCall(list, nil, big), CmpLE)
	require.Equal(t, StateSolved, out.State)

	out = f.compare(t, core.MustDataCall(neg, nil, small), core.MustDataCall(neg, nil, big), CmpLE)
	require.Equal(t, StateFailed, out.State)
}
