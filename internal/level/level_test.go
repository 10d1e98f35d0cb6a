package level

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	pv = ParamVar(DimP, 7, 0)
	hv = ParamVar(DimH, 7, 1)
	iv = InferVar(DimP, 1, 3)
)

func sampleLevels() []Level {
	return []Level{
		Const(PropH),
		Const(0),
		Const(3),
		OfVar(LP),
		OfVarOffset(LP, 2),
		Max(OfVar(LP), Const(5)),
		Max(OfVar(pv), OfVarOffset(iv, 1)),
		Max(OfVarOffset(LH, 1), OfVar(hv), Const(4)),
		Infinity(),
	}
}

func TestCompareReflexive(t *testing.T) {
	for _, l := range sampleLevels() {
		require.Equal(t, Equal, Compare(l, l), "level %s", l)
	}
}

func TestCompareAntisymmetric(t *testing.T) {
	ls := sampleLevels()
	for _, a := range ls {
		for _, b := range ls {
			if Le(a, b) && Le(b, a) {
				require.True(t, a.Equal(b), "%s and %s compare equal but differ", a, b)
			}
		}
	}
}

func TestCompareOrdering(t *testing.T) {
	require.Equal(t, Less, Compare(Const(0), Const(2)))
	require.Equal(t, Greater, Compare(OfVarOffset(LP, 1), OfVar(LP)))
	require.Equal(t, Incomparable, Compare(OfVar(LP), OfVar(pv)))
	require.Equal(t, Less, Compare(Const(1), OfVarOffset(LP, 1)))
	require.Equal(t, Incomparable, Compare(Const(2), OfVarOffset(LP, 1)))
	require.Equal(t, Less, Compare(OfVar(LP), Infinity()))
	require.Equal(t, Less, Compare(Const(PropH), Const(0)))
}

func TestNormalizationFoldsDominatedConstant(t *testing.T) {
	require.True(t, Max(OfVarOffset(LP, 2), Const(1)).Equal(OfVarOffset(LP, 2)))
	require.True(t, Max(OfVar(LP), OfVarOffset(LP, 1)).Equal(OfVarOffset(LP, 1)))
	require.Equal(t, 3, Max(OfVar(LP), Const(3)).Constant())
	require.True(t, Const(PropH).Add(1).Equal(Const(0)))
}

func TestSubst(t *testing.T) {
	s := NewMapSubst()
	s.Add(LP, Const(2))
	s.Add(pv, OfVarOffset(LH, 1))
	l := Max(OfVarOffset(LP, 1), OfVar(pv), Const(1))
	got := l.Subst(s)
	require.True(t, got.Equal(Max(Const(3), OfVarOffset(LH, 1))), "got %s", got)
	require.Panics(t, func() { s.Add(LP, Const(0)) })

	same := OfVar(hv)
	require.True(t, same.Subst(s).Equal(same))

	prop := NewMapSubst()
	prop.Add(LH, Const(PropH))
	require.True(t, OfVar(LH).Subst(prop).IsProp())
	require.True(t, OfVarOffset(LH, 1).Subst(prop).Equal(Const(0)))
	require.True(t, Max(OfVar(LH), Const(2)).Subst(prop).Equal(Const(2)))

	gotSort := Std.Subst(Pair{P: Const(0), H: Const(PropH)})
	require.True(t, gotSort.IsProp(), "got %s", gotSort)
	require.True(t, gotSort.Equal(Prop))
}

func TestPairAndListAsSubst(t *testing.T) {
	p := Pair{P: Const(1), H: Const(PropH)}
	got := Std.Subst(p)
	require.True(t, got.IsProp())

	list := List{Owner: 7, Values: []Level{Const(4), Const(0)}}
	require.True(t, OfVar(pv).Subst(list).Equal(Const(4)))
	require.True(t, OfVar(ParamVar(DimP, 8, 0)).Subst(list).Equal(OfVar(ParamVar(DimP, 8, 0))))
	require.True(t, EqualLevels(nil, Empty{}))
	require.False(t, EqualLevels(p, StdPair))
}

func TestPiSortImpredicative(t *testing.T) {
	domains := []Sort{
		Set0,
		Std,
		{P: Const(9), H: Infinity()},
		{P: OfVarOffset(iv, 4), H: Const(2)},
	}
	for _, d := range domains {
		require.True(t, PiSort([]Sort{d}, Prop).Equal(Prop), "domain %s", d)
	}
	got := PiSort([]Sort{{P: Const(3), H: Const(5)}}, Set0)
	require.True(t, got.Equal(Sort{P: Const(3), H: Const(0)}), "got %s", got)
}

func TestSortMaxAndSucc(t *testing.T) {
	require.True(t, MaxSorts().Equal(Prop))
	require.True(t, MaxSorts(Prop, Set0).Equal(Set0))
	require.True(t, Prop.Succ().Equal(Set0))
	require.True(t, Set0.Succ().Equal(Sort{P: Const(1), H: Const(1)}))
	require.True(t, Prop.Le(Std))
}

func TestTruncate(t *testing.T) {
	s := Sort{P: Const(2), H: Const(3)}
	require.True(t, s.Truncate(PropH).IsProp())
	require.True(t, s.Truncate(0).Equal(Sort{P: Const(2), H: Const(0)}))
	require.True(t, s.Truncate(-2).Equal(s))
	require.True(t, Set0.Truncate(1).Equal(Set0))
}
