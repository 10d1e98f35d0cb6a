package solve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"kappa/internal/level"
	"kappa/internal/source"
)

func pv(i uint32) level.Var { return level.InferVar(level.DimP, 1, i) }

func solveLevels(t *testing.T, eqs *LevelEquations) (*level.MapSubst, error) {
	t.Helper()
	return eqs.SolveLevels(context.Background())
}

func requireValue(t *testing.T, sol *level.MapSubst, v level.Var, want level.Level) {
	t.Helper()
	got, ok := sol.Lookup(v)
	require.True(t, ok, "no value for %s", v)
	require.True(t, got.Equal(want), "%s = %s, want %s", v, got, want)
}

func TestLevelChainTerminates(t *testing.T) {
	eqs := NewLevelEquations()
	a, b, c := pv(1), pv(2), pv(3)
	eqs.Le(a, b, 1, source.NoSpan)
	eqs.Le(b, c, 1, source.NoSpan)
	eqs.LowerBound(2, a, source.NoSpan)

	sol, err := solveLevels(t, eqs)
	require.NoError(t, err)
	requireValue(t, sol, a, level.Const(2))
	requireValue(t, sol, b, level.Const(3))
	requireValue(t, sol, c, level.Const(4))
}

func TestZeroWeightCycleConverges(t *testing.T) {
	eqs := NewLevelEquations()
	a, b := pv(1), pv(2)
	eqs.Le(a, b, 0, source.NoSpan)
	eqs.Le(b, a, 0, source.NoSpan)
	eqs.LowerBound(3, a, source.NoSpan)

	sol, err := solveLevels(t, eqs)
	require.NoError(t, err)
	requireValue(t, sol, a, level.Const(3))
	requireValue(t, sol, b, level.Const(3))
}

func TestPositiveCycleIsReported(t *testing.T) {
	eqs := NewLevelEquations()
	a, b := pv(1), pv(2)
	eqs.Le(a, b, 1, source.NoSpan)
	eqs.Le(b, a, 0, source.NoSpan)

	_, err := solveLevels(t, eqs)
	var cycle *LevelCycleError
	require.True(t, errors.As(err, &cycle), "got %v", err)
	require.ElementsMatch(t, []level.Var{a, b}, cycle.Vars)
	require.Len(t, cycle.Equations, 2)
}

func TestUpperBoundViolation(t *testing.T) {
	eqs := NewLevelEquations()
	a := pv(1)
	eqs.LowerBound(3, a, source.NoSpan)
	eqs.Bound(a, 0, 2, source.NoSpan)

	_, err := solveLevels(t, eqs)
	var inc *LevelInconsistencyError
	require.True(t, errors.As(err, &inc), "got %v", err)
	require.Equal(t, LevelBound, inc.Equation.Kind)
}

func TestFixedVariablesCannotBeRaised(t *testing.T) {
	eqs := NewLevelEquations()
	a := pv(1)
	eqs.Le(level.LP, a, 0, source.NoSpan)
	sol, err := solveLevels(t, eqs)
	require.NoError(t, err)
	requireValue(t, sol, a, level.OfVar(level.LP))

	eqs.Le(a, level.LP, 1, source.NoSpan)
	_, err = solveLevels(t, eqs)
	var inc *LevelInconsistencyError
	require.True(t, errors.As(err, &inc), "got %v", err)
}

func TestCatDefaultsToStandardVariable(t *testing.T) {
	eqs := NewLevelEquations()
	a := pv(1)
	h := level.InferVar(level.DimH, 1, 2)
	eqs.Cat(a, source.NoSpan)
	eqs.Cat(h, source.NoSpan)
	sol, err := solveLevels(t, eqs)
	require.NoError(t, err)
	requireValue(t, sol, a, level.OfVar(level.LP))
	requireValue(t, sol, h, level.OfVar(level.LH))
}

func TestInfinityPropagates(t *testing.T) {
	eqs := NewLevelEquations()
	a, b := pv(1), pv(2)
	eqs.Infinity(a, source.NoSpan)
	eqs.Le(a, b, 0, source.NoSpan)
	sol, err := solveLevels(t, eqs)
	require.NoError(t, err)
	got, _ := sol.Lookup(b)
	require.True(t, got.IsInfinity())
}

func TestAddLeTranslation(t *testing.T) {
	eqs := NewLevelEquations()
	a, b := pv(1), pv(2)
	require.True(t, eqs.AddLe(level.OfVarOffset(a, 2), level.OfVar(b), source.NoSpan))
	require.Equal(t, 1, eqs.Len())
	require.Equal(t, LevelEquation{Kind: LevelLe, Var1: a, Var2: b, Constant: 2}, eqs.All()[0])

	require.True(t, eqs.AddLe(level.OfVar(a), level.Const(1), source.NoSpan))
	require.Equal(t, LevelBound, eqs.All()[1].Kind)

	require.False(t, eqs.AddLe(level.Const(2), level.Const(1), source.NoSpan))
	require.False(t, eqs.AddLe(level.Infinity(), level.OfVar(level.LP), source.NoSpan))
	require.True(t, eqs.AddLe(level.OfVar(level.LP), level.Max(level.OfVar(level.LP), level.Const(3)), source.NoSpan))
}

func TestLevelSolverHonoursCancellation(t *testing.T) {
	eqs := NewLevelEquations()
	eqs.Le(pv(1), pv(2), 0, source.NoSpan)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eqs.SolveLevels(ctx)
	require.ErrorIs(t, err, ErrInterrupted)
}
