package solve

import (
	"context"
	"fmt"
	"strings"

	"kappa/internal/level"
)

// LevelCycleError reports a cycle of level constraints with a positive
// total offset, such as ?a + 1 <= ?b, ?b <= ?a.
type LevelCycleError struct {
	Vars      []level.Var
	Equations []LevelEquation
}

func (e *LevelCycleError) Error() string {
	parts := make([]string, 0, len(e.Vars)+1)
	for _, v := range e.Vars {
		parts = append(parts, v.String())
	}
	if len(e.Vars) > 0 {
		parts = append(parts, e.Vars[0].String())
	}
	return "positive level cycle: " + strings.Join(parts, " -> ")
}

// LevelInconsistencyError reports an equation that the least solution
// violates, usually an upper bound or a fixed variable.
type LevelInconsistencyError struct {
	Equation LevelEquation
	Value    level.Level
}

func (e *LevelInconsistencyError) Error() string {
	return fmt.Sprintf("level constraint %s cannot hold: left side is at least %s", e.Equation, e.Value)
}

// SolveLevels computes the least assignment of the inference variables
// that satisfies every equation. Standard variables and definition
// parameters are fixed. The propagation runs at most one round per
// variable more than a cycle-free system needs, so it always terminates.
func (s *LevelEquations) SolveLevels(ctx context.Context) (*level.MapSubst, error) {
	var order []level.Var
	value := make(map[level.Var]level.Level)
	seen := func(v level.Var, init level.Level) {
		if v.Kind != level.KindInfer {
			return
		}
		if _, ok := value[v]; !ok {
			order = append(order, v)
			value[v] = init
		}
	}
	for _, eq := range s.eqs {
		switch eq.Kind {
		case LevelLe:
			seen(eq.Var1, level.Const(0))
			seen(eq.Var2, level.Const(0))
		case LevelLowerBound:
			seen(eq.Var2, level.Const(0))
		case LevelBound:
			seen(eq.Var1, level.Const(0))
		case LevelCat:
			seen(eq.Var1, level.Const(0))
			if eq.Var1.Kind == level.KindInfer {
				value[eq.Var1] = value[eq.Var1].Max(level.OfVar(level.StdFor(eq.Var1.Dim)))
			}
		case LevelInfinity:
			seen(eq.Var1, level.Const(0))
			if eq.Var1.Kind == level.KindInfer {
				value[eq.Var1] = level.Infinity()
			}
		}
	}
	valueOf := func(v level.Var) level.Level {
		if v.Kind != level.KindInfer {
			return level.OfVar(v)
		}
		return value[v]
	}

	pred := make(map[level.Var]int)
	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		var last level.Var
		changed := false
		for i, eq := range s.eqs {
			var target level.Var
			var cand level.Level
			switch eq.Kind {
			case LevelLe:
				target, cand = eq.Var2, shift(valueOf(eq.Var1), eq.Constant)
			case LevelLowerBound:
				if eq.Constant <= 0 {
					continue
				}
				target, cand = eq.Var2, level.Const(eq.Constant)
			default:
				continue
			}
			if target.Kind != level.KindInfer || level.Le(cand, value[target]) {
				continue
			}
			value[target] = value[target].Max(cand)
			pred[target] = i
			last, changed = target, true
		}
		if !changed {
			break
		}
		if round > len(order) {
			return nil, s.cycleFrom(last, pred, len(order))
		}
	}

	for _, eq := range s.eqs {
		var lhs, rhs level.Level
		switch eq.Kind {
		case LevelLe:
			lhs, rhs = shift(valueOf(eq.Var1), eq.Constant), valueOf(eq.Var2)
		case LevelLowerBound:
			if eq.Constant <= 0 {
				continue
			}
			lhs, rhs = level.Const(eq.Constant), valueOf(eq.Var2)
		case LevelBound:
			lhs, rhs = shift(valueOf(eq.Var1), eq.Constant), level.Const(eq.MaxConstant)
		default:
			continue
		}
		if !level.Le(lhs, rhs) {
			return nil, &LevelInconsistencyError{Equation: eq, Value: lhs}
		}
	}

	out := level.NewMapSubst()
	for _, v := range order {
		out.Add(v, value[v])
	}
	return out, nil
}

// cycleFrom walks the equations that last raised each variable back from
// v until it closes a loop.
func (s *LevelEquations) cycleFrom(v level.Var, pred map[level.Var]int, n int) *LevelCycleError {
	for range n {
		i, ok := pred[v]
		if !ok || s.eqs[i].Var1.Kind != level.KindInfer {
			break
		}
		v = s.eqs[i].Var1
	}
	cycle := &LevelCycleError{}
	start := v
	for range n + 1 {
		i, ok := pred[v]
		if !ok || s.eqs[i].Kind != LevelLe {
			break
		}
		cycle.Equations = append(cycle.Equations, s.eqs[i])
		v = s.eqs[i].Var1
		cycle.Vars = append(cycle.Vars, v)
		if v == start {
			break
		}
	}
	for i, j := 0, len(cycle.Vars)-1; i < j; i, j = i+1, j-1 {
		cycle.Vars[i], cycle.Vars[j] = cycle.Vars[j], cycle.Vars[i]
		cycle.Equations[i], cycle.Equations[j] = cycle.Equations[j], cycle.Equations[i]
	}
	return cycle
}

// shift adds c to every component of l. Negative shifts saturate at 0,
// which over-approximates the bound.
func shift(l level.Level, c int) level.Level {
	if c >= 0 || l.IsInfinity() {
		return l.Add(max(c, 0))
	}
	parts := []level.Level{level.Const(max(l.Constant()+c, 0))}
	for _, t := range l.Terms() {
		parts = append(parts, level.OfVarOffset(t.Var, max(t.Offset+c, 0)))
	}
	return level.Max(parts...)
}
