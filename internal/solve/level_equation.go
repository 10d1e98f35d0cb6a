package solve

import (
	"fmt"

	"kappa/internal/level"
	"kappa/internal/source"
)

// LevelEquationKind selects which fields of a LevelEquation are used.
type LevelEquationKind uint8

const (
	// LevelLe is Var1 + Constant <= Var2.
	LevelLe LevelEquationKind = iota
	// LevelLowerBound is Constant <= Var2.
	LevelLowerBound
	// LevelBound is Var1 + Constant <= MaxConstant.
	LevelBound
	// LevelInfinity forces Var1 to infinity.
	LevelInfinity
	// LevelCat marks Var1 as ranging over the standard variable of its
	// dimension: it defaults to \lp or \lh instead of 0.
	LevelCat
)

func (k LevelEquationKind) String() string {
	switch k {
	case LevelLe:
		return "le"
	case LevelLowerBound:
		return "lower"
	case LevelBound:
		return "bound"
	case LevelInfinity:
		return "infinity"
	case LevelCat:
		return "cat"
	default:
		return fmt.Sprintf("LevelEquationKind(%d)", k)
	}
}

// LevelEquation relates level variables with an additive constant offset.
type LevelEquation struct {
	Kind        LevelEquationKind
	Var1        level.Var
	Var2        level.Var
	Constant    int
	MaxConstant int
	Source      source.Span
}

func (e LevelEquation) String() string {
	switch e.Kind {
	case LevelLe:
		return fmt.Sprintf("%s%s <= %s", e.Var1, offset(e.Constant), e.Var2)
	case LevelLowerBound:
		return fmt.Sprintf("%d <= %s", e.Constant, e.Var2)
	case LevelBound:
		return fmt.Sprintf("%s%s <= %d", e.Var1, offset(e.Constant), e.MaxConstant)
	case LevelInfinity:
		return fmt.Sprintf("%s = \\oo", e.Var1)
	case LevelCat:
		return fmt.Sprintf("cat %s", e.Var1)
	default:
		return e.Kind.String()
	}
}

func offset(c int) string {
	switch {
	case c > 0:
		return fmt.Sprintf(" + %d", c)
	case c < 0:
		return fmt.Sprintf(" - %d", -c)
	default:
		return ""
	}
}

// LevelEquations collects the level constraints of one checker run.
type LevelEquations struct {
	eqs []LevelEquation
}

func NewLevelEquations() *LevelEquations {
	return &LevelEquations{}
}

func (s *LevelEquations) Len() int { return len(s.eqs) }

// All returns the collected equations. Callers must not modify the slice.
func (s *LevelEquations) All() []LevelEquation { return s.eqs }

func (s *LevelEquations) Add(eq LevelEquation) { s.eqs = append(s.eqs, eq) }

func (s *LevelEquations) Le(v1, v2 level.Var, c int, src source.Span) {
	s.Add(LevelEquation{Kind: LevelLe, Var1: v1, Var2: v2, Constant: c, Source: src})
}

func (s *LevelEquations) LowerBound(c int, v level.Var, src source.Span) {
	s.Add(LevelEquation{Kind: LevelLowerBound, Var2: v, Constant: c, Source: src})
}

func (s *LevelEquations) Bound(v level.Var, c, maxConstant int, src source.Span) {
	s.Add(LevelEquation{Kind: LevelBound, Var1: v, Constant: c, MaxConstant: maxConstant, Source: src})
}

func (s *LevelEquations) Infinity(v level.Var, src source.Span) {
	s.Add(LevelEquation{Kind: LevelInfinity, Var1: v, Source: src})
}

func (s *LevelEquations) Cat(v level.Var, src source.Span) {
	s.Add(LevelEquation{Kind: LevelCat, Var1: v, Source: src})
}

// AddLe records constraints that make l1 <= l2. It returns false when the
// relation cannot hold whatever the inference variables become.
func (s *LevelEquations) AddLe(l1, l2 level.Level, src source.Span) bool {
	if level.Le(l1, l2) || l2.IsInfinity() {
		return true
	}
	target, hasTarget := inferTerm(l2)
	if l1.IsInfinity() {
		if !hasTarget {
			return false
		}
		s.Infinity(target.Var, src)
		return true
	}
	for _, t1 := range l1.Terms() {
		if covered(t1, l2) {
			continue
		}
		switch {
		case hasTarget:
			s.Le(t1.Var, target.Var, t1.Offset-target.Offset, src)
		case t1.Var.Kind == level.KindInfer && len(l2.Terms()) == 0:
			s.Bound(t1.Var, t1.Offset, l2.Constant(), src)
		case t1.Var.Kind == level.KindInfer && len(l2.Terms()) == 1:
			t2 := l2.Terms()[0]
			s.Le(t1.Var, t2.Var, t1.Offset-t2.Offset, src)
		default:
			return false
		}
	}
	if c := l1.Constant(); !level.Le(level.Const(c), l2) {
		if !hasTarget {
			return false
		}
		s.LowerBound(c-target.Offset, target.Var, src)
	}
	return true
}

// AddEq records l1 <= l2 and l2 <= l1.
func (s *LevelEquations) AddEq(l1, l2 level.Level, src source.Span) bool {
	return s.AddLe(l1, l2, src) && s.AddLe(l2, l1, src)
}

// AddSortLe relates both dimensions of two sorts.
func (s *LevelEquations) AddSortLe(s1, s2 level.Sort, src source.Span) bool {
	if s1.IsProp() {
		return true
	}
	return s.AddLe(s1.P, s2.P, src) && s.AddLe(s1.H, s2.H, src)
}

func (s *LevelEquations) AddSortEq(s1, s2 level.Sort, src source.Span) bool {
	return s.AddEq(s1.P, s2.P, src) && s.AddEq(s1.H, s2.H, src)
}

// AddLevelsLe relates level arguments pointwise.
func (s *LevelEquations) AddLevelsLe(a, b level.Levels, cmp Cmp, src source.Span) bool {
	if a == nil || b == nil || a.Len() != b.Len() {
		return level.EqualLevels(a, b)
	}
	for i := 0; i < a.Len(); i++ {
		ok := false
		if cmp == CmpLE {
			ok = s.AddLe(a.At(i), b.At(i), src)
		} else {
			ok = s.AddEq(a.At(i), b.At(i), src)
		}
		if !ok {
			return false
		}
	}
	return true
}

func inferTerm(l level.Level) (level.Term, bool) {
	for _, t := range l.Terms() {
		if t.Var.Kind == level.KindInfer {
			return t, true
		}
	}
	return level.Term{}, false
}

func covered(t level.Term, l level.Level) bool {
	for _, t2 := range l.Terms() {
		if t2.Var == t.Var && t2.Offset >= t.Offset {
			return true
		}
	}
	return false
}
