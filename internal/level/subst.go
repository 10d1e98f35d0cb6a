package level

import (
	"fmt"
	"maps"
	"slices"
)

// Subst maps level variables to levels.
type Subst interface {
	Lookup(v Var) (Level, bool)
	IsEmpty() bool
}

// MapSubst is a finite substitution built incrementally, used by the
// level solver to publish its solution.
type MapSubst struct {
	m map[Var]Level
}

func NewMapSubst() *MapSubst {
	return &MapSubst{m: make(map[Var]Level)}
}

// Add binds v. Binding the same variable twice is a programming error.
func (s *MapSubst) Add(v Var, l Level) {
	if _, ok := s.m[v]; ok {
		panic(fmt.Errorf("level variable %s bound twice", v))
	}
	s.m[v] = l
}

// Set binds or rebinds v.
func (s *MapSubst) Set(v Var, l Level) { s.m[v] = l }

func (s *MapSubst) Lookup(v Var) (Level, bool) {
	if s == nil {
		return Level{}, false
	}
	l, ok := s.m[v]
	return l, ok
}

func (s *MapSubst) IsEmpty() bool { return s == nil || len(s.m) == 0 }

func (s *MapSubst) Len() int {
	if s == nil {
		return 0
	}
	return len(s.m)
}

// Vars lists the bound variables in canonical order.
func (s *MapSubst) Vars() []Var {
	if s == nil {
		return nil
	}
	vars := slices.Collect(maps.Keys(s.m))
	slices.SortFunc(vars, func(a, b Var) int {
		switch {
		case a == b:
			return 0
		case a.less(b):
			return -1
		default:
			return 1
		}
	})
	return vars
}

// Compose returns the substitution applying s and then next to the
// results; variables bound only by next are kept.
func (s *MapSubst) Compose(next Subst) *MapSubst {
	out := NewMapSubst()
	if s != nil {
		for v, l := range s.m {
			out.m[v] = l.Subst(next)
		}
	}
	if ms, ok := next.(*MapSubst); ok && ms != nil {
		for v, l := range ms.m {
			if _, bound := out.m[v]; !bound {
				out.m[v] = l
			}
		}
	}
	return out
}
