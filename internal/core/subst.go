package core

import (
	"fmt"
	"maps"
	"slices"
)

// ExprSubst maps bindings to expressions. Keys are unique: Add panics on
// a second insertion, AddSubst overwrites.
type ExprSubst struct {
	m    map[BindingID]Expr
	keys map[BindingID]*Binding
}

func NewExprSubst() *ExprSubst {
	return &ExprSubst{m: make(map[BindingID]Expr), keys: make(map[BindingID]*Binding)}
}

// SingleSubst maps b to e.
func SingleSubst(b *Binding, e Expr) *ExprSubst {
	s := NewExprSubst()
	s.Add(b, e)
	return s
}

// Add records b -> e for the first time.
func (s *ExprSubst) Add(b *Binding, e Expr) {
	if _, ok := s.m[b.id]; ok {
		panic(fmt.Errorf("substitution already maps %s (%s)", b, b.id))
	}
	s.m[b.id] = e
	s.keys[b.id] = b
}

// AddSubst records b -> e, replacing an earlier mapping.
func (s *ExprSubst) AddSubst(b *Binding, e Expr) {
	s.m[b.id] = e
	s.keys[b.id] = b
}

func (s *ExprSubst) Get(b *Binding) (Expr, bool) {
	if s == nil {
		return nil, false
	}
	e, ok := s.m[b.id]
	return e, ok
}

func (s *ExprSubst) lookup(id BindingID) (Expr, bool) {
	if s == nil {
		return nil, false
	}
	e, ok := s.m[id]
	return e, ok
}

func (s *ExprSubst) Remove(b *Binding) {
	delete(s.m, b.id)
	delete(s.keys, b.id)
}

func (s *ExprSubst) IsEmpty() bool { return s == nil || len(s.m) == 0 }

func (s *ExprSubst) Len() int {
	if s == nil {
		return 0
	}
	return len(s.m)
}

// Keys lists the substituted bindings ordered by id.
func (s *ExprSubst) Keys() []*Binding {
	if s == nil {
		return nil
	}
	ids := slices.Sorted(maps.Keys(s.keys))
	out := make([]*Binding, len(ids))
	for i, id := range ids {
		out[i] = s.keys[id]
	}
	return out
}

// MergeSubst adds every mapping of other. A key present in both is an
// error and leaves s unchanged.
func (s *ExprSubst) MergeSubst(other *ExprSubst) error {
	if other == nil {
		return nil
	}
	for id, b := range other.keys {
		if _, ok := s.m[id]; ok {
			return fmt.Errorf("merge substitutions: %s mapped twice", b)
		}
	}
	for id, e := range other.m {
		s.m[id] = e
		s.keys[id] = other.keys[id]
	}
	return nil
}

// Compose returns the substitution equivalent to applying s and then
// next. The domains must be disjoint.
func (s *ExprSubst) Compose(arena *Arena, next *ExprSubst) (*ExprSubst, error) {
	out := NewExprSubst()
	v := NewSubstVisitor(arena, next, nil)
	for _, b := range s.Keys() {
		out.Add(b, v.Apply(s.m[b.id]))
	}
	if err := out.MergeSubst(next); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone copies s.
func (s *ExprSubst) Clone() *ExprSubst {
	out := NewExprSubst()
	if s != nil {
		maps.Copy(out.m, s.m)
		maps.Copy(out.keys, s.keys)
	}
	return out
}
