package core

import (
	"errors"

	"kappa/internal/level"
)

// ErrAlreadyGeneralized is returned when a definition's body was already
// substituted in place.
var ErrAlreadyGeneralized = errors.New("in-place level substitution already applied")

// InPlaceGate allows one in-place level substitution per definition.
type InPlaceGate struct {
	used bool
}

func (g *InPlaceGate) Used() bool { return g.used }

// InPlaceLevelSubst rewrites the level data of checked terms without
// copying them. Only the owner of a freshly checked definition may use
// it, and only once; everywhere else use SubstVisitor.
type InPlaceLevelSubst struct {
	levels   level.Subst
	seen     map[Expr]struct{}
	bindings map[BindingID]struct{}
}

// BeginInPlaceLevelSubst consumes gate.
func BeginInPlaceLevelSubst(gate *InPlaceGate, levels level.Subst) (*InPlaceLevelSubst, error) {
	if gate.used {
		return nil, ErrAlreadyGeneralized
	}
	gate.used = true
	return &InPlaceLevelSubst{
		levels:   levels,
		seen:     make(map[Expr]struct{}),
		bindings: make(map[BindingID]struct{}),
	}, nil
}

// SubstLevelsInPlace applies levels to every root under gate.
func SubstLevelsInPlace(gate *InPlaceGate, levels level.Subst, roots ...Expr) error {
	s, err := BeginInPlaceLevelSubst(gate, levels)
	if err != nil {
		return err
	}
	for _, r := range roots {
		s.Expr(r)
	}
	return nil
}

// Writes happen only where a level actually changes: checked terms share
// subterms with published definitions that other checkers read.
func (s *InPlaceLevelSubst) levelsIn(ls *level.Levels) {
	if *ls != nil && (*ls).MentionsAny(s.levels) {
		*ls = (*ls).SubstLevels(s.levels)
	}
}

func (s *InPlaceLevelSubst) sortIn(sort *level.Sort) {
	if sort.Mentions(s.levels) {
		*sort = sort.Subst(s.levels)
	}
}

func (s *InPlaceLevelSubst) setSort(sort *level.Sort, to level.Sort) {
	if !sort.Equal(to) {
		*sort = to
	}
}

// Type rewrites t and derives its sort again.
func (s *InPlaceLevelSubst) Type(t *Type) {
	if t.Expr == nil {
		s.sortIn(&t.Sort)
		return
	}
	s.Expr(t.Expr)
	if sort, ok := SortOf(t.Expr); ok {
		s.setSort(&t.Sort, sort)
	} else {
		s.sortIn(&t.Sort)
	}
}

func (s *InPlaceLevelSubst) Binding(b *Binding) {
	if _, ok := s.bindings[b.id]; ok {
		return
	}
	s.bindings[b.id] = struct{}{}
	s.Type(&b.Type)
}

func (s *InPlaceLevelSubst) Link(l *DependentLink) {
	for it := l; it.HasNext(); it = it.Next() {
		s.Binding(it.Binding())
	}
}

func (s *InPlaceLevelSubst) Expr(e Expr) {
	if e == nil || s.levels == nil || s.levels.IsEmpty() {
		return
	}
	if _, ok := s.seen[e]; ok {
		return
	}
	s.seen[e] = struct{}{}
	switch n := e.(type) {
	case *UniverseExpr:
		s.sortIn(&n.Sort)
	case *LamExpr:
		s.Link(n.Params)
		s.Expr(n.Body)
		s.sortIn(&n.ResultSort)
		return
	case *PiExpr:
		s.Link(n.Params)
		s.Expr(n.Codomain)
		if sort, ok := SortOf(n.Codomain); ok {
			s.setSort(&n.ResultSort, sort)
		} else {
			s.sortIn(&n.ResultSort)
		}
		return
	case *SigmaExpr:
		s.Link(n.Params)
		return
	case *LetExpr:
		for _, c := range n.Clauses {
			s.Binding(c.Binding)
		}
	case *CaseExpr:
		s.Link(n.Params)
		for _, c := range n.Clauses {
			for _, b := range c.PatternBindings() {
				s.Binding(b)
			}
		}
	case *PathExpr:
		s.levelsIn(&n.Levels)
	case *ArrayExpr:
		s.levelsIn(&n.Levels)
	case *FunCallExpr:
		s.levelsIn(&n.Levels)
	case *ConCallExpr:
		s.levelsIn(&n.Levels)
	case *DataCallExpr:
		s.levelsIn(&n.Levels)
	case *FieldCallExpr:
		s.levelsIn(&n.Levels)
	}
	Children(e, s.Expr)
}
