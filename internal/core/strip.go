package core

import "kappa/internal/source"

// Stripper removes elaboration-only data from checked terms in place:
// solved inference references are replaced by their solutions and origin
// spans on bindings are cleared. Stripping twice is a no-op.
type Stripper struct {
	seen     map[Expr]Expr
	bindings map[BindingID]struct{}
}

func NewStripper() *Stripper {
	return &Stripper{seen: make(map[Expr]Expr), bindings: make(map[BindingID]struct{})}
}

// Strip mutates e and returns the node to use in its place.
func Strip(e Expr) Expr {
	return NewStripper().Strip(e)
}

func (s *Stripper) seenBinding(b *Binding) bool {
	if _, ok := s.bindings[b.id]; ok {
		return true
	}
	s.bindings[b.id] = struct{}{}
	return false
}

func (s *Stripper) link(l *DependentLink) {
	for it := l; it.HasNext(); it = it.Next() {
		it.Binding().Strip(s)
	}
}

// all and set write only nodes that change, so terms shared with other
// checkers are only read.
func (s *Stripper) all(es []Expr) {
	for i := range es {
		s.set(&es[i])
	}
}

func (s *Stripper) set(p *Expr) {
	if r := s.Strip(*p); r != *p {
		*p = r
	}
}

func (s *Stripper) Strip(e Expr) Expr {
	if e == nil {
		return nil
	}
	if r, ok := s.seen[e]; ok {
		return r
	}
	if ref, ok := e.(*InferenceRefExpr); ok && ref.Var.Solution != nil {
		r := s.Strip(ref.Var.Solution)
		ref.Var.Solution = r
		s.seen[e] = r
		return r
	}
	s.seen[e] = e
	switch n := e.(type) {
	case *AppExpr:
		s.set(&n.Fun)
		s.set(&n.Arg)
	case *LamExpr:
		s.link(n.Params)
		s.set(&n.Body)
	case *PiExpr:
		s.link(n.Params)
		s.set(&n.Codomain)
	case *SigmaExpr:
		s.link(n.Params)
	case *TupleExpr:
		s.all(n.Fields)
		if n.Type != nil {
			s.link(n.Type.Params)
		}
	case *ProjExpr:
		s.set(&n.Tuple)
	case *PathExpr:
		s.set(&n.ArgType)
		s.set(&n.Arg)
	case *ArrayExpr:
		s.set(&n.ElementsType)
		s.all(n.Elements)
		s.set(&n.Tail)
	case *FunCallExpr:
		s.all(n.Args)
	case *ConCallExpr:
		s.all(n.DataArgs)
		s.all(n.Args)
	case *DataCallExpr:
		s.all(n.Args)
	case *FieldCallExpr:
		s.set(&n.Arg)
	case *LetExpr:
		for _, c := range n.Clauses {
			c.Binding.Strip(s)
			s.set(&c.Value)
		}
		s.set(&n.Body)
	case *CaseExpr:
		s.all(n.Args)
		s.link(n.Params)
		s.set(&n.ResultType)
		for _, c := range n.Clauses {
			for _, b := range c.PatternBindings() {
				b.Strip(s)
			}
			s.set(&c.Body)
		}
	case *ErrorExpr:
		s.set(&n.Expected)
	case *InferenceRefExpr:
		n.Var.Span = source.NoSpan
	}
	return e
}

// StripLink strips every binding of l.
func (s *Stripper) StripLink(l *DependentLink) { s.link(l) }
