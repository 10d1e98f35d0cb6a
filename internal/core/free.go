package core

import (
	"github.com/hashicorp/go-set/v3"
)

// FreeVars collects the bindings e refers to without binding them.
// Solved inference variables contribute their solutions.
func FreeVars(e Expr) *set.Set[BindingID] {
	fv := &freeVars{cache: make(map[Expr]*set.Set[BindingID])}
	return fv.of(e)
}

// Mentions reports whether b occurs free in e.
func Mentions(e Expr, b *Binding) bool {
	return FreeVars(e).Contains(b.ID())
}

var emptyVars = set.New[BindingID](0)

type freeVars struct {
	cache map[Expr]*set.Set[BindingID]
}

func (f *freeVars) of(e Expr) *set.Set[BindingID] {
	if e == nil {
		return emptyVars
	}
	if s, ok := f.cache[e]; ok {
		return s
	}
	var out *set.Set[BindingID]
	switch n := e.(type) {
	case *RefExpr:
		out = set.From([]BindingID{n.Binding.id})
	case *InferenceRefExpr:
		out = f.of(n.Var.Solution)
	case *LamExpr:
		out = f.link(n.Params, f.of(n.Body))
	case *PiExpr:
		out = f.link(n.Params, f.of(n.Codomain))
	case *SigmaExpr:
		out = f.link(n.Params, emptyVars)
	case *LetExpr:
		body := f.of(n.Body).Copy()
		for i := len(n.Clauses) - 1; i >= 0; i-- {
			c := n.Clauses[i]
			body.Remove(c.Binding.id)
			body.InsertSet(f.of(c.Value))
			body.InsertSet(f.of(c.Binding.Type.Expr))
		}
		out = body
	case *CaseExpr:
		acc := set.New[BindingID](8)
		for _, a := range n.Args {
			acc.InsertSet(f.of(a))
		}
		acc.InsertSet(f.link(n.Params, f.of(n.ResultType)))
		for _, c := range n.Clauses {
			inner := f.of(c.Body).Copy()
			bs := c.PatternBindings()
			for _, b := range bs {
				inner.InsertSet(f.of(b.Type.Expr))
			}
			for _, b := range bs {
				inner.Remove(b.id)
			}
			acc.InsertSet(inner)
		}
		out = acc
	default:
		acc := set.New[BindingID](4)
		Children(e, func(x Expr) { acc.InsertSet(f.of(x)) })
		out = acc
	}
	f.cache[e] = out
	return out
}

// link removes the telescope's bindings from inner and adds the free
// variables of the parameter types, each seen without the later
// parameters.
func (f *freeVars) link(l *DependentLink, inner *set.Set[BindingID]) *set.Set[BindingID] {
	bs := l.Bindings()
	if len(bs) == 0 {
		return inner
	}
	acc := inner.Copy()
	for i := len(bs) - 1; i >= 0; i-- {
		acc.Remove(bs[i].id)
		acc.InsertSet(f.of(bs[i].Type.Expr))
	}
	return acc
}
