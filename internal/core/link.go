package core

import (
	"fmt"
	"strings"
)

type LinkKind uint8

const (
	LinkEmpty LinkKind = iota
	LinkTyped
	// LinkPropertyTyped carries a parameter that is itself a proof.
	LinkPropertyTyped
)

func (k LinkKind) String() string {
	switch k {
	case LinkEmpty:
		return "empty"
	case LinkTyped:
		return "typed"
	case LinkPropertyTyped:
		return "property"
	default:
		return fmt.Sprintf("LinkKind(%d)", k)
	}
}

// DependentLink is one parameter of a telescope. Every chain ends at the
// shared EmptyLink sentinel; next is never nil.
type DependentLink struct {
	kind    LinkKind
	binding *Binding
	next    *DependentLink
}

// EmptyLink terminates every telescope.
var EmptyLink = &DependentLink{kind: LinkEmpty}

// NewLink prepends b to next.
func NewLink(b *Binding, next *DependentLink) *DependentLink {
	if next == nil {
		panic(fmt.Errorf("telescope link %s: nil next, use EmptyLink", b))
	}
	if b == nil {
		panic(fmt.Errorf("telescope link: nil binding"))
	}
	kind := LinkTyped
	if b.IsProperty() {
		kind = LinkPropertyTyped
	}
	return &DependentLink{kind: kind, binding: b, next: next}
}

// Telescope links bindings in order.
func Telescope(bs ...*Binding) *DependentLink {
	link := EmptyLink
	for i := len(bs) - 1; i >= 0; i-- {
		link = NewLink(bs[i], link)
	}
	return link
}

func (l *DependentLink) Kind() LinkKind { return l.kind }

func (l *DependentLink) HasNext() bool { return l.kind != LinkEmpty }

// Next returns the rest of the telescope; the sentinel is its own next.
func (l *DependentLink) Next() *DependentLink {
	if l.kind == LinkEmpty {
		return l
	}
	return l.next
}

// Binding is nil for the sentinel.
func (l *DependentLink) Binding() *Binding { return l.binding }

func (l *DependentLink) TypeExpr() Expr {
	if l.binding == nil {
		return nil
	}
	return l.binding.Type.Expr
}

func (l *DependentLink) Len() int {
	n := 0
	for it := l; it.HasNext(); it = it.next {
		n++
	}
	return n
}

func (l *DependentLink) Bindings() []*Binding {
	var out []*Binding
	for it := l; it.HasNext(); it = it.next {
		out = append(out, it.binding)
	}
	return out
}

// At returns the i-th link or the sentinel when i is out of range.
func (l *DependentLink) At(i int) *DependentLink {
	it := l
	for ; i > 0 && it.HasNext(); i-- {
		it = it.next
	}
	return it
}

// Explicit lists the explicit links.
func (l *DependentLink) Explicit() []*DependentLink {
	var out []*DependentLink
	for it := l; it.HasNext(); it = it.next {
		if it.binding.IsExplicit() {
			out = append(out, it)
		}
	}
	return out
}

// Subst copies the first size links with fresh bindings whose types see
// the earlier copies. The copy ends at EmptyLink. With updateSubst false
// each old binding is added to v with ExprSubst.Add, which panics if it is
// already mapped; with updateSubst true the mapping is overwritten, as a
// refinement pass over the same source telescope requires.
func (l *DependentLink) Subst(v *SubstVisitor, size int, updateSubst bool) *DependentLink {
	if size <= 0 || !l.HasNext() {
		return EmptyLink
	}
	fresh := make([]*Binding, 0, size)
	it := l
	for i := 0; i < size && it.HasNext(); i++ {
		old := it.binding
		nb := v.arena.NewBindingAt(old.Name, v.ApplyType(old.Type), old.Flags, old.Span)
		if updateSubst {
			v.rebound.Insert(old.id)
			v.exprs.AddSubst(old, Ref(nb))
		} else {
			v.exprs.Add(old, Ref(nb))
		}
		fresh = append(fresh, nb)
		it = it.next
	}
	return Telescope(fresh...)
}

func (l *DependentLink) String() string {
	var b strings.Builder
	for it := l; it.HasNext(); it = it.next {
		if it != l {
			b.WriteByte(' ')
		}
		open, closing := "(", ")"
		if !it.binding.IsExplicit() {
			open, closing = "{", "}"
		}
		fmt.Fprintf(&b, "%s%s : %s%s", open, it.binding, Format(it.binding.Type.Expr), closing)
	}
	return b.String()
}
