package core

import (
	"strings"

	"kappa/internal/source"
)

// Flags describe how a parameter is passed.
type Flags uint8

const (
	Explicit Flags = 1 << iota
	// Hidden parameters exist in core terms but not in surface syntax.
	Hidden
	// Property parameters range over a proposition and are erased at
	// runtime.
	Property
)

func (f Flags) Has(x Flags) bool { return f&x == x }

func (f Flags) String() string {
	var parts []string
	if f.Has(Explicit) {
		parts = append(parts, "explicit")
	} else {
		parts = append(parts, "implicit")
	}
	if f.Has(Hidden) {
		parts = append(parts, "hidden")
	}
	if f.Has(Property) {
		parts = append(parts, "property")
	}
	return strings.Join(parts, "|")
}

// Binding is a variable. Identity is the id; Name is for display only.
type Binding struct {
	id    BindingID
	Name  string
	Type  Type
	Flags Flags
	// Span is elaboration metadata removed by Strip.
	Span source.Span
}

func (b *Binding) ID() BindingID { return b.id }

func (b *Binding) TypeExpr() Expr { return b.Type.Expr }

func (b *Binding) IsExplicit() bool { return b.Flags.Has(Explicit) }
func (b *Binding) IsHidden() bool   { return b.Flags.Has(Hidden) }
func (b *Binding) IsProperty() bool { return b.Flags.Has(Property) }

// Subst returns b itself when v is empty and a fresh binding with the
// substituted type otherwise. The caller records b -> fresh in v when
// references to b must follow.
func (b *Binding) Subst(v *SubstVisitor) *Binding {
	if v.IsEmpty() {
		return b
	}
	return v.arena.NewBindingAt(b.Name, v.ApplyType(b.Type), b.Flags, b.Span)
}

// Strip removes elaboration metadata from b in place.
func (b *Binding) Strip(s *Stripper) {
	if s.seenBinding(b) {
		return
	}
	if b.Span != source.NoSpan {
		b.Span = source.NoSpan
	}
	s.set(&b.Type.Expr)
}

func (b *Binding) String() string {
	if b == nil {
		return "<nil>"
	}
	if b.Name == "" {
		return "_" + b.id.String()
	}
	return b.Name
}
