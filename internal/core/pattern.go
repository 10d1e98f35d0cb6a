package core

import (
	"fmt"
	"strings"
)

// Pattern is a clause pattern.
type Pattern interface {
	patternNode()
	String() string
}

// BindingPattern matches anything and binds it.
type BindingPattern struct {
	Binding *Binding
}

// ConPattern matches a constructor application.
type ConPattern struct {
	Con  *Constructor
	Args []Pattern
}

// AbsurdPattern marks an argument whose type has no constructors.
type AbsurdPattern struct{}

func (*BindingPattern) patternNode() {}
func (*ConPattern) patternNode()     {}
func (*AbsurdPattern) patternNode()  {}

func (p *BindingPattern) String() string { return p.Binding.String() }
func (*AbsurdPattern) String() string    { return "()" }

func (p *ConPattern) String() string {
	if len(p.Args) == 0 {
		return p.Con.Name()
	}
	parts := make([]string, len(p.Args))
	for i, a := range p.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s %s)", p.Con.Name(), strings.Join(parts, " "))
}

// Clause is one branch of a pattern-matching body. Body is nil for an
// absurd clause.
type Clause struct {
	Patterns []Pattern
	Body     Expr
}

// PatternBindings lists the variables bound by the clause, left to right.
func (c *Clause) PatternBindings() []*Binding {
	return PatternBindings(c.Patterns)
}

func PatternBindings(ps []Pattern) []*Binding {
	var out []*Binding
	var walk func(p Pattern)
	walk = func(p Pattern) {
		switch n := p.(type) {
		case *BindingPattern:
			out = append(out, n.Binding)
		case *ConPattern:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	for _, p := range ps {
		walk(p)
	}
	return out
}
