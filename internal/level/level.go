package level

import (
	"fmt"
	"slices"
	"strings"
)

// PropH is the h-level of propositions.
const PropH = -1

// Term is var + Offset.
type Term struct {
	Var    Var
	Offset int
}

// Level is max(constant, v_1 + c_1, ..., v_n + c_n) or infinity. The zero
// value is the closed level 0. Terms are kept sorted by variable with one
// entry per variable, and a constant dominated by some term offset is
// folded to 0, so structural equality coincides with semantic equality
// under the assumption that variables are non-negative.
type Level struct {
	constant int
	terms    []Term
	inf      bool
}

func Const(c int) Level {
	if c < PropH {
		panic(fmt.Errorf("level constant %d below %d", c, PropH))
	}
	return Level{constant: c}
}

func OfVar(v Var) Level {
	return Level{terms: []Term{{Var: v}}}
}

func OfVarOffset(v Var, offset int) Level {
	if offset < 0 {
		panic(fmt.Errorf("negative level offset %d", offset))
	}
	return Level{terms: []Term{{Var: v, Offset: offset}}}
}

func Infinity() Level {
	return Level{inf: true}
}

func (l Level) IsInfinity() bool { return l.inf }

// IsClosed reports whether l mentions no variables.
func (l Level) IsClosed() bool { return !l.inf && len(l.terms) == 0 }

// Constant is meaningful for closed levels; for open levels it is the
// non-dominated constant or 0.
func (l Level) Constant() int { return l.constant }

// Terms returns the variable terms. Callers must not modify the slice.
func (l Level) Terms() []Term { return l.terms }

func (l Level) IsProp() bool { return l.IsClosed() && l.constant == PropH }

// Single returns the only variable of l when l is exactly var + offset.
func (l Level) Single() (Term, bool) {
	if l.inf || len(l.terms) != 1 || l.constant != 0 {
		return Term{}, false
	}
	return l.terms[0], true
}

func (l Level) MaxOffset() int {
	m := 0
	for _, t := range l.terms {
		m = max(m, t.Offset)
	}
	return m
}

// Add shifts l by n >= 0.
func (l Level) Add(n int) Level {
	if n == 0 || l.inf {
		return l
	}
	if n < 0 {
		panic(fmt.Errorf("negative level shift %d", n))
	}
	out := Level{constant: l.constant + n}
	if len(l.terms) > 0 {
		out.terms = make([]Term, len(l.terms))
		for i, t := range l.terms {
			out.terms[i] = Term{Var: t.Var, Offset: t.Offset + n}
		}
		if l.constant == 0 {
			out.constant = 0
		}
	}
	return out.normalize()
}

// Max returns the pointwise maximum.
func Max(ls ...Level) Level {
	out := Level{constant: PropH}
	for _, l := range ls {
		if l.inf {
			return Infinity()
		}
		out.constant = max(out.constant, l.constant)
		out.terms = append(out.terms, l.terms...)
	}
	return out.normalize()
}

func (l Level) Max(o Level) Level { return Max(l, o) }

// Vars lists the variables of l in canonical order.
func (l Level) Vars() []Var {
	out := make([]Var, len(l.terms))
	for i, t := range l.terms {
		out[i] = t.Var
	}
	return out
}

// Mentions reports whether v occurs in l.
func (l Level) Mentions(v Var) bool {
	for _, t := range l.terms {
		if t.Var == v {
			return true
		}
	}
	return false
}

// Subst replaces every variable bound by s.
func (l Level) Subst(s Subst) Level {
	if l.inf || len(l.terms) == 0 || s == nil || s.IsEmpty() {
		return l
	}
	// A folded constant is 0 and must not survive substitution: binding
	// every variable to Prop yields Prop.
	parts := make([]Level, 0, len(l.terms)+1)
	if l.constant > l.MaxOffset() {
		parts = append(parts, Level{constant: l.constant})
	} else {
		parts = append(parts, Const(PropH))
	}
	changed := false
	for _, t := range l.terms {
		if r, ok := s.Lookup(t.Var); ok {
			parts = append(parts, r.Add(t.Offset))
			changed = true
			continue
		}
		parts = append(parts, Level{terms: []Term{t}})
	}
	if !changed {
		return l
	}
	return Max(parts...)
}

func (l Level) Equal(o Level) bool {
	if l.inf || o.inf {
		return l.inf == o.inf
	}
	return l.constant == o.constant && slices.Equal(l.terms, o.terms)
}

func (l Level) String() string {
	if l.inf {
		return "\\oo"
	}
	if len(l.terms) == 0 {
		return fmt.Sprintf("%d", l.constant)
	}
	parts := make([]string, 0, len(l.terms)+1)
	for _, t := range l.terms {
		if t.Offset == 0 {
			parts = append(parts, t.Var.String())
		} else {
			parts = append(parts, fmt.Sprintf("%s+%d", t.Var, t.Offset))
		}
	}
	if l.constant > 0 {
		parts = append(parts, fmt.Sprintf("%d", l.constant))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "\\max(" + strings.Join(parts, ", ") + ")"
}

func (l Level) normalize() Level {
	if l.inf {
		return Level{inf: true}
	}
	if len(l.terms) == 0 {
		return Level{constant: l.constant}
	}
	terms := slices.Clone(l.terms)
	slices.SortFunc(terms, func(a, b Term) int {
		switch {
		case a.Var == b.Var:
			return b.Offset - a.Offset
		case a.Var.less(b.Var):
			return -1
		default:
			return 1
		}
	})
	terms = slices.CompactFunc(terms, func(a, b Term) bool { return a.Var == b.Var })
	out := Level{constant: l.constant, terms: terms}
	if out.constant <= out.MaxOffset() {
		out.constant = 0
	}
	return out
}
