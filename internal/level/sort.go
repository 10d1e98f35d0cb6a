package level

import "fmt"

// Sort is the two-dimensional universe index (p, h).
type Sort struct {
	P Level
	H Level
}

var (
	// Prop is the sort of propositions.
	Prop = Sort{P: Const(0), H: Const(PropH)}
	// Set0 is the sort of sets at the lowest predicative level.
	Set0 = Sort{P: Const(0), H: Const(0)}
	// Std is \Type \lp \lh.
	Std = Sort{P: OfVar(LP), H: OfVar(LH)}
)

func NewSort(p, h Level) Sort { return Sort{P: p, H: h} }

func (s Sort) IsProp() bool { return s.H.IsProp() }

// IsSet reports whether the h-level is exactly 0.
func (s Sort) IsSet() bool { return s.H.IsClosed() && s.H.Constant() == 0 }

// Succ is the sort of the universe \Type s.
func (s Sort) Succ() Sort {
	if s.IsProp() {
		return Set0
	}
	return Sort{P: s.P.Add(1), H: s.H.Add(1)}
}

// Max is pointwise; Prop is its unit.
func (s Sort) Max(o Sort) Sort {
	return Sort{P: Max(s.P, o.P), H: Max(s.H, o.H)}
}

// MaxSorts folds Max over sorts. The empty fold is Prop, which floors p
// at 0 and h at -1.
func MaxSorts(sorts ...Sort) Sort {
	out := Prop
	for _, s := range sorts {
		out = out.Max(s)
	}
	return out
}

// PiSort is the sort of \Pi (domains) -> codomain. Functions into a
// proposition are propositions whatever their domains are.
func PiSort(domains []Sort, codomain Sort) Sort {
	if codomain.IsProp() {
		return Prop
	}
	p := codomain.P
	for _, d := range domains {
		p = Max(p, d.P)
	}
	return Sort{P: p, H: codomain.H}
}

// Truncate squashes the h-level of s to at most truncated. A negative
// level below -1 means "not truncated".
func (s Sort) Truncate(truncated int) Sort {
	if truncated < PropH {
		return s
	}
	if truncated == PropH {
		return Prop
	}
	if Le(s.H, Const(truncated)) {
		return s
	}
	return Sort{P: s.P, H: Const(truncated)}
}

func (s Sort) Subst(sub Subst) Sort {
	if sub == nil || sub.IsEmpty() {
		return s
	}
	return Sort{P: s.P.Subst(sub), H: s.H.Subst(sub)}
}

func (s Sort) Equal(o Sort) bool { return s.P.Equal(o.P) && s.H.Equal(o.H) }

// Le is pointwise.
func (s Sort) Le(o Sort) bool {
	if s.IsProp() {
		return true
	}
	return Le(s.P, o.P) && Le(s.H, o.H)
}

// Mentions reports whether any component of s mentions a variable bound
// by sub.
func (s Sort) Mentions(sub Subst) bool {
	return mentions(s.P, sub) || mentions(s.H, sub)
}

func (s Sort) String() string {
	switch {
	case s.IsProp():
		return "\\Prop"
	case s.H.IsInfinity():
		return fmt.Sprintf("\\oo-Type %s", s.P)
	case s.IsSet():
		return fmt.Sprintf("\\Set %s", s.P)
	}
	return fmt.Sprintf("\\Type %s %s", s.P, s.H)
}

func mentions(l Level, sub Subst) bool {
	if sub == nil || sub.IsEmpty() {
		return false
	}
	for _, t := range l.terms {
		if _, ok := sub.Lookup(t.Var); ok {
			return true
		}
	}
	return false
}
