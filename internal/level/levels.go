package level

import (
	"strings"
)

// Levels instantiates the level parameters of a definition at a call
// site. Every Levels value is also the substitution from the callee's
// parameters to the arguments.
type Levels interface {
	Subst
	Len() int
	At(i int) Level
	// SubstLevels applies s to every argument.
	SubstLevels(s Subst) Levels
	// MentionsAny reports whether some argument mentions a variable bound
	// by s.
	MentionsAny(s Subst) bool
	String() string
}

// Empty instantiates a definition without level parameters.
type Empty struct{}

func (Empty) Lookup(Var) (Level, bool)   { return Level{}, false }
func (Empty) IsEmpty() bool              { return true }
func (Empty) Len() int                   { return 0 }
func (Empty) At(int) Level               { panic("level.Empty has no arguments") }
func (e Empty) SubstLevels(Subst) Levels { return e }
func (Empty) MentionsAny(Subst) bool     { return false }
func (Empty) String() string             { return "" }

// Pair instantiates \lp and \lh.
type Pair struct {
	P Level
	H Level
}

// StdPair is the identity instantiation.
var StdPair = Pair{P: OfVar(LP), H: OfVar(LH)}

func PairOf(s Sort) Pair { return Pair{P: s.P, H: s.H} }

func (p Pair) Lookup(v Var) (Level, bool) {
	switch v {
	case LP:
		return p.P, true
	case LH:
		return p.H, true
	}
	return Level{}, false
}

func (p Pair) IsEmpty() bool { return false }
func (p Pair) Len() int      { return 2 }

func (p Pair) At(i int) Level {
	if i == 0 {
		return p.P
	}
	return p.H
}

func (p Pair) SubstLevels(s Subst) Levels {
	return Pair{P: p.P.Subst(s), H: p.H.Subst(s)}
}

func (p Pair) MentionsAny(s Subst) bool { return mentions(p.P, s) || mentions(p.H, s) }

func (p Pair) Sort() Sort { return Sort{P: p.P, H: p.H} }

func (p Pair) String() string { return "\\levels " + p.P.String() + " " + p.H.String() }

// List instantiates the declared parameters of definition Owner in order.
type List struct {
	Owner  uint32
	Values []Level
}

func (l List) Lookup(v Var) (Level, bool) {
	if v.Kind != KindParam || v.Owner != l.Owner || int(v.Index) >= len(l.Values) {
		return Level{}, false
	}
	return l.Values[v.Index], true
}

func (l List) IsEmpty() bool  { return len(l.Values) == 0 }
func (l List) Len() int       { return len(l.Values) }
func (l List) At(i int) Level { return l.Values[i] }

func (l List) SubstLevels(s Subst) Levels {
	out := List{Owner: l.Owner, Values: make([]Level, len(l.Values))}
	for i, v := range l.Values {
		out.Values[i] = v.Subst(s)
	}
	return out
}

func (l List) MentionsAny(s Subst) bool {
	for _, v := range l.Values {
		if mentions(v, s) {
			return true
		}
	}
	return false
}

func (l List) String() string {
	parts := make([]string, len(l.Values))
	for i, v := range l.Values {
		parts[i] = v.String()
	}
	return "\\levels (" + strings.Join(parts, ", ") + ")"
}

// EqualLevels compares two instantiations argument-wise.
func EqualLevels(a, b Levels) bool {
	if a == nil {
		a = Empty{}
	}
	if b == nil {
		b = Empty{}
	}
	if a.Len() != b.Len() {
		return false
	}
	for i := range a.Len() {
		if !a.At(i).Equal(b.At(i)) {
			return false
		}
	}
	return true
}
