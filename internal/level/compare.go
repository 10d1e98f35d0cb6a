package level

// Ordering is the result of comparing two levels.
type Ordering uint8

const (
	Incomparable Ordering = iota
	Equal
	Less
	Greater
)

func (o Ordering) String() string {
	switch o {
	case Equal:
		return "equal"
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "incomparable"
	}
}

// Le decides l1 <= l2 for every assignment of non-negative values to the
// variables. Levels over different variables are not related here; the
// level solver handles them through constraints.
func Le(l1, l2 Level) bool {
	if l2.inf {
		return true
	}
	if l1.inf {
		return false
	}
	for _, t1 := range l1.terms {
		ok := false
		for _, t2 := range l2.terms {
			if t2.Var == t1.Var && t2.Offset >= t1.Offset {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	bound := l2.constant
	if len(l2.terms) > 0 {
		bound = max(bound, l2.MaxOffset())
	}
	return l1.constant <= bound
}

// Compare relates two levels structurally.
func Compare(l1, l2 Level) Ordering {
	le, ge := Le(l1, l2), Le(l2, l1)
	switch {
	case le && ge:
		return Equal
	case le:
		return Less
	case ge:
		return Greater
	default:
		return Incomparable
	}
}
