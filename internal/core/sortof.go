package core

import "kappa/internal/level"

// SortOf derives the sort s with e : \Type s from the shape of e alone.
// It reports false when the sort needs the checker.
func SortOf(e Expr) (level.Sort, bool) {
	switch n := e.(type) {
	case *UniverseExpr:
		return n.Sort.Succ(), true
	case *PiExpr:
		return n.Sort(), true
	case *SigmaExpr:
		return n.Sort(), true
	case *DataCallExpr:
		return n.Data.SortAt(n.Levels), true
	case *RefExpr:
		return universeSort(n.Binding.Type.Expr, nil)
	case *InferenceRefExpr:
		if n.Var.Solution != nil {
			return SortOf(n.Var.Solution)
		}
		return universeSort(n.Var.Type, nil)
	case *FunCallExpr:
		return universeSort(n.Def.ResultType.Expr, n.Levels)
	case *FieldCallExpr:
		return universeSort(n.Field.Type.Expr, n.Levels)
	case *AppExpr:
		head, args := SpineOf(n)
		if ref, ok := head.(*RefExpr); ok {
			return piResultSort(ref.Binding.Type.Expr, len(args))
		}
	}
	return level.Sort{}, false
}

func universeSort(t Expr, levels level.Levels) (level.Sort, bool) {
	if u, ok := t.(*UniverseExpr); ok {
		if levels != nil {
			return u.Sort.Subst(levels), true
		}
		return u.Sort, true
	}
	return level.Sort{}, false
}

// piResultSort looks through n parameters of a Pi type whose codomain is
// a universe.
func piResultSort(t Expr, n int) (level.Sort, bool) {
	for n > 0 {
		pi, ok := t.(*PiExpr)
		if !ok {
			return level.Sort{}, false
		}
		n -= pi.Params.Len()
		if n < 0 {
			return level.Sort{}, false
		}
		t = pi.Codomain
	}
	return universeSort(t, nil)
}
