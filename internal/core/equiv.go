package core

import (
	"kappa/internal/level"
)

// AlphaEquivalent decides syntactic equality up to renaming of bound
// variables, including level data and the sorts stored on binders.
// Solved inference references are looked through.
func AlphaEquivalent(a, b Expr) bool {
	eq := &alpha{ren: make(map[BindingID]BindingID)}
	return eq.expr(a, b)
}

// LinksAlphaEquivalent compares two telescopes the same way.
func LinksAlphaEquivalent(a, b *DependentLink) bool {
	eq := &alpha{ren: make(map[BindingID]BindingID)}
	return eq.link(a, b)
}

type alpha struct {
	ren map[BindingID]BindingID
}

func deref(e Expr) Expr {
	for {
		ref, ok := e.(*InferenceRefExpr)
		if !ok || ref.Var.Solution == nil {
			return e
		}
		e = ref.Var.Solution
	}
}

func (q *alpha) bind(a, b *Binding) bool {
	if a.Flags != b.Flags || !q.expr(a.Type.Expr, b.Type.Expr) || !a.Type.Sort.Equal(b.Type.Sort) {
		return false
	}
	q.ren[a.id] = b.id
	return true
}

func (q *alpha) link(a, b *DependentLink) bool {
	for a.HasNext() && b.HasNext() {
		if !q.bind(a.Binding(), b.Binding()) {
			return false
		}
		a, b = a.Next(), b.Next()
	}
	return !a.HasNext() && !b.HasNext()
}

func (q *alpha) all(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !q.expr(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (q *alpha) patterns(a, b []Pattern) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		switch pa := a[i].(type) {
		case *BindingPattern:
			pb, ok := b[i].(*BindingPattern)
			if !ok || !q.bind(pa.Binding, pb.Binding) {
				return false
			}
		case *ConPattern:
			pb, ok := b[i].(*ConPattern)
			if !ok || pa.Con != pb.Con || !q.patterns(pa.Args, pb.Args) {
				return false
			}
		case *AbsurdPattern:
			if _, ok := b[i].(*AbsurdPattern); !ok {
				return false
			}
		}
	}
	return true
}

func (q *alpha) expr(a, b Expr) bool {
	a, b = deref(a), deref(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case *RefExpr:
		y := b.(*RefExpr)
		if id, ok := q.ren[x.Binding.id]; ok {
			return id == y.Binding.id
		}
		return x.Binding.id == y.Binding.id
	case *InferenceRefExpr:
		return x.Var == b.(*InferenceRefExpr).Var
	case *AppExpr:
		y := b.(*AppExpr)
		return q.expr(x.Fun, y.Fun) && q.expr(x.Arg, y.Arg)
	case *LamExpr:
		y := b.(*LamExpr)
		return x.ResultSort.Equal(y.ResultSort) && q.link(x.Params, y.Params) && q.expr(x.Body, y.Body)
	case *PiExpr:
		y := b.(*PiExpr)
		return x.ResultSort.Equal(y.ResultSort) && q.link(x.Params, y.Params) && q.expr(x.Codomain, y.Codomain)
	case *SigmaExpr:
		return q.link(x.Params, b.(*SigmaExpr).Params)
	case *TupleExpr:
		return q.all(x.Fields, b.(*TupleExpr).Fields)
	case *ProjExpr:
		y := b.(*ProjExpr)
		return x.Field == y.Field && q.expr(x.Tuple, y.Tuple)
	case *UniverseExpr:
		return x.Sort.Equal(b.(*UniverseExpr).Sort)
	case *PathExpr:
		y := b.(*PathExpr)
		return level.EqualLevels(x.Levels, y.Levels) && q.expr(x.ArgType, y.ArgType) && q.expr(x.Arg, y.Arg)
	case *ArrayExpr:
		y := b.(*ArrayExpr)
		return level.EqualLevels(x.Levels, y.Levels) && q.expr(x.ElementsType, y.ElementsType) &&
			q.all(x.Elements, y.Elements) && q.expr(x.Tail, y.Tail)
	case *FunCallExpr:
		y := b.(*FunCallExpr)
		return x.Def == y.Def && level.EqualLevels(x.Levels, y.Levels) && q.all(x.Args, y.Args)
	case *ConCallExpr:
		y := b.(*ConCallExpr)
		return x.Con == y.Con && level.EqualLevels(x.Levels, y.Levels) &&
			q.all(x.DataArgs, y.DataArgs) && q.all(x.Args, y.Args)
	case *DataCallExpr:
		y := b.(*DataCallExpr)
		return x.Data == y.Data && level.EqualLevels(x.Levels, y.Levels) && q.all(x.Args, y.Args)
	case *FieldCallExpr:
		y := b.(*FieldCallExpr)
		return x.Field == y.Field && level.EqualLevels(x.Levels, y.Levels) && q.expr(x.Arg, y.Arg)
	case *LetExpr:
		y := b.(*LetExpr)
		if len(x.Clauses) != len(y.Clauses) {
			return false
		}
		for i := range x.Clauses {
			if !q.expr(x.Clauses[i].Value, y.Clauses[i].Value) || !q.bind(x.Clauses[i].Binding, y.Clauses[i].Binding) {
				return false
			}
		}
		return q.expr(x.Body, y.Body)
	case *CaseExpr:
		y := b.(*CaseExpr)
		if !q.all(x.Args, y.Args) || !q.link(x.Params, y.Params) || !q.expr(x.ResultType, y.ResultType) ||
			len(x.Clauses) != len(y.Clauses) {
			return false
		}
		for i := range x.Clauses {
			if !q.patterns(x.Clauses[i].Patterns, y.Clauses[i].Patterns) || !q.expr(x.Clauses[i].Body, y.Clauses[i].Body) {
				return false
			}
		}
		return true
	case *IntegerExpr:
		y := b.(*IntegerExpr)
		return x.Data == y.Data && x.Value.Cmp(y.Value) == 0
	case *ErrorExpr:
		return true
	}
	return false
}
