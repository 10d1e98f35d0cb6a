package core

import "fmt"

// Visitor has one method per expression variant. Adding a variant breaks
// every visitor at compile time.
type Visitor[R any] interface {
	VisitRef(e *RefExpr) R
	VisitInferenceRef(e *InferenceRefExpr) R
	VisitApp(e *AppExpr) R
	VisitLam(e *LamExpr) R
	VisitPi(e *PiExpr) R
	VisitSigma(e *SigmaExpr) R
	VisitTuple(e *TupleExpr) R
	VisitProj(e *ProjExpr) R
	VisitUniverse(e *UniverseExpr) R
	VisitPath(e *PathExpr) R
	VisitArray(e *ArrayExpr) R
	VisitFunCall(e *FunCallExpr) R
	VisitConCall(e *ConCallExpr) R
	VisitDataCall(e *DataCallExpr) R
	VisitFieldCall(e *FieldCallExpr) R
	VisitLet(e *LetExpr) R
	VisitCase(e *CaseExpr) R
	VisitInteger(e *IntegerExpr) R
	VisitError(e *ErrorExpr) R
}

// Accept dispatches e to the matching method of v.
func Accept[R any](e Expr, v Visitor[R]) R {
	switch n := e.(type) {
	case *RefExpr:
		return v.VisitRef(n)
	case *InferenceRefExpr:
		return v.VisitInferenceRef(n)
	case *AppExpr:
		return v.VisitApp(n)
	case *LamExpr:
		return v.VisitLam(n)
	case *PiExpr:
		return v.VisitPi(n)
	case *SigmaExpr:
		return v.VisitSigma(n)
	case *TupleExpr:
		return v.VisitTuple(n)
	case *ProjExpr:
		return v.VisitProj(n)
	case *UniverseExpr:
		return v.VisitUniverse(n)
	case *PathExpr:
		return v.VisitPath(n)
	case *ArrayExpr:
		return v.VisitArray(n)
	case *FunCallExpr:
		return v.VisitFunCall(n)
	case *ConCallExpr:
		return v.VisitConCall(n)
	case *DataCallExpr:
		return v.VisitDataCall(n)
	case *FieldCallExpr:
		return v.VisitFieldCall(n)
	case *LetExpr:
		return v.VisitLet(n)
	case *CaseExpr:
		return v.VisitCase(n)
	case *IntegerExpr:
		return v.VisitInteger(n)
	case *ErrorExpr:
		return v.VisitError(n)
	default:
		panic(fmt.Errorf("core: unexpected expression %T", e))
	}
}

// Children calls f on every direct subexpression of e, including the
// types of bindings it introduces. Unsolved inference variables have no
// children; solved ones expose their solution.
func Children(e Expr, f func(Expr)) {
	visit := func(x Expr) {
		if x != nil {
			f(x)
		}
	}
	link := func(l *DependentLink) {
		for it := l; it.HasNext(); it = it.Next() {
			visit(it.Binding().Type.Expr)
		}
	}
	switch n := e.(type) {
	case *RefExpr, *UniverseExpr, *IntegerExpr:
	case *InferenceRefExpr:
		visit(n.Var.Solution)
	case *AppExpr:
		visit(n.Fun)
		visit(n.Arg)
	case *LamExpr:
		link(n.Params)
		visit(n.Body)
	case *PiExpr:
		link(n.Params)
		visit(n.Codomain)
	case *SigmaExpr:
		link(n.Params)
	case *TupleExpr:
		for _, x := range n.Fields {
			visit(x)
		}
		if n.Type != nil {
			visit(n.Type)
		}
	case *ProjExpr:
		visit(n.Tuple)
	case *PathExpr:
		visit(n.ArgType)
		visit(n.Arg)
	case *ArrayExpr:
		visit(n.ElementsType)
		for _, x := range n.Elements {
			visit(x)
		}
		visit(n.Tail)
	case *FunCallExpr:
		for _, x := range n.Args {
			visit(x)
		}
	case *ConCallExpr:
		for _, x := range n.DataArgs {
			visit(x)
		}
		for _, x := range n.Args {
			visit(x)
		}
	case *DataCallExpr:
		for _, x := range n.Args {
			visit(x)
		}
	case *FieldCallExpr:
		visit(n.Arg)
	case *LetExpr:
		for _, c := range n.Clauses {
			visit(c.Binding.Type.Expr)
			visit(c.Value)
		}
		visit(n.Body)
	case *CaseExpr:
		for _, x := range n.Args {
			visit(x)
		}
		link(n.Params)
		visit(n.ResultType)
		for _, c := range n.Clauses {
			for _, b := range c.PatternBindings() {
				visit(b.Type.Expr)
			}
			visit(c.Body)
		}
	case *ErrorExpr:
		visit(n.Expected)
	default:
		panic(fmt.Errorf("core: unexpected expression %T", e))
	}
}
