package core

import (
	"fmt"
	"math/big"

	"kappa/internal/level"
	"kappa/internal/source"
)

// ExprKind enumerates the closed set of expression variants.
type ExprKind uint8

const (
	KindInvalid ExprKind = iota
	KindRef
	KindInferenceRef
	KindApp
	KindLam
	KindPi
	KindSigma
	KindTuple
	KindProj
	KindUniverse
	KindPath
	KindArray
	KindFunCall
	KindConCall
	KindDataCall
	KindFieldCall
	KindLet
	KindCase
	KindInteger
	KindError
)

// AllExprKinds lists every variant; a serializer switching on Kind is
// total when it covers these.
var AllExprKinds = []ExprKind{
	KindRef, KindInferenceRef, KindApp, KindLam, KindPi, KindSigma,
	KindTuple, KindProj, KindUniverse, KindPath, KindArray, KindFunCall,
	KindConCall, KindDataCall, KindFieldCall, KindLet, KindCase,
	KindInteger, KindError,
}

func (k ExprKind) String() string {
	switch k {
	case KindRef:
		return "ref"
	case KindInferenceRef:
		return "inference-ref"
	case KindApp:
		return "app"
	case KindLam:
		return "lam"
	case KindPi:
		return "pi"
	case KindSigma:
		return "sigma"
	case KindTuple:
		return "tuple"
	case KindProj:
		return "proj"
	case KindUniverse:
		return "universe"
	case KindPath:
		return "path"
	case KindArray:
		return "array"
	case KindFunCall:
		return "fun-call"
	case KindConCall:
		return "con-call"
	case KindDataCall:
		return "data-call"
	case KindFieldCall:
		return "field-call"
	case KindLet:
		return "let"
	case KindCase:
		return "case"
	case KindInteger:
		return "integer"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("ExprKind(%d)", k)
	}
}

// Expr is a core term. Only the types in this file implement it.
type Expr interface {
	Kind() ExprKind
	exprNode()
}

// RefExpr refers to a binding.
type RefExpr struct {
	Binding *Binding
}

// InferenceVar is a metavariable of one checker run. Solution is set once
// by the solver.
type InferenceVar struct {
	ID       uint32
	Name     string
	Type     Expr
	Span     source.Span
	Solution Expr
	// Scope lists the bindings a solution may mention.
	Scope []*Binding
}

func (v *InferenceVar) IsSolved() bool { return v.Solution != nil }

func (v *InferenceVar) String() string {
	if v.Name != "" {
		return "?" + v.Name
	}
	return fmt.Sprintf("?%d", v.ID)
}

// InferenceRefExpr stands for an inference variable.
type InferenceRefExpr struct {
	Var *InferenceVar
}

type AppExpr struct {
	Fun Expr
	Arg Expr
}

// LamExpr abstracts Body over Params. ResultSort is the sort of the
// body's type.
type LamExpr struct {
	ResultSort level.Sort
	Params     *DependentLink
	Body       Expr
}

// PiExpr is \Pi Params -> Codomain. ResultSort is the sort of the
// codomain; the sort of the Pi type itself is derived by Sort.
type PiExpr struct {
	ResultSort level.Sort
	Params     *DependentLink
	Codomain   Expr
}

// Sort applies the impredicative Pi rule to the parameter sorts.
func (e *PiExpr) Sort() level.Sort {
	return level.PiSort(linkSorts(e.Params), e.ResultSort)
}

type SigmaExpr struct {
	Params *DependentLink
}

// Sort is the maximum of the component sorts.
func (e *SigmaExpr) Sort() level.Sort {
	return level.MaxSorts(linkSorts(e.Params)...)
}

func linkSorts(l *DependentLink) []level.Sort {
	sorts := make([]level.Sort, 0, 4)
	for it := l; it.HasNext(); it = it.Next() {
		sorts = append(sorts, it.Binding().Type.Sort)
	}
	return sorts
}

type TupleExpr struct {
	Fields []Expr
	Type   *SigmaExpr
}

// ProjExpr selects the Field-th (0-based) component of a tuple.
type ProjExpr struct {
	Tuple Expr
	Field int
}

// UniverseExpr is \Type Sort.
type UniverseExpr struct {
	Sort level.Sort
}

// PathExpr introduces a path from Arg : \Pi (i : I) -> ArgType i.
// ArgType is nil when the type does not depend on the interval
// coordinate; that case is compared by plain application.
type PathExpr struct {
	Levels  level.Levels
	ArgType Expr
	Arg     Expr
}

// ArrayExpr is Elements ++ Tail. ElementsType maps an index to the type
// of the element at that index. Tail is nil for a closed literal.
type ArrayExpr struct {
	Levels       level.Levels
	ElementsType Expr
	Elements     []Expr
	Tail         Expr
}

type FunCallExpr struct {
	Def    *FunctionDef
	Levels level.Levels
	Args   []Expr
}

// ConCallExpr applies a constructor. DataArgs are the arguments of the
// data type the constructor targets.
type ConCallExpr struct {
	Con      *Constructor
	Levels   level.Levels
	DataArgs []Expr
	Args     []Expr
}

type DataCallExpr struct {
	Data   *DataDef
	Levels level.Levels
	Args   []Expr
}

// FieldCallExpr projects Field out of a record value.
type FieldCallExpr struct {
	Field  *ClassField
	Levels level.Levels
	Arg    Expr
}

type LetClause struct {
	Binding *Binding
	Value   Expr
}

type LetExpr struct {
	Clauses []*LetClause
	Body    Expr
}

// CaseExpr eliminates Args. Params binds the arguments inside ResultType;
// every clause matches the arguments against its patterns.
type CaseExpr struct {
	Args       []Expr
	Params     *DependentLink
	ResultType Expr
	Clauses    []*Clause
}

// IntegerExpr is a numeral of a data type with zero and successor
// constructors.
type IntegerExpr struct {
	Value *big.Int
	Data  *DataDef
}

// ErrorExpr replaces a subexpression that failed to check. It is equal to
// everything so that sibling checks produce no follow-up errors.
type ErrorExpr struct {
	Expected Expr
	Reason   string
}

func (*RefExpr) Kind() ExprKind          { return KindRef }
func (*InferenceRefExpr) Kind() ExprKind { return KindInferenceRef }
func (*AppExpr) Kind() ExprKind          { return KindApp }
func (*LamExpr) Kind() ExprKind          { return KindLam }
func (*PiExpr) Kind() ExprKind           { return KindPi }
func (*SigmaExpr) Kind() ExprKind        { return KindSigma }
func (*TupleExpr) Kind() ExprKind        { return KindTuple }
func (*ProjExpr) Kind() ExprKind         { return KindProj }
func (*UniverseExpr) Kind() ExprKind     { return KindUniverse }
func (*PathExpr) Kind() ExprKind         { return KindPath }
func (*ArrayExpr) Kind() ExprKind        { return KindArray }
func (*FunCallExpr) Kind() ExprKind      { return KindFunCall }
func (*ConCallExpr) Kind() ExprKind      { return KindConCall }
func (*DataCallExpr) Kind() ExprKind     { return KindDataCall }
func (*FieldCallExpr) Kind() ExprKind    { return KindFieldCall }
func (*LetExpr) Kind() ExprKind          { return KindLet }
func (*CaseExpr) Kind() ExprKind         { return KindCase }
func (*IntegerExpr) Kind() ExprKind      { return KindInteger }
func (*ErrorExpr) Kind() ExprKind        { return KindError }

func (*RefExpr) exprNode()          {}
func (*InferenceRefExpr) exprNode() {}
func (*AppExpr) exprNode()          {}
func (*LamExpr) exprNode()          {}
func (*PiExpr) exprNode()           {}
func (*SigmaExpr) exprNode()        {}
func (*TupleExpr) exprNode()        {}
func (*ProjExpr) exprNode()         {}
func (*UniverseExpr) exprNode()     {}
func (*PathExpr) exprNode()         {}
func (*ArrayExpr) exprNode()        {}
func (*FunCallExpr) exprNode()      {}
func (*ConCallExpr) exprNode()      {}
func (*DataCallExpr) exprNode()     {}
func (*FieldCallExpr) exprNode()    {}
func (*LetExpr) exprNode()          {}
func (*CaseExpr) exprNode()         {}
func (*IntegerExpr) exprNode()      {}
func (*ErrorExpr) exprNode()        {}

func Ref(b *Binding) *RefExpr { return &RefExpr{Binding: b} }

// Apps applies fun to args left to right.
func Apps(fun Expr, args ...Expr) Expr {
	for _, a := range args {
		fun = &AppExpr{Fun: fun, Arg: a}
	}
	return fun
}

// SpineOf splits nested applications into head and arguments.
func SpineOf(e Expr) (Expr, []Expr) {
	var args []Expr
	for {
		app, ok := e.(*AppExpr)
		if !ok {
			break
		}
		args = append(args, app.Arg)
		e = app.Fun
	}
	for i, j := 0, len(args)-1; i < j; i, j = i+1, j-1 {
		args[i], args[j] = args[j], args[i]
	}
	return e, args
}

func Universe(s level.Sort) *UniverseExpr { return &UniverseExpr{Sort: s} }

func NewInteger(v int64, data *DataDef) *IntegerExpr {
	return &IntegerExpr{Value: big.NewInt(v), Data: data}
}

// Lam builds a lambda; ResultSort is left to the caller.
func Lam(params *DependentLink, body Expr) *LamExpr {
	return &LamExpr{Params: params, Body: body}
}

func Pi(params *DependentLink, codomain Type) *PiExpr {
	return &PiExpr{ResultSort: codomain.Sort, Params: params, Codomain: codomain.Expr}
}

func Sigma(params *DependentLink) *SigmaExpr {
	return &SigmaExpr{Params: params}
}
