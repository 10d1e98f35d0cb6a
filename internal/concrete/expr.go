// Package concrete holds name-resolved input trees. Locals are resolved
// to *Local identities and globals to definition names; the checker never
// looks a name up beyond the registry of checked definitions.
package concrete

import (
	"math/big"

	"kappa/internal/source"
)

// Pos carries the source span of a node.
type Pos struct {
	At source.Span
}

func (p Pos) Span() source.Span { return p.At }

// Expr is a resolved expression.
type Expr interface {
	Span() source.Span
	concreteNode()
}

// Local is a bound variable. Identity is the pointer; ID is unique within
// a module and Name is for messages only.
type Local struct {
	ID   int
	Name string
}

type LocalRef struct {
	Pos
	Local *Local
}

// GlobalRef names a definition, constructor or field. Levels is nil when
// the level arguments are left to inference.
type GlobalRef struct {
	Pos
	Name   string
	Levels *LevelArgs
}

type LevelArgs struct {
	P LevelExpr
	H LevelExpr
}

// LevelExpr is a level as written. A nil LevelExpr is inferred.
type LevelExpr interface {
	levelNode()
}

type LevelConst struct{ Value int }

// LevelStd is \lp (H false) or \lh (H true).
type LevelStd struct{ H bool }

type LevelSuc struct{ Of LevelExpr }

type LevelMax struct{ Left, Right LevelExpr }

func (LevelConst) levelNode() {}
func (LevelStd) levelNode()   {}
func (LevelSuc) levelNode()   {}
func (LevelMax) levelNode()   {}

type Arg struct {
	Expr     Expr
	Explicit bool
}

type App struct {
	Pos
	Fun  Expr
	Args []Arg
}

// Param binds Locals to Type. Type is nil for an unannotated lambda
// parameter.
type Param struct {
	Locals   []*Local
	Type     Expr
	Explicit bool
}

type Lam struct {
	Pos
	Params []Param
	Body   Expr
}

type Pi struct {
	Pos
	Params   []Param
	Codomain Expr
}

type Sigma struct {
	Pos
	Params []Param
}

type Tuple struct {
	Pos
	Fields []Expr
}

// Proj selects a component; Field is 0-based.
type Proj struct {
	Pos
	Tuple Expr
	Field int
}

// Universe is \Type P H. A nil level is inferred; \Prop has H = -1.
type Universe struct {
	Pos
	P LevelExpr
	H LevelExpr
}

type Hole struct {
	Pos
	Name string
}

type Number struct {
	Pos
	Value *big.Int
}

type LetClause struct {
	Local *Local
	Type  Expr
	Value Expr
}

type Let struct {
	Pos
	Clauses []LetClause
	Body    Expr
}

type Array struct {
	Pos
	Elements []Expr
	Tail     Expr
}

// Typed is a type ascription (e : T).
type Typed struct {
	Pos
	Expr Expr
	Type Expr
}

// MetaCall invokes a meta definition registered with the checker.
type MetaCall struct {
	Pos
	Name string
	Args []Arg
}

func (*LocalRef) concreteNode()  {}
func (*GlobalRef) concreteNode() {}
func (*App) concreteNode()       {}
func (*Lam) concreteNode()       {}
func (*Pi) concreteNode()        {}
func (*Sigma) concreteNode()     {}
func (*Tuple) concreteNode()     {}
func (*Proj) concreteNode()      {}
func (*Universe) concreteNode()  {}
func (*Hole) concreteNode()      {}
func (*Number) concreteNode()    {}
func (*Let) concreteNode()       {}
func (*Array) concreteNode()     {}
func (*Typed) concreteNode()     {}
func (*MetaCall) concreteNode()  {}

// Walk calls f on e and every subexpression, parents first.
func Walk(e Expr, f func(Expr)) {
	if e == nil {
		return
	}
	f(e)
	params := func(ps []Param) {
		for _, p := range ps {
			Walk(p.Type, f)
		}
	}
	switch n := e.(type) {
	case *App:
		Walk(n.Fun, f)
		for _, a := range n.Args {
			Walk(a.Expr, f)
		}
	case *Lam:
		params(n.Params)
		Walk(n.Body, f)
	case *Pi:
		params(n.Params)
		Walk(n.Codomain, f)
	case *Sigma:
		params(n.Params)
	case *Tuple:
		for _, x := range n.Fields {
			Walk(x, f)
		}
	case *Proj:
		Walk(n.Tuple, f)
	case *Let:
		for _, c := range n.Clauses {
			Walk(c.Type, f)
			Walk(c.Value, f)
		}
		Walk(n.Body, f)
	case *Array:
		for _, x := range n.Elements {
			Walk(x, f)
		}
		Walk(n.Tail, f)
	case *Typed:
		Walk(n.Expr, f)
		Walk(n.Type, f)
	case *MetaCall:
		for _, a := range n.Args {
			Walk(a.Expr, f)
		}
	}
}
