package solve

import (
	"fmt"

	"kappa/internal/core"
	"kappa/internal/source"
)

// Cmp is the relation an equation asks for.
type Cmp uint8

const (
	CmpEQ Cmp = iota
	CmpLE
	// CmpGE is accepted at insertion only; it is stored as LE with the
	// sides swapped.
	CmpGE
)

func (c Cmp) String() string {
	switch c {
	case CmpEQ:
		return "=="
	case CmpLE:
		return "<="
	case CmpGE:
		return ">="
	default:
		return fmt.Sprintf("Cmp(%d)", c)
	}
}

// State is the state of one equation or of the whole solver.
type State uint8

const (
	StateCollecting State = iota
	StateSolving
	StateStuck
	StateFailed
	StateSolved
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateSolving:
		return "solving"
	case StateStuck:
		return "stuck"
	case StateFailed:
		return "failed"
	case StateSolved:
		return "solved"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Equation asks for Left Cmp Right. Type is the common type when known.
type Equation struct {
	Left   core.Expr
	Right  core.Expr
	Type   core.Expr
	Cmp    Cmp
	Source source.Span
	state  State
}

// NewEquation normalises GE to LE by swapping the sides.
func NewEquation(left, right core.Expr, typ core.Expr, cmp Cmp, src source.Span) *Equation {
	if cmp == CmpGE {
		left, right, cmp = right, left, CmpLE
	}
	return &Equation{Left: left, Right: right, Type: typ, Cmp: cmp, Source: src, state: StateCollecting}
}

func (e *Equation) State() State { return e.state }

func (e *Equation) String() string {
	return core.Format(e.Left) + " " + e.Cmp.String() + " " + core.Format(e.Right)
}

// Outcome is the final verdict on an equation that did not succeed
// immediately. LeftNF and RightNF are the normal forms the solver gave up
// on.
type Outcome struct {
	Equation *Equation
	State    State
	LeftNF   core.Expr
	RightNF  core.Expr
	Reason   string
}

func (o Outcome) String() string {
	l, r := o.LeftNF, o.RightNF
	if l == nil {
		l = o.Equation.Left
	}
	if r == nil {
		r = o.Equation.Right
	}
	s := fmt.Sprintf("%s: %s %s %s", o.State, core.Format(l), o.Equation.Cmp, core.Format(r))
	if o.Reason != "" {
		s += " (" + o.Reason + ")"
	}
	return s
}
