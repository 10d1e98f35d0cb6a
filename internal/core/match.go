package core

import (
	"math/big"
)

// MatchResult is the outcome of matching arguments against patterns.
type MatchResult uint8

const (
	MatchOK MatchResult = iota
	// MatchStuck means an argument is not yet a constructor.
	MatchStuck
	MatchFail
)

func (r MatchResult) String() string {
	switch r {
	case MatchOK:
		return "ok"
	case MatchStuck:
		return "stuck"
	default:
		return "fail"
	}
}

// Match binds the variables of ps to the corresponding parts of args.
// whnf exposes the head of an argument when a constructor pattern needs
// it. Bindings are recorded in out even when the match fails later.
func Match(ps []Pattern, args []Expr, whnf func(Expr) (Expr, error), out *ExprSubst) (MatchResult, error) {
	if len(ps) != len(args) {
		return MatchFail, nil
	}
	result := MatchOK
	for i, p := range ps {
		r, err := matchOne(p, args[i], whnf, out)
		if err != nil {
			return MatchFail, err
		}
		switch r {
		case MatchFail:
			return MatchFail, nil
		case MatchStuck:
			result = MatchStuck
		}
	}
	return result, nil
}

func matchOne(p Pattern, arg Expr, whnf func(Expr) (Expr, error), out *ExprSubst) (MatchResult, error) {
	switch n := p.(type) {
	case *BindingPattern:
		out.AddSubst(n.Binding, arg)
		return MatchOK, nil
	case *ConPattern:
		nf, err := whnf(arg)
		if err != nil {
			return MatchFail, err
		}
		if num, ok := nf.(*IntegerExpr); ok {
			if call := num.AsConCall(); call != nil {
				nf = call
			}
		}
		call, ok := nf.(*ConCallExpr)
		if !ok {
			return MatchStuck, nil
		}
		if call.Con != n.Con {
			return MatchFail, nil
		}
		return Match(n.Args, call.Args, whnf, out)
	default:
		return MatchStuck, nil
	}
}

var bigOne = big.NewInt(1)

// AsConCall unfolds one step of a numeral into its zero or successor
// constructor. It returns nil when the data type has no number roles or
// takes parameters.
func (e *IntegerExpr) AsConCall() *ConCallExpr {
	if e.Data == nil || e.Data.Parameters().HasNext() {
		return nil
	}
	if e.Value.Sign() == 0 {
		zero := e.Data.RoleConstructor(RoleZero)
		if zero == nil {
			return nil
		}
		return &ConCallExpr{Con: zero, Levels: IdentityLevels(zero)}
	}
	suc := e.Data.RoleConstructor(RoleSuc)
	if suc == nil {
		return nil
	}
	pred := new(big.Int).Sub(e.Value, bigOne)
	return &ConCallExpr{
		Con:    suc,
		Levels: IdentityLevels(suc),
		Args:   []Expr{&IntegerExpr{Value: pred, Data: e.Data}},
	}
}

// ConCallAsInteger folds a successor chain ending in zero or a numeral.
func ConCallAsInteger(call *ConCallExpr) (*IntegerExpr, bool) {
	n := int64(0)
	var e Expr = call
	for {
		switch x := e.(type) {
		case *IntegerExpr:
			return &IntegerExpr{Value: new(big.Int).Add(x.Value, big.NewInt(n)), Data: x.Data}, true
		case *ConCallExpr:
			if x.Con.Data == nil || x.Con.Data.Parameters().HasNext() {
				return nil, false
			}
			switch x.Con.Role {
			case RoleZero:
				return &IntegerExpr{Value: big.NewInt(n), Data: x.Con.Data}, true
			case RoleSuc:
				if len(x.Args) != 1 {
					return nil, false
				}
				n++
				e = x.Args[0]
				continue
			}
		}
		return nil, false
	}
}
