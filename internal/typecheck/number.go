package typecheck

import (
	"context"
	"fmt"
	"math/big"

	"kappa/internal/core"
	"kappa/internal/diag"
	"kappa/internal/source"
)

// CheckNumber elaborates the numeral n. Without an expected type, or
// against an unknown one, it is a natural number. A parameterless number
// type takes it as an integer literal; a number type with parameters,
// such as Fin k, unfolds it into constructor calls and rejects it when a
// constructor pattern does not match.
func (c *Checker) CheckNumber(ctx context.Context, n *big.Int, expected core.Expr, sp source.Span) (Result, error) {
	nat := core.MustDataCall(c.pre.Nat, nil)
	if expected == nil {
		return Result{Expr: bigInt(n, c.pre.Nat), Type: nat}, nil
	}
	nf, err := c.whnf(ctx, expected)
	if err != nil {
		return Result{}, err
	}
	switch t := nf.(type) {
	case *core.ErrorExpr:
		return Result{Expr: errorExpr(expected, "number"), Type: expected}, nil
	case *core.InferenceRefExpr:
		if _, err := c.coerce(ctx, bigInt(n, c.pre.Nat), nat, t, sp); err != nil {
			return Result{}, err
		}
		return Result{Expr: bigInt(n, c.pre.Nat), Type: expected}, nil
	case *core.DataCallExpr:
		if !t.Data.IsNumberType() {
			break
		}
		if !t.Data.Parameters().HasNext() {
			return Result{Expr: bigInt(n, t.Data), Type: expected}, nil
		}
		term, res, err := c.unfoldNumber(ctx, n, t)
		if err != nil {
			return Result{}, err
		}
		switch res {
		case core.MatchOK:
			return Result{Expr: term, Type: expected}, nil
		case core.MatchStuck:
			c.errorf(diag.TCNumberOutOfRange, sp, fmt.Sprintf("cannot decide whether %s fits %s", n, core.Format(t))).Emit()
		default:
			c.errorf(diag.TCNumberOutOfRange, sp, fmt.Sprintf("%s is out of range for %s", n, core.Format(t))).Emit()
		}
		return Result{Expr: errorExpr(expected, "number out of range"), Type: expected}, nil
	}
	c.errorf(diag.TCNotANumberType, sp, fmt.Sprintf("numeral %s at a type without numerals", n)).
		WithNote(sp, "expected "+core.Format(nf)).
		Emit()
	return Result{Expr: errorExpr(expected, "not a number type"), Type: expected}, nil
}

// unfoldNumber builds n as zero and successor constructor calls of dc.
// Each step matches the constructor patterns against the current data
// arguments and continues at the type of the successor's argument.
func (c *Checker) unfoldNumber(ctx context.Context, n *big.Int, dc *core.DataCallExpr) (core.Expr, core.MatchResult, error) {
	role := core.RoleSuc
	if n.Sign() == 0 {
		role = core.RoleZero
	}
	con := dc.Data.RoleConstructor(role)
	sub := core.NewExprSubst()
	for i, b := range dc.Data.Parameters().Bindings() {
		sub.Add(b, dc.Args[i])
	}
	if con.Patterns != nil {
		res, err := core.Match(con.Patterns, dc.Args, c.whnfFunc(ctx), sub)
		if err != nil || res != core.MatchOK {
			return nil, res, err
		}
	}
	call := &core.ConCallExpr{Con: con, Levels: dc.Levels, DataArgs: dc.Args}
	if role == core.RoleZero {
		return call, core.MatchOK, nil
	}
	arg := con.Parameters().Binding()
	next, err := c.whnf(ctx, core.NewSubstVisitor(c.arena, sub, dc.Levels).Apply(arg.Type.Expr))
	if err != nil {
		return nil, core.MatchFail, err
	}
	pred := new(big.Int).Sub(n, big.NewInt(1))
	var inner core.Expr
	switch t := next.(type) {
	case *core.DataCallExpr:
		if t.Data != dc.Data {
			return nil, core.MatchFail, nil
		}
		if !t.Data.Parameters().HasNext() {
			inner = bigInt(pred, t.Data)
			break
		}
		var res core.MatchResult
		if inner, res, err = c.unfoldNumber(ctx, pred, t); err != nil || res != core.MatchOK {
			return nil, res, err
		}
	default:
		return nil, core.MatchStuck, nil
	}
	call.Args = []core.Expr{inner}
	return call, core.MatchOK, nil
}
