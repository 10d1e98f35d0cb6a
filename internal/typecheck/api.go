package typecheck

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"kappa/internal/concrete"
	"kappa/internal/core"
	"kappa/internal/solve"
	"kappa/internal/source"
)

// Result is an elaborated expression with its type. Expr is a
// *core.ErrorExpr when elaboration failed; the error was reported.
type Result struct {
	Expr core.Expr
	Type core.Expr
}

func (r Result) Failed() bool {
	_, ok := r.Expr.(*core.ErrorExpr)
	return ok
}

type NormalizationMode uint8

const (
	// WHNF exposes the head only.
	WHNF NormalizationMode = iota
	// NF normalises every subterm.
	NF
)

// ExpressionTypechecker is what a meta definition may ask of the checker
// that invoked it. Calls may nest: a meta can elaborate an argument that
// contains another meta call.
type ExpressionTypechecker interface {
	// Typecheck elaborates e against expected, or infers its type when
	// expected is nil.
	Typecheck(ctx context.Context, e concrete.Expr, expected core.Expr) (Result, error)
	// CheckNumber elaborates the numeral n at type expected.
	CheckNumber(ctx context.Context, n *big.Int, expected core.Expr, sp source.Span) (Result, error)
	// Compare records left cmp right. It returns false on a definite
	// mismatch and true when the equation holds or was deferred.
	Compare(ctx context.Context, left, right, typ core.Expr, cmp solve.Cmp, sp source.Span) (bool, error)
	Normalize(ctx context.Context, e core.Expr, mode NormalizationMode) (core.Expr, error)
}

// MetaDefinition elaborates a meta call. expected is nil in inference
// mode. Errors other than ErrInterrupted are reported as a failed meta.
type MetaDefinition interface {
	Invoke(ctx context.Context, tc ExpressionTypechecker, call *concrete.MetaCall, expected core.Expr) (Result, error)
}

type MetaFunc func(ctx context.Context, tc ExpressionTypechecker, call *concrete.MetaCall, expected core.Expr) (Result, error)

func (f MetaFunc) Invoke(ctx context.Context, tc ExpressionTypechecker, call *concrete.MetaCall, expected core.Expr) (Result, error) {
	return f(ctx, tc, call, expected)
}

// ErrMetaArity is returned by builtin metas called with the wrong number
// of arguments.
var ErrMetaArity = errors.New("wrong number of meta arguments")

func builtinMetas() map[string]MetaDefinition {
	return map[string]MetaDefinition{
		"the": MetaFunc(metaThe),
		"nf":  MetaFunc(metaNF),
	}
}

// metaThe elaborates "the T e": e checked at T.
func metaThe(ctx context.Context, tc ExpressionTypechecker, call *concrete.MetaCall, expected core.Expr) (Result, error) {
	if len(call.Args) != 2 {
		return Result{}, fmt.Errorf("the: %w: want 2, got %d", ErrMetaArity, len(call.Args))
	}
	t, err := tc.Typecheck(ctx, call.Args[0].Expr, nil)
	if err != nil {
		return Result{}, err
	}
	if t.Failed() {
		return t, nil
	}
	return tc.Typecheck(ctx, call.Args[1].Expr, t.Expr)
}

// metaNF elaborates "nf e" to the normal form of e.
func metaNF(ctx context.Context, tc ExpressionTypechecker, call *concrete.MetaCall, expected core.Expr) (Result, error) {
	if len(call.Args) != 1 {
		return Result{}, fmt.Errorf("nf: %w: want 1, got %d", ErrMetaArity, len(call.Args))
	}
	r, err := tc.Typecheck(ctx, call.Args[0].Expr, expected)
	if err != nil || r.Failed() {
		return r, err
	}
	nf, err := tc.Normalize(ctx, r.Expr, NF)
	if err != nil {
		return Result{}, err
	}
	return Result{Expr: nf, Type: r.Type}, nil
}
