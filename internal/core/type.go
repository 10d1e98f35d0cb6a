package core

import "kappa/internal/level"

// Type pairs a type expression with the sort of its own type, so that
// universe levels need not be derived again at every use.
type Type struct {
	Expr Expr
	Sort level.Sort
}

func TypeOf(e Expr, s level.Sort) Type { return Type{Expr: e, Sort: s} }

func (t Type) IsValid() bool { return t.Expr != nil }
