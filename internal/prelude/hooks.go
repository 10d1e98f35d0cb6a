package prelude

import (
	"kappa/internal/core"
	"kappa/internal/level"
)

// reduceAt computes q @ i: the endpoints at left and right, and the
// underlying function when q is a path constructor.
func (p *Prelude) reduceAt(call *core.FunCallExpr, whnf func(core.Expr) (core.Expr, error)) (core.Expr, error) {
	i, err := whnf(call.Args[4])
	if err != nil {
		return nil, err
	}
	if con, ok := i.(*core.ConCallExpr); ok {
		switch con.Con {
		case p.Left:
			return call.Args[1], nil
		case p.Right:
			return call.Args[2], nil
		}
	}
	q, err := whnf(call.Args[3])
	if err != nil {
		return nil, err
	}
	if path, ok := q.(*core.PathExpr); ok {
		return core.Apps(path.Arg, call.Args[4]), nil
	}
	return nil, nil
}

// reduceCoe computes coe A a i when i is left or A is constant.
func (p *Prelude) reduceCoe(call *core.FunCallExpr, whnf func(core.Expr) (core.Expr, error)) (core.Expr, error) {
	i, err := whnf(call.Args[2])
	if err != nil {
		return nil, err
	}
	if con, ok := i.(*core.ConCallExpr); ok && con.Con == p.Left {
		return call.Args[1], nil
	}
	fam, err := whnf(call.Args[0])
	if err != nil {
		return nil, err
	}
	if lam, ok := fam.(*core.LamExpr); ok && lam.Params.Len() == 1 && !core.Mentions(lam.Body, lam.Params.Binding()) {
		return call.Args[1], nil
	}
	return nil, nil
}

// PathCall builds Path family lhs rhs.
func (p *Prelude) PathCall(levels level.Levels, family, lhs, rhs core.Expr) *core.DataCallExpr {
	return core.MustDataCall(p.Path, levels, family, lhs, rhs)
}

// ConstFamily is \lam (_ : I) => t with the binder allocated from arena.
func (p *Prelude) ConstFamily(arena *core.Arena, t core.Type) *core.LamExpr {
	i := arena.NewBinding("_", core.Type{Expr: p.intervalType(), Sort: level.Set0}, core.Explicit)
	lam := core.Lam(core.Telescope(i), t.Expr)
	lam.ResultSort = t.Sort
	return lam
}

// Endpoints applies the function of a path constructor to left and right.
func (p *Prelude) Endpoints(pe *core.PathExpr) (core.Expr, core.Expr) {
	return core.Apps(pe.Arg, p.left()), core.Apps(pe.Arg, p.right())
}

// NatLit builds the numeral n.
func (p *Prelude) NatLit(n int64) *core.IntegerExpr { return core.NewInteger(n, p.Nat) }

// Interval returns the interval type.
func (p *Prelude) Interval() core.Expr { return p.intervalType() }

// LeftExpr and RightExpr are the interval endpoints.
func (p *Prelude) LeftExpr() core.Expr  { return p.left() }
func (p *Prelude) RightExpr() core.Expr { return p.right() }

// ArrayOf builds Array elem.
func (p *Prelude) ArrayOf(levels level.Levels, elem core.Expr) *core.DataCallExpr {
	return core.MustDataCall(p.Array, levels, elem)
}

// ElementFamily is \lam (_ : Nat) => elem, the element type of an array
// literal as a function of the index.
func (p *Prelude) ElementFamily(arena *core.Arena, elem core.Type) *core.LamExpr {
	i := arena.NewBinding("_", core.Type{Expr: p.natType(), Sort: level.Set0}, core.Explicit)
	lam := core.Lam(core.Telescope(i), elem.Expr)
	lam.ResultSort = elem.Sort
	return lam
}
