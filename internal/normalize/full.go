package normalize

import (
	"context"

	"kappa/internal/core"
)

// Normalize reduces e everywhere, under binders included. Binders of the
// result carry fresh bindings whose types are normalized too.
func (n *Normalizer) Normalize(ctx context.Context, e core.Expr) (core.Expr, error) {
	nf, err := n.WHNF(ctx, e)
	if err != nil {
		return nil, err
	}
	all := func(es []core.Expr) ([]core.Expr, error) {
		out := make([]core.Expr, len(es))
		for i, x := range es {
			r, err := n.Normalize(ctx, x)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	opt := func(x core.Expr) (core.Expr, error) {
		if x == nil {
			return nil, nil
		}
		return n.Normalize(ctx, x)
	}

	switch x := nf.(type) {
	case *core.AppExpr:
		head, args := core.SpineOf(x)
		h, err := n.Normalize(ctx, head)
		if err != nil {
			return nil, err
		}
		as, err := all(args)
		if err != nil {
			return nil, err
		}
		return core.Apps(h, as...), nil
	case *core.LamExpr:
		params, subst, err := n.link(ctx, x.Params)
		if err != nil {
			return nil, err
		}
		body, err := n.Normalize(ctx, core.Subst(n.arena, x.Body, subst))
		if err != nil {
			return nil, err
		}
		return &core.LamExpr{ResultSort: x.ResultSort, Params: params, Body: body}, nil
	case *core.PiExpr:
		params, subst, err := n.link(ctx, x.Params)
		if err != nil {
			return nil, err
		}
		cod, err := n.Normalize(ctx, core.Subst(n.arena, x.Codomain, subst))
		if err != nil {
			return nil, err
		}
		return &core.PiExpr{ResultSort: x.ResultSort, Params: params, Codomain: cod}, nil
	case *core.SigmaExpr:
		params, _, err := n.link(ctx, x.Params)
		if err != nil {
			return nil, err
		}
		return &core.SigmaExpr{Params: params}, nil
	case *core.TupleExpr:
		fields, err := all(x.Fields)
		if err != nil {
			return nil, err
		}
		return &core.TupleExpr{Fields: fields, Type: x.Type}, nil
	case *core.ProjExpr:
		t, err := n.Normalize(ctx, x.Tuple)
		if err != nil {
			return nil, err
		}
		return &core.ProjExpr{Tuple: t, Field: x.Field}, nil
	case *core.PathExpr:
		argType, err := opt(x.ArgType)
		if err != nil {
			return nil, err
		}
		arg, err := n.Normalize(ctx, x.Arg)
		if err != nil {
			return nil, err
		}
		return &core.PathExpr{Levels: x.Levels, ArgType: argType, Arg: arg}, nil
	case *core.ArrayExpr:
		elemType, err := opt(x.ElementsType)
		if err != nil {
			return nil, err
		}
		elems, err := all(x.Elements)
		if err != nil {
			return nil, err
		}
		tail, err := opt(x.Tail)
		if err != nil {
			return nil, err
		}
		return &core.ArrayExpr{Levels: x.Levels, ElementsType: elemType, Elements: elems, Tail: tail}, nil
	case *core.FunCallExpr:
		args, err := all(x.Args)
		if err != nil {
			return nil, err
		}
		return &core.FunCallExpr{Def: x.Def, Levels: x.Levels, Args: args}, nil
	case *core.ConCallExpr:
		if num, ok := core.ConCallAsInteger(x); ok {
			return num, nil
		}
		dataArgs, err := all(x.DataArgs)
		if err != nil {
			return nil, err
		}
		args, err := all(x.Args)
		if err != nil {
			return nil, err
		}
		out := &core.ConCallExpr{Con: x.Con, Levels: x.Levels, DataArgs: dataArgs, Args: args}
		if num, ok := core.ConCallAsInteger(out); ok {
			return num, nil
		}
		return out, nil
	case *core.DataCallExpr:
		args, err := all(x.Args)
		if err != nil {
			return nil, err
		}
		return &core.DataCallExpr{Data: x.Data, Levels: x.Levels, Args: args}, nil
	case *core.FieldCallExpr:
		arg, err := n.Normalize(ctx, x.Arg)
		if err != nil {
			return nil, err
		}
		return &core.FieldCallExpr{Field: x.Field, Levels: x.Levels, Arg: arg}, nil
	case *core.CaseExpr:
		args, err := all(x.Args)
		if err != nil {
			return nil, err
		}
		return &core.CaseExpr{Args: args, Params: x.Params, ResultType: x.ResultType, Clauses: x.Clauses}, nil
	}
	return nf, nil
}

// link copies l with normalized parameter types and returns the renaming.
func (n *Normalizer) link(ctx context.Context, l *core.DependentLink) (*core.DependentLink, *core.ExprSubst, error) {
	subst := core.NewExprSubst()
	var fresh []*core.Binding
	for it := l; it.HasNext(); it = it.Next() {
		b := it.Binding()
		t, err := n.Normalize(ctx, core.Subst(n.arena, b.Type.Expr, subst.Clone()))
		if err != nil {
			return nil, nil, err
		}
		nb := n.arena.NewBindingAt(b.Name, core.Type{Expr: t, Sort: b.Type.Sort}, b.Flags, b.Span)
		subst.Add(b, core.Ref(nb))
		fresh = append(fresh, nb)
	}
	return core.Telescope(fresh...), subst, nil
}
