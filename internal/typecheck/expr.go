package typecheck

import (
	"context"
	"errors"
	"fmt"

	"kappa/internal/concrete"
	"kappa/internal/core"
	"kappa/internal/diag"
	"kappa/internal/level"
	"kappa/internal/solve"
	"kappa/internal/source"
)

// infer elaborates e and synthesises its type.
func (c *Checker) infer(ctx context.Context, e concrete.Expr) (core.Expr, core.Expr, error) {
	switch n := e.(type) {
	case *concrete.LocalRef:
		b, ok := c.locals[n.Local]
		if !ok {
			c.errorf(diag.TCUnboundLocal, n.Span(), fmt.Sprintf("unbound local %s#%d", n.Local.Name, n.Local.ID)).Emit()
			return errorExpr(nil, "unbound local"), errorExpr(nil, "unbound local"), nil
		}
		return core.Ref(b), b.Type.Expr, nil
	case *concrete.GlobalRef:
		return c.inferCall(ctx, n, nil, n.Span())
	case *concrete.App:
		if ref, ok := n.Fun.(*concrete.GlobalRef); ok {
			return c.inferCall(ctx, ref, n.Args, n.Span())
		}
		fun, typ, err := c.infer(ctx, n.Fun)
		if err != nil {
			return nil, nil, err
		}
		return c.applyArgs(ctx, fun, typ, n.Args, n.Span())
	case *concrete.Lam:
		return c.inferLam(ctx, n)
	case *concrete.Pi:
		pi, err := c.checkPi(ctx, n)
		if err != nil {
			return nil, nil, err
		}
		return pi, core.Universe(pi.Sort()), nil
	case *concrete.Sigma:
		mark := len(c.scope)
		bs, err := c.checkParams(ctx, n.Params, n.Span())
		c.popScope(mark)
		if err != nil {
			return nil, nil, err
		}
		sigma := core.Sigma(core.Telescope(bs...))
		return sigma, core.Universe(sigma.Sort()), nil
	case *concrete.Tuple:
		return c.inferTuple(ctx, n)
	case *concrete.Proj:
		return c.inferProj(ctx, n)
	case *concrete.Universe:
		s := c.universeSort(n)
		return core.Universe(s), core.Universe(s.Succ()), nil
	case *concrete.Hole:
		t := c.freshType("", n.Span())
		v := c.newVar(n.Name, t.Expr, n.Span())
		c.holes[v.Var] = true
		return v, t.Expr, nil
	case *concrete.Number:
		r, err := c.CheckNumber(ctx, n.Value, nil, n.Span())
		if err != nil {
			return nil, nil, err
		}
		return r.Expr, r.Type, nil
	case *concrete.Let:
		return c.elabLet(ctx, n, nil)
	case *concrete.Array:
		return c.inferArray(ctx, n)
	case *concrete.Typed:
		t, err := c.checkType(ctx, n.Type)
		if err != nil {
			return nil, nil, err
		}
		term, err := c.check(ctx, n.Expr, t.Expr)
		if err != nil {
			return nil, nil, err
		}
		return term, t.Expr, nil
	case *concrete.MetaCall:
		r, err := c.invokeMeta(ctx, n, nil)
		if err != nil {
			return nil, nil, err
		}
		return r.Expr, r.Type, nil
	}
	panic(fmt.Errorf("typecheck: unexpected expression %T", e))
}

// check elaborates e against expected.
func (c *Checker) check(ctx context.Context, e concrete.Expr, expected core.Expr) (core.Expr, error) {
	switch n := e.(type) {
	case *concrete.Lam:
		nf, err := c.whnf(ctx, expected)
		if err != nil {
			return nil, err
		}
		if pi, ok := nf.(*core.PiExpr); ok {
			return c.checkLam(ctx, n, pi)
		}
	case *concrete.Tuple:
		nf, err := c.whnf(ctx, expected)
		if err != nil {
			return nil, err
		}
		if sigma, ok := nf.(*core.SigmaExpr); ok {
			return c.checkTuple(ctx, n, sigma)
		}
	case *concrete.Hole:
		v := c.newVar(n.Name, expected, n.Span())
		c.holes[v.Var] = true
		return v, nil
	case *concrete.Number:
		r, err := c.CheckNumber(ctx, n.Value, expected, n.Span())
		if err != nil {
			return nil, err
		}
		return r.Expr, nil
	case *concrete.Let:
		term, _, err := c.elabLet(ctx, n, expected)
		return term, err
	case *concrete.Array:
		nf, err := c.whnf(ctx, expected)
		if err != nil {
			return nil, err
		}
		if dc, ok := nf.(*core.DataCallExpr); ok && dc.Data == c.pre.Array {
			return c.checkArray(ctx, n, dc)
		}
	case *concrete.MetaCall:
		r, err := c.invokeMeta(ctx, n, expected)
		if err != nil || r.Failed() {
			return r.Expr, err
		}
		return c.coerce(ctx, r.Expr, r.Type, expected, n.Span())
	}
	term, typ, err := c.infer(ctx, e)
	if err != nil {
		return nil, err
	}
	return c.coerce(ctx, term, typ, expected, e.Span())
}

// coerce checks actual <= expected for term. On a definite mismatch the
// term is replaced by a placeholder.
func (c *Checker) coerce(ctx context.Context, term, actual, expected core.Expr, sp source.Span) (core.Expr, error) {
	if isError(term) || isError(actual) || actual == expected {
		return term, nil
	}
	out, err := c.solver.Compare(ctx, actual, expected, nil, solve.CmpLE, sp)
	if err != nil {
		return nil, err
	}
	if out.State != solve.StateFailed {
		return term, nil
	}
	c.reportMismatch(out, expected, actual, sp)
	return errorExpr(expected, "type mismatch"), nil
}

func (c *Checker) reportMismatch(out solve.Outcome, expected, actual core.Expr, sp source.Span) {
	c.reported[out.Equation] = true
	code := diag.TCTypeMismatch
	if c.isPath(expected) && c.isPath(actual) {
		code = diag.TCPathEndpoint
	}
	b := c.errorf(code, sp, "type mismatch").
		WithNote(sp, "expected "+core.Format(expected)).
		WithNote(sp, "actual "+core.Format(actual))
	if out.Reason != "" {
		b = b.WithNote(sp, out.String())
	}
	b.Emit()
}

func (c *Checker) isPath(e core.Expr) bool {
	dc, ok := e.(*core.DataCallExpr)
	return ok && dc.Data == c.pre.Path
}

// checkType elaborates e as a type and returns it with its sort.
func (c *Checker) checkType(ctx context.Context, e concrete.Expr) (core.Type, error) {
	term, typ, err := c.infer(ctx, e)
	if err != nil {
		return core.Type{}, err
	}
	if isError(term) {
		return core.Type{Expr: term, Sort: level.Prop}, nil
	}
	nf, err := c.whnf(ctx, typ)
	if err != nil {
		return core.Type{}, err
	}
	switch t := nf.(type) {
	case *core.UniverseExpr:
		return core.Type{Expr: term, Sort: t.Sort}, nil
	case *core.ErrorExpr:
		return core.Type{Expr: term, Sort: level.Prop}, nil
	case *core.InferenceRefExpr:
		s := c.freshSort(e.Span())
		if _, err := c.coerce(ctx, term, t, core.Universe(s), e.Span()); err != nil {
			return core.Type{}, err
		}
		return core.Type{Expr: term, Sort: s}, nil
	}
	c.errorf(diag.TCNotAType, e.Span(), "expression is not a type").
		WithNote(e.Span(), "its type is "+core.Format(nf)).
		Emit()
	return core.Type{Expr: errorExpr(nil, "not a type"), Sort: level.Prop}, nil
}

type param struct {
	local    *concrete.Local
	typ      concrete.Expr
	explicit bool
}

func flatten(ps []concrete.Param) []param {
	var out []param
	for _, p := range ps {
		for _, l := range p.Locals {
			out = append(out, param{local: l, typ: p.Type, explicit: p.Explicit})
		}
	}
	return out
}

func flags(explicit bool) core.Flags {
	if explicit {
		return core.Explicit
	}
	return 0
}

// checkParams binds the locals of ps and leaves them in scope. A
// parameter group shares one elaborated type.
func (c *Checker) checkParams(ctx context.Context, ps []concrete.Param, sp source.Span) ([]*core.Binding, error) {
	var out []*core.Binding
	for _, p := range ps {
		var t core.Type
		if p.Type == nil {
			t = c.freshType("", sp)
		} else {
			var err error
			if t, err = c.checkType(ctx, p.Type); err != nil {
				return nil, err
			}
		}
		for _, l := range p.Locals {
			b := c.arena.NewBindingAt(l.Name, t, flags(p.Explicit), sp)
			c.locals[l] = b
			c.pushScope(b)
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *Checker) checkPi(ctx context.Context, n *concrete.Pi) (*core.PiExpr, error) {
	mark := len(c.scope)
	defer c.popScope(mark)
	bs, err := c.checkParams(ctx, n.Params, n.Span())
	if err != nil {
		return nil, err
	}
	cod, err := c.checkType(ctx, n.Codomain)
	if err != nil {
		return nil, err
	}
	return core.Pi(core.Telescope(bs...), cod), nil
}

func (c *Checker) inferLam(ctx context.Context, n *concrete.Lam) (core.Expr, core.Expr, error) {
	mark := len(c.scope)
	defer c.popScope(mark)
	bs, err := c.checkParams(ctx, n.Params, n.Span())
	if err != nil {
		return nil, nil, err
	}
	body, typ, err := c.infer(ctx, n.Body)
	if err != nil {
		return nil, nil, err
	}
	t, err := c.typeOf(ctx, typ)
	if err != nil {
		return nil, nil, err
	}
	params := core.Telescope(bs...)
	lam := core.Lam(params, body)
	lam.ResultSort = t.Sort
	return lam, core.Pi(params, t), nil
}

// peelPi instantiates the first parameter of pi with arg and returns the
// rest of the type.
func (c *Checker) peelPi(pi *core.PiExpr, arg core.Expr) core.Expr {
	b := pi.Params.Binding()
	var rest core.Expr = pi.Codomain
	if next := pi.Params.Next(); next.HasNext() {
		rest = &core.PiExpr{ResultSort: pi.ResultSort, Params: next, Codomain: pi.Codomain}
	}
	return core.Subst(c.arena, rest, core.SingleSubst(b, arg))
}

// checkLam walks the parameters of n against the binders of pi. An
// implicit binder the lambda does not mention is bound silently.
func (c *Checker) checkLam(ctx context.Context, n *concrete.Lam, pi *core.PiExpr) (core.Expr, error) {
	mark := len(c.scope)
	defer c.popScope(mark)
	params := flatten(n.Params)
	var bs []*core.Binding
	var expected core.Expr = pi
	for len(params) > 0 {
		nf, err := c.whnf(ctx, expected)
		if err != nil {
			return nil, err
		}
		pi, ok := nf.(*core.PiExpr)
		if !ok {
			break
		}
		pb := pi.Params.Binding()
		p := params[0]
		switch {
		case pb.IsExplicit() && !p.explicit:
			c.errorf(diag.TCImplicitLambda, n.Span(), fmt.Sprintf("implicit parameter %s where %s is explicit", p.local.Name, pb.Name)).Emit()
			return errorExpr(pi, "implicit lambda"), nil
		case !pb.IsExplicit() && p.explicit:
			b := c.arena.NewBindingAt(pb.Name, pb.Type, pb.Flags, n.Span())
			c.pushScope(b)
			bs = append(bs, b)
			expected = c.peelPi(pi, core.Ref(b))
			continue
		}
		t := pb.Type
		if p.typ != nil {
			given, err := c.checkType(ctx, p.typ)
			if err != nil {
				return nil, err
			}
			out, err := c.solver.Compare(ctx, given.Expr, pb.Type.Expr, nil, solve.CmpEQ, n.Span())
			if err != nil {
				return nil, err
			}
			if out.State == solve.StateFailed {
				c.reportMismatch(out, pb.Type.Expr, given.Expr, n.Span())
			}
			t = given
		}
		b := c.arena.NewBindingAt(p.local.Name, t, pb.Flags, n.Span())
		c.locals[p.local] = b
		c.pushScope(b)
		bs = append(bs, b)
		expected = c.peelPi(pi, core.Ref(b))
		params = params[1:]
	}

	var body core.Expr
	var err error
	if len(params) > 0 {
		rest := &concrete.Lam{Pos: n.Pos, Params: regroup(params), Body: n.Body}
		body, err = c.check(ctx, rest, expected)
	} else {
		body, err = c.check(ctx, n.Body, expected)
	}
	if err != nil {
		return nil, err
	}
	s, err := c.sortOf(ctx, expected)
	if err != nil {
		return nil, err
	}
	lam := core.Lam(core.Telescope(bs...), body)
	lam.ResultSort = s
	return lam, nil
}

func regroup(ps []param) []concrete.Param {
	out := make([]concrete.Param, len(ps))
	for i, p := range ps {
		out[i] = concrete.Param{Locals: []*concrete.Local{p.local}, Type: p.typ, Explicit: p.explicit}
	}
	return out
}

func (c *Checker) inferTuple(ctx context.Context, n *concrete.Tuple) (core.Expr, core.Expr, error) {
	fields := make([]core.Expr, len(n.Fields))
	bs := make([]*core.Binding, len(n.Fields))
	for i, f := range n.Fields {
		term, typ, err := c.infer(ctx, f)
		if err != nil {
			return nil, nil, err
		}
		t, err := c.typeOf(ctx, typ)
		if err != nil {
			return nil, nil, err
		}
		fields[i] = term
		bs[i] = c.arena.NewBindingAt("_", t, core.Explicit, f.Span())
	}
	sigma := core.Sigma(core.Telescope(bs...))
	return &core.TupleExpr{Fields: fields, Type: sigma}, sigma, nil
}

func (c *Checker) checkTuple(ctx context.Context, n *concrete.Tuple, sigma *core.SigmaExpr) (core.Expr, error) {
	if want := sigma.Params.Len(); want != len(n.Fields) {
		c.errorf(diag.TCArityMismatch, n.Span(), fmt.Sprintf("tuple has %d fields, the sigma type %d", len(n.Fields), want)).Emit()
		return errorExpr(sigma, "tuple size"), nil
	}
	sub := core.NewExprSubst()
	fields := make([]core.Expr, len(n.Fields))
	it := sigma.Params
	for i, f := range n.Fields {
		b := it.Binding()
		term, err := c.check(ctx, f, core.Subst(c.arena, b.Type.Expr, sub))
		if err != nil {
			return nil, err
		}
		fields[i] = term
		sub.Add(b, term)
		it = it.Next()
	}
	return &core.TupleExpr{Fields: fields, Type: sigma}, nil
}

func (c *Checker) inferProj(ctx context.Context, n *concrete.Proj) (core.Expr, core.Expr, error) {
	tuple, typ, err := c.infer(ctx, n.Tuple)
	if err != nil {
		return nil, nil, err
	}
	if isError(tuple) {
		return tuple, errorExpr(nil, "projection"), nil
	}
	nf, err := c.whnf(ctx, typ)
	if err != nil {
		return nil, nil, err
	}
	sigma, ok := nf.(*core.SigmaExpr)
	if !ok {
		c.errorf(diag.TCNotASigma, n.Span(), "projection out of a non-sigma type").
			WithNote(n.Tuple.Span(), "its type is "+core.Format(nf)).
			Emit()
		return errorExpr(nil, "not a sigma"), errorExpr(nil, "not a sigma"), nil
	}
	if n.Field < 0 || n.Field >= sigma.Params.Len() {
		c.errorf(diag.TCProjectionRange, n.Span(), fmt.Sprintf("projection %d out of a sigma type with %d components", n.Field, sigma.Params.Len())).Emit()
		return errorExpr(nil, "projection range"), errorExpr(nil, "projection range"), nil
	}
	sub := core.NewExprSubst()
	it := sigma.Params
	for i := range n.Field {
		sub.Add(it.Binding(), &core.ProjExpr{Tuple: tuple, Field: i})
		it = it.Next()
	}
	return &core.ProjExpr{Tuple: tuple, Field: n.Field}, core.Subst(c.arena, it.Binding().Type.Expr, sub), nil
}

// elabLet checks the clauses in order and the body against expected, or
// infers the body when expected is nil. The inferred type has the let
// bindings substituted away.
func (c *Checker) elabLet(ctx context.Context, n *concrete.Let, expected core.Expr) (core.Expr, core.Expr, error) {
	mark := len(c.scope)
	defer c.popScope(mark)
	sub := core.NewExprSubst()
	clauses := make([]*core.LetClause, 0, len(n.Clauses))
	for _, cl := range n.Clauses {
		var value, typ core.Expr
		var err error
		if cl.Type != nil {
			t, err := c.checkType(ctx, cl.Type)
			if err != nil {
				return nil, nil, err
			}
			typ = t.Expr
			if value, err = c.check(ctx, cl.Value, typ); err != nil {
				return nil, nil, err
			}
		} else if value, typ, err = c.infer(ctx, cl.Value); err != nil {
			return nil, nil, err
		}
		t, err := c.typeOf(ctx, typ)
		if err != nil {
			return nil, nil, err
		}
		b := c.arena.NewBindingAt(cl.Local.Name, t, core.Explicit, n.Span())
		c.locals[cl.Local] = b
		c.pushScope(b)
		sub.Add(b, value)
		clauses = append(clauses, &core.LetClause{Binding: b, Value: value})
	}
	if expected != nil {
		body, err := c.check(ctx, n.Body, expected)
		if err != nil {
			return nil, nil, err
		}
		return &core.LetExpr{Clauses: clauses, Body: body}, expected, nil
	}
	body, typ, err := c.infer(ctx, n.Body)
	if err != nil {
		return nil, nil, err
	}
	return &core.LetExpr{Clauses: clauses, Body: body}, core.Subst(c.arena, typ, sub), nil
}

func (c *Checker) inferArray(ctx context.Context, n *concrete.Array) (core.Expr, core.Expr, error) {
	var elem core.Type
	var first core.Expr
	rest := n.Elements
	if len(rest) > 0 {
		term, typ, err := c.infer(ctx, rest[0])
		if err != nil {
			return nil, nil, err
		}
		if elem, err = c.typeOf(ctx, typ); err != nil {
			return nil, nil, err
		}
		first, rest = term, rest[1:]
	} else {
		elem = c.freshType("A", n.Span())
	}
	arr, err := c.arrayOf(ctx, n, elem, first, rest)
	if err != nil {
		return nil, nil, err
	}
	return arr, c.pre.ArrayOf(arr.Levels, elem.Expr), nil
}

func (c *Checker) checkArray(ctx context.Context, n *concrete.Array, dc *core.DataCallExpr) (core.Expr, error) {
	elem, err := c.typeOf(ctx, dc.Args[0])
	if err != nil {
		return nil, err
	}
	return c.arrayOf(ctx, n, elem, nil, n.Elements)
}

// arrayOf checks the elements after first and the tail against elem.
func (c *Checker) arrayOf(ctx context.Context, n *concrete.Array, elem core.Type, first core.Expr, rest []concrete.Expr) (*core.ArrayExpr, error) {
	levels := level.PairOf(elem.Sort)
	var elems []core.Expr
	if first != nil {
		elems = append(elems, first)
	}
	for _, x := range rest {
		term, err := c.check(ctx, x, elem.Expr)
		if err != nil {
			return nil, err
		}
		elems = append(elems, term)
	}
	arr := &core.ArrayExpr{
		Levels:       levels,
		ElementsType: c.pre.ElementFamily(c.arena, elem),
		Elements:     elems,
	}
	if n.Tail != nil {
		tail, err := c.check(ctx, n.Tail, c.pre.ArrayOf(levels, elem.Expr))
		if err != nil {
			return nil, err
		}
		arr.Tail = tail
	}
	return arr, nil
}

// universeSort elaborates the levels of \Type. Missing levels are
// inferred.
func (c *Checker) universeSort(n *concrete.Universe) level.Sort {
	return level.NewSort(c.level(n.P, level.DimP, n.Span()), c.level(n.H, level.DimH, n.Span()))
}

func (c *Checker) level(e concrete.LevelExpr, dim level.Dim, sp source.Span) level.Level {
	switch l := e.(type) {
	case nil:
		return c.freshLevel(dim, sp)
	case concrete.LevelConst:
		return level.Const(l.Value)
	case concrete.LevelStd:
		if !c.std {
			c.errorf(diag.LvlArityMismatch, sp, "\\lp and \\lh are not in scope: the definition has no level parameters").Emit()
			return level.Const(0)
		}
		if l.H {
			return level.OfVar(level.LH)
		}
		return level.OfVar(level.LP)
	case concrete.LevelSuc:
		return c.level(l.Of, dim, sp).Add(1)
	case concrete.LevelMax:
		return level.Max(c.level(l.Left, dim, sp), c.level(l.Right, dim, sp))
	}
	panic(fmt.Errorf("typecheck: unexpected level %T", e))
}

// invokeMeta runs a meta definition. Failures other than interruption
// are reported against the call.
func (c *Checker) invokeMeta(ctx context.Context, n *concrete.MetaCall, expected core.Expr) (Result, error) {
	m, ok := c.reg.Meta(n.Name)
	if !ok {
		c.errorf(diag.TCUnknownDefinition, n.Span(), "unknown meta definition "+n.Name).Emit()
		return Result{Expr: errorExpr(expected, "unknown meta"), Type: orError(expected)}, nil
	}
	r, err := m.Invoke(ctx, c, n, expected)
	switch {
	case err != nil && errors.Is(err, ErrInterrupted):
		return Result{}, err
	case err != nil:
		c.errorf(diag.TCMetaFailed, n.Span(), fmt.Sprintf("meta %s failed: %v", n.Name, err)).Emit()
		return Result{Expr: errorExpr(expected, "meta failed"), Type: orError(expected)}, nil
	case r.Expr == nil || r.Type == nil:
		c.errorf(diag.TCMetaFailed, n.Span(), fmt.Sprintf("meta %s returned no term", n.Name)).Emit()
		return Result{Expr: errorExpr(expected, "meta failed"), Type: orError(expected)}, nil
	}
	return r, nil
}

func orError(t core.Expr) core.Expr {
	if t == nil {
		return errorExpr(nil, "unknown type")
	}
	return t
}
