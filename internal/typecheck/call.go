package typecheck

import (
	"context"
	"fmt"

	"kappa/internal/concrete"
	"kappa/internal/core"
	"kappa/internal/diag"
	"kappa/internal/level"
	"kappa/internal/solve"
	"kappa/internal/source"
)

// inferCall elaborates a global applied to args. Earlier record fields
// come first, then the definitions being checked, then the registry.
func (c *Checker) inferCall(ctx context.Context, ref *concrete.GlobalRef, args []concrete.Arg, sp source.Span) (core.Expr, core.Expr, error) {
	if b, ok := c.fields[ref.Name]; ok {
		return c.applyArgs(ctx, core.Ref(b), b.Type.Expr, args, sp)
	}
	def, self := c.self[ref.Name], true
	if def == nil {
		def, self = c.reg.Lookup(ref.Name), false
	}
	if def == nil {
		c.errorf(diag.TCUnknownDefinition, ref.Span(), "unknown definition "+ref.Name).Emit()
		return errorExpr(nil, "unknown definition"), errorExpr(nil, "unknown definition"), nil
	}
	if self && !c.selfAllowed {
		c.errorf(diag.DepSelfImport, ref.Span(), ref.Name+" refers to itself outside constructor parameters and clauses").Emit()
		return errorExpr(nil, "self reference"), errorExpr(nil, "self reference"), nil
	}
	if !self {
		c.depend(def.Name())
	}
	switch d := def.(type) {
	case *core.ClassField:
		return c.inferField(ctx, d, args, sp)
	case *core.Constructor:
		if d == c.pre.PathCon {
			return c.inferPath(ctx, args, sp)
		}
		return c.inferCon(ctx, d, c.callLevels(d, ref.Levels, self, sp), args, sp)
	}
	levels := c.callLevels(def, ref.Levels, self, sp)
	v := core.NewSubstVisitor(c.arena, nil, levels)
	filled, rest, extra, err := c.fillArgs(ctx, def.Parameters(), v, args, sp)
	if err != nil {
		return nil, nil, err
	}
	switch d := def.(type) {
	case *core.FunctionDef:
		return c.saturate(ctx, filled, rest, v, extra, sp,
			func(all []core.Expr) (core.Expr, error) { return core.NewFunCall(d, levels, all) },
			func() core.Type { return v.ApplyType(d.ResultType) })
	case *core.DataDef:
		return c.saturate(ctx, filled, rest, v, extra, sp,
			func(all []core.Expr) (core.Expr, error) { return core.NewDataCall(d, levels, all) },
			func() core.Type {
				s := d.SortAt(levels)
				return core.Type{Expr: core.Universe(s), Sort: s.Succ()}
			})
	}
	panic(fmt.Errorf("typecheck: unexpected definition %T", def))
}

// depend records a dependency on the unit that published name, once per
// unit. Prelude names have no unit.
func (c *Checker) depend(name string) {
	owner, ok := c.reg.Owner(name)
	if !ok || owner == c.name {
		return
	}
	if c.deps.Insert(owner) && c.rec != nil {
		c.rec.DependsOn(c.name, owner)
	}
}

// callLevels instantiates the level parameters of def. A definition
// refers to itself at its own parameters; elsewhere missing levels are
// inferred.
func (c *Checker) callLevels(def core.Definition, given *concrete.LevelArgs, self bool, sp source.Span) level.Levels {
	if self {
		return core.IdentityLevels(def)
	}
	lp := def.LevelParams()
	if given != nil && lp.Kind == core.LevelsNone {
		c.errorf(diag.LvlArityMismatch, sp, def.Name()+" takes no level arguments").Emit()
	}
	pick := func(dim level.Dim) level.Level {
		switch {
		case given == nil:
			return c.freshLevel(dim, sp)
		case dim == level.DimH:
			return c.level(given.H, dim, sp)
		}
		return c.level(given.P, dim, sp)
	}
	switch lp.Kind {
	case core.LevelsStd:
		return level.Pair{P: pick(level.DimP), H: pick(level.DimH)}
	case core.LevelsList:
		vals := make([]level.Level, len(lp.Vars))
		for i, v := range lp.Vars {
			vals[i] = pick(v.Dim)
		}
		return level.List{Owner: uint32(core.LevelOwner(def)), Values: vals}
	}
	return level.Empty{}
}

// fillArgs elaborates args against params and extends v with the
// arguments. Implicit parameters without an argument get inference
// variables. It stops at the first explicit parameter left without an
// argument and returns that part of the telescope, or the arguments left
// over when every parameter was filled.
func (c *Checker) fillArgs(ctx context.Context, params *core.DependentLink, v *core.SubstVisitor, args []concrete.Arg, sp source.Span) ([]core.Expr, *core.DependentLink, []concrete.Arg, error) {
	var out []core.Expr
	it := params
	for it.HasNext() {
		b := it.Binding()
		t := v.ApplyType(b.Type)
		var arg core.Expr
		switch {
		case len(args) > 0 && args[0].Explicit == b.IsExplicit():
			term, err := c.check(ctx, args[0].Expr, t.Expr)
			if err != nil {
				return nil, nil, nil, err
			}
			arg, args = term, args[1:]
		case !b.IsExplicit():
			arg = c.newVar(b.Name, t.Expr, sp)
		case len(args) > 0:
			c.errorf(diag.TCExplicitness, args[0].Expr.Span(), "implicit argument where "+b.Name+" is explicit").Emit()
			args = args[1:]
			continue
		default:
			return out, it, nil, nil
		}
		v.Exprs().Add(b, arg)
		out = append(out, arg)
		it = it.Next()
	}
	return out, core.EmptyLink, args, nil
}

// saturate abstracts the parameters fillArgs left open and applies the
// arguments it did not consume. result is called once v maps every
// parameter.
func (c *Checker) saturate(
	ctx context.Context,
	filled []core.Expr,
	rest *core.DependentLink,
	v *core.SubstVisitor,
	extra []concrete.Arg,
	sp source.Span,
	build func([]core.Expr) (core.Expr, error),
	result func() core.Type,
) (core.Expr, core.Expr, error) {
	open := core.EmptyLink
	if rest.HasNext() {
		open = rest.Subst(v, rest.Len(), false)
		for it := open; it.HasNext(); it = it.Next() {
			filled = append(filled, core.Ref(it.Binding()))
		}
	}
	term, err := build(filled)
	if err != nil {
		c.errorf(diag.TCArityMismatch, sp, err.Error()).Emit()
		return errorExpr(nil, "arity"), errorExpr(nil, "arity"), nil
	}
	t := result()
	if open.HasNext() {
		lam := core.Lam(open, term)
		lam.ResultSort = t.Sort
		return lam, core.Pi(open, t), nil
	}
	if len(extra) > 0 {
		return c.applyArgs(ctx, term, t.Expr, extra, sp)
	}
	return term, t.Expr, nil
}

// applyArgs applies fun : typ to args one Pi binder at a time.
func (c *Checker) applyArgs(ctx context.Context, fun, typ core.Expr, args []concrete.Arg, sp source.Span) (core.Expr, core.Expr, error) {
	for len(args) > 0 {
		if isError(fun) {
			return fun, typ, nil
		}
		nf, err := c.whnf(ctx, typ)
		if err != nil {
			return nil, nil, err
		}
		var pi *core.PiExpr
		switch t := nf.(type) {
		case *core.PiExpr:
			pi = t
		case *core.ErrorExpr:
			return errorExpr(nil, "not a function"), t, nil
		case *core.InferenceRefExpr:
			if pi, err = c.freshPi(ctx, t, args[0].Explicit, sp); err != nil {
				return nil, nil, err
			}
		default:
			c.errorf(diag.TCNotAFunction, sp, "expression is not a function").
				WithNote(sp, "its type is "+core.Format(nf)).
				Emit()
			return errorExpr(nil, "not a function"), errorExpr(nil, "not a function"), nil
		}
		b := pi.Params.Binding()
		var arg core.Expr
		switch {
		case args[0].Explicit == b.IsExplicit():
			if arg, err = c.check(ctx, args[0].Expr, b.Type.Expr); err != nil {
				return nil, nil, err
			}
			args = args[1:]
		case !b.IsExplicit():
			arg = c.newVar(b.Name, b.Type.Expr, sp)
		default:
			c.errorf(diag.TCExplicitness, args[0].Expr.Span(), "implicit argument where "+b.Name+" is explicit").Emit()
			args = args[1:]
			continue
		}
		fun = &core.AppExpr{Fun: fun, Arg: arg}
		typ = c.peelPi(pi, arg)
	}
	return fun, typ, nil
}

// freshPi solves the type hole t with \Pi (x : ?A) -> ?B.
func (c *Checker) freshPi(ctx context.Context, t *core.InferenceRefExpr, explicit bool, sp source.Span) (*core.PiExpr, error) {
	dom := c.freshType("", sp)
	x := c.arena.NewBindingAt("x", dom, flags(explicit), sp)
	mark := c.pushScope(x)
	cod := c.freshType("", sp)
	c.popScope(mark)
	pi := core.Pi(core.Telescope(x), cod)
	if _, err := c.solver.Compare(ctx, t, pi, nil, solve.CmpEQ, sp); err != nil {
		return nil, err
	}
	return pi, nil
}

// inferCon elaborates a constructor call. The data arguments are
// inferred; for a constructor with patterns they are the patterns with
// their variables inferred.
func (c *Checker) inferCon(ctx context.Context, con *core.Constructor, levels level.Levels, args []concrete.Arg, sp source.Span) (core.Expr, core.Expr, error) {
	data := con.Data
	v := core.NewSubstVisitor(c.arena, nil, levels)
	var dataArgs []core.Expr
	if con.Patterns == nil {
		for it := data.Parameters(); it.HasNext(); it = it.Next() {
			b := it.Binding()
			h := c.newVar(b.Name, v.ApplyType(b.Type).Expr, sp)
			v.Exprs().Add(b, h)
			dataArgs = append(dataArgs, h)
		}
	} else {
		for _, b := range core.PatternBindings(con.Patterns) {
			h := c.newVar(b.Name, v.ApplyType(b.Type).Expr, sp)
			v.Exprs().Add(b, h)
		}
		for _, p := range con.Patterns {
			dataArgs = append(dataArgs, c.patternExpr(p, v, sp))
		}
	}
	filled, rest, extra, err := c.fillArgs(ctx, con.Parameters(), v, args, sp)
	if err != nil {
		return nil, nil, err
	}
	return c.saturate(ctx, filled, rest, v, extra, sp,
		func(all []core.Expr) (core.Expr, error) { return core.NewConCall(con, levels, dataArgs, all) },
		func() core.Type {
			return core.Type{Expr: &core.DataCallExpr{Data: data, Levels: levels, Args: dataArgs}, Sort: data.SortAt(levels)}
		})
}

// patternExpr is the term a constructor pattern stands for, with the
// pattern variables mapped by v.
func (c *Checker) patternExpr(p core.Pattern, v *core.SubstVisitor, sp source.Span) core.Expr {
	switch n := p.(type) {
	case *core.BindingPattern:
		return v.Apply(core.Ref(n.Binding))
	case *core.ConPattern:
		levels := c.callLevels(n.Con, nil, false, sp)
		pv := core.NewSubstVisitor(c.arena, nil, levels)
		var dataArgs []core.Expr
		for it := n.Con.Data.Parameters(); it.HasNext(); it = it.Next() {
			b := it.Binding()
			h := c.newVar(b.Name, pv.ApplyType(b.Type).Expr, sp)
			pv.Exprs().Add(b, h)
			dataArgs = append(dataArgs, h)
		}
		args := make([]core.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = c.patternExpr(a, v, sp)
		}
		return &core.ConCallExpr{Con: n.Con, Levels: levels, DataArgs: dataArgs, Args: args}
	}
	return errorExpr(nil, "absurd pattern")
}

// inferField elaborates a projection. The record parameters and levels
// come from the type of the record argument.
func (c *Checker) inferField(ctx context.Context, f *core.ClassField, args []concrete.Arg, sp source.Span) (core.Expr, core.Expr, error) {
	if len(args) == 0 || !args[0].Explicit {
		c.errorf(diag.TCArityMismatch, sp, "field "+f.Name()+" needs an explicit record argument").Emit()
		return errorExpr(nil, "field"), errorExpr(nil, "field"), nil
	}
	arg, typ, err := c.infer(ctx, args[0].Expr)
	if err != nil {
		return nil, nil, err
	}
	if isError(arg) {
		return arg, typ, nil
	}
	nf, err := c.whnf(ctx, typ)
	if err != nil {
		return nil, nil, err
	}
	dc, ok := nf.(*core.DataCallExpr)
	if !ok || dc.Data != f.Record {
		c.errorf(diag.TCTypeMismatch, args[0].Expr.Span(), fmt.Sprintf("field %s projects out of %s", f.Name(), f.Record.Name())).
			WithNote(args[0].Expr.Span(), "actual "+core.Format(nf)).
			Emit()
		return errorExpr(nil, "field"), errorExpr(nil, "field"), nil
	}
	sub := core.NewExprSubst()
	for i, b := range f.Record.Parameters().Bindings() {
		sub.Add(b, dc.Args[i])
	}
	sub.Add(f.This(), arg)
	t := core.NewSubstVisitor(c.arena, sub, dc.Levels).Apply(f.Type.Expr)
	call, err := core.NewFieldCall(f, dc.Levels, arg)
	if err != nil {
		c.errorf(diag.TCArityMismatch, sp, err.Error()).Emit()
		return errorExpr(nil, "field"), errorExpr(nil, "field"), nil
	}
	return c.applyArgs(ctx, call, t, args[1:], sp)
}

// inferPath elaborates path f. The type family is read off the type of
// f; it is dropped from the term when it does not depend on the
// interval.
func (c *Checker) inferPath(ctx context.Context, args []concrete.Arg, sp source.Span) (core.Expr, core.Expr, error) {
	if len(args) != 1 || !args[0].Explicit {
		c.errorf(diag.TCArityMismatch, sp, fmt.Sprintf("path takes one explicit argument, got %d", len(args))).Emit()
		return errorExpr(nil, "path"), errorExpr(nil, "path"), nil
	}
	f, typ, err := c.infer(ctx, args[0].Expr)
	if err != nil {
		return nil, nil, err
	}
	if isError(f) {
		return f, typ, nil
	}
	nf, err := c.whnf(ctx, typ)
	if err != nil {
		return nil, nil, err
	}
	pi, ok := nf.(*core.PiExpr)
	if !ok {
		ref, isVar := nf.(*core.InferenceRefExpr)
		if !isVar {
			c.errorf(diag.TCNotAFunction, args[0].Expr.Span(), "path expects a function out of the interval").
				WithNote(args[0].Expr.Span(), "its type is "+core.Format(nf)).
				Emit()
			return errorExpr(nil, "path"), errorExpr(nil, "path"), nil
		}
		if pi, err = c.freshPi(ctx, ref, true, sp); err != nil {
			return nil, nil, err
		}
	}
	i := pi.Params.Binding()
	out, err := c.solver.Compare(ctx, i.Type.Expr, c.pre.Interval(), nil, solve.CmpEQ, sp)
	if err != nil {
		return nil, nil, err
	}
	if out.State == solve.StateFailed {
		c.reportMismatch(out, c.pre.Interval(), i.Type.Expr, args[0].Expr.Span())
		return errorExpr(nil, "path"), errorExpr(nil, "path"), nil
	}
	cod := core.Type{Expr: pi.Codomain, Sort: pi.ResultSort}
	if next := pi.Params.Next(); next.HasNext() {
		rest := &core.PiExpr{ResultSort: pi.ResultSort, Params: next, Codomain: pi.Codomain}
		cod = core.Type{Expr: rest, Sort: rest.Sort()}
	}
	family := core.Lam(core.Telescope(i), cod.Expr)
	family.ResultSort = cod.Sort
	levels := level.PairOf(cod.Sort)
	pe := &core.PathExpr{Levels: levels, ArgType: family, Arg: f}
	if !core.Mentions(cod.Expr, i) {
		pe.ArgType = nil
	}
	lhs, rhs := c.pre.Endpoints(pe)
	return pe, c.pre.PathCall(levels, family, lhs, rhs), nil
}
