package typecheck

import (
	"context"
	"fmt"

	"kappa/internal/concrete"
	"kappa/internal/core"
	"kappa/internal/deps"
	"kappa/internal/diag"
	"kappa/internal/level"
	"kappa/internal/solve"
	"kappa/internal/trace"
)

// DefinitionChecker turns declarations into units. Every Check runs on a
// fresh Checker, so declarations that do not depend on each other may be
// checked concurrently against the same registry.
type DefinitionChecker struct {
	reg  *Registry
	opts Options
	rec  deps.Recorder
}

func NewDefinitionChecker(reg *Registry, opts Options) *DefinitionChecker {
	return &DefinitionChecker{reg: reg, opts: opts}
}

// WithRecorder reports the dependencies of every checked unit to rec.
func (dc *DefinitionChecker) WithRecorder(rec deps.Recorder) *DefinitionChecker {
	dc.rec = rec
	return dc
}

// Check elaborates decl into an unpublished unit. Problems in decl are
// reported to rep and leave the unit with StatusHasErrors; the error
// result is reserved for interruption.
func (dc *DefinitionChecker) Check(ctx context.Context, decl concrete.Decl, rep diag.Reporter) (*Unit, error) {
	t := trace.FromContext(ctx)
	span := trace.BeginDefinition(t, decl.DeclName(), trace.CurrentSpan(ctx))
	c := NewChecker(dc.reg, decl.DeclName(), rep, dc.opts).WithTracer(t, span.Context())
	if dc.rec != nil {
		c.WithRecorder(dc.rec)
	}
	var (
		u   *Unit
		err error
	)
	switch n := decl.(type) {
	case *concrete.DataDecl:
		u, err = c.checkData(ctx, n)
	case *concrete.FunctionDecl:
		u, err = c.checkFunction(ctx, n)
	case *concrete.RecordDecl:
		u, err = c.checkRecord(ctx, n)
	default:
		panic(fmt.Errorf("typecheck: unexpected declaration %T", decl))
	}
	if err != nil {
		span.End("interrupted")
		return nil, err
	}
	span.End(u.Status().String())
	return u, nil
}

func (c *Checker) checkData(ctx context.Context, n *concrete.DataDecl) (*Unit, error) {
	d := core.NewDataDef(n.Name, n.Span())
	if n.StdLevels {
		d.SetLevelParams(core.StdLevelParams)
		c.std = true
	}
	c.self[n.Name] = d
	ps, err := c.checkParams(ctx, n.Params, n.Span())
	if err != nil {
		return nil, err
	}
	d.SetParameters(core.Telescope(ps...))
	if n.Truncated != nil {
		d.TruncatedLevel = *n.Truncated
	}

	// Constructors are declared up front so that patterns and parameters
	// of one constructor may mention the others.
	decls := make([]*concrete.ConstructorDecl, 0, len(n.Constructors))
	for _, cd := range n.Constructors {
		if _, dup := c.self[cd.Name]; dup {
			c.errorf(diag.DepDuplicate, cd.Span(), fmt.Sprintf("%s is declared twice in %s", cd.Name, n.Name)).Emit()
			continue
		}
		con := core.NewConstructor(cd.Name, cd.Span())
		d.AddConstructor(con)
		c.self[cd.Name] = con
		decls = append(decls, cd)
	}
	c.selfAllowed = true
	for i, cd := range decls {
		if err := c.checkConstructor(ctx, d, d.Constructors[i], cd); err != nil {
			return nil, err
		}
	}
	c.selfAllowed = false

	dataSort(d)
	solve.CheckCovariance(d)
	numberRoles(d)
	members := make([]core.Definition, len(d.Constructors))
	for i, con := range d.Constructors {
		members[i] = con
	}
	return c.finish(ctx, d, members, d.Gate())
}

// checkConstructor elaborates the patterns and parameters of con. With
// patterns the data parameters are out of scope and the pattern
// variables take their place.
func (c *Checker) checkConstructor(ctx context.Context, d *core.DataDef, con *core.Constructor, n *concrete.ConstructorDecl) error {
	saved := c.scope
	defer func() { c.scope = saved }()
	if n.Patterns != nil {
		if want := d.Parameters().Len(); want != len(n.Patterns) {
			c.errorf(diag.TCArityMismatch, n.Span(), fmt.Sprintf("%s matches on %d parameters, %s has %d", n.Name, len(n.Patterns), d.Name(), want)).Emit()
		} else {
			c.scope = nil
			v := core.NewSubstVisitor(c.arena, nil, nil)
			pats := make([]core.Pattern, len(n.Patterns))
			for i, b := range d.Parameters().Bindings() {
				p, e, err := c.checkPattern(ctx, n.Patterns[i], v.Apply(b.Type.Expr), n.Span())
				if err != nil {
					return err
				}
				pats[i] = p
				v.Exprs().Add(b, e)
			}
			con.Patterns = pats
		}
	}
	ps, err := c.checkParams(ctx, n.Params, n.Span())
	if err != nil {
		return err
	}
	con.SetParameters(core.Telescope(ps...))
	return nil
}

// dataSort is the maximum of the constructor parameter sorts, at least a
// set when there are two constructors to tell apart, truncated when the
// data type is. Parameters of the data type itself take the result.
func dataSort(d *core.DataDef) {
	var sorts []level.Sort
	var selfTyped []*core.Binding
	for _, con := range d.Constructors {
		for _, b := range con.Parameters().Bindings() {
			if isSelf(d, b.Type.Expr) {
				selfTyped = append(selfTyped, b)
				continue
			}
			sorts = append(sorts, b.Type.Sort)
		}
	}
	if len(d.Constructors) > 1 {
		sorts = append(sorts, level.Set0)
	}
	s := level.MaxSorts(sorts...)
	if d.IsTruncated() {
		s = s.Truncate(d.TruncatedLevel)
	}
	d.Sort = s
	for _, b := range selfTyped {
		b.Type.Sort = s
	}
}

// isSelf reports whether t is a call of d, looking through solved
// inference references. It leaves t untouched.
func isSelf(d *core.DataDef, t core.Expr) bool {
	for {
		ref, ok := t.(*core.InferenceRefExpr)
		if !ok || ref.Var.Solution == nil {
			break
		}
		t = ref.Var.Solution
	}
	dc, ok := t.(*core.DataCallExpr)
	return ok && dc.Data == d
}

// numberRoles lets numerals denote values of d when it has one nullary
// constructor and one whose only parameter is d itself.
func numberRoles(d *core.DataDef) {
	if len(d.Constructors) != 2 {
		return
	}
	var zero, suc *core.Constructor
	for _, con := range d.Constructors {
		ps := con.Parameters()
		switch {
		case !ps.HasNext():
			zero = con
		case ps.Len() == 1 && isSelf(d, ps.Binding().Type.Expr):
			suc = con
		}
	}
	if zero != nil && suc != nil {
		zero.Role, suc.Role = core.RoleZero, core.RoleSuc
	}
}

func (c *Checker) checkFunction(ctx context.Context, n *concrete.FunctionDecl) (*Unit, error) {
	f := core.NewFunctionDef(n.Name, n.Span())
	if n.StdLevels {
		f.SetLevelParams(core.StdLevelParams)
		c.std = true
	}
	c.self[n.Name] = f
	ps, err := c.checkParams(ctx, n.Params, n.Span())
	if err != nil {
		return nil, err
	}
	f.SetParameters(core.Telescope(ps...))

	switch {
	case n.ResultType != nil:
		if f.ResultType, err = c.checkType(ctx, n.ResultType); err != nil {
			return nil, err
		}
		if n.Body != nil {
			if f.Body, err = c.check(ctx, n.Body, f.ResultType.Expr); err != nil {
				return nil, err
			}
		}
	case n.Body != nil:
		term, typ, err := c.infer(ctx, n.Body)
		if err != nil {
			return nil, err
		}
		if f.ResultType, err = c.typeOf(ctx, typ); err != nil {
			return nil, err
		}
		f.Body = term
	default:
		f.ResultType = c.freshType("result", n.Span())
	}
	if len(n.Clauses) > 0 {
		if err := c.checkClauses(ctx, f, n.Clauses); err != nil {
			return nil, err
		}
	}
	return c.finish(ctx, f, nil, f.Gate())
}

// checkClauses elaborates the clauses of f. They may call f; the
// parameter names of f are not in scope.
func (c *Checker) checkClauses(ctx context.Context, f *core.FunctionDef, clauses []*concrete.ClauseDecl) error {
	c.selfAllowed = true
	defer func() { c.selfAllowed = false }()
	explicit := len(f.Parameters().Explicit())
	covered := false
	for _, n := range clauses {
		if covered {
			diag.ReportWarning(c.rep, diag.TCRedundantClause, n.Span(), "clause is unreachable, an earlier clause matches every argument").Emit()
		}
		cl, err := c.checkClause(ctx, f, n, explicit)
		if err != nil {
			return err
		}
		if cl == nil {
			continue
		}
		f.Clauses = append(f.Clauses, cl)
		if catchAll(cl.Patterns) {
			covered = true
		}
	}
	return nil
}

// checkClause returns nil for a clause that cannot be used.
func (c *Checker) checkClause(ctx context.Context, f *core.FunctionDef, n *concrete.ClauseDecl, explicit int) (*core.Clause, error) {
	if len(n.Patterns) != explicit {
		c.errorf(diag.TCArityMismatch, n.Span(), fmt.Sprintf("clause has %d patterns, %s takes %d explicit arguments", len(n.Patterns), f.Name(), explicit)).Emit()
		return nil, nil
	}
	saved := c.scope
	c.scope = nil
	defer func() { c.scope = saved }()

	v := core.NewSubstVisitor(c.arena, nil, nil)
	pats := make([]core.Pattern, 0, f.Parameters().Len())
	next := 0
	for it := f.Parameters(); it.HasNext(); it = it.Next() {
		b := it.Binding()
		typ := v.Apply(b.Type.Expr)
		var (
			p core.Pattern
			e core.Expr
		)
		if b.IsExplicit() {
			var err error
			if p, e, err = c.checkPattern(ctx, n.Patterns[next], typ, n.Span()); err != nil {
				return nil, err
			}
			next++
		} else {
			t, err := c.typeOf(ctx, typ)
			if err != nil {
				return nil, err
			}
			nb := c.arena.NewBindingAt(b.Name, t, 0, n.Span())
			c.pushScope(nb)
			p, e = &core.BindingPattern{Binding: nb}, core.Ref(nb)
		}
		pats = append(pats, p)
		v.Exprs().Add(b, e)
	}

	absurd := isAbsurd(pats)
	switch {
	case n.Body == nil && !absurd:
		c.errorf(diag.TCPatternMismatch, n.Span(), "a clause without a body needs an absurd pattern").Emit()
		return nil, nil
	case n.Body != nil && absurd:
		c.errorf(diag.TCPatternMismatch, n.Span(), "a clause with an absurd pattern cannot have a body").Emit()
		return nil, nil
	case n.Body == nil:
		return &core.Clause{Patterns: pats}, nil
	}
	body, err := c.check(ctx, n.Body, v.ApplyType(f.ResultType).Expr)
	if err != nil {
		return nil, err
	}
	return &core.Clause{Patterns: pats, Body: body}, nil
}

// checkRecord declares the record as a data type with the constructor
// RecordConstructor(name) and one class field per field. The type of a
// field sees the earlier fields as projections of the record value.
func (c *Checker) checkRecord(ctx context.Context, n *concrete.RecordDecl) (*Unit, error) {
	d := core.NewDataDef(n.Name, n.Span())
	d.IsRecord = true
	if n.StdLevels {
		d.SetLevelParams(core.StdLevelParams)
		c.std = true
	}
	c.self[n.Name] = d
	ps, err := c.checkParams(ctx, n.Params, n.Span())
	if err != nil {
		return nil, err
	}
	d.SetParameters(core.Telescope(ps...))
	con := core.NewConstructor(concrete.RecordConstructor(n.Name), n.Span())
	d.AddConstructor(con)

	var fieldParams []*core.Binding
	for _, fd := range n.Fields {
		if _, dup := c.fields[fd.Name]; dup {
			c.errorf(diag.DepDuplicate, fd.Span(), fmt.Sprintf("field %s is declared twice in %s", fd.Name, n.Name)).Emit()
			continue
		}
		t, err := c.checkType(ctx, fd.Type)
		if err != nil {
			return nil, err
		}
		b := c.arena.NewBindingAt(fd.Name, t, core.Explicit, fd.Span())
		c.fields[fd.Name] = b
		c.pushScope(b)
		fieldParams = append(fieldParams, b)
	}
	clear(c.fields)
	con.SetParameters(core.Telescope(fieldParams...))

	sorts := make([]level.Sort, len(fieldParams))
	for i, b := range fieldParams {
		sorts[i] = b.Type.Sort
	}
	d.Sort = level.MaxSorts(sorts...)

	args := make([]core.Expr, len(ps))
	for i, b := range ps {
		args[i] = core.Ref(b)
	}
	self, err := core.NewDataCall(d, core.IdentityLevels(d), args)
	if err != nil {
		return nil, err
	}
	this := c.arena.NewBindingAt("this", core.Type{Expr: self, Sort: d.Sort}, core.Explicit, n.Span())
	sub := core.NewExprSubst()
	members := []core.Definition{con}
	for i, b := range fieldParams {
		f := core.NewClassField(b.Name, b.Span)
		f.Record, f.Index = d, i
		f.SetParameters(core.Telescope(this))
		f.Type = core.Type{Expr: core.Subst(c.arena, b.Type.Expr, sub), Sort: b.Type.Sort}
		call, err := core.NewFieldCall(f, core.IdentityLevels(f), core.Ref(this))
		if err != nil {
			return nil, err
		}
		sub.Add(b, call)
		d.Fields = append(d.Fields, f)
		members = append(members, f)
	}
	solve.CheckCovariance(d)
	return c.finish(ctx, d, members, d.Gate())
}

// finish solves what is left, strips the solved variables and
// generalizes the levels of the unit. A unit with errors is still
// returned so that its dependents can be told apart from missing ones.
func (c *Checker) finish(ctx context.Context, def core.Definition, members []core.Definition, gate *core.InPlaceGate) (*Unit, error) {
	if err := c.solveAll(ctx); err != nil {
		return nil, err
	}
	defs := append([]core.Definition{def}, members...)
	strip(defs)
	if err := c.generalize(ctx, defs, gate, def.Span()); err != nil {
		return nil, err
	}
	status := core.StatusChecked
	if c.Errors() > 0 {
		status = core.StatusHasErrors
	}
	for _, d := range defs {
		d.SetStatus(status)
	}
	return &Unit{Name: def.Name(), Def: def, Members: members, Deps: c.Deps(), Goals: c.goals}, nil
}
