package solve

import (
	"context"

	set "github.com/hashicorp/go-set/v3"

	"kappa/internal/core"
	"kappa/internal/trace"
)

type result uint8

const (
	resOK result = iota
	resStuck
	resFail
)

// worse keeps the strongest verdict: a failure beats a deferral.
func worse(a, b result) result { return max(a, b) }

func (s *Solver) compare(ctx context.Context, a, b core.Expr, cmp Cmp) (result, error) {
	if a == b {
		return resOK, nil
	}
	if err := s.poll(ctx); err != nil {
		return resFail, err
	}
	var err error
	if a, err = s.norm.WHNF(ctx, a); err != nil {
		return resFail, err
	}
	if b, err = s.norm.WHNF(ctx, b); err != nil {
		return resFail, err
	}
	if a == b {
		return resOK, nil
	}
	if isError(a) || isError(b) {
		return resOK, nil
	}
	if v := unsolvedVar(a); v != nil {
		return s.solveVar(v, b, a)
	}
	if v := unsolvedVar(b); v != nil {
		return s.solveVar(v, a, b)
	}

	// Eta rules apply when only one side is an introduction form.
	if x, ok := a.(*core.LamExpr); ok {
		return s.compareLam(ctx, x, b)
	}
	if y, ok := b.(*core.LamExpr); ok {
		return s.compareLam(ctx, y, a)
	}
	if x, ok := a.(*core.TupleExpr); ok {
		if _, ok := b.(*core.TupleExpr); !ok {
			return s.tupleEta(ctx, x, b)
		}
	}
	if y, ok := b.(*core.TupleExpr); ok {
		if _, ok := a.(*core.TupleExpr); !ok {
			return s.tupleEta(ctx, y, a)
		}
	}
	if x, ok := a.(*core.ConCallExpr); ok && x.Con.Data.IsRecord && !isIntro(b) {
		return s.recordEta(ctx, x, b)
	}
	if y, ok := b.(*core.ConCallExpr); ok && y.Con.Data.IsRecord && !isIntro(a) {
		return s.recordEta(ctx, y, a)
	}

	// A numeral meets a constructor call by unfolding one step.
	if x, ok := a.(*core.IntegerExpr); ok {
		if _, ok := b.(*core.ConCallExpr); ok {
			if con := x.AsConCall(); con != nil {
				return s.compare(ctx, con, b, cmp)
			}
		}
	}
	if y, ok := b.(*core.IntegerExpr); ok {
		if _, ok := a.(*core.ConCallExpr); ok {
			if con := y.AsConCall(); con != nil {
				return s.compare(ctx, a, con, cmp)
			}
		}
	}

	switch x := a.(type) {
	case *core.RefExpr:
		if y, ok := b.(*core.RefExpr); ok && y.Binding == x.Binding {
			return resOK, nil
		}
		return s.neutral(a, b, "different variables"), nil
	case *core.UniverseExpr:
		y, ok := b.(*core.UniverseExpr)
		if !ok {
			break
		}
		var holds bool
		if cmp == CmpLE {
			holds = s.levels.AddSortLe(x.Sort, y.Sort, s.src)
		} else {
			holds = s.levels.AddSortEq(x.Sort, y.Sort, s.src)
		}
		if !holds {
			return s.mismatch(a, b, "universe levels differ"), nil
		}
		return resOK, nil
	case *core.PiExpr:
		if y, ok := b.(*core.PiExpr); ok {
			return s.comparePi(ctx, x, y, cmp)
		}
	case *core.SigmaExpr:
		if y, ok := b.(*core.SigmaExpr); ok {
			return s.compareSigma(ctx, x, y, cmp)
		}
	case *core.TupleExpr:
		y := b.(*core.TupleExpr)
		if len(x.Fields) != len(y.Fields) {
			return s.mismatch(a, b, "tuple sizes differ"), nil
		}
		return s.all(ctx, x.Fields, y.Fields, CmpEQ, nil)
	case *core.ProjExpr:
		if y, ok := b.(*core.ProjExpr); ok && y.Field == x.Field {
			r, err := s.compare(ctx, x.Tuple, y.Tuple, CmpEQ)
			if err != nil || r != resFail {
				return r, err
			}
		}
		return s.neutral(a, b, "different projections"), nil
	case *core.PathExpr:
		if y, ok := b.(*core.PathExpr); ok {
			return s.comparePath(ctx, x, y)
		}
	case *core.ArrayExpr:
		if y, ok := b.(*core.ArrayExpr); ok {
			return s.compareArray(ctx, x, y, cmp)
		}
	case *core.IntegerExpr:
		if y, ok := b.(*core.IntegerExpr); ok && x.Data == y.Data && x.Value.Cmp(y.Value) == 0 {
			return resOK, nil
		}
	case *core.ConCallExpr:
		y, ok := b.(*core.ConCallExpr)
		if !ok || y.Con != x.Con {
			break
		}
		if !s.levels.AddLevelsLe(x.Levels, y.Levels, CmpEQ, s.src) {
			return s.mismatch(a, b, "level arguments differ"), nil
		}
		return s.all(ctx, x.Args, y.Args, CmpEQ, nil)
	case *core.DataCallExpr:
		y, ok := b.(*core.DataCallExpr)
		if !ok || y.Data != x.Data {
			break
		}
		if !s.levels.AddLevelsLe(x.Levels, y.Levels, cmp, s.src) {
			return s.mismatch(a, b, "level arguments differ"), nil
		}
		return s.all(ctx, x.Args, y.Args, cmp, x.Data.IsCovariant)
	case *core.FunCallExpr:
		if y, ok := b.(*core.FunCallExpr); ok && y.Def == x.Def && s.levels.AddLevelsLe(x.Levels, y.Levels, CmpEQ, s.src) {
			r, err := s.all(ctx, x.Args, y.Args, CmpEQ, nil)
			if err != nil || r != resFail {
				return r, err
			}
		}
		return s.neutral(a, b, "stuck function calls differ"), nil
	case *core.FieldCallExpr:
		if y, ok := b.(*core.FieldCallExpr); ok && y.Field == x.Field {
			r, err := s.compare(ctx, x.Arg, y.Arg, CmpEQ)
			if err != nil || r != resFail {
				return r, err
			}
		}
		return s.neutral(a, b, "different field projections"), nil
	case *core.AppExpr:
		if _, ok := b.(*core.AppExpr); ok {
			hx, ax := core.SpineOf(a)
			hy, ay := core.SpineOf(b)
			if len(ax) == len(ay) {
				r, err := s.compare(ctx, hx, hy, CmpEQ)
				if err != nil {
					return r, err
				}
				if r != resFail {
					r2, err := s.all(ctx, ax, ay, CmpEQ, nil)
					if err != nil || r2 != resFail {
						return worse(r, r2), err
					}
				}
			}
		}
		return s.neutral(a, b, "different applications"), nil
	case *core.CaseExpr:
		if y, ok := b.(*core.CaseExpr); ok && sameClauses(x.Clauses, y.Clauses) && len(x.Args) == len(y.Args) {
			r, err := s.all(ctx, x.Args, y.Args, CmpEQ, nil)
			if err != nil || r != resFail {
				return r, err
			}
		}
		return s.neutral(a, b, "different case expressions"), nil
	}
	if isRigid(a) && isRigid(b) {
		return s.mismatch(a, b, "different heads"), nil
	}
	return s.neutral(a, b, "different heads"), nil
}

// all compares argument lists pointwise. covariant selects the arguments
// that keep cmp; the others are compared for equality.
func (s *Solver) all(ctx context.Context, xs, ys []core.Expr, cmp Cmp, covariant func(int) bool) (result, error) {
	if len(xs) != len(ys) {
		return resFail, nil
	}
	out := resOK
	for i := range xs {
		c := CmpEQ
		if cmp == CmpLE && covariant != nil && covariant(i) {
			c = CmpLE
		}
		r, err := s.compare(ctx, xs[i], ys[i], c)
		if err != nil {
			return resFail, err
		}
		out = worse(out, r)
		if out == resFail {
			return out, nil
		}
	}
	return out, nil
}

// solveVar assigns other to v the first time v is compared with something.
// orig is the side v came from, used for reporting.
func (s *Solver) solveVar(v *core.InferenceVar, other, orig core.Expr) (result, error) {
	if r, ok := other.(*core.InferenceRefExpr); ok && r.Var == v {
		return resOK, nil
	}
	if mentionsVar(other, v) {
		return s.mismatch(orig, other, "recursive solution for "+v.String()), nil
	}
	scope := set.New[core.BindingID](len(v.Scope))
	for _, b := range v.Scope {
		scope.Insert(b.ID())
	}
	for id := range core.FreeVars(other).Items() {
		if !scope.Contains(id) {
			trace.Point(s.tracer, trace.ScopeNode, "scope", v.String()+" cannot refer to a local of the solution", s.span)
			return resStuck, nil
		}
	}
	v.Solution = other
	trace.Point(s.tracer, trace.ScopeNode, "solve", v.String()+" := "+core.Format(other), s.span)
	return resOK, nil
}

// comparePi peels one parameter at a time so that \Pi (x y : A) -> B
// equals \Pi (x : A) -> \Pi (y : A) -> B. Domains are compared for
// equality, codomains with cmp.
func (s *Solver) comparePi(ctx context.Context, x, y *core.PiExpr, cmp Cmp) (result, error) {
	bx, by := x.Params.Binding(), y.Params.Binding()
	r, err := s.compare(ctx, bx.TypeExpr(), by.TypeExpr(), CmpEQ)
	if err != nil || r == resFail {
		return r, err
	}
	restY := core.Subst(s.arena, restPi(y), core.SingleSubst(by, core.Ref(bx)))
	r2, err := s.compare(ctx, restPi(x), restY, cmp)
	return worse(r, r2), err
}

func restPi(p *core.PiExpr) core.Expr {
	if !p.Params.Next().HasNext() {
		return p.Codomain
	}
	return &core.PiExpr{ResultSort: p.ResultSort, Params: p.Params.Next(), Codomain: p.Codomain}
}

func (s *Solver) compareLam(ctx context.Context, x *core.LamExpr, other core.Expr) (result, error) {
	bx := x.Params.Binding()
	var body core.Expr
	if y, ok := other.(*core.LamExpr); ok {
		body = core.Subst(s.arena, restLam(y), core.SingleSubst(y.Params.Binding(), core.Ref(bx)))
	} else {
		body = core.Apps(other, core.Ref(bx))
	}
	return s.compare(ctx, restLam(x), body, CmpEQ)
}

func restLam(l *core.LamExpr) core.Expr {
	if !l.Params.Next().HasNext() {
		return l.Body
	}
	return &core.LamExpr{ResultSort: l.ResultSort, Params: l.Params.Next(), Body: l.Body}
}

func (s *Solver) compareSigma(ctx context.Context, x, y *core.SigmaExpr, cmp Cmp) (result, error) {
	if x.Params.Len() != y.Params.Len() {
		return s.mismatch(x, y, "sigma types have different sizes"), nil
	}
	rename := core.NewExprSubst()
	out := resOK
	for ix, iy := x.Params, y.Params; ix.HasNext(); ix, iy = ix.Next(), iy.Next() {
		ty := core.Subst(s.arena, iy.TypeExpr(), rename)
		r, err := s.compare(ctx, ix.TypeExpr(), ty, cmp)
		if err != nil {
			return resFail, err
		}
		if out = worse(out, r); out == resFail {
			return out, nil
		}
		rename.Add(iy.Binding(), core.Ref(ix.Binding()))
	}
	return out, nil
}

func (s *Solver) tupleEta(ctx context.Context, t *core.TupleExpr, other core.Expr) (result, error) {
	projs := make([]core.Expr, len(t.Fields))
	for i := range t.Fields {
		projs[i] = &core.ProjExpr{Tuple: other, Field: i}
	}
	return s.all(ctx, t.Fields, projs, CmpEQ, nil)
}

func (s *Solver) recordEta(ctx context.Context, call *core.ConCallExpr, other core.Expr) (result, error) {
	fields := call.Con.Data.Fields
	if len(fields) != len(call.Args) {
		return s.neutral(call, other, "record constructor arity"), nil
	}
	projs := make([]core.Expr, len(fields))
	for i, f := range fields {
		projs[i] = &core.FieldCallExpr{Field: f, Levels: call.Levels, Arg: other}
	}
	return s.all(ctx, call.Args, projs, CmpEQ, nil)
}

// comparePath compares the level arguments, the type families and the
// underlying functions. A non-dependent path has no family: against a
// dependent one the family must not vary along the interval.
func (s *Solver) comparePath(ctx context.Context, x, y *core.PathExpr) (result, error) {
	if !s.levels.AddLevelsLe(x.Levels, y.Levels, CmpEQ, s.src) {
		return s.mismatch(x, y, "level arguments differ"), nil
	}
	out := resOK
	switch {
	case x.ArgType != nil && y.ArgType != nil:
		r, err := s.compare(ctx, x.ArgType, y.ArgType, CmpEQ)
		if err != nil || r == resFail {
			return r, err
		}
		out = r
	case x.ArgType != nil:
		if dependentFamily(x.ArgType) {
			return s.mismatch(x, y, "a dependent path against a non-dependent one"), nil
		}
	case y.ArgType != nil:
		if dependentFamily(y.ArgType) {
			return s.mismatch(x, y, "a non-dependent path against a dependent one"), nil
		}
	}
	r, err := s.compare(ctx, x.Arg, y.Arg, CmpEQ)
	return worse(out, r), err
}

// dependentFamily reports whether the family lambda mentions its interval
// variable. Anything but a lambda is given the benefit of the doubt.
func dependentFamily(family core.Expr) bool {
	lam, ok := family.(*core.LamExpr)
	if !ok || !lam.Params.HasNext() {
		return false
	}
	return core.Mentions(lam.Body, lam.Params.Binding())
}

// compareArray matches the common prefix and then the remainders, so a
// literal can meet an array with a tail.
func (s *Solver) compareArray(ctx context.Context, x, y *core.ArrayExpr, cmp Cmp) (result, error) {
	out := resOK
	if x.ElementsType != nil && y.ElementsType != nil {
		r, err := s.compare(ctx, x.ElementsType, y.ElementsType, CmpEQ)
		if err != nil || r == resFail {
			return r, err
		}
		out = r
	}
	n := min(len(x.Elements), len(y.Elements))
	r, err := s.all(ctx, x.Elements[:n], y.Elements[:n], cmp, func(int) bool { return true })
	if err != nil || r == resFail {
		return r, err
	}
	out = worse(out, r)
	rx, ry := arrayRest(x, n), arrayRest(y, n)
	switch {
	case rx == nil && ry == nil:
		return out, nil
	case rx == nil || ry == nil:
		return worse(out, s.neutral(x, y, "array lengths differ")), nil
	}
	r, err = s.compare(ctx, rx, ry, cmp)
	return worse(out, r), err
}

func arrayRest(a *core.ArrayExpr, n int) core.Expr {
	if n == len(a.Elements) {
		return a.Tail
	}
	return &core.ArrayExpr{Levels: a.Levels, ElementsType: a.ElementsType, Elements: a.Elements[n:], Tail: a.Tail}
}

// mismatch is a definite failure.
func (s *Solver) mismatch(a, b core.Expr, reason string) result {
	if s.failLeft == nil {
		s.failLeft, s.failRight, s.failReason = a, b, reason
	}
	return resFail
}

// neutral is a failure unless an unsolved inference variable could still
// make the sides meet.
func (s *Solver) neutral(a, b core.Expr, reason string) result {
	if hasUnsolved(a) || hasUnsolved(b) {
		return resStuck
	}
	return s.mismatch(a, b, reason)
}

func unsolvedVar(e core.Expr) *core.InferenceVar {
	if r, ok := e.(*core.InferenceRefExpr); ok && !r.Var.IsSolved() {
		return r.Var
	}
	return nil
}

func isError(e core.Expr) bool {
	_, ok := e.(*core.ErrorExpr)
	return ok
}

// isIntro reports introduction forms that eta rules must not unfold.
func isIntro(e core.Expr) bool {
	switch e.(type) {
	case *core.ConCallExpr, *core.IntegerExpr, *core.TupleExpr, *core.LamExpr:
		return true
	}
	return false
}

// isRigid reports head forms that can never become equal to a different
// head form.
func isRigid(e core.Expr) bool {
	switch e.(type) {
	case *core.UniverseExpr, *core.PiExpr, *core.SigmaExpr, *core.TupleExpr, *core.PathExpr,
		*core.ArrayExpr, *core.IntegerExpr, *core.ConCallExpr, *core.DataCallExpr:
		return true
	}
	return false
}

func sameClauses(a, b []*core.Clause) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
