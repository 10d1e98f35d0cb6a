package core

import (
	"errors"
	"testing"

	"kappa/internal/level"
	"kappa/internal/source"
)

type natFixture struct {
	arena *Arena
	nat   *DataDef
	zero  *Constructor
	suc   *Constructor
}

func newNatFixture() *natFixture {
	f := &natFixture{arena: NewArena(16)}
	f.nat = NewDataDef("Nat", source.NoSpan)
	f.zero = NewConstructor("zero", source.NoSpan)
	f.zero.Role = RoleZero
	f.nat.AddConstructor(f.zero)
	f.suc = NewConstructor("suc", source.NoSpan)
	f.suc.Role = RoleSuc
	n := f.arena.NewBinding("n", f.natType(), Explicit)
	f.suc.SetParameters(Telescope(n))
	f.nat.AddConstructor(f.suc)
	return f
}

func (f *natFixture) natType() Type {
	return Type{Expr: MustDataCall(f.nat, nil), Sort: level.Set0}
}

func (f *natFixture) zeroE() Expr { return MustConCall(f.zero, nil, nil) }

func (f *natFixture) sucE(e Expr) Expr { return MustConCall(f.suc, nil, nil, e) }

func (f *natFixture) v(name string) *Binding {
	return f.arena.NewBinding(name, f.natType(), Explicit)
}

func TestSubstIdentityKeepsPointers(t *testing.T) {
	f := newNatFixture()
	x := f.v("x")
	lam := Lam(Telescope(x), f.sucE(Ref(x)))
	exprs := []Expr{
		lam,
		Apps(lam, f.zeroE()),
		Pi(Telescope(f.v("y")), f.natType()),
		Universe(level.Std),
		NewInteger(3, f.nat),
	}
	empty := NewSubstVisitor(f.arena, nil, nil)
	if !empty.IsEmpty() {
		t.Fatalf("expected empty visitor")
	}
	for _, e := range exprs {
		if got := empty.Apply(e); got != e {
			t.Fatalf("identity substitution rebuilt %s", Format(e))
		}
	}
	if b := x.Subst(empty); b != x {
		t.Fatalf("empty substitution must return the binding itself")
	}
}

func TestSubstSharesUntouchedSubtrees(t *testing.T) {
	f := newNatFixture()
	x, y := f.v("x"), f.v("y")
	untouched := f.sucE(Ref(y))
	e := Apps(Ref(x), untouched).(*AppExpr)
	got := Subst(f.arena, e, SingleSubst(x, f.zeroE())).(*AppExpr)
	if got == e {
		t.Fatalf("touched node returned unchanged")
	}
	if got.Arg != untouched {
		t.Fatalf("untouched argument was copied")
	}
}

func TestSubstComposition(t *testing.T) {
	f := newNatFixture()
	x, y, z := f.v("x"), f.v("y"), f.v("z")
	w := f.v("w")
	e := Apps(Ref(z), Ref(x), Lam(Telescope(w), Apps(Ref(y), Ref(w), Ref(x))))

	s1 := SingleSubst(x, f.sucE(Ref(y)))
	s2 := SingleSubst(y, f.zeroE())

	seq := Subst(f.arena, Subst(f.arena, e, s1), s2)
	if s1.Len() != 1 || s2.Len() != 1 {
		t.Fatalf("binder renamings leaked into the caller's substitutions: %v %v", s1.Keys(), s2.Keys())
	}
	if _, ok := s1.Get(w); ok {
		t.Fatalf("w was renamed inside s1")
	}
	merged, err := s1.Compose(f.arena, s2)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	once := Subst(f.arena, e, merged)
	if !AlphaEquivalent(seq, once) {
		t.Fatalf("composition differs:\n%s\n%s", Format(seq), Format(once))
	}
	if Mentions(once, y) || Mentions(once, x) {
		t.Fatalf("substituted variables remain free in %s", Format(once))
	}
	if err := s1.MergeSubst(SingleSubst(x, f.zeroE())); err == nil {
		t.Fatalf("expected key collision error")
	}
}

func TestTelescopeSubstArity(t *testing.T) {
	f := newNatFixture()
	u := Type{Expr: Universe(level.Set0), Sort: level.Set0.Succ()}
	a := f.arena.NewBinding("A", u, Explicit)
	p := f.arena.NewBinding("p", Type{Expr: Ref(a), Sort: level.Set0}, Explicit)
	q := f.arena.NewBinding("q", Type{Expr: Ref(a), Sort: level.Set0}, 0)
	tele := Telescope(a, p, q)

	v := NewSubstVisitor(f.arena, nil, nil)
	got := tele.Subst(v, 2, false)
	if got.Len() != 2 {
		t.Fatalf("expected 2 links, got %d", got.Len())
	}
	if got.At(2) != EmptyLink {
		t.Fatalf("tail must be the sentinel")
	}
	na, np := got.Binding(), got.Next().Binding()
	if na == a || np == p || na.ID() == a.ID() {
		t.Fatalf("links must carry fresh bindings")
	}
	if ref, ok := np.TypeExpr().(*RefExpr); !ok || ref.Binding != na {
		t.Fatalf("second type must see the fresh first binding, got %s", Format(np.TypeExpr()))
	}
	rest := v.Apply(q.TypeExpr())
	if ref, ok := rest.(*RefExpr); !ok || ref.Binding != na {
		t.Fatalf("remainder must be substituted by the recorded renaming")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("second first-pass substitution must panic on duplicate keys")
			}
		}()
		tele.Subst(v, 1, false)
	}()
	again := tele.Subst(v, 1, true)
	if ref := v.Apply(Ref(a)).(*RefExpr); ref.Binding != again.Binding() {
		t.Fatalf("refinement pass must overwrite the mapping")
	}
	if EmptyLink.Subst(v, 3, false) != EmptyLink {
		t.Fatalf("empty telescope substitutes to itself")
	}
}

func TestNewLinkRejectsNilNext(t *testing.T) {
	f := newNatFixture()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewLink(f.v("x"), nil)
}

func TestDefCallArity(t *testing.T) {
	f := newNatFixture()
	_, err := NewDataCall(f.nat, level.StdPair, nil)
	var ae *ArityError
	if !errors.As(err, &ae) || !ae.Levels {
		t.Fatalf("expected level arity error, got %v", err)
	}
	_, err = NewConCall(f.suc, nil, nil, nil)
	if !errors.As(err, &ae) || ae.Levels || ae.Want != 1 {
		t.Fatalf("expected argument arity error, got %v", err)
	}

	poly := NewDataDef("List", source.NoSpan)
	poly.SetLevelParams(ListLevelParams(poly.ID(), level.DimP))
	if _, err := NewDataCall(poly, level.List{Owner: uint32(poly.ID()), Values: []level.Level{level.Const(1)}}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewDataCall(poly, level.List{Owner: uint32(f.nat.ID()), Values: []level.Level{level.Const(1)}}, nil); err == nil {
		t.Fatalf("levels of another definition must be rejected")
	}
}

func TestStripIsIdempotent(t *testing.T) {
	f := newNatFixture()
	x := f.arena.NewBindingAt("x", f.natType(), Explicit, source.Span{File: 1, Start: 4, End: 5})
	hole := &InferenceVar{ID: 1, Type: MustDataCall(f.nat, nil), Solution: f.zeroE()}
	e := Lam(Telescope(x), f.sucE(&InferenceRefExpr{Var: hole}))

	got := Strip(e).(*LamExpr)
	if x.Span != source.NoSpan {
		t.Fatalf("span not cleared")
	}
	call := got.Body.(*ConCallExpr)
	if _, ok := call.Args[0].(*InferenceRefExpr); ok {
		t.Fatalf("solved inference reference survived strip")
	}
	again := Strip(got)
	if again != got || !AlphaEquivalent(again, e) {
		t.Fatalf("strip is not idempotent")
	}
}

func TestInPlaceLevelSubstMatchesRebuild(t *testing.T) {
	build := func() (*Arena, Expr) {
		arena := NewArena(8)
		a := arena.NewBinding("A", Type{Expr: Universe(level.Std), Sort: level.Std.Succ()}, Explicit)
		x := arena.NewBinding("x", Type{Expr: Ref(a), Sort: level.Std}, Explicit)
		body := Pi(Telescope(x), Type{Expr: Universe(level.Std), Sort: level.Std.Succ()})
		return arena, Pi(Telescope(a), Type{Expr: body, Sort: body.Sort()})
	}
	s := level.NewMapSubst()
	s.Add(level.LP, level.Const(2))
	s.Add(level.LH, level.Const(level.PropH))

	arena, e := build()
	rebuilt := SubstLevels(arena, e, s)

	_, inplace := build()
	var gate InPlaceGate
	if err := SubstLevelsInPlace(&gate, s, inplace); err != nil {
		t.Fatalf("in-place: %v", err)
	}
	if !AlphaEquivalent(rebuilt, inplace) {
		t.Fatalf("in-place and rebuild disagree:\n%s\n%s", Format(rebuilt), Format(inplace))
	}
	if err := SubstLevelsInPlace(&gate, s, inplace); !errors.Is(err, ErrAlreadyGeneralized) {
		t.Fatalf("expected gate error, got %v", err)
	}
	inner := rebuilt.(*PiExpr).Codomain.(*PiExpr)
	if !inner.Params.Binding().Type.Sort.IsProp() {
		t.Fatalf("binding sort must be derived again, got %s", inner.Params.Binding().Type.Sort)
	}
}

func TestFreeVarsRespectBinders(t *testing.T) {
	f := newNatFixture()
	x, y := f.v("x"), f.v("y")
	e := Lam(Telescope(x), Apps(Ref(x), Ref(y)))
	fv := FreeVars(e)
	if fv.Contains(x.ID()) || !fv.Contains(y.ID()) {
		t.Fatalf("unexpected free variables %v", fv.Slice())
	}
}

func TestIntegerUnfolding(t *testing.T) {
	f := newNatFixture()
	call := NewInteger(2, f.nat).AsConCall()
	if call == nil || call.Con != f.suc {
		t.Fatalf("expected suc, got %v", call)
	}
	back, ok := ConCallAsInteger(call)
	if !ok || back.Value.Int64() != 2 {
		t.Fatalf("fold back failed")
	}
	if z := NewInteger(0, f.nat).AsConCall(); z == nil || z.Con != f.zero {
		t.Fatalf("expected zero")
	}
}

func TestAllExprKindsCovered(t *testing.T) {
	seen := make(map[ExprKind]bool)
	for _, k := range AllExprKinds {
		if seen[k] || k == KindInvalid {
			t.Fatalf("bad kind list entry %s", k)
		}
		seen[k] = true
	}
	if len(seen) != int(KindError) {
		t.Fatalf("AllExprKinds has %d entries, want %d", len(seen), KindError)
	}
}

type levelDefs struct {
	*natFixture
	box  *DataDef
	vec  *DataDef
	idf  *FunctionDef
	pair level.Pair
	sort level.Sort
}

// outerOwner stands for an enclosing definition; it is far above any
// id a test allocates.
const outerOwner = 1 << 30

var (
	outerP = level.ParamVar(level.DimP, outerOwner, 0)
	outerH = level.ParamVar(level.DimH, outerOwner, 1)
)

func newLevelDefs() *levelDefs {
	f := &levelDefs{natFixture: newNatFixture()}
	f.pair = level.Pair{
		P: level.Max(level.OfVar(level.LP), level.OfVar(outerP)),
		H: level.Max(level.OfVar(level.LH), level.OfVar(outerH)),
	}
	f.sort = f.pair.Sort()

	f.box = NewDataDef("Box", source.NoSpan)
	f.box.SetLevelParams(StdLevelParams)
	f.box.SetParameters(Telescope(f.arena.NewBinding("A", Type{Expr: Universe(level.Std), Sort: level.Std.Succ()}, Explicit)))
	f.box.Sort = level.Std

	f.vec = NewDataDef("Vec", source.NoSpan)
	f.vec.SetLevelParams(ListLevelParams(f.vec.ID(), level.DimP, level.DimH))
	own := uint32(f.vec.ID())
	vs := level.Sort{P: level.OfVar(level.ParamVar(level.DimP, own, 0)), H: level.OfVar(level.ParamVar(level.DimH, own, 1))}
	f.vec.SetParameters(Telescope(f.arena.NewBinding("A", Type{Expr: Universe(vs), Sort: vs.Succ()}, Explicit)))
	f.vec.Sort = vs

	f.idf = NewFunctionDef("idf", source.NoSpan)
	f.idf.SetLevelParams(StdLevelParams)
	f.idf.SetParameters(Telescope(f.v("n")))
	f.idf.ResultType = f.natType()
	return f
}

func (f *levelDefs) universe() Type {
	return Type{Expr: Universe(f.sort), Sort: f.sort.Succ()}
}

func TestInPlaceLevelSubstAgreesWithRebuild(t *testing.T) {
	exprs := []struct {
		name  string
		build func(f *levelDefs) Expr
	}{
		{"lam", func(f *levelDefs) Expr {
			a := f.arena.NewBinding("A", f.universe(), Explicit)
			x := f.arena.NewBinding("x", Type{Expr: Ref(a), Sort: f.sort}, Explicit)
			lam := Lam(Telescope(a, x), Ref(x))
			lam.ResultSort = f.sort
			return lam
		}},
		{"let", func(f *levelDefs) Expr {
			a := f.arena.NewBinding("T", f.universe(), Explicit)
			x := f.arena.NewBinding("x", Type{Expr: Ref(a), Sort: f.sort}, Explicit)
			return &LetExpr{
				Clauses: []*LetClause{{Binding: a, Value: Universe(f.sort)}},
				Body:    Pi(Telescope(x), f.universe()),
			}
		}},
		{"case", func(f *levelDefs) Expr {
			n := f.v("n")
			boxed := MustDataCall(f.box, f.pair, f.natType().Expr)
			m := f.arena.NewBinding("m", Type{Expr: boxed, Sort: f.box.SortAt(f.pair)}, Explicit)
			return &CaseExpr{
				Args:       []Expr{f.zeroE()},
				Params:     Telescope(n),
				ResultType: Universe(f.sort),
				Clauses: []*Clause{
					{Patterns: []Pattern{&ConPattern{Con: f.zero}}, Body: Universe(f.sort)},
					{Patterns: []Pattern{&ConPattern{Con: f.suc, Args: []Pattern{&BindingPattern{Binding: m}}}}, Body: Universe(f.sort)},
				},
			}
		}},
		{"path", func(f *levelDefs) Expr {
			i := f.v("i")
			j := f.v("j")
			return &PathExpr{
				Levels:  f.pair,
				ArgType: Lam(Telescope(i), Universe(f.sort)),
				Arg:     Lam(Telescope(j), Universe(f.sort)),
			}
		}},
		{"array", func(f *levelDefs) Expr {
			k := f.v("k")
			return &ArrayExpr{
				Levels:       f.pair,
				ElementsType: Lam(Telescope(k), Universe(f.sort)),
				Elements:     []Expr{Universe(f.sort)},
			}
		}},
		{"data pair", func(f *levelDefs) Expr {
			lv := level.Pair{P: level.OfVarOffset(level.LP, 1), H: level.OfVar(level.LH)}
			call := MustDataCall(f.box, lv, Universe(f.sort))
			y := f.arena.NewBinding("y", Type{Expr: call, Sort: f.box.SortAt(lv)}, Explicit)
			return Pi(Telescope(y), Type{Expr: MustDataCall(f.box, lv, Universe(f.sort)), Sort: f.box.SortAt(lv)})
		}},
		{"data list", func(f *levelDefs) Expr {
			lv := level.List{Owner: uint32(f.vec.ID()), Values: []level.Level{
				level.OfVar(level.LP),
				level.Max(level.OfVar(level.LH), level.OfVar(outerH)),
			}}
			call := MustDataCall(f.vec, lv, Universe(f.sort))
			y := f.arena.NewBinding("y", Type{Expr: call, Sort: f.vec.SortAt(lv)}, Explicit)
			return Pi(Telescope(y), Type{Expr: MustDataCall(f.vec, lv, Universe(f.sort)), Sort: f.vec.SortAt(lv)})
		}},
		{"fun call", func(f *levelDefs) Expr {
			x := f.v("x")
			lam := Lam(Telescope(x), MustFunCall(f.idf, f.pair, Ref(x)))
			lam.ResultSort = level.Set0
			return lam
		}},
	}

	withProp := level.NewMapSubst()
	withProp.Add(level.LP, level.Const(2))
	withProp.Add(level.LH, level.Const(level.PropH))
	withProp.Add(outerP, level.Const(0))
	withProp.Add(outerH, level.Const(level.PropH))

	zeros := level.NewMapSubst()
	zeros.Add(level.LP, level.Const(0))
	zeros.Add(level.LH, level.Const(0))

	shifted := level.NewMapSubst()
	shifted.Add(level.LP, level.OfVarOffset(outerP, 1))
	shifted.Add(level.LH, level.Max(level.Const(1), level.OfVar(outerH)))

	substs := []struct {
		name string
		s    level.Subst
	}{
		{"h=-1", withProp},
		{"zeros", zeros},
		{"std pair", level.Pair{P: level.Const(1), H: level.Const(level.PropH)}},
		{"outer list", level.List{Owner: outerOwner, Values: []level.Level{level.Const(3), level.Const(level.PropH)}}},
		{"shifted", shifted},
	}

	for _, ec := range exprs {
		for _, sc := range substs {
			t.Run(ec.name+"/"+sc.name, func(t *testing.T) {
				f := newLevelDefs()
				orig := ec.build(f)
				before := Format(orig)
				rebuilt := SubstLevels(f.arena, orig, sc.s)
				if got := Format(orig); got != before {
					t.Fatalf("rebuild mutated its input:\n%s\n%s", before, got)
				}

				inplace := ec.build(f)
				var gate InPlaceGate
				if err := SubstLevelsInPlace(&gate, sc.s, inplace); err != nil {
					t.Fatalf("in-place: %v", err)
				}
				if !AlphaEquivalent(rebuilt, inplace) {
					t.Fatalf("in-place and rebuild disagree:\n%s\n%s", Format(rebuilt), Format(inplace))
				}
			})
		}
	}
}

func TestInPlaceLevelSubstReachesProp(t *testing.T) {
	s := level.NewMapSubst()
	s.Add(level.LH, level.Const(level.PropH))
	s.Add(outerH, level.Const(level.PropH))

	f := newLevelDefs()
	a := f.arena.NewBinding("A", f.universe(), Explicit)
	x := f.arena.NewBinding("x", Type{Expr: Ref(a), Sort: f.sort}, Explicit)
	lam := Lam(Telescope(a, x), Ref(x))
	lam.ResultSort = f.sort

	var gate InPlaceGate
	if err := SubstLevelsInPlace(&gate, s, lam); err != nil {
		t.Fatalf("in-place: %v", err)
	}
	if !x.Type.Sort.IsProp() {
		t.Fatalf("x lives in %s, expected Prop", x.Type.Sort)
	}
	if !lam.ResultSort.IsProp() {
		t.Fatalf("result sort %s, expected Prop", lam.ResultSort)
	}
}
