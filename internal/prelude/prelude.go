// Package prelude builds the definitions every module can refer to. The
// prelude is constructed once and shared read-only between checkers;
// substitutions into its telescopes allocate from the caller's arena.
package prelude

import (
	"sync"

	"kappa/internal/core"
	"kappa/internal/level"
	"kappa/internal/source"
)

type Prelude struct {
	Arena *core.Arena

	Nat  *core.DataDef
	Zero *core.Constructor
	Suc  *core.Constructor

	Fin   *core.DataDef
	FZero *core.Constructor
	FSuc  *core.Constructor

	I     *core.DataDef
	Left  *core.Constructor
	Right *core.Constructor

	Path    *core.DataDef
	PathCon *core.Constructor
	Eq      *core.FunctionDef
	At      *core.FunctionDef
	Coe     *core.FunctionDef
	Idp     *core.FunctionDef

	TruncP *core.DataDef
	InP    *core.Constructor

	Unit  *core.DataDef
	Tt    *core.Constructor
	Empty *core.DataDef

	// Array has no constructors; its values are array literals.
	Array *core.DataDef

	defs   []core.Definition
	byName map[string]core.Definition
}

var (
	once   sync.Once
	shared *Prelude
)

// Get returns the shared prelude.
func Get() *Prelude {
	once.Do(func() { shared = New() })
	return shared
}

// New builds an independent prelude. Tests that mutate definitions use
// it instead of Get.
func New() *Prelude {
	p := &Prelude{Arena: core.NewArena(64), byName: make(map[string]core.Definition)}
	p.buildNat()
	p.buildFin()
	p.buildInterval()
	p.buildPath()
	p.buildTruncP()
	p.buildUnitEmpty()
	p.buildArray()
	for _, d := range p.defs {
		d.SetStatus(core.StatusChecked)
	}
	return p
}

// Definitions lists the prelude in declaration order, constructors
// following their data types.
func (p *Prelude) Definitions() []core.Definition { return p.defs }

func (p *Prelude) Lookup(name string) core.Definition { return p.byName[name] }

func (p *Prelude) add(defs ...core.Definition) {
	for _, d := range defs {
		p.defs = append(p.defs, d)
		p.byName[d.Name()] = d
	}
}

func (p *Prelude) bind(name string, t core.Expr, s level.Sort, flags core.Flags) *core.Binding {
	return p.Arena.NewBinding(name, core.Type{Expr: t, Sort: s}, flags)
}

func (p *Prelude) natType() core.Expr { return core.MustDataCall(p.Nat, nil) }

func (p *Prelude) intervalType() core.Expr { return core.MustDataCall(p.I, nil) }

func (p *Prelude) buildNat() {
	p.Nat = core.NewDataDef("Nat", source.NoSpan)
	p.Zero = core.NewConstructor("zero", source.NoSpan)
	p.Zero.Role = core.RoleZero
	p.Suc = core.NewConstructor("suc", source.NoSpan)
	p.Suc.Role = core.RoleSuc
	p.Nat.AddConstructor(p.Zero)
	p.Nat.AddConstructor(p.Suc)
	p.Suc.SetParameters(core.Telescope(p.bind("n", p.natType(), level.Set0, core.Explicit)))
	p.Nat.Sort = level.Set0
	p.Nat.Covariant = []bool{}
	p.add(p.Nat, p.Zero, p.Suc)
}

// buildFin declares
//
//	\data Fin (n : Nat) \with
//	  | suc m => fzero
//	  | suc m => fsuc (Fin m)
func (p *Prelude) buildFin() {
	p.Fin = core.NewDataDef("Fin", source.NoSpan)
	p.Fin.SetParameters(core.Telescope(p.bind("n", p.natType(), level.Set0, core.Explicit)))

	p.FZero = core.NewConstructor("fzero", source.NoSpan)
	p.FZero.Role = core.RoleZero
	m := p.bind("m", p.natType(), level.Set0, core.Explicit)
	p.FZero.Patterns = []core.Pattern{&core.ConPattern{Con: p.Suc, Args: []core.Pattern{&core.BindingPattern{Binding: m}}}}

	p.FSuc = core.NewConstructor("fsuc", source.NoSpan)
	p.FSuc.Role = core.RoleSuc
	m2 := p.bind("m", p.natType(), level.Set0, core.Explicit)
	p.FSuc.Patterns = []core.Pattern{&core.ConPattern{Con: p.Suc, Args: []core.Pattern{&core.BindingPattern{Binding: m2}}}}
	p.FSuc.SetParameters(core.Telescope(p.bind("x", core.MustDataCall(p.Fin, nil, core.Ref(m2)), level.Set0, core.Explicit)))

	p.Fin.AddConstructor(p.FZero)
	p.Fin.AddConstructor(p.FSuc)
	p.Fin.Sort = level.Set0
	p.Fin.Covariant = []bool{false}
	p.add(p.Fin, p.FZero, p.FSuc)
}

func (p *Prelude) buildInterval() {
	p.I = core.NewDataDef("I", source.NoSpan)
	p.Left = core.NewConstructor("left", source.NoSpan)
	p.Right = core.NewConstructor("right", source.NoSpan)
	p.I.AddConstructor(p.Left)
	p.I.AddConstructor(p.Right)
	p.I.Sort = level.Set0
	p.add(p.I, p.Left, p.Right)
}

// family builds A : I -> \Type \lp \lh.
func (p *Prelude) family(name string, flags core.Flags) *core.Binding {
	i := p.bind("i", p.intervalType(), level.Set0, core.Explicit)
	t := core.Pi(core.Telescope(i), core.Type{Expr: core.Universe(level.Std), Sort: level.Std.Succ()})
	return p.bind(name, t, t.Sort(), flags)
}

func (p *Prelude) left() core.Expr  { return core.MustConCall(p.Left, nil, nil) }
func (p *Prelude) right() core.Expr { return core.MustConCall(p.Right, nil, nil) }

// constFamily is \lam (_ : I) => t.
func (p *Prelude) constFamily(t core.Expr) core.Expr {
	i := p.bind("_", p.intervalType(), level.Set0, core.Explicit)
	lam := core.Lam(core.Telescope(i), t)
	lam.ResultSort = level.Std.Succ()
	return lam
}

func (p *Prelude) buildPath() {
	p.Path = core.NewDataDef("Path", source.NoSpan)
	p.Path.SetLevelParams(core.StdLevelParams)
	a := p.family("A", core.Explicit)
	lhs := p.bind("a", core.Apps(core.Ref(a), p.left()), level.Std, core.Explicit)
	rhs := p.bind("a'", core.Apps(core.Ref(a), p.right()), level.Std, core.Explicit)
	p.Path.SetParameters(core.Telescope(a, lhs, rhs))

	p.PathCon = core.NewConstructor("path", source.NoSpan)
	i := p.bind("i", p.intervalType(), level.Set0, core.Explicit)
	fType := core.Pi(core.Telescope(i), core.Type{Expr: core.Apps(core.Ref(a), core.Ref(i)), Sort: level.Std})
	p.PathCon.SetParameters(core.Telescope(p.bind("f", fType, fType.Sort(), core.Explicit)))
	p.Path.AddConstructor(p.PathCon)
	p.Path.Sort = level.Std
	p.Path.Covariant = []bool{false, false, false}
	p.add(p.Path, p.PathCon)

	// = {A : \Type} (a a' : A) => Path (\lam _ => A) a a'
	p.Eq = core.NewFunctionDef("=", source.NoSpan)
	p.Eq.SetLevelParams(core.StdLevelParams)
	ea := p.bind("A", core.Universe(level.Std), level.Std.Succ(), 0)
	ex := p.bind("a", core.Ref(ea), level.Std, core.Explicit)
	ey := p.bind("a'", core.Ref(ea), level.Std, core.Explicit)
	p.Eq.SetParameters(core.Telescope(ea, ex, ey))
	p.Eq.ResultType = core.Type{Expr: core.Universe(level.Std), Sort: level.Std.Succ()}
	p.Eq.Body = core.MustDataCall(p.Path, level.StdPair, p.constFamily(core.Ref(ea)), core.Ref(ex), core.Ref(ey))

	// @ {A : I -> \Type} {a : A left} {a' : A right} (q : Path A a a') (i : I) : A i
	p.At = core.NewFunctionDef("@", source.NoSpan)
	p.At.SetLevelParams(core.StdLevelParams)
	aa := p.family("A", 0)
	al := p.bind("a", core.Apps(core.Ref(aa), p.left()), level.Std, 0)
	ar := p.bind("a'", core.Apps(core.Ref(aa), p.right()), level.Std, 0)
	aq := p.bind("q", core.MustDataCall(p.Path, level.StdPair, core.Ref(aa), core.Ref(al), core.Ref(ar)), level.Std, core.Explicit)
	ai := p.bind("i", p.intervalType(), level.Set0, core.Explicit)
	p.At.SetParameters(core.Telescope(aa, al, ar, aq, ai))
	p.At.ResultType = core.Type{Expr: core.Apps(core.Ref(aa), core.Ref(ai)), Sort: level.Std}
	p.At.Hook = p.reduceAt

	// coe (A : I -> \Type) (a : A left) (i : I) : A i
	p.Coe = core.NewFunctionDef("coe", source.NoSpan)
	p.Coe.SetLevelParams(core.StdLevelParams)
	ca := p.family("A", core.Explicit)
	cx := p.bind("a", core.Apps(core.Ref(ca), p.left()), level.Std, core.Explicit)
	ci := p.bind("i", p.intervalType(), level.Set0, core.Explicit)
	p.Coe.SetParameters(core.Telescope(ca, cx, ci))
	p.Coe.ResultType = core.Type{Expr: core.Apps(core.Ref(ca), core.Ref(ci)), Sort: level.Std}
	p.Coe.Hook = p.reduceCoe

	// idp {A : \Type} {a : A} : a = a => path (\lam _ => a)
	p.Idp = core.NewFunctionDef("idp", source.NoSpan)
	p.Idp.SetLevelParams(core.StdLevelParams)
	ia := p.bind("A", core.Universe(level.Std), level.Std.Succ(), 0)
	ix := p.bind("a", core.Ref(ia), level.Std, 0)
	p.Idp.SetParameters(core.Telescope(ia, ix))
	p.Idp.ResultType = core.Type{
		Expr: core.MustFunCall(p.Eq, level.StdPair, core.Ref(ia), core.Ref(ix), core.Ref(ix)),
		Sort: level.Std,
	}
	p.Idp.Body = &core.PathExpr{Levels: level.StdPair, Arg: p.constFamily(core.Ref(ix))}

	p.add(p.Eq, p.At, p.Coe, p.Idp)
}

func (p *Prelude) buildTruncP() {
	p.TruncP = core.NewDataDef("TruncP", source.NoSpan)
	p.TruncP.SetLevelParams(core.StdLevelParams)
	a := p.bind("A", core.Universe(level.Std), level.Std.Succ(), core.Explicit)
	p.TruncP.SetParameters(core.Telescope(a))
	p.InP = core.NewConstructor("inP", source.NoSpan)
	p.InP.SetParameters(core.Telescope(p.bind("a", core.Ref(a), level.Std, core.Explicit)))
	p.TruncP.AddConstructor(p.InP)
	p.TruncP.TruncatedLevel = level.PropH
	p.TruncP.Sort = level.Std.Truncate(level.PropH)
	p.TruncP.Covariant = []bool{false}
	p.add(p.TruncP, p.InP)
}

func (p *Prelude) buildUnitEmpty() {
	p.Unit = core.NewDataDef("Unit", source.NoSpan)
	p.Tt = core.NewConstructor("tt", source.NoSpan)
	p.Unit.AddConstructor(p.Tt)
	p.Unit.Sort = level.Prop
	p.Empty = core.NewDataDef("Empty", source.NoSpan)
	p.Empty.Sort = level.Prop
	p.add(p.Unit, p.Tt, p.Empty)
}

func (p *Prelude) buildArray() {
	p.Array = core.NewDataDef("Array", source.NoSpan)
	p.Array.SetLevelParams(core.StdLevelParams)
	a := p.bind("A", core.Universe(level.Std), level.Std.Succ(), core.Explicit)
	p.Array.SetParameters(core.Telescope(a))
	p.Array.Sort = level.Std
	p.Array.Covariant = []bool{true}
	p.add(p.Array)
}
