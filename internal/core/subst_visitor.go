package core

import (
	"github.com/hashicorp/go-set/v3"

	"kappa/internal/level"
)

// SubstVisitor applies an expression substitution and a level
// substitution in one pass. Subtrees that mention neither are returned as
// the same pointer. The visitor works on a copy of exprs: copying a binder
// allocates fresh bindings from arena and records the renaming in that
// copy, never in the caller's substitution.
type SubstVisitor struct {
	arena   *Arena
	exprs   *ExprSubst
	levels  level.Subst
	fv      *freeVars
	lvl     map[Expr]bool
	memo    map[Expr]Expr
	rebound *set.Set[BindingID]
}

func NewSubstVisitor(arena *Arena, exprs *ExprSubst, levels level.Subst) *SubstVisitor {
	if levels == nil {
		levels = level.Empty{}
	}
	return &SubstVisitor{
		arena:   arena,
		exprs:   exprs.Clone(),
		levels:  levels,
		fv:      &freeVars{cache: make(map[Expr]*set.Set[BindingID])},
		lvl:     make(map[Expr]bool),
		memo:    make(map[Expr]Expr),
		rebound: set.New[BindingID](0),
	}
}

// Subst applies exprs to e.
func Subst(arena *Arena, e Expr, exprs *ExprSubst) Expr {
	return NewSubstVisitor(arena, exprs, nil).Apply(e)
}

// SubstLevels applies levels to e.
func SubstLevels(arena *Arena, e Expr, levels level.Subst) Expr {
	return NewSubstVisitor(arena, nil, levels).Apply(e)
}

// IsEmpty reports whether applying v is the identity.
func (v *SubstVisitor) IsEmpty() bool {
	return v.exprs.IsEmpty() && v.levels.IsEmpty()
}

// Exprs is the visitor's own substitution, renamings included. Adding to
// it extends what later Apply calls substitute.
func (v *SubstVisitor) Exprs() *ExprSubst { return v.exprs }

func (v *SubstVisitor) Levels() level.Subst { return v.levels }

func (v *SubstVisitor) Arena() *Arena { return v.arena }

// ApplyType substitutes into t. Expression substitution keeps the sort;
// level substitution derives it again from the new expression when it
// can, because sorts built with max are not linear in their variables.
func (v *SubstVisitor) ApplyType(t Type) Type {
	if t.Expr == nil {
		return t
	}
	e := v.Apply(t.Expr)
	if v.levels.IsEmpty() {
		return Type{Expr: e, Sort: t.Sort}
	}
	if s, ok := SortOf(e); ok {
		return Type{Expr: e, Sort: s}
	}
	return Type{Expr: e, Sort: t.Sort.Subst(v.levels)}
}

// ApplyLevels substitutes into call-site level arguments.
func (v *SubstVisitor) ApplyLevels(ls level.Levels) level.Levels {
	if ls == nil || v.levels.IsEmpty() || !ls.MentionsAny(v.levels) {
		return ls
	}
	return ls.SubstLevels(v.levels)
}

func (v *SubstVisitor) touched(e Expr) bool {
	if e == nil {
		return false
	}
	if !v.exprs.IsEmpty() {
		fv := v.fv.of(e)
		small, large := fv.Size(), v.exprs.Len()
		if small <= large {
			for id := range fv.Items() {
				if _, ok := v.exprs.lookup(id); ok {
					return true
				}
			}
		} else {
			for id := range v.exprs.m {
				if fv.Contains(id) {
					return true
				}
			}
		}
	}
	return v.levelTouched(e)
}

func (v *SubstVisitor) levelTouched(e Expr) bool {
	if v.levels.IsEmpty() || e == nil {
		return false
	}
	if t, ok := v.lvl[e]; ok {
		return t
	}
	t := false
	switch n := e.(type) {
	case *UniverseExpr:
		t = n.Sort.Mentions(v.levels)
	case *LamExpr:
		t = n.ResultSort.Mentions(v.levels)
	case *PiExpr:
		t = n.ResultSort.Mentions(v.levels)
	case *PathExpr:
		t = n.Levels.MentionsAny(v.levels)
	case *ArrayExpr:
		t = n.Levels.MentionsAny(v.levels)
	case *FunCallExpr:
		t = n.Levels.MentionsAny(v.levels)
	case *ConCallExpr:
		t = n.Levels.MentionsAny(v.levels)
	case *DataCallExpr:
		t = n.Levels.MentionsAny(v.levels)
	case *FieldCallExpr:
		t = n.Levels.MentionsAny(v.levels)
	}
	if !t {
		v.eachBindingSort(e, func(s level.Sort) {
			t = t || s.Mentions(v.levels)
		})
	}
	if !t {
		Children(e, func(x Expr) {
			t = t || v.levelTouched(x)
		})
	}
	v.lvl[e] = t
	return t
}

func (v *SubstVisitor) eachBindingSort(e Expr, f func(level.Sort)) {
	link := func(l *DependentLink) {
		for it := l; it.HasNext(); it = it.Next() {
			f(it.Binding().Type.Sort)
		}
	}
	switch n := e.(type) {
	case *LamExpr:
		link(n.Params)
	case *PiExpr:
		link(n.Params)
	case *SigmaExpr:
		link(n.Params)
	case *CaseExpr:
		link(n.Params)
		for _, c := range n.Clauses {
			for _, b := range c.PatternBindings() {
				f(b.Type.Sort)
			}
		}
	case *LetExpr:
		for _, c := range n.Clauses {
			f(c.Binding.Type.Sort)
		}
	}
}

// Apply returns e with both substitutions applied.
func (v *SubstVisitor) Apply(e Expr) Expr {
	if e == nil || v.IsEmpty() || !v.touched(e) {
		return e
	}
	cacheable := v.rebound.Empty() || v.disjointRebound(e)
	if cacheable {
		if r, ok := v.memo[e]; ok {
			return r
		}
	}
	r := Accept[Expr](e, v)
	if cacheable {
		v.memo[e] = r
	}
	return r
}

func (v *SubstVisitor) disjointRebound(e Expr) bool {
	fv := v.fv.of(e)
	for id := range v.rebound.Items() {
		if fv.Contains(id) {
			return false
		}
	}
	return true
}

func (v *SubstVisitor) applyAll(es []Expr) []Expr {
	var out []Expr
	for i, e := range es {
		r := v.Apply(e)
		if r != e && out == nil {
			out = make([]Expr, len(es))
			copy(out, es[:i])
		}
		if out != nil {
			out[i] = r
		}
	}
	if out == nil {
		return es
	}
	return out
}

// link copies a binder's telescope and records the renaming.
func (v *SubstVisitor) link(l *DependentLink) *DependentLink {
	return l.Subst(v, l.Len(), true)
}

func (v *SubstVisitor) binding(b *Binding) *Binding {
	nb := b.Subst(v)
	v.rebound.Insert(b.id)
	v.exprs.AddSubst(b, Ref(nb))
	return nb
}

func (v *SubstVisitor) VisitRef(e *RefExpr) Expr {
	if r, ok := v.exprs.Get(e.Binding); ok {
		return r
	}
	return e
}

func (v *SubstVisitor) VisitInferenceRef(e *InferenceRefExpr) Expr {
	if e.Var.Solution != nil {
		return v.Apply(e.Var.Solution)
	}
	return e
}

func (v *SubstVisitor) VisitApp(e *AppExpr) Expr {
	return &AppExpr{Fun: v.Apply(e.Fun), Arg: v.Apply(e.Arg)}
}

func (v *SubstVisitor) VisitLam(e *LamExpr) Expr {
	params := v.link(e.Params)
	return &LamExpr{ResultSort: e.ResultSort.Subst(v.levels), Params: params, Body: v.Apply(e.Body)}
}

func (v *SubstVisitor) VisitPi(e *PiExpr) Expr {
	params := v.link(e.Params)
	cod := v.Apply(e.Codomain)
	sort := e.ResultSort.Subst(v.levels)
	if !v.levels.IsEmpty() {
		if s, ok := SortOf(cod); ok {
			sort = s
		}
	}
	return &PiExpr{ResultSort: sort, Params: params, Codomain: cod}
}

func (v *SubstVisitor) VisitSigma(e *SigmaExpr) Expr {
	return &SigmaExpr{Params: v.link(e.Params)}
}

func (v *SubstVisitor) VisitTuple(e *TupleExpr) Expr {
	out := &TupleExpr{Fields: v.applyAll(e.Fields), Type: e.Type}
	if e.Type != nil {
		if s, ok := v.Apply(e.Type).(*SigmaExpr); ok {
			out.Type = s
		}
	}
	return out
}

func (v *SubstVisitor) VisitProj(e *ProjExpr) Expr {
	return &ProjExpr{Tuple: v.Apply(e.Tuple), Field: e.Field}
}

func (v *SubstVisitor) VisitUniverse(e *UniverseExpr) Expr {
	return &UniverseExpr{Sort: e.Sort.Subst(v.levels)}
}

func (v *SubstVisitor) VisitPath(e *PathExpr) Expr {
	return &PathExpr{Levels: v.ApplyLevels(e.Levels), ArgType: v.Apply(e.ArgType), Arg: v.Apply(e.Arg)}
}

func (v *SubstVisitor) VisitArray(e *ArrayExpr) Expr {
	return &ArrayExpr{
		Levels:       v.ApplyLevels(e.Levels),
		ElementsType: v.Apply(e.ElementsType),
		Elements:     v.applyAll(e.Elements),
		Tail:         v.Apply(e.Tail),
	}
}

func (v *SubstVisitor) VisitFunCall(e *FunCallExpr) Expr {
	return &FunCallExpr{Def: e.Def, Levels: v.ApplyLevels(e.Levels), Args: v.applyAll(e.Args)}
}

func (v *SubstVisitor) VisitConCall(e *ConCallExpr) Expr {
	return &ConCallExpr{
		Con:      e.Con,
		Levels:   v.ApplyLevels(e.Levels),
		DataArgs: v.applyAll(e.DataArgs),
		Args:     v.applyAll(e.Args),
	}
}

func (v *SubstVisitor) VisitDataCall(e *DataCallExpr) Expr {
	return &DataCallExpr{Data: e.Data, Levels: v.ApplyLevels(e.Levels), Args: v.applyAll(e.Args)}
}

func (v *SubstVisitor) VisitFieldCall(e *FieldCallExpr) Expr {
	return &FieldCallExpr{Field: e.Field, Levels: v.ApplyLevels(e.Levels), Arg: v.Apply(e.Arg)}
}

func (v *SubstVisitor) VisitLet(e *LetExpr) Expr {
	clauses := make([]*LetClause, len(e.Clauses))
	for i, c := range e.Clauses {
		value := v.Apply(c.Value)
		clauses[i] = &LetClause{Binding: v.binding(c.Binding), Value: value}
	}
	return &LetExpr{Clauses: clauses, Body: v.Apply(e.Body)}
}

func (v *SubstVisitor) VisitCase(e *CaseExpr) Expr {
	args := v.applyAll(e.Args)
	params := v.link(e.Params)
	out := &CaseExpr{Args: args, Params: params, ResultType: v.Apply(e.ResultType)}
	out.Clauses = make([]*Clause, len(e.Clauses))
	for i, c := range e.Clauses {
		out.Clauses[i] = &Clause{Patterns: v.patterns(c.Patterns), Body: v.Apply(c.Body)}
	}
	return out
}

func (v *SubstVisitor) patterns(ps []Pattern) []Pattern {
	out := make([]Pattern, len(ps))
	for i, p := range ps {
		switch n := p.(type) {
		case *BindingPattern:
			out[i] = &BindingPattern{Binding: v.binding(n.Binding)}
		case *ConPattern:
			out[i] = &ConPattern{Con: n.Con, Args: v.patterns(n.Args)}
		default:
			out[i] = p
		}
	}
	return out
}

func (v *SubstVisitor) VisitInteger(e *IntegerExpr) Expr { return e }

func (v *SubstVisitor) VisitError(e *ErrorExpr) Expr {
	return &ErrorExpr{Expected: v.Apply(e.Expected), Reason: e.Reason}
}

var _ Visitor[Expr] = (*SubstVisitor)(nil)
