package core

import (
	"fmt"

	"kappa/internal/level"
	"kappa/internal/source"
)

type DefKind uint8

const (
	DefData DefKind = iota + 1
	DefConstructor
	DefFunction
	DefField
)

func (k DefKind) String() string {
	switch k {
	case DefData:
		return "data"
	case DefConstructor:
		return "constructor"
	case DefFunction:
		return "function"
	case DefField:
		return "field"
	default:
		return fmt.Sprintf("DefKind(%d)", k)
	}
}

// Status tracks how far a definition got through checking.
type Status uint8

const (
	StatusHeader Status = iota
	StatusChecked
	StatusHasErrors
)

func (s Status) String() string {
	switch s {
	case StatusHeader:
		return "header"
	case StatusChecked:
		return "checked"
	case StatusHasErrors:
		return "has-errors"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Definition is a top-level entity a DefCall can name.
type Definition interface {
	ID() DefID
	Name() string
	DefKind() DefKind
	LevelParams() LevelParams
	// Parameters is the telescope a call must fill.
	Parameters() *DependentLink
	Span() source.Span
	Status() Status
	SetStatus(s Status)
}

type LevelParamsKind uint8

const (
	LevelsNone LevelParamsKind = iota
	// LevelsStd declares \lp and \lh.
	LevelsStd
	LevelsList
)

// LevelParams are the universe parameters a definition declares.
type LevelParams struct {
	Kind LevelParamsKind
	Vars []level.Var
}

var (
	NoLevelParams  = LevelParams{Kind: LevelsNone}
	StdLevelParams = LevelParams{Kind: LevelsStd, Vars: []level.Var{level.LP, level.LH}}
)

// ListLevelParams declares one parameter per dimension in dims, owned by
// the definition owner.
func ListLevelParams(owner DefID, dims ...level.Dim) LevelParams {
	vars := make([]level.Var, len(dims))
	for i, d := range dims {
		vars[i] = level.ParamVar(d, uint32(owner), uint32(i))
	}
	return LevelParams{Kind: LevelsList, Vars: vars}
}

func (p LevelParams) Arity() int {
	switch p.Kind {
	case LevelsStd:
		return 2
	case LevelsList:
		return len(p.Vars)
	}
	return 0
}

// Identity instantiates the parameters with themselves.
func (p LevelParams) Identity(owner DefID) level.Levels {
	switch p.Kind {
	case LevelsStd:
		return level.StdPair
	case LevelsList:
		vals := make([]level.Level, len(p.Vars))
		for i, v := range p.Vars {
			vals[i] = level.OfVar(v)
		}
		return level.List{Owner: uint32(owner), Values: vals}
	}
	return level.Empty{}
}

type defBase struct {
	id          DefID
	name        string
	span        source.Span
	levelParams LevelParams
	params      *DependentLink
	status      Status
	gate        InPlaceGate
}

func newDefBase(name string, sp source.Span) defBase {
	return defBase{id: NextDefID(), name: name, span: sp, params: EmptyLink}
}

func (d *defBase) ID() DefID                  { return d.id }
func (d *defBase) Name() string               { return d.name }
func (d *defBase) Span() source.Span          { return d.span }
func (d *defBase) LevelParams() LevelParams   { return d.levelParams }
func (d *defBase) Parameters() *DependentLink { return d.params }
func (d *defBase) Status() Status             { return d.status }

// SetStatus is called by the checker before the definition is published.
func (d *defBase) SetStatus(s Status) { d.status = s }

// SetParameters installs the telescope once the header is checked.
func (d *defBase) SetParameters(l *DependentLink) {
	if l == nil {
		l = EmptyLink
	}
	d.params = l
}

func (d *defBase) SetLevelParams(p LevelParams) { d.levelParams = p }

// Gate guards the one in-place level substitution of the body.
func (d *defBase) Gate() *InPlaceGate { return &d.gate }

// NotTruncated marks a data type without a truncation level.
const NotTruncated = -2

// DataDef is an inductive type. Records are data types with a single
// constructor and named fields.
type DataDef struct {
	defBase
	Sort           level.Sort
	TruncatedLevel int
	Constructors   []*Constructor
	// Covariant[i] says parameter i may vary along LE; set once by the
	// covariance checker before the definition is published.
	Covariant []bool
	IsRecord  bool
	Fields    []*ClassField
}

func NewDataDef(name string, sp source.Span) *DataDef {
	return &DataDef{defBase: newDefBase(name, sp), TruncatedLevel: NotTruncated, Sort: level.Set0}
}

func (d *DataDef) DefKind() DefKind { return DefData }

func (d *DataDef) IsTruncated() bool { return d.TruncatedLevel >= level.PropH }

// SortAt instantiates the sort of d at levels.
func (d *DataDef) SortAt(levels level.Levels) level.Sort {
	return d.Sort.Subst(levels)
}

func (d *DataDef) IsCovariant(i int) bool {
	return i < len(d.Covariant) && d.Covariant[i]
}

func (d *DataDef) Constructor(name string) *Constructor {
	for _, c := range d.Constructors {
		if c.name == name {
			return c
		}
	}
	return nil
}

// RoleConstructor finds the constructor playing role for numerals.
func (d *DataDef) RoleConstructor(role NumberRole) *Constructor {
	if role == RoleNone {
		return nil
	}
	for _, c := range d.Constructors {
		if c.Role == role {
			return c
		}
	}
	return nil
}

// IsNumberType reports whether d has zero and successor constructors.
func (d *DataDef) IsNumberType() bool {
	return d.RoleConstructor(RoleZero) != nil && d.RoleConstructor(RoleSuc) != nil
}

func (d *DataDef) AddConstructor(c *Constructor) {
	c.Data = d
	c.Index = len(d.Constructors)
	d.Constructors = append(d.Constructors, c)
}

// NumberRole marks constructors that numerals unfold to.
type NumberRole uint8

const (
	RoleNone NumberRole = iota
	RoleZero
	RoleSuc
)

// Constructor belongs to Data. Patterns, when set, restrict the data
// arguments the constructor applies to, and the pattern variables scope
// over the constructor parameters.
type Constructor struct {
	defBase
	Data     *DataDef
	Patterns []Pattern
	Role     NumberRole
	Index    int
}

func NewConstructor(name string, sp source.Span) *Constructor {
	return &Constructor{defBase: newDefBase(name, sp)}
}

func (c *Constructor) DefKind() DefKind { return DefConstructor }

// Constructors share the level parameters of their data type.
func (c *Constructor) LevelParams() LevelParams {
	if c.Data != nil {
		return c.Data.levelParams
	}
	return c.levelParams
}

// ReduceHook computes a builtin reduction of call. It returns nil when the
// call is stuck. whnf reduces arguments on demand.
type ReduceHook func(call *FunCallExpr, whnf func(Expr) (Expr, error)) (Expr, error)

// FunctionDef has either a term body, clauses over its parameters, or
// neither (an axiom or a hook-only builtin).
type FunctionDef struct {
	defBase
	ResultType Type
	Body       Expr
	Clauses    []*Clause
	Hook       ReduceHook
}

func NewFunctionDef(name string, sp source.Span) *FunctionDef {
	return &FunctionDef{defBase: newDefBase(name, sp)}
}

func (f *FunctionDef) DefKind() DefKind { return DefFunction }

// HasBody reports whether calls to f can unfold.
func (f *FunctionDef) HasBody() bool {
	return f.Body != nil || len(f.Clauses) > 0 || f.Hook != nil
}

// ClassField is a record projection. Its single parameter is the record
// value; Type may mention earlier fields through field calls on it.
type ClassField struct {
	defBase
	Record *DataDef
	Index  int
	Type   Type
}

func NewClassField(name string, sp source.Span) *ClassField {
	return &ClassField{defBase: newDefBase(name, sp)}
}

func (f *ClassField) DefKind() DefKind { return DefField }

func (f *ClassField) LevelParams() LevelParams {
	if f.Record != nil {
		return f.Record.levelParams
	}
	return f.levelParams
}

// This is the binding standing for the record value in Type.
func (f *ClassField) This() *Binding { return f.params.Binding() }

var (
	_ Definition = (*DataDef)(nil)
	_ Definition = (*Constructor)(nil)
	_ Definition = (*FunctionDef)(nil)
	_ Definition = (*ClassField)(nil)
)
