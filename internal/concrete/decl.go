package concrete

import (
	"slices"

	"kappa/internal/source"
)

// Decl is a top-level declaration.
type Decl interface {
	DeclName() string
	Span() source.Span
	declNode()
}

// DataDecl declares an inductive type. Truncated is nil unless the type
// is squashed to that h-level (-1 for propositions).
type DataDecl struct {
	Pos
	Name         string
	Params       []Param
	StdLevels    bool
	Truncated    *int
	Constructors []*ConstructorDecl
}

// ConstructorDecl may restrict the data arguments it applies to with
// Patterns, one per data parameter.
type ConstructorDecl struct {
	Pos
	Name     string
	Params   []Param
	Patterns []Pattern
}

// FunctionDecl has a term Body or Clauses over its explicit parameters.
type FunctionDecl struct {
	Pos
	Name       string
	Params     []Param
	StdLevels  bool
	ResultType Expr
	Body       Expr
	Clauses    []*ClauseDecl
}

// ClauseDecl is absurd when Body is nil.
type ClauseDecl struct {
	Pos
	Patterns []Pattern
	Body     Expr
}

// RecordDecl declares a record: one constructor named <Name>.make and one
// projection per field. A field type refers to earlier fields by name.
type RecordDecl struct {
	Pos
	Name      string
	Params    []Param
	StdLevels bool
	Fields    []*FieldDecl
}

// RecordConstructor is the name of the constructor of record.
func RecordConstructor(record string) string { return record + ".make" }

type FieldDecl struct {
	Pos
	Name string
	Type Expr
}

func (d *DataDecl) DeclName() string     { return d.Name }
func (d *FunctionDecl) DeclName() string { return d.Name }
func (d *RecordDecl) DeclName() string   { return d.Name }

func (*DataDecl) declNode()     {}
func (*FunctionDecl) declNode() {}
func (*RecordDecl) declNode()   {}

// Pattern is a clause or constructor pattern.
type Pattern interface {
	patternNode()
}

type PatVar struct {
	Local *Local
}

type PatCon struct {
	Pos
	Con  string
	Args []Pattern
}

type PatAbsurd struct {
	Pos
}

func (*PatVar) patternNode()    {}
func (*PatCon) patternNode()    {}
func (*PatAbsurd) patternNode() {}

// Module is one resolved input file.
type Module struct {
	Name  string
	File  source.FileID
	Decls []Decl
}

// Lookup finds a declaration by name.
func (m *Module) Lookup(name string) Decl {
	for _, d := range m.Decls {
		if d.DeclName() == name {
			return d
		}
	}
	return nil
}

// Owners maps every name a declaration introduces (its own name,
// constructors, fields) to the declaration name.
func (m *Module) Owners() map[string]string {
	out := make(map[string]string, len(m.Decls))
	for _, d := range m.Decls {
		out[d.DeclName()] = d.DeclName()
		switch n := d.(type) {
		case *DataDecl:
			for _, c := range n.Constructors {
				out[c.Name] = n.Name
			}
		case *RecordDecl:
			out[RecordConstructor(n.Name)] = n.Name
			for _, f := range n.Fields {
				out[f.Name] = n.Name
			}
		}
	}
	return out
}

// References lists the global names d mentions, sorted and without
// duplicates. Constructor names in patterns are included.
func References(d Decl) []string {
	var names []string
	visit := func(e Expr) {
		Walk(e, func(x Expr) {
			switch n := x.(type) {
			case *GlobalRef:
				names = append(names, n.Name)
			case *MetaCall:
				names = append(names, n.Name)
			}
		})
	}
	params := func(ps []Param) {
		for _, p := range ps {
			visit(p.Type)
		}
	}
	var pattern func(p Pattern)
	pattern = func(p Pattern) {
		if c, ok := p.(*PatCon); ok {
			names = append(names, c.Con)
			for _, a := range c.Args {
				pattern(a)
			}
		}
	}
	switch n := d.(type) {
	case *DataDecl:
		params(n.Params)
		for _, c := range n.Constructors {
			params(c.Params)
			for _, p := range c.Patterns {
				pattern(p)
			}
		}
	case *FunctionDecl:
		params(n.Params)
		visit(n.ResultType)
		visit(n.Body)
		for _, c := range n.Clauses {
			for _, p := range c.Patterns {
				pattern(p)
			}
			visit(c.Body)
		}
	case *RecordDecl:
		params(n.Params)
		for _, f := range n.Fields {
			visit(f.Type)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}
