package concrete

// SchemaVersion is the interchange format version written by resolvers.
// Files with a different version are rejected.
const SchemaVersion uint16 = 1

// The wire types mirror the tree with one tagged struct per category so
// that the same definitions decode from JSON and msgpack.

type wireModule struct {
	Schema uint16     `json:"schema" msgpack:"schema"`
	Name   string     `json:"name" msgpack:"name"`
	Decls  []wireDecl `json:"decls" msgpack:"decls"`
}

type wireDecl struct {
	K         string       `json:"k" msgpack:"k"` // data | func | record
	Name      string       `json:"name" msgpack:"name"`
	Params    []wireParam  `json:"params,omitempty" msgpack:"params,omitempty"`
	StdLevels bool         `json:"std_levels,omitempty" msgpack:"std_levels,omitempty"`
	Truncated *int         `json:"truncated,omitempty" msgpack:"truncated,omitempty"`
	Cons      []wireCon    `json:"cons,omitempty" msgpack:"cons,omitempty"`
	Result    *wireExpr    `json:"result,omitempty" msgpack:"result,omitempty"`
	Body      *wireExpr    `json:"body,omitempty" msgpack:"body,omitempty"`
	Clauses   []wireClause `json:"clauses,omitempty" msgpack:"clauses,omitempty"`
	Fields    []wireField  `json:"fields,omitempty" msgpack:"fields,omitempty"`
	Span      [2]uint32    `json:"span" msgpack:"span"`
}

type wireCon struct {
	Name     string        `json:"name" msgpack:"name"`
	Params   []wireParam   `json:"params,omitempty" msgpack:"params,omitempty"`
	Patterns []wirePattern `json:"patterns,omitempty" msgpack:"patterns,omitempty"`
	Span     [2]uint32     `json:"span" msgpack:"span"`
}

type wireClause struct {
	Patterns []wirePattern `json:"patterns" msgpack:"patterns"`
	Body     *wireExpr     `json:"body,omitempty" msgpack:"body,omitempty"`
	Span     [2]uint32     `json:"span" msgpack:"span"`
}

type wireField struct {
	Name string    `json:"name" msgpack:"name"`
	Type *wireExpr `json:"type" msgpack:"type"`
	Span [2]uint32 `json:"span" msgpack:"span"`
}

type wireLocal struct {
	ID   int    `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

type wireParam struct {
	Locals   []wireLocal `json:"locals" msgpack:"locals"`
	Type     *wireExpr   `json:"type,omitempty" msgpack:"type,omitempty"`
	Implicit bool        `json:"implicit,omitempty" msgpack:"implicit,omitempty"`
}

type wireArg struct {
	Expr     *wireExpr `json:"e" msgpack:"e"`
	Implicit bool      `json:"implicit,omitempty" msgpack:"implicit,omitempty"`
}

type wireLet struct {
	Local wireLocal `json:"local" msgpack:"local"`
	Type  *wireExpr `json:"type,omitempty" msgpack:"type,omitempty"`
	Value *wireExpr `json:"value" msgpack:"value"`
}

type wireLevel struct {
	K     string     `json:"k" msgpack:"k"` // const | lp | lh | suc | max
	N     int        `json:"n,omitempty" msgpack:"n,omitempty"`
	Of    *wireLevel `json:"of,omitempty" msgpack:"of,omitempty"`
	Left  *wireLevel `json:"l,omitempty" msgpack:"l,omitempty"`
	Right *wireLevel `json:"r,omitempty" msgpack:"r,omitempty"`
}

// wireExpr.K selects the variant:
// local, global, app, lam, pi, sigma, tuple, proj, universe, hole,
// number, let, array, typed, meta. P and H are the universe levels, or the
// explicit level arguments of a global.
type wireExpr struct {
	K      string      `json:"k" msgpack:"k"`
	ID     int         `json:"id,omitempty" msgpack:"id,omitempty"`
	Name   string      `json:"name,omitempty" msgpack:"name,omitempty"`
	Fun    *wireExpr   `json:"fun,omitempty" msgpack:"fun,omitempty"`
	Args   []wireArg   `json:"args,omitempty" msgpack:"args,omitempty"`
	Params []wireParam `json:"params,omitempty" msgpack:"params,omitempty"`
	Body   *wireExpr   `json:"body,omitempty" msgpack:"body,omitempty"`
	Type   *wireExpr   `json:"type,omitempty" msgpack:"type,omitempty"`
	Expr   *wireExpr   `json:"expr,omitempty" msgpack:"expr,omitempty"`
	Items  []*wireExpr `json:"items,omitempty" msgpack:"items,omitempty"`
	Tail   *wireExpr   `json:"tail,omitempty" msgpack:"tail,omitempty"`
	Field  int         `json:"field,omitempty" msgpack:"field,omitempty"`
	P      *wireLevel  `json:"p,omitempty" msgpack:"p,omitempty"`
	H      *wireLevel  `json:"h,omitempty" msgpack:"h,omitempty"`
	Value  string      `json:"value,omitempty" msgpack:"value,omitempty"`
	Lets   []wireLet   `json:"lets,omitempty" msgpack:"lets,omitempty"`
	Span   [2]uint32   `json:"span" msgpack:"span"`
}

type wirePattern struct {
	K     string        `json:"k" msgpack:"k"` // var | con | absurd
	Local *wireLocal    `json:"local,omitempty" msgpack:"local,omitempty"`
	Con   string        `json:"con,omitempty" msgpack:"con,omitempty"`
	Args  []wirePattern `json:"args,omitempty" msgpack:"args,omitempty"`
	Span  [2]uint32     `json:"span" msgpack:"span"`
}
