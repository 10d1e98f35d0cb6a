package concrete

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"kappa/internal/source"
)

// ErrSchema is returned for files written with another SchemaVersion.
var ErrSchema = errors.New("unsupported schema version")

// DecodeError locates a malformed node.
type DecodeError struct {
	Path string
	Span source.Span
	Msg  string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Span.Start, e.Msg)
}

// LoadFile reads a resolved module. Files ending in .msgpack or .mp are
// msgpack, everything else is JSON.
func LoadFile(fs *source.FileSet, path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file := fs.Add(path, int64(len(data)))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mp":
		return DecodeMsgpack(data, file, path)
	default:
		return DecodeJSON(data, file, path)
	}
}

func DecodeJSON(data []byte, file source.FileID, path string) (*Module, error) {
	var w wireModule
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return build(&w, file, path)
}

func DecodeMsgpack(data []byte, file source.FileID, path string) (*Module, error) {
	var w wireModule
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields(true)
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return build(&w, file, path)
}

func build(w *wireModule, file source.FileID, path string) (*Module, error) {
	if w.Schema != SchemaVersion {
		return nil, fmt.Errorf("%s: %w %d (want %d)", path, ErrSchema, w.Schema, SchemaVersion)
	}
	d := &decoder{file: file, path: path, scope: make(map[int]*Local), seen: make(map[int]bool)}
	m := &Module{Name: w.Name, File: file}
	for i := range w.Decls {
		decl := d.decl(&w.Decls[i])
		if d.err != nil {
			return nil, d.err
		}
		m.Decls = append(m.Decls, decl)
	}
	return m, nil
}

// decoder turns wire nodes into the tree. Locals are in scope only inside
// their binder; a reference outside is a decode error.
type decoder struct {
	file  source.FileID
	path  string
	scope map[int]*Local
	seen  map[int]bool
	err   error
}

func (d *decoder) span(s [2]uint32) source.Span {
	return source.Span{File: d.file, Start: s[0], End: s[1]}
}

func (d *decoder) fail(s [2]uint32, format string, args ...any) {
	if d.err == nil {
		d.err = &DecodeError{Path: d.path, Span: d.span(s), Msg: fmt.Sprintf(format, args...)}
	}
}

func (d *decoder) bind(s [2]uint32, w wireLocal) *Local {
	if d.seen[w.ID] {
		d.fail(s, "local %s#%d bound twice", w.Name, w.ID)
	}
	l := &Local{ID: w.ID, Name: source.Normalize(w.Name)}
	d.seen[w.ID] = true
	d.scope[w.ID] = l
	return l
}

func (d *decoder) unbind(ls []*Local) {
	for _, l := range ls {
		delete(d.scope, l.ID)
	}
}

// params binds the parameters left to right; the caller unbinds the
// returned locals when the scope ends.
func (d *decoder) params(s [2]uint32, ws []wireParam) ([]Param, []*Local) {
	var out []Param
	var bound []*Local
	for _, wp := range ws {
		p := Param{Type: d.expr(wp.Type), Explicit: !wp.Implicit}
		if len(wp.Locals) == 0 {
			d.fail(s, "parameter without variables")
		}
		for _, wl := range wp.Locals {
			l := d.bind(s, wl)
			p.Locals = append(p.Locals, l)
			bound = append(bound, l)
		}
		out = append(out, p)
	}
	return out, bound
}

func (d *decoder) decl(w *wireDecl) Decl {
	pos := Pos{At: d.span(w.Span)}
	name := source.Normalize(w.Name)
	params, bound := d.params(w.Span, w.Params)
	defer d.unbind(bound)
	switch w.K {
	case "data":
		out := &DataDecl{Pos: pos, Name: name, Params: params, StdLevels: w.StdLevels, Truncated: w.Truncated}
		for _, c := range w.Cons {
			con := &ConstructorDecl{Pos: Pos{At: d.span(c.Span)}, Name: source.Normalize(c.Name)}
			var patBound []*Local
			for _, p := range c.Patterns {
				con.Patterns = append(con.Patterns, d.pattern(p, &patBound))
			}
			var conBound []*Local
			con.Params, conBound = d.params(c.Span, c.Params)
			d.unbind(conBound)
			d.unbind(patBound)
			out.Constructors = append(out.Constructors, con)
		}
		return out
	case "func":
		out := &FunctionDecl{Pos: pos, Name: name, Params: params, StdLevels: w.StdLevels, ResultType: d.expr(w.Result)}
		if w.Body != nil && len(w.Clauses) > 0 {
			d.fail(w.Span, "function %s has both a body and clauses", name)
		}
		out.Body = d.expr(w.Body)
		for _, c := range w.Clauses {
			cl := &ClauseDecl{Pos: Pos{At: d.span(c.Span)}}
			var patBound []*Local
			for _, p := range c.Patterns {
				cl.Patterns = append(cl.Patterns, d.pattern(p, &patBound))
			}
			cl.Body = d.expr(c.Body)
			d.unbind(patBound)
			out.Clauses = append(out.Clauses, cl)
		}
		return out
	case "record":
		out := &RecordDecl{Pos: pos, Name: name, Params: params, StdLevels: w.StdLevels}
		for _, f := range w.Fields {
			out.Fields = append(out.Fields, &FieldDecl{Pos: Pos{At: d.span(f.Span)}, Name: source.Normalize(f.Name), Type: d.expr(f.Type)})
		}
		return out
	default:
		d.fail(w.Span, "unknown declaration kind %q", w.K)
		return &FunctionDecl{Pos: pos, Name: name}
	}
}

func (d *decoder) pattern(w wirePattern, bound *[]*Local) Pattern {
	switch w.K {
	case "var":
		if w.Local == nil {
			d.fail(w.Span, "variable pattern without a local")
			return &PatAbsurd{Pos: Pos{At: d.span(w.Span)}}
		}
		l := d.bind(w.Span, *w.Local)
		*bound = append(*bound, l)
		return &PatVar{Local: l}
	case "con":
		p := &PatCon{Pos: Pos{At: d.span(w.Span)}, Con: source.Normalize(w.Con)}
		for _, a := range w.Args {
			p.Args = append(p.Args, d.pattern(a, bound))
		}
		return p
	case "absurd":
		return &PatAbsurd{Pos: Pos{At: d.span(w.Span)}}
	default:
		d.fail(w.Span, "unknown pattern kind %q", w.K)
		return &PatAbsurd{Pos: Pos{At: d.span(w.Span)}}
	}
}

func (d *decoder) args(ws []wireArg) []Arg {
	var out []Arg
	for _, a := range ws {
		out = append(out, Arg{Expr: d.expr(a.Expr), Explicit: !a.Implicit})
	}
	return out
}

func (d *decoder) exprs(ws []*wireExpr) []Expr {
	var out []Expr
	for _, w := range ws {
		out = append(out, d.expr(w))
	}
	return out
}

func (d *decoder) expr(w *wireExpr) Expr {
	if w == nil || d.err != nil {
		return nil
	}
	pos := Pos{At: d.span(w.Span)}
	switch w.K {
	case "local":
		l, ok := d.scope[w.ID]
		if !ok {
			d.fail(w.Span, "reference to unbound local %s#%d", w.Name, w.ID)
			return nil
		}
		return &LocalRef{Pos: pos, Local: l}
	case "global":
		ref := &GlobalRef{Pos: pos, Name: source.Normalize(w.Name)}
		if w.P != nil || w.H != nil {
			ref.Levels = &LevelArgs{P: d.level(w.Span, w.P), H: d.level(w.Span, w.H)}
		}
		return ref
	case "app":
		return &App{Pos: pos, Fun: d.expr(w.Fun), Args: d.args(w.Args)}
	case "lam":
		ps, bound := d.params(w.Span, w.Params)
		body := d.expr(w.Body)
		d.unbind(bound)
		return &Lam{Pos: pos, Params: ps, Body: body}
	case "pi":
		ps, bound := d.params(w.Span, w.Params)
		cod := d.expr(w.Body)
		d.unbind(bound)
		return &Pi{Pos: pos, Params: ps, Codomain: cod}
	case "sigma":
		ps, bound := d.params(w.Span, w.Params)
		d.unbind(bound)
		return &Sigma{Pos: pos, Params: ps}
	case "tuple":
		return &Tuple{Pos: pos, Fields: d.exprs(w.Items)}
	case "proj":
		return &Proj{Pos: pos, Tuple: d.expr(w.Expr), Field: w.Field}
	case "universe":
		return &Universe{Pos: pos, P: d.level(w.Span, w.P), H: d.level(w.Span, w.H)}
	case "hole":
		return &Hole{Pos: pos, Name: w.Name}
	case "number":
		v, ok := new(big.Int).SetString(w.Value, 10)
		if !ok || v.Sign() < 0 {
			d.fail(w.Span, "bad numeral %q", w.Value)
			return nil
		}
		return &Number{Pos: pos, Value: v}
	case "let":
		out := &Let{Pos: pos}
		var bound []*Local
		for _, c := range w.Lets {
			cl := LetClause{Type: d.expr(c.Type), Value: d.expr(c.Value)}
			cl.Local = d.bind(w.Span, c.Local)
			bound = append(bound, cl.Local)
			out.Clauses = append(out.Clauses, cl)
		}
		out.Body = d.expr(w.Body)
		d.unbind(bound)
		return out
	case "array":
		return &Array{Pos: pos, Elements: d.exprs(w.Items), Tail: d.expr(w.Tail)}
	case "typed":
		return &Typed{Pos: pos, Expr: d.expr(w.Expr), Type: d.expr(w.Type)}
	case "meta":
		return &MetaCall{Pos: pos, Name: source.Normalize(w.Name), Args: d.args(w.Args)}
	default:
		d.fail(w.Span, "unknown expression kind %q", w.K)
		return nil
	}
}

func (d *decoder) level(s [2]uint32, w *wireLevel) LevelExpr {
	if w == nil {
		return nil
	}
	switch w.K {
	case "const":
		if w.N < -1 {
			d.fail(s, "level constant %d below -1", w.N)
		}
		return LevelConst{Value: w.N}
	case "lp":
		return LevelStd{}
	case "lh":
		return LevelStd{H: true}
	case "suc":
		return LevelSuc{Of: d.level(s, w.Of)}
	case "max":
		return LevelMax{Left: d.level(s, w.Left), Right: d.level(s, w.Right)}
	default:
		d.fail(s, "unknown level kind %q", w.K)
		return nil
	}
}
