package concrete

import (
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"

	"kappa/internal/source"
)

const idModule = `{
  "schema": 1,
  "name": "basics",
  "decls": [
    {"k": "func", "name": "id", "span": [0, 40],
     "params": [
       {"locals": [{"id": 1, "name": "A"}], "implicit": true,
        "type": {"k": "universe", "span": [5, 10]}},
       {"locals": [{"id": 2, "name": "x"}],
        "type": {"k": "local", "id": 1, "name": "A", "span": [12, 13]}}
     ],
     "result": {"k": "local", "id": 1, "name": "A", "span": [16, 17]},
     "body": {"k": "local", "id": 2, "name": "x", "span": [21, 22]}},
    {"k": "func", "name": "three", "span": [41, 60],
     "result": {"k": "global", "name": "Nat", "span": [50, 53]},
     "body": {"k": "app", "span": [55, 60],
              "fun": {"k": "global", "name": "id", "span": [55, 57],
                      "p": {"k": "const", "n": 0}, "h": {"k": "suc", "of": {"k": "lh"}}},
              "args": [{"e": {"k": "number", "value": "3", "span": [58, 59]}}]}}
  ]
}`

var bigCmp = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

func TestDecodeJSON(t *testing.T) {
	m, err := DecodeJSON([]byte(idModule), 3, "basics.json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	at := func(a, b uint32) Pos { return Pos{At: source.Span{File: 3, Start: a, End: b}} }
	a := &Local{ID: 1, Name: "A"}
	x := &Local{ID: 2, Name: "x"}
	want := &Module{
		Name: "basics",
		File: 3,
		Decls: []Decl{
			&FunctionDecl{
				Pos:  at(0, 40),
				Name: "id",
				Params: []Param{
					{Locals: []*Local{a}, Type: &Universe{Pos: at(5, 10)}},
					{Locals: []*Local{x}, Type: &LocalRef{Pos: at(12, 13), Local: a}, Explicit: true},
				},
				ResultType: &LocalRef{Pos: at(16, 17), Local: a},
				Body:       &LocalRef{Pos: at(21, 22), Local: x},
			},
			&FunctionDecl{
				Pos:        at(41, 60),
				Name:       "three",
				ResultType: &GlobalRef{Pos: at(50, 53), Name: "Nat"},
				Body: &App{
					Pos: at(55, 60),
					Fun: &GlobalRef{Pos: at(55, 57), Name: "id", Levels: &LevelArgs{
						P: LevelConst{Value: 0},
						H: LevelSuc{Of: LevelStd{H: true}},
					}},
					Args: []Arg{{Expr: &Number{Pos: at(58, 59), Value: big.NewInt(3)}, Explicit: true}},
				},
			},
		},
	}
	if diff := cmp.Diff(want, m, bigCmp); diff != "" {
		t.Fatalf("module mismatch (-want +got):\n%s", diff)
	}
	if got := References(m.Decls[1]); len(got) != 2 || got[0] != "Nat" || got[1] != "id" {
		t.Fatalf("references = %v", got)
	}
}

func TestDecodeRejectsUnboundLocal(t *testing.T) {
	src := `{"schema": 1, "name": "bad", "decls": [
	  {"k": "func", "name": "f", "span": [0, 9],
	   "params": [{"locals": [{"id": 1, "name": "x"}], "type": {"k": "global", "name": "Nat", "span": [0, 0]}}],
	   "result": {"k": "global", "name": "Nat", "span": [0, 0]},
	   "body": {"k": "local", "id": 7, "name": "y", "span": [4, 5]}}]}`
	_, err := DecodeJSON([]byte(src), 1, "bad.json")
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Span.Start != 4 || !strings.Contains(de.Msg, "unbound local y#7") {
		t.Fatalf("unexpected error %+v", de)
	}
}

func TestDecodeScopesEndAtBinder(t *testing.T) {
	// x is bound by the lambda only; the second argument escapes it.
	src := `{"schema": 1, "name": "m", "decls": [
	  {"k": "func", "name": "f", "span": [0, 9],
	   "result": {"k": "global", "name": "Nat", "span": [0, 0]},
	   "body": {"k": "app", "span": [0, 9],
	     "fun": {"k": "lam", "span": [0, 3], "params": [{"locals": [{"id": 1, "name": "x"}]}],
	             "body": {"k": "local", "id": 1, "name": "x", "span": [1, 2]}},
	     "args": [{"e": {"k": "local", "id": 1, "name": "x", "span": [6, 7]}}]}}]}`
	_, err := DecodeJSON([]byte(src), 1, "m.json")
	var de *DecodeError
	if !errors.As(err, &de) || de.Span.Start != 6 {
		t.Fatalf("expected escape at 6, got %v", err)
	}
}

func TestDecodeSchemaMismatch(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"schema": 9, "name": "m", "decls": []}`), 1, "m.json")
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestDecodeMsgpackData(t *testing.T) {
	trunc := -1
	w := wireModule{
		Schema: SchemaVersion,
		Name:   "logic",
		Decls: []wireDecl{{
			K:         "data",
			Name:      "Or",
			Truncated: &trunc,
			Params: []wireParam{{
				Locals: []wireLocal{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
				Type:   &wireExpr{K: "universe", H: &wireLevel{K: "const", N: -1}},
			}},
			Cons: []wireCon{
				{Name: "inl", Params: []wireParam{{Locals: []wireLocal{{ID: 3, Name: "a"}}, Type: &wireExpr{K: "local", ID: 1}}}},
				{Name: "inr", Params: []wireParam{{Locals: []wireLocal{{ID: 4, Name: "b"}}, Type: &wireExpr{K: "local", ID: 2}}}},
			},
		}},
	}
	data, err := msgpack.Marshal(&w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "logic.msgpack")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := source.NewFileSet()
	m, err := LoadFile(fs, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	or, ok := m.Lookup("Or").(*DataDecl)
	if !ok {
		t.Fatalf("Or not decoded as data: %T", m.Lookup("Or"))
	}
	if or.Truncated == nil || *or.Truncated != -1 {
		t.Fatalf("truncation lost: %v", or.Truncated)
	}
	if len(or.Constructors) != 2 || len(or.Params[0].Locals) != 2 {
		t.Fatalf("unexpected shape %+v", or)
	}
	ref := or.Constructors[1].Params[0].Type.(*LocalRef)
	if ref.Local != or.Params[0].Locals[1] {
		t.Fatalf("constructor parameter does not share the data binder")
	}
	if owners := m.Owners(); owners["inl"] != "Or" {
		t.Fatalf("owners = %v", owners)
	}
	if fs.Path(m.File) != path {
		t.Fatalf("file not registered: %q", fs.Path(m.File))
	}
}
