package typecheck

import (
	"context"
	"math/big"
	"testing"

	"kappa/internal/concrete"
	"kappa/internal/core"
	"kappa/internal/diag"
	"kappa/internal/prelude"
)

// fixture checks declarations one by one and publishes the results, the
// way the driver does for a single batch.
type fixture struct {
	t    *testing.T
	reg  *Registry
	bag  *diag.Bag
	opts Options
	ids  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, reg: NewRegistry(prelude.New()), bag: diag.NewBag(100)}
}

// check elaborates decl and publishes it.
func (f *fixture) check(decl concrete.Decl) *Unit {
	f.t.Helper()
	dc := NewDefinitionChecker(f.reg, f.opts)
	u, err := dc.Check(context.Background(), decl, diag.BagReporter{Bag: f.bag, Definition: decl.DeclName()})
	if err != nil {
		f.t.Fatalf("check %s: %v", decl.DeclName(), err)
	}
	if err := f.reg.Publish(u); err != nil {
		f.t.Fatalf("publish %s: %v", decl.DeclName(), err)
	}
	return u
}

func (f *fixture) codes() []diag.Code {
	var out []diag.Code
	for _, d := range f.bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func (f *fixture) has(code diag.Code) bool {
	for _, d := range f.bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func (f *fixture) clean() {
	f.t.Helper()
	if f.bag.Len() != 0 {
		for _, d := range f.bag.Items() {
			f.t.Logf("%s: %s", d.Code.ID(), d.Message)
		}
		f.t.Fatalf("expected no diagnostics, got %v", f.codes())
	}
}

func (f *fixture) local(name string) *concrete.Local {
	f.ids++
	return &concrete.Local{ID: f.ids, Name: name}
}

func global(name string) *concrete.GlobalRef { return &concrete.GlobalRef{Name: name} }

func ref(l *concrete.Local) *concrete.LocalRef { return &concrete.LocalRef{Local: l} }

func num(n int64) *concrete.Number { return &concrete.Number{Value: big.NewInt(n)} }

func app(fun concrete.Expr, args ...concrete.Expr) *concrete.App {
	out := &concrete.App{Fun: fun}
	for _, a := range args {
		out.Args = append(out.Args, concrete.Arg{Expr: a, Explicit: true})
	}
	return out
}

func mkParam(t concrete.Expr, ls ...*concrete.Local) concrete.Param {
	return concrete.Param{Locals: ls, Type: t, Explicit: true}
}

func universe() *concrete.Universe { return &concrete.Universe{} }

func pvar(l *concrete.Local) *concrete.PatVar { return &concrete.PatVar{Local: l} }

func pcon(name string, args ...concrete.Pattern) *concrete.PatCon {
	return &concrete.PatCon{Con: name, Args: args}
}

// plus declares addition on Nat by recursion on the second argument.
func (f *fixture) plus() *concrete.FunctionDecl {
	x, y := f.local("x"), f.local("y")
	x1 := f.local("x")
	x2, y2 := f.local("x"), f.local("y")
	return &concrete.FunctionDecl{
		Name:       "plus",
		Params:     []concrete.Param{mkParam(global("Nat"), x, y)},
		ResultType: global("Nat"),
		Clauses: []*concrete.ClauseDecl{
			{Patterns: []concrete.Pattern{pvar(x1), pcon("zero")}, Body: ref(x1)},
			{
				Patterns: []concrete.Pattern{pvar(x2), pcon("suc", pvar(y2))},
				Body:     app(global("suc"), app(global("plus"), ref(x2), ref(y2))),
			},
		},
	}
}

func integer(t *testing.T, e core.Expr) int64 {
	t.Helper()
	n, ok := e.(*core.IntegerExpr)
	if !ok {
		t.Fatalf("expected a numeral, got %s", core.Format(e))
	}
	return n.Value.Int64()
}
