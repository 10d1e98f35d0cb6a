package testkit

import (
	"context"
	"strings"
	"testing"

	"kappa/internal/concrete"
	"kappa/internal/deps"
	"kappa/internal/diag"
	"kappa/internal/prelude"
	"kappa/internal/typecheck"
)

func checkAndPublish(t *testing.T, reg *typecheck.Registry, col *deps.Collector, decl concrete.Decl) *typecheck.Unit {
	t.Helper()
	dc := typecheck.NewDefinitionChecker(reg, typecheck.Options{})
	if col != nil {
		dc = dc.WithRecorder(col)
	}
	bag := diag.NewBag(0)
	u, err := dc.Check(context.Background(), decl, diag.BagReporter{Bag: bag, Definition: decl.DeclName()})
	if err != nil {
		t.Fatalf("check %s: %v", decl.DeclName(), err)
	}
	if err := reg.Publish(u); err != nil {
		t.Fatalf("publish: %v", err)
	}
	return u
}

func decls() (concrete.Decl, concrete.Decl) {
	one := &concrete.FunctionDecl{Name: "one", ResultType: &concrete.GlobalRef{Name: "Nat"},
		Body: &concrete.App{Fun: &concrete.GlobalRef{Name: "suc"}, Args: []concrete.Arg{{Expr: &concrete.GlobalRef{Name: "zero"}, Explicit: true}}}}
	two := &concrete.FunctionDecl{Name: "two", ResultType: &concrete.GlobalRef{Name: "Nat"},
		Body: &concrete.App{Fun: &concrete.GlobalRef{Name: "suc"}, Args: []concrete.Arg{{Expr: &concrete.GlobalRef{Name: "one"}, Explicit: true}}}}
	return one, two
}

func TestConsistentRegistry(t *testing.T) {
	reg := typecheck.NewRegistry(prelude.New())
	col := deps.NewCollector(0)
	one, two := decls()
	checkAndPublish(t, reg, col, one)
	checkAndPublish(t, reg, col, two)
	if err := CheckRegistry(reg); err != nil {
		t.Fatalf("registry: %v", err)
	}
	if err := CheckCollector(reg, col); err != nil {
		t.Fatalf("collector: %v", err)
	}
}

func TestRemovedDependencyIsReported(t *testing.T) {
	reg := typecheck.NewRegistry(prelude.New())
	one, two := decls()
	checkAndPublish(t, reg, nil, one)
	checkAndPublish(t, reg, nil, two)
	reg.Remove("one")
	err := CheckRegistry(reg)
	if err == nil || !strings.Contains(err.Error(), "dependency one is not published") {
		t.Fatalf("expected a missing dependency, got %v", err)
	}
}

func TestUnrecordedDependencyIsReported(t *testing.T) {
	reg := typecheck.NewRegistry(prelude.New())
	one, two := decls()
	checkAndPublish(t, reg, nil, one)
	checkAndPublish(t, reg, nil, two)
	err := CheckCollector(reg, deps.NewCollector(0))
	if err == nil || !strings.Contains(err.Error(), "not recorded") {
		t.Fatalf("expected an unrecorded dependency, got %v", err)
	}
}
