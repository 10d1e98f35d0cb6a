package driver

import (
	"slices"

	"kappa/internal/concrete"
	"kappa/internal/deps/dag"
	"kappa/internal/diag"
	"kappa/internal/typecheck"
)

// Plan orders the declarations a run checks. Declarations already
// published are outside the plan; references to them are external.
type Plan struct {
	Index dag.Index
	Slots []dag.Slot
	Topo  *dag.Topo
	// Bags holds the diagnostics of every planned declaration, starting
	// with the ordering problems.
	Bags map[string]*diag.Bag

	decls  map[string]concrete.Decl
	owners map[string]string
}

// NewPlan orders the declarations of mod that reg has not published yet.
func NewPlan(mod *concrete.Module, reg *typecheck.Registry, maxDiagnostics int) *Plan {
	owners := mod.Owners()
	p := &Plan{
		Bags:   make(map[string]*diag.Bag),
		decls:  make(map[string]concrete.Decl),
		owners: owners,
	}
	nodes := make([]dag.Node, 0, len(mod.Decls))
	for _, d := range mod.Decls {
		name := d.DeclName()
		if _, done := reg.Unit(name); done {
			continue
		}
		bag, ok := p.Bags[name]
		if !ok {
			bag = diag.NewBag(maxDiagnostics)
			p.Bags[name] = bag
			p.decls[name] = d
		}
		nodes = append(nodes, dag.Node{
			Name:     name,
			Span:     d.Span(),
			Refs:     concrete.References(d),
			Reporter: diag.BagReporter{Bag: bag, Definition: name},
		})
	}

	resolve := func(ref string) (string, bool) {
		owner, ok := owners[ref]
		if !ok {
			return "", false
		}
		_, pending := p.decls[owner]
		return owner, pending
	}
	known := func(ref string) bool {
		if _, ok := owners[ref]; ok {
			return true
		}
		if reg.Lookup(ref) != nil {
			return true
		}
		_, ok := reg.Meta(ref)
		return ok
	}

	p.Index = dag.BuildIndex(nodes)
	graph, slots := dag.BuildGraph(p.Index, nodes, resolve, known)
	p.Slots = slots
	p.Topo = dag.ToposortKahn(graph)
	dag.ReportCycles(p.Index, p.Slots, p.Topo)

	// A declaration with ordering errors is not checked.
	for name, id := range p.Index.NameToID {
		if !p.Slots[int(id)].Present {
			continue
		}
		if first, ok := p.Bags[name].First(); ok {
			dag.MarkBroken(p.Slots, id, &first)
		}
	}
	return p
}

// Batches lists the planned declarations in checking order.
func (p *Plan) Batches() [][]string {
	out := make([][]string, len(p.Topo.Batches))
	for i, b := range p.Topo.Batches {
		out[i] = p.Index.Names(b)
	}
	return out
}

// Cycles lists the declarations that cannot be ordered.
func (p *Plan) Cycles() []string {
	return p.Index.Names(p.Topo.Cycles)
}

// Len is the number of planned declarations.
func (p *Plan) Len() int { return len(p.decls) }

// moduleDeps lists the other declarations of the module that d refers
// to, published or not.
func (p *Plan) moduleDeps(d concrete.Decl) []string {
	var out []string
	for _, ref := range concrete.References(d) {
		owner, ok := p.owners[ref]
		if !ok || owner == d.DeclName() {
			continue
		}
		out = append(out, owner)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
