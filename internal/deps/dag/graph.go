package dag

import (
	"fmt"
	"slices"
	"strings"

	"kappa/internal/diag"
	"kappa/internal/source"
)

// Graph points from a definition to the definitions that use it, so a
// topological order checks dependencies first.
type Graph struct {
	Edges   [][]DefID // Edges[dep] = users of dep
	Indeg   []int     // number of dependencies of each definition
	Present []bool
}

type Slot struct {
	Node     Node
	Present  bool
	Broken   bool
	FirstErr *diag.Diagnostic
	// Deps are the declarations of the module this one uses.
	Deps []DefID
}

// Resolver maps a referenced name to the declaration that introduces it
// (a constructor to its data type, a field to its record). ok is false
// for names from outside the module, such as the prelude.
type Resolver func(name string) (owner string, ok bool)

// BuildGraph links declarations by their references. Duplicate
// declarations and references to unknown names are reported to the
// node's reporter; known tells whether a name outside the module exists.
func BuildGraph(idx Index, nodes []Node, resolve Resolver, known func(string) bool) (Graph, []Slot) {
	count := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]DefID, count),
		Indeg:   make([]int, count),
		Present: make([]bool, count),
	}
	slots := make([]Slot, count)

	for _, node := range nodes {
		id, ok := idx.NameToID[node.Name]
		if !ok {
			continue
		}
		slot := &slots[int(id)]
		if slot.Present {
			if node.Reporter != nil {
				d := diag.NewError(diag.DepDuplicate, node.Span, fmt.Sprintf("duplicate definition %q", node.Name))
				if slot.Node.Span != (source.Span{}) {
					d = d.WithNote(slot.Node.Span, fmt.Sprintf("previous declaration of %q", node.Name))
				}
				node.Reporter.Report(d)
			}
			continue
		}
		slot.Node = node
		slot.Present = true
		g.Present[int(id)] = true
	}

	for from := range slots {
		slot := &slots[from]
		if !slot.Present {
			continue
		}
		seen := make(map[DefID]struct{}, len(slot.Node.Refs))
		for _, ref := range slot.Node.Refs {
			owner, local := resolve(ref)
			if !local {
				if known != nil && !known(ref) && slot.Node.Reporter != nil {
					slot.Node.Reporter.Report(diag.NewError(diag.DepMissing, slot.Node.Span,
						fmt.Sprintf("%q refers to unknown definition %q", slot.Node.Name, ref)))
				}
				continue
			}
			toID, ok := idx.NameToID[owner]
			if !ok || int(toID) == from {
				continue
			}
			if _, dup := seen[toID]; dup {
				continue
			}
			seen[toID] = struct{}{}
			slot.Deps = append(slot.Deps, toID)
			g.Edges[int(toID)] = append(g.Edges[int(toID)], DefID(from))
			g.Indeg[from]++
		}
		slices.Sort(slot.Deps)
	}
	for i := range g.Edges {
		slices.Sort(g.Edges[i])
	}
	return g, slots
}

// ReportCycles reports every definition left in a cycle.
func ReportCycles(idx Index, slots []Slot, topo *Topo) {
	if !topo.Cyclic || len(topo.Cycles) == 0 {
		return
	}
	names := make([]string, 0, len(topo.Cycles))
	for _, id := range topo.Cycles {
		names = append(names, idx.IDToName[int(id)])
	}
	summary := strings.Join(names, " -> ")

	for _, id := range topo.Cycles {
		slot := &slots[int(id)]
		slot.Broken = true
		if !slot.Present || slot.Node.Reporter == nil {
			continue
		}
		msg := fmt.Sprintf("%q participates in a dependency cycle: %s", slot.Node.Name, summary)
		slot.Node.Reporter.Report(diag.NewError(diag.DepCycle, slot.Node.Span, msg))
	}
}

// MarkBroken records that id failed to check with first as its first error.
func MarkBroken(slots []Slot, id DefID, first *diag.Diagnostic) {
	slots[int(id)].Broken = true
	slots[int(id)].FirstErr = first
}

// BrokenDeps lists the broken dependencies of id and reports each of them
// once to the node's reporter. Dependents of a broken definition are not
// checked.
func BrokenDeps(idx Index, slots []Slot, id DefID) []string {
	slot := &slots[int(id)]
	var broken []string
	for _, dep := range slot.Deps {
		depSlot := &slots[int(dep)]
		if !depSlot.Broken {
			continue
		}
		name := idx.IDToName[int(dep)]
		broken = append(broken, name)
		if slot.Node.Reporter == nil {
			continue
		}
		d := diag.NewError(diag.DepFailed, slot.Node.Span, fmt.Sprintf("dependency %q has errors", name))
		if depSlot.FirstErr != nil {
			d = d.WithNote(depSlot.FirstErr.Primary, "first error in dependency: "+depSlot.FirstErr.Message)
		}
		slot.Node.Reporter.Report(d)
	}
	return broken
}
