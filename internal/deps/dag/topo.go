package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Topo is a layering of the graph. Every definition of a batch depends
// only on definitions of earlier batches.
type Topo struct {
	Order   []DefID
	Batches [][]DefID
	Cyclic  bool
	Cycles  []DefID // definitions on a cycle or behind one
}

func toID(i int) DefID {
	id, err := safecast.Conv[DefID](i)
	if err != nil {
		panic(fmt.Errorf("definition id overflow: %w", err))
	}
	return id
}

// ToposortKahn peels the graph layer by layer: a batch is the set of
// present definitions whose remaining in-degree dropped to zero, in id
// order.
func ToposortKahn(g Graph) *Topo {
	pending := slices.Clone(g.Indeg)
	var ready []DefID
	left := 0
	for i, ok := range g.Present {
		if !ok {
			continue
		}
		left++
		if pending[i] == 0 {
			ready = append(ready, toID(i))
		}
	}

	t := &Topo{}
	for len(ready) > 0 {
		t.Batches = append(t.Batches, ready)
		t.Order = append(t.Order, ready...)
		left -= len(ready)

		var next []DefID
		for _, from := range ready {
			for _, to := range g.Edges[from] {
				if !g.Present[to] {
					continue
				}
				if pending[to]--; pending[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		ready = next
	}

	if left > 0 {
		t.Cyclic = true
		for i, ok := range g.Present {
			if ok && pending[i] > 0 {
				t.Cycles = append(t.Cycles, toID(i))
			}
		}
	}
	return t
}

// Names maps ids back to names.
func (idx Index) Names(ids []DefID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[id]
	}
	return out
}
