package core

import (
	"fmt"
	"sync/atomic"
)

// BindingID is a generational index: arena generation in the high half,
// 1-based slot in the low half. Two bindings are the same variable iff
// their ids are equal.
type BindingID uint64

// NoBindingID marks the absence of a binding.
const NoBindingID BindingID = 0

func makeBindingID(gen, slot uint32) BindingID {
	return BindingID(uint64(gen)<<32 | uint64(slot))
}

// Generation returns the arena generation of the id.
func (id BindingID) Generation() uint32 { return uint32(id >> 32) }

// Slot returns the 1-based slot of the id inside its arena.
func (id BindingID) Slot() uint32 { return uint32(id) }

func (id BindingID) String() string {
	return fmt.Sprintf("%d.%d", id.Generation(), id.Slot())
}

// DefID identifies a definition. It also owns the level parameters the
// definition declares.
type DefID uint32

const NoDefID DefID = 0

var (
	generations atomic.Uint32
	defIDs      atomic.Uint32
)

// NextDefID hands out definition ids; safe for concurrent use.
func NextDefID() DefID {
	return DefID(defIDs.Add(1))
}

func nextGeneration() uint32 {
	g := generations.Add(1)
	if g == 0 {
		panic(fmt.Errorf("arena generation overflow"))
	}
	return g
}
