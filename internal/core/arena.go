package core

import (
	"fmt"

	"fortio.org/safecast"

	"kappa/internal/source"
)

// Arena allocates the bindings of one definition check. It is not safe
// for concurrent use: every checker owns its arena. Dropping the arena
// releases its bindings together.
type Arena struct {
	gen      uint32
	bindings []*Binding
}

func NewArena(capHint uint) *Arena {
	return &Arena{
		gen:      nextGeneration(),
		bindings: make([]*Binding, 0, capHint),
	}
}

func (a *Arena) Generation() uint32 { return a.gen }

// NewBinding allocates a fresh variable.
func (a *Arena) NewBinding(name string, typ Type, flags Flags) *Binding {
	slot, err := safecast.Conv[uint32](len(a.bindings) + 1)
	if err != nil {
		panic(fmt.Errorf("arena %d overflow: %w", a.gen, err))
	}
	b := &Binding{
		id:    makeBindingID(a.gen, slot),
		Name:  name,
		Type:  typ,
		Flags: flags,
	}
	a.bindings = append(a.bindings, b)
	return b
}

// NewBindingAt is NewBinding with an origin span.
func (a *Arena) NewBindingAt(name string, typ Type, flags Flags, sp source.Span) *Binding {
	b := a.NewBinding(name, typ, flags)
	b.Span = sp
	return b
}

// Get returns the binding for id or nil when id belongs to another arena.
func (a *Arena) Get(id BindingID) *Binding {
	if id.Generation() != a.gen || id.Slot() == 0 || int(id.Slot()) > len(a.bindings) {
		return nil
	}
	return a.bindings[id.Slot()-1]
}

func (a *Arena) Len() int { return len(a.bindings) }

// Bindings returns the allocated bindings. READONLY
func (a *Arena) Bindings() []*Binding { return a.bindings }
