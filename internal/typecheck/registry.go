package typecheck

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"kappa/internal/core"
	"kappa/internal/prelude"
)

// ErrDuplicate is returned when a name is published twice.
var ErrDuplicate = errors.New("duplicate definition")

// Unit is one checked declaration: the definition it declares and the
// constructors or fields that come with it.
type Unit struct {
	Name    string
	Def     core.Definition
	Members []core.Definition
	// Deps lists the units the declaration refers to, sorted.
	Deps []string
	// Goals counts the unsolved goals reported for the unit.
	Goals int
}

// Status is the status of the unit's main definition.
func (u *Unit) Status() core.Status { return u.Def.Status() }

func (u *Unit) all() []core.Definition {
	return append([]core.Definition{u.Def}, u.Members...)
}

// Registry holds the checked definitions and the meta definitions that
// checkers may refer to. It is safe for concurrent use; checkers only
// read it and the driver publishes whole units.
type Registry struct {
	mu       sync.RWMutex
	pre      *prelude.Prelude
	defs     map[string]core.Definition
	owner    map[string]string
	units    map[string]*Unit
	versions map[string]uint64
	metas    map[string]MetaDefinition
}

// NewRegistry starts from the prelude and the builtin metas.
func NewRegistry(p *prelude.Prelude) *Registry {
	r := &Registry{
		pre:      p,
		defs:     make(map[string]core.Definition),
		owner:    make(map[string]string),
		units:    make(map[string]*Unit),
		versions: make(map[string]uint64),
		metas:    make(map[string]MetaDefinition),
	}
	for _, d := range p.Definitions() {
		r.defs[d.Name()] = d
	}
	for name, m := range builtinMetas() {
		r.metas[name] = m
	}
	return r
}

func (r *Registry) Prelude() *prelude.Prelude { return r.pre }

func (r *Registry) Lookup(name string) core.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defs[name]
}

// Owner names the unit that published name.
func (r *Registry) Owner(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.owner[name]
	return u, ok
}

// IsBuiltin reports whether name comes from the prelude.
func (r *Registry) IsBuiltin(name string) bool {
	return r.pre.Lookup(name) != nil
}

// Publish makes u visible. Every name of u must be free.
func (r *Registry) Publish(u *Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range u.all() {
		if _, ok := r.defs[d.Name()]; ok {
			return fmt.Errorf("publish %s: %w %q", u.Name, ErrDuplicate, d.Name())
		}
	}
	for _, d := range u.all() {
		r.defs[d.Name()] = d
		r.owner[d.Name()] = u.Name
	}
	r.units[u.Name] = u
	r.versions[u.Name]++
	return nil
}

// Remove withdraws the unit name and returns it, or nil when it was not
// published.
func (r *Registry) Remove(name string) *Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[name]
	if !ok {
		return nil
	}
	for _, d := range u.all() {
		delete(r.defs, d.Name())
		delete(r.owner, d.Name())
	}
	delete(r.units, name)
	r.versions[name]++
	return u
}

func (r *Registry) Unit(name string) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[name]
	return u, ok
}

// Units lists the published units by name.
func (r *Registry) Units() []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b *Unit) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Version counts the publications and removals of the unit name. A
// result computed against a dependency whose version moved is stale.
func (r *Registry) Version(name string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.versions[name]
}

// Versions snapshots Version for every name.
func (r *Registry) Versions(names []string) []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint64, len(names))
	for i, n := range names {
		out[i] = r.versions[n]
	}
	return out
}

// RegisterMeta installs a meta definition under name.
func (r *Registry) RegisterMeta(name string, m MetaDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metas[name]; ok {
		return fmt.Errorf("meta %w %q", ErrDuplicate, name)
	}
	r.metas[name] = m
	return nil
}

func (r *Registry) Meta(name string) (MetaDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metas[name]
	return m, ok
}
