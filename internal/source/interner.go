package source

import (
	"slices"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// StringID identifies an interned name.
type StringID uint32

const NoStringID StringID = 0

// Interner deduplicates binder and definition names. Names are NFC
// normalised first, so visually identical identifiers share one id.
// Safe for concurrent use: definitions are checked in parallel and all of
// them intern display names here.
type Interner struct {
	mu    sync.RWMutex
	byID  []string
	index map[string]StringID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": NoStringID},
	}
}

// Intern returns the id of the normalised form of s.
func (i *Interner) Intern(s string) StringID {
	key := norm.NFC.String(s)
	i.mu.RLock()
	id, ok := i.index[key]
	i.mu.RUnlock()
	if ok {
		return id
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if id, ok := i.index[key]; ok {
		return id
	}
	id = StringID(len(i.byID))
	i.byID = append(i.byID, key)
	i.index[key] = id
	return id
}

// Lookup returns the string for id.
func (i *Interner) Lookup(id StringID) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if int(id) >= len(i.byID) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup panics on unknown ids.
func (i *Interner) MustLookup(id StringID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("invalid string ID")
	}
	return s
}

// Len counts interned strings including the empty NoStringID slot.
func (i *Interner) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byID)
}

// Snapshot returns a copy of all interned strings.
func (i *Interner) Snapshot() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.byID)
}

// Normalize returns the canonical form names are compared in.
func Normalize(s string) string {
	return norm.NFC.String(s)
}
