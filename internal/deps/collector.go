// Package deps records which definitions a checked definition refers to
// and answers invalidation queries over those edges. Checkers running
// concurrently record into one Collector.
package deps

import (
	"hash/maphash"
	"slices"
	"sync"

	set "github.com/hashicorp/go-set/v3"
)

// Recorder is the side of a Collector the checker sees.
type Recorder interface {
	// DependsOn records that from refers to to. The checker calls it once
	// per distinct unit.
	DependsOn(from, to string)
}

// DefaultShards is used when NewCollector is given zero.
const DefaultShards = 16

type shard struct {
	mu    sync.RWMutex
	deps  map[string]*set.Set[string] // definition -> what it uses
	rdeps map[string]*set.Set[string] // definition -> who uses it
}

// Collector is a sharded concurrent dependency map keyed by definition
// name. Names stay stable when a definition is checked again.
type Collector struct {
	seed   maphash.Seed
	shards []shard
}

func NewCollector(shards int) *Collector {
	if shards <= 0 {
		shards = DefaultShards
	}
	c := &Collector{seed: maphash.MakeSeed(), shards: make([]shard, shards)}
	for i := range c.shards {
		c.shards[i].deps = make(map[string]*set.Set[string])
		c.shards[i].rdeps = make(map[string]*set.Set[string])
	}
	return c
}

func (c *Collector) shard(name string) *shard {
	h := maphash.String(c.seed, name)
	return &c.shards[h%uint64(len(c.shards))]
}

func insert(m map[string]*set.Set[string], k, v string) {
	s, ok := m[k]
	if !ok {
		s = set.New[string](4)
		m[k] = s
	}
	s.Insert(v)
}

func (c *Collector) DependsOn(from, to string) {
	if from == to {
		return
	}
	sf := c.shard(from)
	sf.mu.Lock()
	insert(sf.deps, from, to)
	sf.mu.Unlock()

	st := c.shard(to)
	st.mu.Lock()
	insert(st.rdeps, to, from)
	st.mu.Unlock()
}

func sorted(s *set.Set[string]) []string {
	if s == nil {
		return nil
	}
	out := s.Slice()
	slices.Sort(out)
	return out
}

// GetDependencies lists what name refers to, sorted.
func (c *Collector) GetDependencies(name string) []string {
	sh := c.shard(name)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sorted(sh.deps[name])
}

// Dependents lists the definitions that refer to name directly, sorted.
func (c *Collector) Dependents(name string) []string {
	sh := c.shard(name)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sorted(sh.rdeps[name])
}

// Update invalidates name and everything that depends on it transitively.
// It returns the invalidated names, sorted, name included. The outgoing
// edges of invalidated definitions are dropped: checking them again
// records fresh ones.
func (c *Collector) Update(name string) []string {
	seen := set.From([]string{name})
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range c.Dependents(cur) {
			if seen.Insert(d) {
				queue = append(queue, d)
			}
		}
	}
	for d := range seen.Items() {
		c.forget(d)
	}
	return sorted(seen)
}

func (c *Collector) forget(name string) {
	sh := c.shard(name)
	sh.mu.Lock()
	out := sh.deps[name]
	delete(sh.deps, name)
	sh.mu.Unlock()
	if out == nil {
		return
	}
	for to := range out.Items() {
		st := c.shard(to)
		st.mu.Lock()
		if s, ok := st.rdeps[to]; ok {
			s.Remove(name)
			if s.Empty() {
				delete(st.rdeps, to)
			}
		}
		st.mu.Unlock()
	}
}

// Len is the number of definitions with recorded dependencies.
func (c *Collector) Len() int {
	n := 0
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.RLock()
		n += len(sh.deps)
		sh.mu.RUnlock()
	}
	return n
}
