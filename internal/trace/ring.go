package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the last N events in memory.
type RingTracer struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
	level  Level
}

func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[t.next] = *ev
	t.next++
	if t.next == len(t.events) {
		t.next, t.full = 0, true
	}
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	return t.Filter(nil)
}

// Definition returns the stored events attributed to def, oldest first.
func (t *RingTracer) Definition(def string) []Event {
	return t.Filter(func(ev *Event) bool { return ev.Def == def })
}

// Filter returns the stored events accepted by keep (all when nil).
func (t *RingTracer) Filter(keep func(*Event) bool) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Event
	add := func(evs []Event) {
		for i := range evs {
			if keep == nil || keep(&evs[i]) {
				out = append(out, evs[i])
			}
		}
	}
	if t.full {
		add(t.events[t.next:])
	}
	add(t.events[:t.next])
	return out
}

// Dump writes the stored events to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	return WriteEvents(w, t.Snapshot(), format)
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
