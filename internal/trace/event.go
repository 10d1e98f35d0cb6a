package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope is the granularity of an event. Coarser scopes have lower values.
type Scope uint8

const (
	// ScopeDriver covers a whole check session.
	ScopeDriver Scope = iota + 1
	// ScopePass covers a phase (load, order) or one dependency batch.
	ScopePass
	// ScopeDefinition covers the check of one definition.
	ScopeDefinition
	// ScopeNode covers solver and normaliser work inside a definition.
	ScopeNode
)

func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopePass:
		return "pass"
	case ScopeDefinition:
		return "definition"
	case ScopeNode:
		return "node"
	default:
		return "unknown"
	}
}

// Event is one trace record. Def names the definition under check, if
// any; Elapsed is set on span ends.
type Event struct {
	Time     time.Time     `msgpack:"time"`
	Seq      uint64        `msgpack:"seq"`
	Kind     Kind          `msgpack:"kind"`
	Scope    Scope         `msgpack:"scope"`
	SpanID   uint64        `msgpack:"span"`
	ParentID uint64        `msgpack:"parent,omitempty"`
	Def      string        `msgpack:"def,omitempty"`
	Name     string        `msgpack:"name"` // "batch 2", "check:plus", "solve"
	Detail   string        `msgpack:"detail,omitempty"`
	Elapsed  time.Duration `msgpack:"elapsed,omitempty"`
}
