package driver

import (
	"fmt"
	"time"
)

// Status is the progress of one definition within a run.
type Status uint8

const (
	StatusQueued Status = iota
	StatusChecking
	StatusChecked
	StatusHasErrors
	// StatusSkipped marks a definition that was not checked because it or
	// one of its dependencies could not be ordered or failed to resolve.
	StatusSkipped
	// StatusStale marks a result dropped because a dependency was
	// invalidated while it was in flight. The next run checks it again.
	StatusStale
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusChecking:
		return "checking"
	case StatusChecked:
		return "checked"
	case StatusHasErrors:
		return "errors"
	case StatusSkipped:
		return "skipped"
	case StatusStale:
		return "stale"
	case StatusInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Final reports whether no further event follows s for the definition in
// the current run.
func (s Status) Final() bool {
	return s >= StatusChecked
}

// Event describes a status change of one definition. Elapsed is the time
// spent checking it, zero for queued and checking events.
type Event struct {
	Def     string
	Status  Status
	Elapsed time.Duration
}

// ProgressSink receives events from concurrent workers and must be safe
// for concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(Event)

func (f ProgressFunc) OnEvent(ev Event) { f(ev) }

// ChannelSink forwards events to a channel, blocking when it is full.
type ChannelSink chan<- Event

func (c ChannelSink) OnEvent(ev Event) { c <- ev }

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
