package trace

import (
	"bufio"
	"io"
	"sync"
)

// StreamTracer writes every event as it arrives, buffered. A failing
// sink never fails the check; the first write error is kept for Flush.
type StreamTracer struct {
	mu     sync.Mutex
	w      *bufio.Writer
	level  Level
	format Format
	err    error
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	return &StreamTracer{w: bufio.NewWriter(w), level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	data := FormatEvent(ev, t.format)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(data); err != nil && t.err == nil {
		t.err = err
	}
	// Heartbeats mark liveness; they must be visible while the run hangs.
	if ev.Kind == KindHeartbeat {
		_ = t.w.Flush()
	}
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.w.Flush(); err != nil {
		return err
	}
	return t.err
}

// Close flushes. The underlying writer belongs to the caller.
func (t *StreamTracer) Close() error { return t.Flush() }

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
