// Package observ measures the phases of a kappa run (load, order, check)
// for --timings.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type phase struct {
	name  string
	start time.Time
	end   time.Time
	note  string
}

// Timer records named phases in the order they begin. Phases may
// overlap. It is safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	now    func() time.Time
	phases []phase
}

func NewTimer() *Timer { return &Timer{now: time.Now} }

// Begin opens a phase and returns the handle End expects.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, phase{name: name, start: t.now()})
	return len(t.phases) - 1
}

// End closes the phase idx. Unknown handles and phases already closed
// are ignored.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) || !t.phases[idx].end.IsZero() {
		return
	}
	t.phases[idx].end = t.now()
	t.phases[idx].note = note
}

// PhaseReport is one phase of a Report. A phase still open when the
// report is taken is measured up to that moment.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
	Open       bool    `json:"open,omitempty"`
}

// Report is a snapshot of the timer. TotalMS is the wall clock from the
// first phase start to the last phase end.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	var r Report
	if len(t.phases) == 0 {
		return r
	}
	now := t.now()
	first, last := t.phases[0].start, t.phases[0].start
	for _, p := range t.phases {
		end := p.end
		if end.IsZero() {
			end = now
		}
		first = minTime(first, p.start)
		if end.After(last) {
			last = end
		}
		r.Phases = append(r.Phases, PhaseReport{
			Name:       p.name,
			DurationMS: millis(end.Sub(p.start)),
			Note:       p.note,
			Open:       p.end.IsZero(),
		})
	}
	r.TotalMS = millis(last.Sub(first))
	return r
}

// Summary renders the report as an aligned table.
func (t *Timer) Summary() string {
	r := t.Report()
	width := len("total")
	for _, p := range r.Phases {
		width = max(width, len(p.Name))
	}
	var b strings.Builder
	b.WriteString("timings:\n")
	row := func(name string, ms float64, note string) {
		fmt.Fprintf(&b, "  %-*s %9.2f ms", width, name, ms)
		if note != "" {
			b.WriteString("  // " + note)
		}
		b.WriteByte('\n')
	}
	for _, p := range r.Phases {
		note := p.Note
		if p.Open {
			note = "running"
		}
		row(p.Name, p.DurationMS, note)
	}
	row("total", r.TotalMS, "")
	return b.String()
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
