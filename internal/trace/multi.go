package trace

import "errors"

// MultiTracer fans events out to several tracers. Its level is the most
// verbose of theirs; each tracer still filters on its own.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

func NewMultiTracer(tracers ...Tracer) *MultiTracer {
	m := &MultiTracer{tracers: tracers}
	for _, t := range tracers {
		m.level = max(m.level, t.Level())
	}
	return m
}

func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		// Sinks may rewrite fields such as Seq.
		cp := *ev
		tr.Emit(&cp)
	}
}

func (t *MultiTracer) Flush() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Close() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Level() Level  { return t.level }
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }
