// Package trace records what the checker does and how long it takes.
//
// Spans open and close around the session, each dependency batch and
// each definition; point events mark solver decisions (an inference
// variable solved, an equation deferred). Every event carries the
// definition it belongs to, so the events of one definition can be
// pulled out of a run where many are checked in parallel.
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.BeginDefinition(trace.FromContext(ctx), "plus", trace.CurrentSpan(ctx))
//	defer span.End("")
//
// Levels: off, error (definition spans kept in a ring and written only
// when the run is interrupted), phase (session and batches), detail (one
// span per definition) and debug (solver events).
//
// Tracers: Nop, StreamTracer (text, ndjson or msgpack as events arrive),
// RingTracer (last N events in memory) and MultiTracer.
package trace
