package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var (
	seq   atomic.Uint64
	spans atomic.Uint64
)

// NextSeq returns a process-wide increasing sequence number.
func NextSeq() uint64 { return seq.Add(1) }

// SpanContext identifies the enclosing span and the definition it
// belongs to. It travels in the context between the driver and the
// checker.
type SpanContext struct {
	SpanID uint64
	Def    string
}

// Span is an open span. Spans filtered out by the level are inert.
type Span struct {
	tracer  Tracer
	ctx     SpanContext
	parent  uint64
	scope   Scope
	name    string
	started time.Time
}

// Begin opens a span under parent and inherits its definition.
func Begin(t Tracer, scope Scope, name string, parent SpanContext) *Span {
	return begin(t, scope, name, parent, parent.Def)
}

// BeginDefinition opens the span of the check of def.
func BeginDefinition(t Tracer, def string, parent SpanContext) *Span {
	return begin(t, ScopeDefinition, "check:"+def, parent, def)
}

func begin(t Tracer, scope Scope, name string, parent SpanContext, def string) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		// Keep the attribution so points below still name the definition.
		return &Span{tracer: Nop, ctx: SpanContext{SpanID: parent.SpanID, Def: def}}
	}
	s := &Span{
		tracer:  t,
		ctx:     SpanContext{SpanID: spans.Add(1), Def: def},
		parent:  parent.SpanID,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	t.Emit(&Event{
		Time:     s.started,
		Seq:      NextSeq(),
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.ctx.SpanID,
		ParentID: s.parent,
		Def:      def,
		Name:     name,
	})
	return s
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return 0
	}
	dur := time.Since(s.started)
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.ctx.SpanID,
		ParentID: s.parent,
		Def:      s.ctx.Def,
		Name:     s.name,
		Detail:   detail,
		Elapsed:  dur,
	})
	return dur
}

// Context is the SpanContext that children of s should use.
func (s *Span) Context() SpanContext {
	if s == nil {
		return SpanContext{}
	}
	return s.ctx
}

func (s *Span) ID() uint64 { return s.Context().SpanID }

// Point emits an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent SpanContext) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent.SpanID,
		Def:      parent.Def,
		Name:     name,
		Detail:   detail,
	})
}

type tracerKey struct{}
type spanKey struct{}

// FromContext returns the tracer of ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// CurrentSpan returns the span context stored by WithSpan.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	sc, _ := ctx.Value(spanKey{}).(SpanContext)
	return sc
}

// WithSpan makes s the parent of the spans opened under ctx.
func WithSpan(ctx context.Context, s *Span) context.Context {
	return context.WithValue(ctx, spanKey{}, s.Context())
}
