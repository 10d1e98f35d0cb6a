package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

func TestLevelFiltersScopes(t *testing.T) {
	ring := NewRingTracer(16, LevelDetail)
	span := BeginDefinition(ring, "plus", SpanContext{})
	Point(ring, ScopeNode, "solve", "dropped at detail level", span.Context())
	span.End("checked")

	events := ring.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected begin+end, got %d events", len(events))
	}
	if events[0].Kind != KindSpanBegin || events[1].Kind != KindSpanEnd {
		t.Fatalf("unexpected kinds %v %v", events[0].Kind, events[1].Kind)
	}
	if events[1].Detail != "checked" || events[1].Def != "plus" || events[1].Name != "check:plus" {
		t.Fatalf("end event: %+v", events[1])
	}
}

func TestFilteredSpanKeepsAttribution(t *testing.T) {
	ring := NewRingTracer(16, LevelDebug)
	phase := NewRingTracer(16, LevelPhase)
	multi := NewMultiTracer(phase, ring)
	if multi.Level() != LevelDebug {
		t.Fatalf("multi level %v", multi.Level())
	}
	// phase drops the definition span but ring still sees the point.
	span := BeginDefinition(phase, "plus", SpanContext{SpanID: 3})
	if span.ID() != 3 || span.Context().Def != "plus" {
		t.Fatalf("inert span context: %+v", span.Context())
	}
	Point(multi, ScopeNode, "solve", "?x := zero", span.Context())
	got := ring.Definition("plus")
	if len(got) != 1 || got[0].ParentID != 3 {
		t.Fatalf("point not attributed: %+v", got)
	}
	if len(phase.Snapshot()) != 0 {
		t.Fatalf("phase level recorded node events")
	}
}

func TestRingWrapsAndFilters(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for i, name := range []string{"a", "b", "c", "d"} {
		def := "even"
		if i%2 == 1 {
			def = "odd"
		}
		Point(ring, ScopeNode, name, "", SpanContext{Def: def})
	}
	events := ring.Snapshot()
	if len(events) != 3 || events[0].Name != "b" || events[2].Name != "d" {
		t.Fatalf("unexpected snapshot %+v", events)
	}
	odd := ring.Definition("odd")
	if len(odd) != 2 || odd[0].Name != "b" || odd[1].Name != "d" {
		t.Fatalf("definition filter: %+v", odd)
	}
}

func TestStreamFormats(t *testing.T) {
	var text bytes.Buffer
	st := NewStreamTracer(&text, LevelDebug, FormatText)
	span := Begin(st, ScopePass, "batch 1", SpanContext{})
	Point(st, ScopeNode, "solve", "?x := zero", SpanContext{SpanID: span.ID(), Def: "plus"})
	span.End("")
	if err := st.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("text output: %q", text.String())
	}
	if !strings.Contains(lines[1], "• solve [plus] (?x := zero)") {
		t.Fatalf("point line: %q", lines[1])
	}
	if !strings.Contains(lines[2], "← batch 1 ") {
		t.Fatalf("end line: %q", lines[2])
	}

	var nd bytes.Buffer
	js := NewStreamTracer(&nd, LevelDebug, FormatNDJSON)
	Point(js, ScopeNode, "defer", "stuck", SpanContext{SpanID: 7, Def: "f"})
	_ = js.Flush()
	var je jsonEvent
	if err := json.Unmarshal(nd.Bytes(), &je); err != nil {
		t.Fatalf("ndjson: %v", err)
	}
	if je.Def != "f" || je.Kind != "point" || je.ParentID != 7 {
		t.Fatalf("ndjson event %+v", je)
	}

	var packed bytes.Buffer
	mp := NewStreamTracer(&packed, LevelDebug, FormatMsgpack)
	Point(mp, ScopeNode, "defer", "stuck", SpanContext{SpanID: 7, Def: "f"})
	_ = mp.Flush()
	var ev Event
	if err := msgpack.Unmarshal(packed.Bytes(), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Name != "defer" || ev.ParentID != 7 || ev.Kind != KindPoint || ev.Def != "f" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestStreamKeepsWriteError(t *testing.T) {
	st := NewStreamTracer(failingWriter{}, LevelDebug, FormatText)
	for range 2000 {
		Point(st, ScopeNode, "solve", strings.Repeat("x", 16), SpanContext{})
	}
	if err := st.Close(); err == nil {
		t.Fatalf("expected the write error on close")
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop tracer by default")
	}
	ring := NewRingTracer(4, LevelPhase)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
	span := Begin(ring, ScopeDriver, "check demo", CurrentSpan(ctx))
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx).SpanID != span.ID() || span.ID() == 0 {
		t.Fatalf("span context not propagated")
	}
}

func TestNewSetups(t *testing.T) {
	off, err := New(Config{Level: LevelOff})
	if err != nil || off.Tracer != Nop {
		t.Fatalf("off: %v %v", off, err)
	}

	var out bytes.Buffer
	both, err := New(Config{Level: LevelDetail, Mode: ModeBoth, Output: &out})
	if err != nil {
		t.Fatalf("both: %v", err)
	}
	if both.Ring == nil || both.Format != FormatText {
		t.Fatalf("both setup: %+v", both)
	}
	BeginDefinition(both.Tracer, "f", SpanContext{}).End("checked")
	if err := both.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !strings.Contains(out.String(), "check:f") || len(both.Ring.Snapshot()) != 2 {
		t.Fatalf("events missing: %q", out.String())
	}

	path := filepath.Join(t.TempDir(), "run.ndjson")
	errOnly, err := New(Config{Level: LevelError, Mode: ModeStream, OutputPath: path})
	if err != nil {
		t.Fatalf("error level: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("error level must not open the output before a dump")
	}
	BeginDefinition(errOnly.Tracer, "loop", SpanContext{})
	if err := errOnly.DumpRing(); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if err := errOnly.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), `"def":"loop"`) {
		t.Fatalf("dumped ring: %q %v", data, err)
	}
}

type recordingTracer struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingTracer) Emit(ev *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *ev)
}
func (r *recordingTracer) Flush() error  { return nil }
func (r *recordingTracer) Close() error  { return nil }
func (r *recordingTracer) Level() Level  { return LevelPhase }
func (r *recordingTracer) Enabled() bool { return true }

func TestHeartbeatReportsStatus(t *testing.T) {
	rec := &recordingTracer{}
	hb := StartHeartbeat(rec, time.Millisecond, func() string { return "3/4 definitions done" })
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec.mu.Lock()
		n := len(rec.events)
		rec.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) == 0 {
		t.Fatalf("no heartbeat")
	}
	if ev := rec.events[0]; ev.Kind != KindHeartbeat || ev.Detail != "#1 3/4 definitions done" {
		t.Fatalf("heartbeat %+v", ev)
	}
	if StartHeartbeat(Nop, time.Millisecond, nil) != nil {
		t.Fatalf("disabled tracers get no heartbeat")
	}
}

func TestParseHelpers(t *testing.T) {
	if l, err := ParseLevel("DEBUG"); err != nil || l != LevelDebug {
		t.Fatalf("ParseLevel: %v %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if m, err := ParseMode("Both"); err != nil || m != ModeBoth {
		t.Fatalf("ParseMode: %v %v", m, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat: %v %v", f, err)
	}
	if detectFormat("out.NDJSON") != FormatNDJSON || detectFormat("trace.log") != FormatText || detectFormat("") != FormatText {
		t.Fatalf("detectFormat mismatch")
	}
}
