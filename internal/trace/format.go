package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is the encoding of written events.
type Format uint8

const (
	FormatAuto    Format = iota // by output file extension
	FormatText                  // one line per event
	FormatNDJSON                // newline-delimited JSON
	FormatMsgpack               // concatenated msgpack maps
)

var formatNames = [...]string{"auto", "text", "ndjson", "msgpack"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "unknown"
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "":
		return FormatAuto, nil
	case "json":
		return FormatNDJSON, nil
	}
	for i, name := range formatNames {
		if strings.EqualFold(s, name) {
			return Format(i), nil
		}
	}
	return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson|msgpack)", s)
}

func detectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ndjson", ".json":
		return FormatNDJSON
	case ".msgpack", ".mp":
		return FormatMsgpack
	default:
		return FormatText
	}
}

// FormatEvent encodes one event. Encoding errors yield nil.
func FormatEvent(ev *Event, format Format) []byte {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(ev)
	case FormatMsgpack:
		data, err := msgpack.Marshal(ev)
		if err != nil {
			return nil
		}
		return data
	default:
		return formatText(ev)
	}
}

// WriteEvents encodes events to w in order.
func WriteEvents(w io.Writer, events []Event, format Format) error {
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

type jsonEvent struct {
	Time      string `json:"time"`
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Scope     string `json:"scope"`
	SpanID    uint64 `json:"span_id,omitempty"`
	ParentID  uint64 `json:"parent_id,omitempty"`
	Def       string `json:"def,omitempty"`
	Name      string `json:"name"`
	Detail    string `json:"detail,omitempty"`
	ElapsedUS int64  `json:"elapsed_us,omitempty"`
}

func formatNDJSON(ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:      ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:       ev.Seq,
		Kind:      ev.Kind.String(),
		Scope:     ev.Scope.String(),
		SpanID:    ev.SpanID,
		ParentID:  ev.ParentID,
		Def:       ev.Def,
		Name:      ev.Name,
		Detail:    ev.Detail,
		ElapsedUS: ev.Elapsed.Microseconds(),
	})
	if err != nil {
		return nil
	}
	return append(data, '\n')
}

var kindMarks = map[Kind]string{
	KindSpanBegin: "→ ",
	KindSpanEnd:   "← ",
	KindPoint:     "• ",
	KindHeartbeat: "♡ ",
}

// formatText renders
//
//	[15:04:05.000000] <indent><mark>name [def] (detail) elapsed
//
// indented by scope depth.
func formatText(ev *Event) []byte {
	var sb strings.Builder
	sb.WriteString(ev.Time.Format("[15:04:05.000000] "))
	if ev.Scope > ScopeDriver {
		sb.WriteString(strings.Repeat("  ", int(ev.Scope-ScopeDriver)))
	}
	sb.WriteString(kindMarks[ev.Kind])
	sb.WriteString(ev.Name)
	if ev.Def != "" && ev.Name != "check:"+ev.Def {
		sb.WriteString(" [" + ev.Def + "]")
	}
	if ev.Detail != "" {
		sb.WriteString(" (" + ev.Detail + ")")
	}
	if ev.Kind == KindSpanEnd {
		sb.WriteString(" " + ev.Elapsed.Round(time.Microsecond).String())
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}
