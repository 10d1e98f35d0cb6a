package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"

	"kappa/internal/diag"
	"kappa/internal/source"
)

func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSet()
	bag := mismatch(fs, "/tmp/test.json")

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{PathMode: PathModeBasename, IncludeNotes: true}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput: %s", err, buf.String())
	}
	want := DiagnosticJSON{
		Severity:   "ERROR",
		Code:       "TC3001",
		Message:    "type mismatch",
		Definition: "five",
		Location:   &LocationJSON{File: "test.json", StartByte: 8, EndByte: 12},
		Notes: []NoteJSON{
			{Message: "expected Nat", Location: &LocationJSON{File: "test.json", StartByte: 2, EndByte: 4}},
			{Message: "actual \\Type"},
		},
	}
	if output.Count != 2 || output.Errors != 1 {
		t.Fatalf("count=%d errors=%d", output.Count, output.Errors)
	}
	if diff := cmp.Diff(want, output.Diagnostics[0]); diff != "" {
		t.Fatalf("first diagnostic (-want +got):\n%s", diff)
	}
}

func TestJSONMaxAndNotes(t *testing.T) {
	fs := source.NewFileSet()
	out := BuildDiagnosticsOutput(mismatch(fs, "a.json"), fs, JSONOpts{Max: 1})
	if out.Count != 1 {
		t.Fatalf("Max should cut the output, got %d", out.Count)
	}
	if len(out.Diagnostics[0].Notes) != 0 {
		t.Fatalf("notes are opt-in")
	}

	bag := diag.NewBag(1)
	bag.Add(diag.New(diag.SevInfo, diag.ObsTimings, source.NoSpan, "timings").WithNote(source.NoSpan, "check 2ms"))
	out = BuildDiagnosticsOutput(bag, fs, JSONOpts{})
	if len(out.Diagnostics[0].Notes) != 1 || out.Diagnostics[0].Location != nil {
		t.Fatalf("timings always carry their notes: %+v", out.Diagnostics[0])
	}
}

func TestMsgpackUsesJSONKeys(t *testing.T) {
	fs := source.NewFileSet()
	var buf bytes.Buffer
	if err := Msgpack(&buf, mismatch(fs, "a.json"), fs, JSONOpts{}); err != nil {
		t.Fatalf("Msgpack() error: %v", err)
	}
	var raw map[string]any
	if err := msgpack.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	diags, ok := raw["diagnostics"].([]any)
	if !ok || len(diags) != 2 {
		t.Fatalf("diagnostics: %#v", raw["diagnostics"])
	}
	first := diags[0].(map[string]any)
	if first["code"] != "TC3001" || first["definition"] != "five" {
		t.Fatalf("first diagnostic: %#v", first)
	}
	second := diags[1].(map[string]any)
	if _, ok := second["definition"]; ok {
		t.Fatalf("empty fields are omitted: %#v", second)
	}
}
