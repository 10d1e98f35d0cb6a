package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"kappa/internal/diag"
	"kappa/internal/source"
)

func mismatch(fs *source.FileSet, path string) *diag.Bag {
	file := fs.Add(path, 64)
	bag := diag.NewBag(10)
	d := diag.New(diag.SevError, diag.TCTypeMismatch, source.Span{File: file, Start: 8, End: 12}, "type mismatch")
	d.Definition = "five"
	d = d.WithNote(source.Span{File: file, Start: 2, End: 4}, "expected Nat")
	d = d.WithNote(source.NoSpan, "actual \\Type")
	bag.Add(d)
	bag.Add(diag.New(diag.SevWarning, diag.TCRedundantClause, source.Span{File: file, Start: 20, End: 30}, "redundant clause"))
	return bag
}

func TestPathModes(t *testing.T) {
	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/src/test.json"},
		{"Relative path", PathModeRelative, "src/test.json:8-12"},
		{"Basename only", PathModeBasename, "test.json:8-12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := source.NewFileSet()
			bag := mismatch(fs, "/home/user/project/src/test.json")
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user/project"})
			output := buf.String()
			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.contains, output)
			}
			if !strings.Contains(output, "ERROR TC3001 [five]: type mismatch") {
				t.Errorf("Expected the error line, got:\n%s", output)
			}
			if strings.Contains(output, "note:") {
				t.Errorf("notes are off by default:\n%s", output)
			}
		})
	}
}

func TestPathModeAuto(t *testing.T) {
	short := formatPath("test.json", PathModeAuto, "")
	long := formatPath("/very/long/absolute/path/to/some/nested/directory/file.json", PathModeAuto, "")
	if short != "test.json" || long != "file.json" {
		t.Fatalf("auto paths: %q %q", short, long)
	}
	if mode, ok := ParsePathMode("Basename"); !ok || mode != PathModeBasename {
		t.Fatalf("ParsePathMode: %v %v", mode, ok)
	}
}

func TestPrettyNotesAndSummary(t *testing.T) {
	fs := source.NewFileSet()
	bag := mismatch(fs, "test.json")
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true, Summary: true})
	output := buf.String()
	for _, want := range []string{
		"  note: test.json:2-4: expected Nat\n",
		"  note: actual \\Type\n",
		"WARNING TC3020: redundant clause",
		"1 error, 1 warning\n",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in:\n%s", want, output)
		}
	}
}

func TestPrettyColor(t *testing.T) {
	fs := source.NewFileSet()
	var plain, colored bytes.Buffer
	Pretty(&plain, mismatch(fs, "a.json"), fs, PrettyOpts{})
	Pretty(&colored, mismatch(fs, "a.json"), fs, PrettyOpts{Color: true})
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("escape codes without color:\n%q", plain.String())
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("no escape codes with color:\n%q", colored.String())
	}
}
