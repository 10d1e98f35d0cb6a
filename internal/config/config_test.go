package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func write(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := write(t, t.TempDir(), `
[check]
jobs = 3
timeout = "90s"

[solver]
max_steps = 5000

[trace]
level = "phase"
mode = "ring"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.Check.Jobs != 3 || cfg.Check.Timeout != 90*time.Second {
		t.Fatalf("check section not applied: %+v", cfg.Check)
	}
	if cfg.Check.MaxDiagnostics != def.Check.MaxDiagnostics {
		t.Fatalf("missing keys must keep the defaults, got %d", cfg.Check.MaxDiagnostics)
	}
	if cfg.Solver.MaxSteps != 5000 || cfg.Solver.PollInterval != def.Solver.PollInterval {
		t.Fatalf("solver section: %+v", cfg.Solver)
	}
	if cfg.Trace.Level != "phase" || cfg.Trace.Mode != "ring" || cfg.Trace.RingSize != def.Trace.RingSize {
		t.Fatalf("trace section: %+v", cfg.Trace)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"jobs":    "[check]\njobs = 0\n",
		"timeout": "[check]\ntimeout = \"soon\"\n",
		"unknown": "[check]\nthreads = 4\n",
		"poll":    "[solver]\npoll_interval = -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, t.TempDir(), body))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := write(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("find: %v %v", ok, err)
	}
	if got != want {
		t.Fatalf("found %s, want %s", got, want)
	}
}
