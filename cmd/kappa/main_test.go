package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kappa/internal/config"
	"kappa/internal/diagfmt"
)

const demoModule = `{"schema": 1, "name": "demo", "decls": [
  {"k": "func", "name": "two", "span": [0, 10],
   "result": {"k": "global", "name": "Nat", "span": [5, 8]},
   "body": {"k": "app", "span": [9, 10],
            "fun": {"k": "global", "name": "suc", "span": [9, 10]},
            "args": [{"e": {"k": "global", "name": "one", "span": [9, 10]}}]}},
  {"k": "func", "name": "one", "span": [11, 20],
   "result": {"k": "global", "name": "Nat", "span": [12, 15]},
   "body": {"k": "number", "value": "1", "span": [16, 17]}}%s
]}`

const badDecl = `,
  {"k": "func", "name": "bad", "span": [21, 30],
   "result": {"k": "global", "name": "Nat", "span": [22, 25]},
   "body": {"k": "global", "name": "Nat", "span": [26, 29]}}`

type result struct {
	stdout, stderr string
	err            error
}

func writeModule(t *testing.T, withBad bool) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	extra := ""
	if withBad {
		extra = badDecl
	}
	path = filepath.Join(dir, "demo.json")
	src := strings.Replace(demoModule, "%s", extra, 1)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write module: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte("[check]\njobs = 2\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir, path
}

func run(t *testing.T, dir string, args ...string) result {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--color", "off", "--config", filepath.Join(dir, config.FileName)}, args...))
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func TestCheckCleanModule(t *testing.T) {
	dir, path := writeModule(t, false)
	r := run(t, dir, "check", path)
	if r.err != nil {
		t.Fatalf("check: %v\n%s", r.err, r.stdout)
	}
	if r.stdout != "" {
		t.Fatalf("unexpected diagnostics:\n%s", r.stdout)
	}
	if !strings.Contains(r.stderr, "2 checked") {
		t.Fatalf("summary: %q", r.stderr)
	}
	if settings.Check.Jobs != 2 {
		t.Fatalf("kappa.toml not applied: %+v", settings.Check)
	}
}

func TestCheckReportsJSON(t *testing.T) {
	dir, path := writeModule(t, true)
	r := run(t, dir, "check", path, "--format", "json", "--invalidate", "one")
	var exit exitError
	if !errors.As(r.err, &exit) || exit.code != 1 {
		t.Fatalf("expected exit status 1, got %v", r.err)
	}
	var out diagfmt.DiagnosticsOutput
	if err := json.Unmarshal([]byte(r.stdout), &out); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, r.stdout)
	}
	if out.Count != 1 || out.Diagnostics[0].Code != "TC3001" || out.Diagnostics[0].Definition != "bad" {
		t.Fatalf("diagnostics: %+v", out)
	}
	if out.Diagnostics[0].Location == nil || out.Diagnostics[0].Location.StartByte != 26 {
		t.Fatalf("location: %+v", out.Diagnostics[0].Location)
	}
}

func TestCheckMissingFile(t *testing.T) {
	dir, _ := writeModule(t, false)
	r := run(t, dir, "check", filepath.Join(dir, "missing.json"))
	if r.err == nil || !strings.Contains(r.stdout, "IO6001") {
		t.Fatalf("expected a load error, got %v\n%s", r.err, r.stdout)
	}
}

func TestDepsPrintsBatches(t *testing.T) {
	dir, path := writeModule(t, true)
	r := run(t, dir, "deps", path)
	if r.err != nil {
		t.Fatalf("deps: %v", r.err)
	}
	want := "batch 1: bad, one\nbatch 2: two\n"
	if r.stdout != want {
		t.Fatalf("deps output %q, want %q", r.stdout, want)
	}
}

func TestDumpDefinition(t *testing.T) {
	dir, path := writeModule(t, false)
	r := run(t, dir, "dump", path, "--def", "two")
	if r.err != nil {
		t.Fatalf("dump: %v", r.err)
	}
	if !strings.HasPrefix(r.stdout, "function two [checked]\n  : ") {
		t.Fatalf("header:\n%s", r.stdout)
	}
	if !strings.Contains(r.stdout, "core.FunctionDef") {
		t.Fatalf("spew dump missing:\n%s", r.stdout)
	}
	if r := run(t, dir, "dump", path, "--def", "nothing"); r.err == nil {
		t.Fatalf("unknown definitions are an error")
	}
}

func TestPreludeAndVersion(t *testing.T) {
	dir, _ := writeModule(t, false)
	r := run(t, dir, "prelude")
	if r.err != nil || !strings.Contains(r.stdout, "Nat") || !strings.Contains(r.stdout, "KIND") {
		t.Fatalf("prelude: %v\n%s", r.err, r.stdout)
	}
	r = run(t, dir, "version", "--format", "json")
	if r.err != nil || !strings.Contains(r.stdout, `"tool": "kappa"`) {
		t.Fatalf("version: %v\n%s", r.err, r.stdout)
	}
}

func TestInvalidConfig(t *testing.T) {
	dir, path := writeModule(t, false)
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte("[check]\njobs = 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	r := run(t, dir, "check", path)
	if !errors.Is(r.err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", r.err)
	}
}

func TestProfilesAreWrittenOnFailure(t *testing.T) {
	dir, path := writeModule(t, true)
	cpu := filepath.Join(dir, "cpu.out")
	heap := filepath.Join(dir, "heap.out")
	r := run(t, dir, "--cpu-profile", cpu, "--mem-profile", heap, "check", path, "--format", "json")
	if r.err == nil {
		t.Fatalf("bad module must fail")
	}
	for _, p := range []string{cpu, heap} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Fatalf("profile %s not written: %v", p, err)
		}
	}
}

func TestCheckShortFormat(t *testing.T) {
	dir, path := writeModule(t, true)
	r := run(t, dir, "--quiet", "check", path, "--format", "short")
	if r.err == nil {
		t.Fatalf("bad module must fail")
	}
	if !strings.HasPrefix(r.stdout, "error TC3001 ") || !strings.Contains(r.stdout, ":26-29 [bad] ") {
		t.Fatalf("short output: %q", r.stdout)
	}
	if r.stderr != "" {
		t.Fatalf("--quiet must suppress the summary: %q", r.stderr)
	}
}

func TestDumpEvents(t *testing.T) {
	dir, path := writeModule(t, false)
	r := run(t, dir, "dump", path, "--def", "two", "--events")
	if r.err != nil {
		t.Fatalf("dump: %v", r.err)
	}
	_, events, ok := strings.Cut(r.stdout, "events:\n")
	if !ok {
		t.Fatalf("no events section:\n%s", r.stdout)
	}
	if !strings.Contains(events, "→ check:two") || !strings.Contains(events, "← check:two (checked)") {
		t.Fatalf("definition span missing:\n%s", events)
	}
	if strings.Contains(events, "check:one") {
		t.Fatalf("events of other definitions leaked:\n%s", events)
	}
}

func TestSwitchFlags(t *testing.T) {
	for value, want := range map[string]switchMode{"": switchAuto, "AUTO": switchAuto, "on": switchOn, " off ": switchOff} {
		got, err := parseSwitch("ui", value)
		if err != nil || got != want {
			t.Fatalf("parseSwitch(%q) = %v, %v", value, got, err)
		}
	}
	if _, err := parseSwitch("color", "sometimes"); err == nil || !strings.Contains(err.Error(), "--color") {
		t.Fatalf("expected a --color error, got %v", err)
	}
	if !switchOn.resolve(false) || switchOff.resolve(true) || !switchAuto.resolve(true) {
		t.Fatalf("resolve")
	}
	if shouldUseTUI(switchAuto, "json") {
		t.Fatalf("auto never takes over structured output")
	}
}

func TestMinSeverityHidesErrors(t *testing.T) {
	dir, path := writeModule(t, true)
	r := run(t, dir, "--quiet", "check", path, "--format", "short", "--min-severity", "ERROR")
	if !strings.Contains(r.stdout, "TC3001") {
		t.Fatalf("errors pass an error threshold: %q", r.stdout)
	}
	r = run(t, dir, "check", path, "--min-severity", "fatal")
	if r.err == nil || !strings.Contains(r.err.Error(), "invalid severity") {
		t.Fatalf("expected a severity error, got %v", r.err)
	}
}
