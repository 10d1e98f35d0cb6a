// Package config reads kappa.toml. Every key is optional; missing keys
// keep the defaults and command-line flags override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file searched for from the working
// directory upwards.
const FileName = "kappa.toml"

var (
	// ErrInvalid wraps every semantic error in a configuration file.
	ErrInvalid = errors.New("invalid configuration")
)

type Config struct {
	// Path is the file the configuration was read from, empty for the
	// defaults.
	Path   string
	Check  Check
	Solver Solver
	Trace  Trace
}

type Check struct {
	Jobs           int
	MaxDiagnostics int
	// Timeout bounds a whole check session; zero means none.
	Timeout time.Duration
}

type Solver struct {
	PollInterval int
	MaxSteps     int
}

type Trace struct {
	Level    string
	Mode     string
	Output   string
	RingSize int
}

// Default is the configuration used without a file.
func Default() Config {
	return Config{
		Check:  Check{Jobs: runtime.GOMAXPROCS(0), MaxDiagnostics: 100},
		Solver: Solver{PollInterval: 256},
		Trace:  Trace{Level: "off", Mode: "stream", Output: "", RingSize: 4096},
	}
}

type fileConfig struct {
	Check struct {
		Jobs           int    `toml:"jobs"`
		MaxDiagnostics int    `toml:"max_diagnostics"`
		Timeout        string `toml:"timeout"`
	} `toml:"check"`
	Solver struct {
		PollInterval int `toml:"poll_interval"`
		MaxSteps     int `toml:"max_steps"`
	} `toml:"solver"`
	Trace struct {
		Level    string `toml:"level"`
		Mode     string `toml:"mode"`
		Output   string `toml:"output"`
		RingSize int    `toml:"ring_size"`
	} `toml:"trace"`
}

// Load reads path on top of the defaults.
func Load(path string) (Config, error) {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: %w: unknown keys %s", path, ErrInvalid, strings.Join(keys, ", "))
	}
	cfg := Default()
	cfg.Path = path
	if meta.IsDefined("check", "jobs") {
		if fc.Check.Jobs < 1 {
			return Config{}, fmt.Errorf("%s: %w: [check].jobs must be positive", path, ErrInvalid)
		}
		cfg.Check.Jobs = fc.Check.Jobs
	}
	if meta.IsDefined("check", "max_diagnostics") {
		if fc.Check.MaxDiagnostics < 0 {
			return Config{}, fmt.Errorf("%s: %w: [check].max_diagnostics must not be negative", path, ErrInvalid)
		}
		cfg.Check.MaxDiagnostics = fc.Check.MaxDiagnostics
	}
	if meta.IsDefined("check", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(fc.Check.Timeout))
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("%s: %w: [check].timeout %q is not a duration", path, ErrInvalid, fc.Check.Timeout)
		}
		cfg.Check.Timeout = d
	}
	if meta.IsDefined("solver", "poll_interval") {
		if fc.Solver.PollInterval < 1 {
			return Config{}, fmt.Errorf("%s: %w: [solver].poll_interval must be positive", path, ErrInvalid)
		}
		cfg.Solver.PollInterval = fc.Solver.PollInterval
	}
	if meta.IsDefined("solver", "max_steps") {
		cfg.Solver.MaxSteps = fc.Solver.MaxSteps
	}
	if meta.IsDefined("trace", "level") {
		cfg.Trace.Level = strings.TrimSpace(fc.Trace.Level)
	}
	if meta.IsDefined("trace", "mode") {
		cfg.Trace.Mode = strings.TrimSpace(fc.Trace.Mode)
	}
	if meta.IsDefined("trace", "output") {
		cfg.Trace.Output = strings.TrimSpace(fc.Trace.Output)
	}
	if meta.IsDefined("trace", "ring_size") {
		cfg.Trace.RingSize = fc.Trace.RingSize
	}
	return cfg, nil
}

// Find looks for FileName in startDir and its parents.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Resolve loads path when given, otherwise the nearest kappa.toml, and
// falls back to the defaults when there is none.
func Resolve(path string) (Config, error) {
	if path != "" {
		return Load(path)
	}
	found, ok, err := Find(".")
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(found)
}
