package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kappa/internal/config"
	"kappa/internal/version"
)

var rootCmd = newRootCmd()

// settings is the configuration of the running command: kappa.toml
// overridden by flags. It is resolved before any subcommand runs.
var settings = config.Default()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kappa",
		Short:         "Typechecker for resolved kappa modules",
		Long:          `kappa elaborates and checks the definitions of a resolved module: dependent types, universe levels and pattern-matching definitions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = version.Version

	flags := root.PersistentFlags()
	flags.String("config", "", "path to kappa.toml (default: nearest kappa.toml upwards)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics kept per definition")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	flags.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")

	var (
		stopTracing   func(error)
		stopProfiling func()
	)
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveSettings(cmd)
		if err != nil {
			return err
		}
		settings = cfg
		if stopProfiling, err = setupProfiling(cmd); err != nil {
			return err
		}
		stopTracing, err = setupTracing(cmd, cfg.Trace)
		if err != nil {
			stopProfiling()
		}
		return err
	}

	root.AddCommand(newCheckCmd(), newDepsCmd(), newDumpCmd(), newPreludeCmd(), newVersionCmd())

	// PersistentPostRun is skipped when RunE fails, and check fails on
	// every error diagnostic.
	for _, sub := range root.Commands() {
		run := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if stopTracing != nil {
					stopTracing(err)
				}
				if stopProfiling != nil {
					stopProfiling()
				}
			}()
			return run(cmd, args)
		}
	}
	return root
}

// resolveSettings loads kappa.toml and applies the flags set explicitly.
func resolveSettings(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Resolve(path)
	if err != nil {
		return config.Config{}, err
	}
	if flags.Changed("max-diagnostics") {
		if cfg.Check.MaxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("trace") {
		if cfg.Trace.Output, err = flags.GetString("trace"); err != nil {
			return config.Config{}, err
		}
		if !flags.Changed("trace-level") && cfg.Trace.Level == "off" {
			cfg.Trace.Level = "phase"
		}
	}
	if flags.Changed("trace-level") {
		if cfg.Trace.Level, err = flags.GetString("trace-level"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("trace-mode") {
		if cfg.Trace.Mode, err = flags.GetString("trace-mode"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("trace-ring-size") {
		if cfg.Trace.RingSize, err = flags.GetInt("trace-ring-size"); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

func heartbeat(cmd *cobra.Command) time.Duration {
	d, err := cmd.Root().PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return 0
	}
	return d
}

// useColor resolves --color against the terminal.
func useColor(cmd *cobra.Command) (bool, error) {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	mode, err := parseSwitch("color", value)
	if err != nil {
		return false, err
	}
	return mode.resolve(isTerminal(os.Stdout)), nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// exitError carries a process exit code without a message.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	if err := rootCmd.Execute(); err != nil {
		if ee, ok := err.(exitError); ok {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "kappa:", err)
		os.Exit(1)
	}
}
