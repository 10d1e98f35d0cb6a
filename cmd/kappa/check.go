package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kappa/internal/concrete"
	"kappa/internal/diag"
	"kappa/internal/diagfmt"
	"kappa/internal/driver"
	"kappa/internal/observ"
	"kappa/internal/prelude"
	"kappa/internal/source"
	"kappa/internal/typecheck"
)

type checkOptions struct {
	format     string
	ui         string
	jobs       int
	invalidate []string
	withNotes  bool
	pathMode   string
	minSev     string
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Typecheck a resolved module",
		Long: `check elaborates every declaration of a resolved module (JSON, or msgpack
for .msgpack/.mp files) in dependency order and reports the diagnostics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "pretty", "output format (pretty|short|json|msgpack)")
	cmd.Flags().StringVar(&opts.ui, "ui", "auto", "progress view (auto|on|off)")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "definitions checked in parallel (default from kappa.toml)")
	cmd.Flags().StringArrayVar(&opts.invalidate, "invalidate", nil, "after checking, invalidate NAME and check again (repeatable)")
	cmd.Flags().BoolVar(&opts.withNotes, "with-notes", true, "include notes")
	cmd.Flags().StringVar(&opts.pathMode, "path-mode", "auto", "path display (auto|absolute|relative|basename)")
	cmd.Flags().StringVar(&opts.minSev, "min-severity", "info", "hide diagnostics below this severity (info|warning|error)")
	return cmd
}

func runCheck(cmd *cobra.Command, path string, opts checkOptions) error {
	switch opts.format {
	case "pretty", "short", "json", "msgpack":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, short, json or msgpack)", opts.format)
	}
	mode, err := parseSwitch("ui", opts.ui)
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	minSev, err := diag.ParseSeverity(opts.minSev)
	if err != nil {
		return err
	}
	out := outputs{cmd: cmd, format: opts.format, withNotes: opts.withNotes}
	if out.pathMode, err = parsePathMode(opts.pathMode); err != nil {
		return err
	}
	if out.color, err = useColor(cmd); err != nil {
		return err
	}

	timer := observ.NewTimer()
	fs := source.NewFileSet()
	phase := timer.Begin("load")
	mod, failure := loadModule(fs, path)
	if failure != nil {
		timer.End(phase, "failed")
		bag := diag.NewBag(1)
		bag.Add(*failure)
		if err := out.render(bag, fs); err != nil {
			return err
		}
		return exitError{code: 1}
	}
	timer.End(phase, fmt.Sprintf("%d declarations", len(mod.Decls)))

	cfg := settings
	if opts.jobs > 0 {
		cfg.Check.Jobs = opts.jobs
	}
	driverOpts := driver.Options{
		Jobs:           cfg.Check.Jobs,
		MaxDiagnostics: cfg.Check.MaxDiagnostics,
		Timeout:        cfg.Check.Timeout,
		Check:          typecheck.Options{PollInterval: cfg.Solver.PollInterval, MaxSteps: cfg.Solver.MaxSteps},
		Timer:          timer,
	}
	tui := shouldUseTUI(mode, opts.format)
	var events chan driver.Event
	progress.next = nil
	if tui {
		events = make(chan driver.Event, 256)
		progress.next = driver.ChannelSink(events)
	}
	driverOpts.Progress = progress
	session := driver.NewSession(typecheck.NewRegistry(prelude.Get()), mod, driverOpts)

	ctx := cmd.Context()
	work := func() (*driver.Report, error) {
		rep, err := session.Check(ctx)
		if err != nil {
			return rep, err
		}
		for _, name := range opts.invalidate {
			if rep, err = session.Invalidate(ctx, name); err != nil {
				return rep, err
			}
		}
		return rep, nil
	}
	var rep *driver.Report
	if tui {
		rep, err = runWithUI("checking "+mod.Name, declNames(mod), events, work)
	} else {
		rep, err = work()
	}

	bag := session.Diagnostics()
	shown := bag.Filter(minSev)
	if showTimings && (opts.format == "json" || opts.format == "msgpack") {
		timings := diag.NewBag(1)
		timings.Add(timingsDiagnostic(timer))
		shown.Merge(timings)
	}
	if renderErr := out.render(shown, fs); renderErr != nil {
		return renderErr
	}
	if opts.format == "pretty" || opts.format == "short" {
		if showTimings {
			printTimings(cmd.ErrOrStderr(), timer)
		}
		if !quiet && rep != nil {
			printSummary(cmd.ErrOrStderr(), rep)
		}
	}
	if err != nil {
		return err
	}
	if bag.HasErrors() {
		return exitError{code: 1}
	}
	return nil
}

func declNames(mod *concrete.Module) []string {
	names := make([]string, 0, len(mod.Decls))
	for _, d := range mod.Decls {
		names = append(names, d.DeclName())
	}
	return names
}

func printSummary(w io.Writer, rep *driver.Report) {
	parts := []string{fmt.Sprintf("%d checked", rep.Count(driver.StatusChecked))}
	for _, st := range []driver.Status{driver.StatusHasErrors, driver.StatusSkipped, driver.StatusStale, driver.StatusInterrupted} {
		if n := rep.Count(st); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, st))
		}
	}
	fmt.Fprintf(w, "%s in %s\n", strings.Join(parts, ", "), rep.Elapsed.Round(time.Microsecond))
}

func parsePathMode(s string) (diagfmt.PathMode, error) {
	mode, ok := diagfmt.ParsePathMode(s)
	if !ok {
		return mode, fmt.Errorf("invalid --path-mode value %q (expected auto|absolute|relative|basename)", s)
	}
	return mode, nil
}

// outputs renders a bag in the format chosen on the command line.
type outputs struct {
	cmd       *cobra.Command
	format    string
	color     bool
	withNotes bool
	pathMode  diagfmt.PathMode
}

func (o outputs) render(bag *diag.Bag, fs *source.FileSet) error {
	w := o.cmd.OutOrStdout()
	switch o.format {
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{PathMode: o.pathMode, IncludeNotes: o.withNotes})
	case "msgpack":
		return diagfmt.Msgpack(w, bag, fs, diagfmt.JSONOpts{PathMode: o.pathMode, IncludeNotes: o.withNotes})
	case "short":
		if bag.Len() > 0 {
			fmt.Fprintln(w, diag.FormatShort(bag.Items(), fs, o.withNotes))
		}
		return nil
	default:
		diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     o.color,
			PathMode:  o.pathMode,
			ShowNotes: o.withNotes,
		})
		return nil
	}
}
