package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"kappa/internal/driver"
	"kappa/internal/prelude"
	"kappa/internal/source"
	"kappa/internal/trace"
	"kappa/internal/typecheck"
)

func newDumpCmd() *cobra.Command {
	var (
		name   string
		depth  int
		events bool
	)
	cmd := &cobra.Command{
		Use:   "dump FILE --def NAME",
		Short: "Dump the checked core tree of a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--def is required")
			}
			fs := source.NewFileSet()
			mod, failure := loadModule(fs, args[0])
			if failure != nil {
				return fmt.Errorf("%s: %s", args[0], failure.Message)
			}
			reg := typecheck.NewRegistry(prelude.Get())
			session := driver.NewSession(reg, mod, driver.Options{
				Jobs:           settings.Check.Jobs,
				MaxDiagnostics: settings.Check.MaxDiagnostics,
				Timeout:        settings.Check.Timeout,
				Check:          typecheck.Options{PollInterval: settings.Solver.PollInterval, MaxSteps: settings.Solver.MaxSteps},
			})
			ctx := cmd.Context()
			var ring *trace.RingTracer
			if events {
				ring = trace.NewRingTracer(settings.Trace.RingSize, trace.LevelDebug)
				ctx = trace.WithTracer(ctx, trace.NewMultiTracer(trace.FromContext(ctx), ring))
			}
			if _, err := session.Check(ctx); err != nil {
				return err
			}
			def := reg.Lookup(name)
			if def == nil {
				return fmt.Errorf("definition %q was not checked", name)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s [%s]\n", def.DefKind(), def.Name(), def.Status())
			if sig := signature(def); sig != "" {
				fmt.Fprintf(w, "  : %s\n", sig)
			}
			cfg := spew.ConfigState{
				Indent:                  "  ",
				MaxDepth:                depth,
				DisablePointerAddresses: true,
				DisableCapacities:       true,
				SortKeys:                true,
			}
			cfg.Fdump(w, def)
			if owner, ok := reg.Owner(name); ok && ring != nil {
				fmt.Fprintln(w, "events:")
				return trace.WriteEvents(w, ring.Definition(owner), trace.FormatText)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "def", "", "definition, constructor or field to dump")
	cmd.Flags().IntVar(&depth, "depth", 8, "maximum nesting depth (0 for unlimited)")
	cmd.Flags().BoolVar(&events, "events", false, "also print the checker and solver events of the definition")
	return cmd
}
