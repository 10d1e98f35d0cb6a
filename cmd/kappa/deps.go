package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kappa/internal/diag"
	"kappa/internal/driver"
	"kappa/internal/prelude"
	"kappa/internal/source"
	"kappa/internal/typecheck"
)

type depsPayload struct {
	Module  string     `json:"module"`
	Batches [][]string `json:"batches"`
	Cycles  []string   `json:"cycles,omitempty"`
}

func newDepsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "deps FILE",
		Short: "Print the order in which definitions are checked",
		Long: `deps prints the dependency batches of a resolved module. Definitions of
one batch do not depend on each other and are checked in parallel.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := source.NewFileSet()
			color, err := useColor(cmd)
			if err != nil {
				return err
			}
			out := outputs{cmd: cmd, format: "pretty", color: color, withNotes: true}
			mod, failure := loadModule(fs, args[0])
			if failure != nil {
				bag := diag.NewBag(1)
				bag.Add(*failure)
				if err := out.render(bag, fs); err != nil {
					return err
				}
				return exitError{code: 1}
			}
			plan := driver.NewPlan(mod, typecheck.NewRegistry(prelude.Get()), settings.Check.MaxDiagnostics)
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(depsPayload{Module: mod.Name, Batches: plan.Batches(), Cycles: plan.Cycles()})
			}
			for i, batch := range plan.Batches() {
				fmt.Fprintf(w, "batch %d: %s\n", i+1, strings.Join(batch, ", "))
			}
			if cycles := plan.Cycles(); len(cycles) > 0 {
				fmt.Fprintf(w, "cycle: %s\n", strings.Join(cycles, ", "))
			}
			bag := diag.NewBag(0)
			for _, name := range declNames(mod) {
				bag.Merge(plan.Bags[name])
			}
			bag.Dedup()
			bag.Sort()
			if err := out.render(bag, fs); err != nil {
				return err
			}
			if bag.HasErrors() {
				return exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the batches as JSON")
	return cmd
}
