package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"kappa/internal/core"
	"kappa/internal/prelude"
)

func newPreludeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prelude",
		Short: "List the builtin definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("KIND", "NAME", "PARAMS", "TYPE")
			for _, def := range prelude.Get().Definitions() {
				t.Row(def.DefKind().String(), def.Name(), fmt.Sprint(def.Parameters().Len()), signature(def))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
}

// signature is the result type of a function or field and the sort of a
// data type.
func signature(def core.Definition) string {
	switch d := def.(type) {
	case *core.DataDef:
		return d.Sort.String()
	case *core.Constructor:
		return d.Data.Name()
	case *core.FunctionDef:
		if d.ResultType.IsValid() {
			return core.Format(d.ResultType.Expr)
		}
	case *core.ClassField:
		if d.Type.IsValid() {
			return core.Format(d.Type.Expr)
		}
	}
	return ""
}
