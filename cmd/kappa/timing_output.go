package main

import (
	"fmt"
	"io"

	"kappa/internal/diag"
	"kappa/internal/observ"
	"kappa/internal/source"
)

func printTimings(out io.Writer, timer *observ.Timer) {
	if out == nil || timer == nil {
		return
	}
	fmt.Fprint(out, timer.Summary())
}

// timingsDiagnostic carries the phases into structured outputs.
func timingsDiagnostic(timer *observ.Timer) diag.Diagnostic {
	report := timer.Report()
	d := diag.New(diag.SevInfo, diag.ObsTimings, source.NoSpan, fmt.Sprintf("total %.2f ms", report.TotalMS))
	for _, p := range report.Phases {
		msg := fmt.Sprintf("%s %.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			msg += " (" + p.Note + ")"
		}
		d = d.WithNote(source.NoSpan, msg)
	}
	return d
}
