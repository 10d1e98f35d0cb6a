package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"kappa/internal/diag"
	"kappa/internal/source"
)

// Pretty writes one block per diagnostic in bag order (callers sort the
// bag first):
//
//	<path>:<start>-<end>: ERROR TC3001 [def]: message
//	  note: <path>:<start>-<end>: note message
//
// Spans are byte ranges of the resolved input; synthesized spans print
// as <builtin>.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	style := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	var (
		errorColor   = style(color.FgRed, color.Bold)
		warningColor = style(color.FgYellow, color.Bold)
		infoColor    = style(color.FgCyan, color.Bold)
		codeColor    = style(color.Bold)
		noteColor    = style(color.FgBlue)
	)
	paint := func(c *color.Color, s string) string { return c.Sprint(s) }
	var errs, warns int
	for _, d := range bag.Items() {
		sevColor := infoColor
		switch d.Severity {
		case diag.SevError:
			sevColor = errorColor
			errs++
		case diag.SevWarning:
			sevColor = warningColor
			warns++
		}
		def := ""
		if d.Definition != "" {
			def = " [" + d.Definition + "]"
		}
		fmt.Fprintf(w, "%s: %s %s%s: %s\n",
			location(d.Primary, fs, opts.PathMode, opts.BaseDir),
			paint(sevColor, d.Severity.String()),
			paint(codeColor, d.Code.ID()),
			def,
			d.Message)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			if n.Span == source.NoSpan {
				fmt.Fprintf(w, "  %s %s\n", paint(noteColor, "note:"), n.Msg)
				continue
			}
			fmt.Fprintf(w, "  %s %s: %s\n", paint(noteColor, "note:"),
				location(n.Span, fs, opts.PathMode, opts.BaseDir), n.Msg)
		}
	}
	if opts.Summary {
		fmt.Fprintf(w, "%s, %s\n", plural(errs, "error"), plural(warns, "warning"))
	}
}

func location(sp source.Span, fs *source.FileSet, mode PathMode, base string) string {
	if sp == source.NoSpan {
		return "<builtin>"
	}
	path := formatPath(fs.Path(sp.File), mode, base)
	return fmt.Sprintf("%s:%d-%d", path, sp.Start, sp.End)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
