package diag

import (
	"fmt"
	"sort"
	"strings"

	"kappa/internal/source"
)

type shortDiagnostic struct {
	Severity   string
	Code       string
	Path       string
	Start      uint32
	End        uint32
	Definition string
	Message    string
}

// FormatShort renders diagnostics one per line in a stable order, suitable
// for golden comparisons and the CLI short output. Notes are appended as
// indented lines when includeNotes is set.
func FormatShort(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	rendered := make([]shortDiagnostic, 0, len(diags))
	notes := make(map[int][]string)
	for _, d := range diags {
		rendered = append(rendered, shortDiagnostic{
			Severity:   strings.ToLower(d.Severity.String()),
			Code:       d.Code.ID(),
			Path:       fs.Path(d.Primary.File),
			Start:      d.Primary.Start,
			End:        d.Primary.End,
			Definition: d.Definition,
			Message:    d.Message,
		})
		if includeNotes && len(d.Notes) > 0 {
			lines := make([]string, 0, len(d.Notes))
			for _, n := range d.Notes {
				lines = append(lines, "  note: "+n.Msg)
			}
			notes[len(rendered)-1] = lines
		}
	}

	order := make([]int, len(rendered))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		di, dj := rendered[order[a]], rendered[order[b]]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Start != dj.Start {
			return di.Start < dj.Start
		}
		if di.Definition != dj.Definition {
			return di.Definition < dj.Definition
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	for i, idx := range order {
		d := rendered[idx]
		fmt.Fprintf(&b, "%s %s %s:%d-%d", d.Severity, d.Code, d.Path, d.Start, d.End)
		if d.Definition != "" {
			fmt.Fprintf(&b, " [%s]", d.Definition)
		}
		b.WriteByte(' ')
		b.WriteString(d.Message)
		for _, n := range notes[idx] {
			b.WriteByte('\n')
			b.WriteString(n)
		}
		if i < len(order)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
