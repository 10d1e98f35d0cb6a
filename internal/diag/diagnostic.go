package diag

import (
	"kappa/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one finding of the checker. Message stays short; the
// failing normal forms of a mismatch travel in Notes so the renderer can
// lay them out.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	// Definition is the name of the definition being checked, empty for
	// driver-level findings.
	Definition string
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// Fatal reports whether the diagnostic aborts the whole definition rather
// than a single subexpression.
func (d Diagnostic) Fatal() bool {
	return d.Code.Fatal()
}
