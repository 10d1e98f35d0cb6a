package diag

import (
	"kappa/internal/source"
)

// Reporter receives the diagnostics of one definition. Checkers are
// single-threaded, so implementations need no locking.
type Reporter interface {
	Report(d Diagnostic)
}

// ReportBuilder collects notes before the diagnostic is sent.
//
//	diag.ReportError(rep, diag.TCTypeMismatch, sp, "type mismatch").
//		WithNote(sp, "expected Nat").
//		Emit()
type ReportBuilder struct {
	to      Reporter
	d       Diagnostic
	emitted bool
}

func ReportError(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return &ReportBuilder{to: r, d: NewError(code, primary, msg)}
}

func ReportWarning(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return &ReportBuilder{to: r, d: New(SevWarning, code, primary, msg)}
}

func (b *ReportBuilder) WithNote(sp source.Span, msg string) *ReportBuilder {
	if b != nil {
		b.d = b.d.WithNote(sp, msg)
	}
	return b
}

// Emit sends the diagnostic. Later calls do nothing.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	b.emitted = true
	if b.to != nil {
		b.to.Report(b.d)
	}
}

// BagReporter adds to Bag, attributing every entry to Definition.
type BagReporter struct {
	Bag        *Bag
	Definition string
}

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	if d.Definition == "" {
		d.Definition = r.Definition
	}
	r.Bag.Add(d)
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}
