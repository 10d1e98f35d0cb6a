package diag

import (
	"cmp"
	"slices"

	"kappa/internal/source"
)

const maxBag = int(^uint16(0))

// Bag collects the diagnostics of one definition or one run, up to a
// limit.
type Bag struct {
	items []Diagnostic
	limit int
}

// NewBag returns a bag keeping at most limit diagnostics; limit <= 0
// means 65535.
func NewBag(limit int) *Bag {
	if limit <= 0 || limit > maxBag {
		limit = maxBag
	}
	return &Bag{items: make([]Diagnostic, 0, min(limit, 16)), limit: limit}
}

// Add appends d and reports whether it fit under the limit.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.limit {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Len() int { return len(b.items) }

// Items returns the backing slice. Callers must not modify it.
func (b *Bag) Items() []Diagnostic { return b.items }

func isError(d Diagnostic) bool { return d.Severity >= SevError }

func (b *Bag) HasErrors() bool { return slices.ContainsFunc(b.items, isError) }

// HasFatal reports whether an error aborted the whole definition.
func (b *Bag) HasFatal() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return isError(d) && d.Fatal() })
}

// First returns the first error, if any.
func (b *Bag) First() (Diagnostic, bool) {
	if i := slices.IndexFunc(b.items, isError); i >= 0 {
		return b.items[i], true
	}
	return Diagnostic{}, false
}

// Merge appends the diagnostics of other, raising the limit to fit them.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.limit = max(b.limit, min(len(b.items)+len(other.items), maxBag))
	for _, d := range other.items {
		b.Add(d)
	}
}

// Sort orders by file, span, severity (errors first), code and
// definition.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
			cmp.Compare(x.Definition, y.Definition),
		)
	})
}

// Filter returns a bag with the diagnostics of at least min severity.
func (b *Bag) Filter(min Severity) *Bag {
	out := &Bag{limit: b.limit}
	for _, d := range b.items {
		if d.Severity >= min {
			out.items = append(out.items, d)
		}
	}
	return out
}

// Dedup keeps the first of the diagnostics sharing code, span and
// message, whatever definition reported them.
func (b *Bag) Dedup() {
	type key struct {
		code Code
		span source.Span
		msg  string
	}
	seen := make(map[key]bool, len(b.items))
	b.items = slices.DeleteFunc(b.items, func(d Diagnostic) bool {
		k := key{d.Code, d.Primary, d.Message}
		if seen[k] {
			return true
		}
		seen[k] = true
		return false
	})
}
