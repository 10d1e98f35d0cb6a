package diag

import (
	"fmt"
	"strings"
)

// Severity orders diagnostics; only SevError makes a definition fail.
type Severity uint8

const (
	SevInfo Severity = iota
	// SevWarning marks accepted input that is probably a mistake, such as a
	// clause no input reaches.
	SevWarning
	SevError
)

var severityNames = [...]string{"INFO", "WARNING", "ERROR"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// ParseSeverity accepts the String forms in any case.
func ParseSeverity(s string) (Severity, error) {
	for i, name := range severityNames {
		if strings.EqualFold(s, name) {
			return Severity(i), nil
		}
	}
	return SevInfo, fmt.Errorf("invalid severity %q (expected info|warning|error)", s)
}
