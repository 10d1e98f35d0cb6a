// Package version carries the build information of the kappa CLI. The
// variables can be overridden at build time via -ldflags.
package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Banner renders "kappa <version>" followed by the optional commit and
// build date. With colored set the version parts are highlighted.
func Banner(colored bool) string {
	attrs := []color.Attribute{color.FgYellow, color.FgGreen, color.FgBlue}
	core, pre, _ := strings.Cut(Version, "-")
	parts := strings.Split(core, ".")
	for i, p := range parts {
		c := color.New(attrs[i%len(attrs)], color.Bold)
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		parts[i] = c.Sprint(p)
	}
	out := "kappa " + strings.Join(parts, ".")
	if pre != "" {
		out += "-" + pre
	}
	if GitCommit != "" {
		out += fmt.Sprintf(" (%s)", GitCommit)
	}
	if BuildDate != "" {
		out += " built " + BuildDate
	}
	return out
}
