package version

import (
	"strings"
	"testing"
)

func TestBannerPlain(t *testing.T) {
	orig, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = orig, origCommit, origDate })

	Version, GitCommit, BuildDate = "1.2.3", "", ""
	if got := Banner(false); got != "kappa 1.2.3" {
		t.Fatalf("Banner = %q", got)
	}
	Version, GitCommit, BuildDate = "1.2.3-rc1", "abc123", "2024-01-15T10:30:00Z"
	if got := Banner(false); got != "kappa 1.2.3-rc1 (abc123) built 2024-01-15T10:30:00Z" {
		t.Fatalf("Banner = %q", got)
	}
}

func TestBannerColored(t *testing.T) {
	if got := Banner(true); !strings.Contains(got, "\x1b[") {
		t.Fatalf("expected escape codes in %q", got)
	}
}
