package main

import (
	"fmt"
	"os"
	"strings"
)

// switchMode is the value of the auto|on|off flags (--color, --ui).
type switchMode uint8

const (
	switchAuto switchMode = iota
	switchOn
	switchOff
)

func parseSwitch(flag, value string) (switchMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return switchAuto, nil
	case "on":
		return switchOn, nil
	case "off":
		return switchOff, nil
	}
	return switchAuto, fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// resolve decides an auto switch with the given default.
func (m switchMode) resolve(auto bool) bool {
	switch m {
	case switchOn:
		return true
	case switchOff:
		return false
	}
	return auto
}

// shouldUseTUI keeps auto off for the formats that own stdout.
func shouldUseTUI(mode switchMode, format string) bool {
	return mode.resolve(format == "pretty" && isTerminal(os.Stdout))
}
