package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Typechecking
	TCInfo                Code = 3000
	TCTypeMismatch        Code = 3001
	TCUnsolvedGoal        Code = 3002
	TCArityMismatch       Code = 3003
	TCNotAType            Code = 3004
	TCNotAFunction        Code = 3005
	TCNotASigma           Code = 3006
	TCUnknownDefinition   Code = 3007
	TCUnboundLocal        Code = 3008
	TCNumberOutOfRange    Code = 3009
	TCNotANumberType      Code = 3010
	TCPatternMismatch     Code = 3011
	TCUnknownConstructor  Code = 3012
	TCConstructorPatterns Code = 3013
	TCRecursiveSolution   Code = 3014
	TCScopeEscape         Code = 3015
	TCMetaFailed          Code = 3016
	TCProjectionRange     Code = 3017
	TCPathEndpoint        Code = 3018
	TCExplicitness        Code = 3019
	TCRedundantClause     Code = 3020
	TCImplicitLambda      Code = 3021

	// Levels
	LvlInfo          Code = 4000
	LvlInconsistency Code = 4001
	LvlInfinite      Code = 4002
	LvlArityMismatch Code = 4003

	// Ordering and dependencies
	DepInfo       Code = 5000
	DepCycle      Code = 5001
	DepMissing    Code = 5002
	DepDuplicate  Code = 5003
	DepFailed     Code = 5004
	DepSelfImport Code = 5005

	// Input
	IOLoadFileError Code = 6001
	IODecodeError   Code = 6002

	// Observability and control
	ObsInfo        Code = 7000
	ObsTimings     Code = 7001
	ObsInterrupted Code = 7002
)

var (
	codeDescription = map[Code]string{
		UnknownCode:           "Unknown error",
		TCInfo:                "Typechecking information",
		TCTypeMismatch:        "type mismatch",
		TCUnsolvedGoal:        "unsolved goal",
		TCArityMismatch:       "wrong number of arguments",
		TCNotAType:            "expression is not a type",
		TCNotAFunction:        "expression is not a function",
		TCNotASigma:           "expression is not a sigma type",
		TCUnknownDefinition:   "unknown definition",
		TCUnboundLocal:        "unbound local reference",
		TCNumberOutOfRange:    "number out of range",
		TCNotANumberType:      "expected type does not admit numerals",
		TCPatternMismatch:     "pattern does not match the parameter type",
		TCUnknownConstructor:  "constructor does not belong to the data type",
		TCConstructorPatterns: "constructor is not available for these data arguments",
		TCRecursiveSolution:   "inference variable occurs in its own solution",
		TCScopeEscape:         "solution refers to a variable out of scope",
		TCMetaFailed:          "meta definition failed",
		TCProjectionRange:     "projection index out of range",
		TCPathEndpoint:        "path endpoint mismatch",
		TCExplicitness:        "explicitness mismatch",
		TCRedundantClause:     "clause is never reached",
		TCImplicitLambda:      "implicit lambda without an implicit Pi",
		LvlInfo:               "Level information",
		LvlInconsistency:      "level constraints are inconsistent",
		LvlInfinite:           "level must be finite",
		LvlArityMismatch:      "wrong number of level arguments",
		DepInfo:               "Dependency information",
		DepCycle:              "dependency cycle detected",
		DepMissing:            "reference to a missing definition",
		DepDuplicate:          "duplicate definition",
		DepFailed:             "dependency has errors",
		DepSelfImport:         "definition refers to itself outside a clause body",
		IOLoadFileError:       "I/O load file error",
		IODecodeError:         "cannot decode resolved module",
		ObsInfo:               "Observability information",
		ObsTimings:            "Pipeline timings",
		ObsInterrupted:        "typechecking interrupted",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("TC%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("LVL%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("DEP%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Fatal reports codes that invalidate the whole definition: no partial
// sort or body can be trusted after them.
func (c Code) Fatal() bool {
	switch c {
	case LvlInconsistency, LvlInfinite, ObsInterrupted, DepCycle, DepFailed:
		return true
	}
	return false
}
