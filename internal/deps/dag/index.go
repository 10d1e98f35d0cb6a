// Package dag orders the declarations of a module so that every
// definition is checked after the definitions it refers to. Independent
// definitions land in the same batch and may be checked in parallel.
package dag

import (
	"sort"

	"kappa/internal/diag"
	"kappa/internal/source"
)

type DefID uint32

// Node is one declaration with the global names it mentions.
type Node struct {
	Name     string
	Span     source.Span
	Refs     []string
	Reporter diag.Reporter
}

type Index struct {
	NameToID map[string]DefID
	IDToName []string
}

// BuildIndex assigns ids to the declared names in sorted order.
func BuildIndex(nodes []Node) Index {
	uniq := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.Name != "" {
			uniq[n.Name] = struct{}{}
		}
	}

	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	nameToID := make(map[string]DefID, len(names))
	for i, name := range names {
		nameToID[name] = DefID(i)
	}
	return Index{NameToID: nameToID, IDToName: names}
}
