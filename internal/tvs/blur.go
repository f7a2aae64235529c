package tvs

import (
	"slices"

	"github.com/roach88/tvs/internal/ir"
)

// Blur merges every group of nodes sharing a canonical name into one summary
// node. Blur is idempotent; after it returns every canonical name denotes at
// most one node.
func (s *Structure) Blur() {
	c := s.canonic()
	if c.blurred {
		return
	}
	var groups [][]ir.Node
	for _, nodes := range c.byName {
		if len(nodes) > 1 {
			groups = append(groups, nodes)
		}
	}
	// Deterministic merge order keeps node numbering reproducible.
	slices.SortFunc(groups, func(a, b []ir.Node) int { return int(a[0] - b[0]) })
	for _, g := range groups {
		s.MergeNodes(g)
	}
}
