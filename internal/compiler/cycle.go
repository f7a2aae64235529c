package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/tvs/internal/coerce"
)

// CycleWarning reports constraints that feed each other.
//
// Cycles are warnings, not errors: coerce iterates a cyclic component to a
// fixpoint. They point at constraint sets whose repair may cascade:
//   - A rule whose head writes a predicate its own body reads
//   - Contrapositive pairs over the same predicates
//   - Property constraints sharing a predicate with user constraints
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["c-a", "c-b", "c-a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles reports every cyclic component of the compiled rules of c.
//
// Self-feeding rules are reported at info level: property constraints
// routinely read the summary predicate their equality head depends on.
// Components of several rules are warnings. A DAG returns an empty list.
func AnalyzeCycles(c *coerce.Coercer) []CycleWarning {
	labels, triggers := c.Graph()
	warnings := []CycleWarning{}
	for _, comp := range c.Components() {
		if comp.Cyclic {
			warnings = append(warnings, cycleSCCToWarning(comp.Rules, labels, triggers))
		}
	}
	return warnings
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
//
// For self-loops, the path is [rule, rule].
// For multi-rule cycles, the path shows a cycle traversal.
func cycleSCCToWarning(scc []int, labels []string, graph [][]int) CycleWarning {
	if len(scc) == 1 {
		name := labels[scc[0]]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-feeding constraint: %s → %s", name, name),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, graph)
	names := make([]string, len(path))
	for i, r := range path {
		names[i] = labels[r]
	}
	return CycleWarning{
		Path:    names,
		Message: fmt.Sprintf("Constraint cycle: %s", strings.Join(names, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []int, graph [][]int) []int {
	if len(scc) == 0 {
		return []int{}
	}

	sccSet := make(map[int]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []int{current}
	visited := make(map[int]bool)

	// Follow edges within SCC until we return to start
	for {
		visited[current] = true

		next := -1
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next < 0 {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
