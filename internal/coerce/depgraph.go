package coerce

import "slices"

// edgeKind distinguishes dependencies that can make a body true (strong)
// from those that can only matter for component ordering.
type edgeKind uint8

const (
	weakEdge edgeKind = iota + 1
	strongEdge
)

// depGraph is a directed graph over rule indices. An edge b -> a means that
// a value written by rule b may change the outcome of rule a.
type depGraph struct {
	edges  [][]int
	strong [][]int
}

func buildDepGraph(rules []*rule) *depGraph {
	g := &depGraph{
		edges:  make([][]int, len(rules)),
		strong: make([][]int, len(rules)),
	}
	for _, b := range rules {
		if b.writes == nil {
			continue
		}
		for _, a := range rules {
			kind := dependency(b, a)
			if kind == 0 {
				continue
			}
			g.edges[b.index] = append(g.edges[b.index], a.index)
			if kind == strongEdge {
				g.strong[b.index] = append(g.strong[b.index], a.index)
			}
		}
	}
	return g
}

// dependency classifies the edge b -> a. Coerce only ever turns 1/2 into a
// definite value, so a write can satisfy a body literal only when the
// literal's polarity matches the written value. Any write to the predicate a
// head inspects may contradict that head, except a rule's own writes, which
// only ever satisfy it.
func dependency(b, a *rule) edgeKind {
	p := b.writes
	if a.headReads == p && a != b {
		return strongEdge
	}
	occ, ok := a.reads[p]
	if !ok {
		return 0
	}
	if occ&b.writePol != 0 {
		return strongEdge
	}
	return weakEdge
}

// components returns the strongly connected components of g in dependency
// order: every component comes after the components that feed it.
func (g *depGraph) components() [][]int {
	sccs := tarjanSCC(g.edges)
	slices.Reverse(sccs)
	return sccs
}

func (g *depGraph) hasSelfLoop(v int) bool {
	return slices.Contains(g.edges[v], v)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Components are returned in reverse topological order, each sorted.
func tarjanSCC(graph [][]int) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make([]int, len(graph))
		lowlink = make([]int, len(graph))
		onStack = make([]bool, len(graph))
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for v := range graph {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}
	return sccs
}
