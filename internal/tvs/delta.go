package tvs

import (
	"maps"
	"slices"

	"github.com/roach88/tvs/internal/ir"
)

// DefaultDeltaCostFactor is the factor by which a delta must be cheaper than
// the full structure before Delta reports it.
const DefaultDeltaCostFactor = 4

// baseline is the frozen state recorded by Commit. It is never mutated and
// may be shared by any number of copies.
type baseline struct {
	live   []bool
	tables []table
	dyn    ir.DynamicVocabulary
}

func (b *baseline) isLive(n ir.Node) bool {
	return int(n) < len(b.live) && b.live[n]
}

// Change is one tuple whose value differs from the baseline. Added is set
// when the tuple mentions a node allocated since the baseline.
type Change struct {
	Tuple ir.Tuple
	Value ir.Kleene
	Added bool
}

// NodeValueMap describes the difference between a structure and its
// committed baseline.
type NodeValueMap struct {
	// Changes holds the changed tuples per touched predicate, in tuple order.
	Changes map[*ir.Predicate][]Change
	// AddedNodes and RemovedNodes are sorted.
	AddedNodes   []ir.Node
	RemovedNodes []ir.Node
	// Twins maps nodes created by DuplicateNode to the node they were
	// duplicated from.
	Twins map[ir.Node]ir.Node
	// Dynamic is the dynamic vocabulary of the structure the delta was taken
	// from; Baseline is the one it had at Commit.
	Dynamic  ir.DynamicVocabulary
	Baseline ir.DynamicVocabulary

	touched ir.DynamicVocabulary
}

// Touched returns the predicates with changed tuples.
func (m *NodeValueMap) Touched() ir.DynamicVocabulary { return m.touched.Clone() }

// Predicates returns the touched predicates ordered by id.
func (m *NodeValueMap) Predicates() []*ir.Predicate {
	ps := slices.Collect(maps.Keys(m.Changes))
	slices.SortFunc(ps, func(a, b *ir.Predicate) int { return a.ID() - b.ID() })
	return ps
}

// UniverseChanged reports whether nodes were added or removed.
func (m *NodeValueMap) UniverseChanged() bool {
	return len(m.AddedNodes) > 0 || len(m.RemovedNodes) > 0
}

// VocabularyChanged reports whether predicates were added to or removed from
// the dynamic vocabulary. Such a change flips whole tables between 1/2 and
// a definite value without recording any tuple in Changes.
func (m *NodeValueMap) VocabularyChanged() bool {
	return !m.Dynamic.Equal(m.Baseline)
}

// Len returns the number of changed tuples.
func (m *NodeValueMap) Len() int {
	n := 0
	for _, cs := range m.Changes {
		n += len(cs)
	}
	return n
}

// IsEmpty reports whether the delta carries no change at all.
func (m *NodeValueMap) IsEmpty() bool {
	return m.Len() == 0 && !m.UniverseChanged() && !m.VocabularyChanged()
}

// Commit records the current state as the delta baseline and clears the
// touched set. The tables are shared with the baseline and cloned lazily on
// the next write.
func (s *Structure) Commit() {
	b := &baseline{
		live:   slices.Clone(s.live),
		tables: slices.Clone(s.tables),
		dyn:    s.dyn.Clone(),
	}
	for i := range s.owned {
		s.owned[i] = false
	}
	s.base = b
	s.touched = ir.DynamicVocabulary{}
	s.universe = false
	s.twins = nil
}

// Committed reports whether s has a delta baseline.
func (s *Structure) Committed() bool { return s.base != nil }

// Touched returns the predicates whose tables changed since the last Commit.
func (s *Structure) Touched() ir.DynamicVocabulary { return s.touched.Clone() }

// UniverseChanged reports whether nodes were added or removed since the last
// Commit.
func (s *Structure) UniverseChanged() bool { return s.universe }

// Delta returns the changes since the last Commit. It reports false when
// there is no baseline, or when factor is positive and the delta, weighted by
// predicate arity, costs more than 1/factor of the full structure.
func (s *Structure) Delta(factor int) (*NodeValueMap, bool) {
	if s.base == nil {
		return nil, false
	}
	d := &NodeValueMap{
		Changes:  make(map[*ir.Predicate][]Change),
		Twins:    maps.Clone(s.twins),
		Dynamic:  s.dyn.Clone(),
		Baseline: s.base.dyn.Clone(),
	}
	for _, n := range s.nodes {
		if !s.base.isLive(n) {
			d.AddedNodes = append(d.AddedNodes, n)
		}
	}
	for i, alive := range s.base.live {
		if alive && !s.Live(ir.Node(i)) {
			d.RemovedNodes = append(d.RemovedNodes, ir.Node(i))
		}
	}

	cost := len(d.AddedNodes) + len(d.RemovedNodes)
	for _, p := range s.touched.Members(s.vocab) {
		var cur, old table
		if s.dyn.Contains(p) {
			cur = s.tables[p.ID()]
		}
		if s.base.dyn.Contains(p) {
			old = s.base.tables[p.ID()]
		}
		var cs []Change
		for t, v := range cur {
			if old[t] != v {
				cs = append(cs, Change{Tuple: t, Value: v, Added: s.mentionsAdded(t)})
			}
		}
		for t := range old {
			if _, ok := cur[t]; !ok {
				cs = append(cs, Change{Tuple: t, Value: ir.False})
			}
		}
		if len(cs) == 0 {
			continue
		}
		slices.SortFunc(cs, func(a, b Change) int { return compareTuples(a.Tuple, b.Tuple) })
		d.Changes[p] = cs
		d.touched.Add(p)
		cost += len(cs) * (p.Arity() + 1)
	}

	if factor > 0 && cost*factor > s.fullCost() {
		return nil, false
	}
	return d, true
}

func (s *Structure) mentionsAdded(t ir.Tuple) bool {
	for i := 0; i < t.Len(); i++ {
		if !s.base.isLive(t.At(i)) {
			return true
		}
	}
	return false
}

// fullCost weighs the whole structure the same way Delta weighs changes.
func (s *Structure) fullCost() int {
	cost := len(s.nodes)
	for _, p := range s.dyn.Members(s.vocab) {
		cost += len(s.tables[p.ID()]) * (p.Arity() + 1)
	}
	return cost
}

// Apply replays d onto s. Applied to a copy of the baseline d was taken
// against, it reproduces the interpretation d was taken from.
func Apply(s *Structure, d *NodeValueMap) {
	for _, n := range d.RemovedNodes {
		if s.Live(n) {
			s.RemoveNode(n)
		}
	}
	for _, n := range d.AddedNodes {
		if !s.Live(n) {
			s.allocate(n)
		}
	}
	for _, p := range d.Dynamic.Subtract(s.dyn).Members(s.vocab) {
		s.AddPredicate(p)
	}
	for _, p := range d.Predicates() {
		for _, c := range d.Changes[p] {
			s.Update(p, c.Tuple, c.Value)
		}
	}
	for _, p := range s.dyn.Subtract(d.Dynamic).Members(s.vocab) {
		s.RemovePredicate(p)
	}
	if len(d.Twins) > 0 {
		if s.twins == nil {
			s.twins = make(map[ir.Node]ir.Node, len(d.Twins))
		}
		maps.Copy(s.twins, d.Twins)
	}
}
