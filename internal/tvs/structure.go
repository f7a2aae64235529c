package tvs

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/tvs/internal/ir"
)

// table holds the non-false entries of one predicate.
type table map[ir.Tuple]ir.Kleene

// Structure is a three-valued logical structure (TVS).
type Structure struct {
	vocab  *ir.Vocabulary
	dyn    ir.DynamicVocabulary
	live   []bool
	nodes  []ir.Node // live nodes, ascending
	tables []table   // indexed by predicate id
	owned  []bool    // false when tables[i] is shared with base

	version uint64

	// Delta tracking relative to the last Commit.
	base     *baseline
	touched  ir.DynamicVocabulary
	universe bool
	twins    map[ir.Node]ir.Node

	canon *canonCache
	tc    *closureCache
}

// New creates an empty structure over the full vocabulary v.
func New(v *ir.Vocabulary) *Structure {
	return NewWithVocabulary(v, v.All())
}

// NewWithVocabulary creates an empty structure whose dynamic vocabulary is
// dyn. Predicates outside dyn evaluate to 1/2 and ignore writes.
func NewWithVocabulary(v *ir.Vocabulary, dyn ir.DynamicVocabulary) *Structure {
	return &Structure{
		vocab:  v,
		dyn:    dyn.Clone(),
		tables: make([]table, v.Len()),
		owned:  make([]bool, v.Len()),
	}
}

// Vocabulary returns the analysis-wide vocabulary.
func (s *Structure) Vocabulary() *ir.Vocabulary { return s.vocab }

// Dynamic returns a copy of the structure's dynamic vocabulary.
func (s *Structure) Dynamic() ir.DynamicVocabulary { return s.dyn.Clone() }

// InVocabulary reports whether p belongs to the dynamic vocabulary.
func (s *Structure) InVocabulary(p *ir.Predicate) bool { return s.dyn.Contains(p) }

// Version is bumped on every mutation.
func (s *Structure) Version() uint64 { return s.version }

// Nodes returns the live nodes in ascending order.
func (s *Structure) Nodes() []ir.Node { return slices.Clone(s.nodes) }

// NodeCount returns the number of live nodes.
func (s *Structure) NodeCount() int { return len(s.nodes) }

// Live reports whether n is a live node of s.
func (s *Structure) Live(n ir.Node) bool {
	return n >= 0 && int(n) < len(s.live) && s.live[n]
}

// Eval returns the value of p on t. Predicates outside the dynamic
// vocabulary are 1/2; absent tuples are false.
func (s *Structure) Eval(p *ir.Predicate, t ir.Tuple) ir.Kleene {
	if !s.dyn.Contains(p) {
		return ir.Unknown
	}
	return s.tables[p.ID()][t]
}

// Eval0 evaluates a nullary predicate.
func (s *Structure) Eval0(p *ir.Predicate) ir.Kleene { return s.Eval(p, ir.EmptyTuple) }

// Eval1 evaluates a unary predicate.
func (s *Structure) Eval1(p *ir.Predicate, n ir.Node) ir.Kleene { return s.Eval(p, ir.T(n)) }

// Eval2 evaluates a binary predicate.
func (s *Structure) Eval2(p *ir.Predicate, a, b ir.Node) ir.Kleene { return s.Eval(p, ir.T(a, b)) }

// IsSummary reports whether n may stand for more than one individual.
func (s *Structure) IsSummary(n ir.Node) bool {
	return s.Eval1(s.vocab.Summary(), n) != ir.False
}

// Activeness is the active value of n, or 1 when active is not part of the
// dynamic vocabulary.
func (s *Structure) Activeness(n ir.Node) ir.Kleene {
	if !s.dyn.Contains(s.vocab.Active()) {
		return ir.True
	}
	return s.Eval1(s.vocab.Active(), n)
}

// MaybeActive reports whether n has active=1/2.
func (s *Structure) MaybeActive(n ir.Node) bool {
	return s.dyn.Contains(s.vocab.Active()) && s.Eval1(s.vocab.Active(), n) == ir.Unknown
}

// Range calls fn for every non-false entry of p in unspecified order.
// fn must not mutate s. Iteration stops when fn returns false.
func (s *Structure) Range(p *ir.Predicate, fn func(ir.Tuple, ir.Kleene) bool) {
	if !s.dyn.Contains(p) {
		return
	}
	for t, v := range s.tables[p.ID()] {
		if !fn(t, v) {
			return
		}
	}
}

// Tuples returns the non-false entries of p in tuple order.
func (s *Structure) Tuples(p *ir.Predicate) []Entry {
	if !s.dyn.Contains(p) {
		return nil
	}
	out := make([]Entry, 0, len(s.tables[p.ID()]))
	for t, v := range s.tables[p.ID()] {
		out = append(out, Entry{Tuple: t, Value: v})
	}
	slices.SortFunc(out, func(a, b Entry) int { return compareTuples(a.Tuple, b.Tuple) })
	return out
}

// Entry is one non-false tuple of a predicate table.
type Entry struct {
	Tuple ir.Tuple
	Value ir.Kleene
}

// Count returns how many tuples of p are 1 and how many are 1/2.
func (s *Structure) Count(p *ir.Predicate) (trues, unknowns int) {
	if !s.dyn.Contains(p) {
		return 0, 0
	}
	for _, v := range s.tables[p.ID()] {
		if v == ir.True {
			trues++
		} else {
			unknowns++
		}
	}
	return trues, unknowns
}

// Size returns the number of non-false entries of p.
func (s *Structure) Size(p *ir.Predicate) int {
	if !s.dyn.Contains(p) {
		return 0
	}
	return len(s.tables[p.ID()])
}

// Copy returns an independent copy. Mutating the copy never affects s and
// vice versa. The copy keeps s's delta baseline and touched set, so a copy of
// a committed structure reports its own changes relative to that commit.
func (s *Structure) Copy() *Structure {
	c := &Structure{
		vocab:    s.vocab,
		dyn:      s.dyn.Clone(),
		live:     slices.Clone(s.live),
		nodes:    slices.Clone(s.nodes),
		tables:   make([]table, len(s.tables)),
		owned:    make([]bool, len(s.tables)),
		version:  s.version,
		base:     s.base,
		touched:  s.touched.Clone(),
		universe: s.universe,
		twins:    maps.Clone(s.twins),
		canon:    s.canon,
	}
	for i, t := range s.tables {
		if len(t) > 0 {
			c.tables[i] = maps.Clone(t)
		}
		c.owned[i] = true
	}
	return c
}

// AddPredicate extends the dynamic vocabulary with p. Its table starts
// empty, i.e. false everywhere.
func (s *Structure) AddPredicate(p *ir.Predicate) {
	if s.dyn.Contains(p) {
		return
	}
	s.dyn.Add(p)
	s.tables[p.ID()] = nil
	s.owned[p.ID()] = true
	s.touch(p)
}

// RemovePredicate drops p from the dynamic vocabulary; it evaluates to 1/2
// afterwards.
func (s *Structure) RemovePredicate(p *ir.Predicate) {
	if !s.dyn.Contains(p) {
		return
	}
	s.touch(p)
	s.dyn.Remove(p)
	s.tables[p.ID()] = nil
	s.owned[p.ID()] = true
}

func (s *Structure) touch(p *ir.Predicate) {
	s.touched.Add(p)
	s.version++
}

// writable returns the table of p, cloning it first when it is shared with
// the committed baseline.
func (s *Structure) writable(p *ir.Predicate) table {
	id := p.ID()
	if !s.owned[id] {
		s.tables[id] = maps.Clone(s.tables[id])
		s.owned[id] = true
	}
	if s.tables[id] == nil {
		s.tables[id] = make(table)
	}
	return s.tables[id]
}

// checkTuple panics when t does not fit p or references a node that is not
// live in s. Both indicate a programming error in the caller.
func (s *Structure) checkTuple(p *ir.Predicate, t ir.Tuple) {
	if t.Len() != p.Arity() {
		panic(fmt.Sprintf("tvs: predicate %s has arity %d, got tuple %s", p.Name(), p.Arity(), t))
	}
	for i := 0; i < t.Len(); i++ {
		if !s.Live(t.At(i)) {
			panic(fmt.Sprintf("tvs: tuple %s of %s references node %s not live in this structure", t, p.Name(), t.At(i)))
		}
	}
}

func compareTuples(a, b ir.Tuple) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}
