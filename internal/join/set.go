package join

import (
	"fmt"
	"weak"

	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// Strategy selects how a Set merges structures.
type Strategy uint8

const (
	// Exact keeps every structure that is not isomorphic to a member.
	Exact Strategy = iota
	// Partial joins a structure into the member with the same canonical
	// names, weakening mismatched values to 1/2.
	Partial
	// Single keeps one structure, the independent-attribute join of
	// everything merged so far.
	Single
)

func (s Strategy) String() string {
	switch s {
	case Exact:
		return "exact"
	case Partial:
		return "partial"
	case Single:
		return "single"
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// ParseStrategy parses "exact", "partial" or "single".
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "exact", "":
		return Exact, nil
	case "partial":
		return Partial, nil
	case "single":
		return Single, nil
	}
	return 0, fmt.Errorf("unknown join strategy %q (want exact, partial or single)", name)
}

// Kind tells how MergeWith changed the set.
type Kind uint8

const (
	// Added: the candidate became a new member.
	Added Kind = iota + 1
	// Merged: a member absorbed the candidate and became more abstract.
	Merged
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Merged:
		return "merged"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Change describes a successful MergeWith.
type Change struct {
	Kind Kind
	// Structure is the member that now represents the candidate. Callers
	// must Copy it before mutating.
	Structure *tvs.Structure
	// Delta holds the member's changes for Merged, nil for Added.
	Delta *tvs.NodeValueMap
}

// Set is the set of structures stored at one program location. A Set must
// be used by one goroutine at a time.
type Set struct {
	strategy Strategy
	members  []*tvs.Structure
	buckets  map[uint64][]*tvs.Structure
	// lastHit remembers, per bucket, the member that most recently matched.
	// Entries may vanish at any time; they only shortcut the bucket scan.
	lastHit map[uint64]weak.Pointer[tvs.Structure]
	stats   Stats
}

// Stats counts MergeWith outcomes.
type Stats struct {
	Added, Merged, Redundant, CacheHits int
}

// NewSet creates an empty set.
func NewSet(strategy Strategy) *Set {
	return &Set{
		strategy: strategy,
		buckets:  make(map[uint64][]*tvs.Structure),
		lastHit:  make(map[uint64]weak.Pointer[tvs.Structure]),
	}
}

// Strategy returns the set's join strategy.
func (s *Set) Strategy() Strategy { return s.strategy }

// Len returns the number of members.
func (s *Set) Len() int { return len(s.members) }

// Members returns the stored structures in insertion order. They must not be
// mutated.
func (s *Set) Members() []*tvs.Structure {
	out := make([]*tvs.Structure, len(s.members))
	copy(out, s.members)
	return out
}

// Stats returns the outcome counters.
func (s *Set) Stats() Stats { return s.stats }

// MergeWith offers candidate to the set. The candidate is blurred first and
// is owned by the set afterwards. MergeWith returns nil when the candidate
// is already represented by the set, and otherwise the change to propagate.
func (s *Set) MergeWith(candidate *tvs.Structure) *Change {
	candidate.Blur()
	var ch *Change
	switch s.strategy {
	case Partial:
		ch = s.mergePartial(candidate)
	case Single:
		ch = s.mergeSingle(candidate)
	default:
		ch = s.mergeExact(candidate)
	}
	switch {
	case ch == nil:
		s.stats.Redundant++
	case ch.Kind == Added:
		s.stats.Added++
	default:
		s.stats.Merged++
	}
	return ch
}

func (s *Set) mergeExact(c *tvs.Structure) *Change {
	key := Signature(c)
	if m := s.find(key, c, func(m *tvs.Structure) bool {
		_, ok := Isomorphic(c, m)
		return ok
	}); m != nil {
		return nil
	}
	s.add(key, c)
	return &Change{Kind: Added, Structure: c}
}

func (s *Set) mergePartial(c *tvs.Structure) *Change {
	key := NameSignature(c)
	var bij map[ir.Node]ir.Node
	m := s.find(key, c, func(m *tvs.Structure) bool {
		var ok bool
		bij, ok = nameBijection(c, m)
		return ok
	})
	if m == nil {
		s.add(key, c)
		return &Change{Kind: Added, Structure: c}
	}
	if !embed(c, m, bij) {
		return nil
	}
	d, _ := m.Delta(0)
	m.Commit()
	return &Change{Kind: Merged, Structure: m, Delta: d}
}

func (s *Set) mergeSingle(c *tvs.Structure) *Change {
	if len(s.members) == 0 {
		s.add(0, c)
		return &Change{Kind: Added, Structure: c}
	}
	old := s.members[0]
	joined, changed := independentJoin(old, c)
	if !changed {
		return nil
	}
	d, _ := joined.Delta(0)
	s.members = s.members[:0]
	clear(s.buckets)
	clear(s.lastHit)
	s.add(0, joined)
	return &Change{Kind: Merged, Structure: joined, Delta: d}
}

// find scans the bucket for key, trying the last hit first.
func (s *Set) find(key uint64, c *tvs.Structure, match func(*tvs.Structure) bool) *tvs.Structure {
	bucket := s.buckets[key]
	if len(bucket) == 0 {
		return nil
	}
	if wp, ok := s.lastHit[key]; ok {
		if m := wp.Value(); m != nil && match(m) {
			s.stats.CacheHits++
			return m
		}
	}
	for _, m := range bucket {
		if match(m) {
			s.lastHit[key] = weak.Make(m)
			return m
		}
	}
	return nil
}

func (s *Set) add(key uint64, c *tvs.Structure) {
	c.Commit()
	s.members = append(s.members, c)
	s.buckets[key] = append(s.buckets[key], c)
	s.lastHit[key] = weak.Make(c)
}
