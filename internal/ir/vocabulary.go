package ir

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Vocabulary is the immutable, analysis-wide table of predicates. It always
// contains the built-in predicates sm (unary) and active (unary, abstraction).
type Vocabulary struct {
	preds  []*Predicate
	byName map[string]*Predicate
	sm     *Predicate
	active *Predicate
	all    DynamicVocabulary
}

// NewVocabulary creates the predicates described by defs. Names are NFC
// normalised; duplicates, empty names and unsupported arities are rejected.
// The built-ins are added when defs does not declare them.
func NewVocabulary(defs ...PredicateDef) (*Vocabulary, error) {
	v := &Vocabulary{byName: make(map[string]*Predicate, len(defs)+2)}

	add := func(d PredicateDef) error {
		name := norm.NFC.String(strings.TrimSpace(d.Name))
		if name == "" {
			return fmt.Errorf("predicate name is required")
		}
		if d.Arity < 0 || d.Arity > MaxArity {
			return fmt.Errorf("predicate %q: arity %d out of range [0,%d]", name, d.Arity, MaxArity)
		}
		if _, dup := v.byName[name]; dup {
			return fmt.Errorf("duplicate predicate %q", name)
		}
		if d.Properties&(Function|InvFunction|Symmetric|Acyclic|Reflexive) != 0 && d.Arity != 2 {
			return fmt.Errorf("predicate %q: properties %s require arity 2", name, d.Properties)
		}
		if d.Properties&Unique != 0 && d.Arity != 1 {
			return fmt.Errorf("predicate %q: unique requires arity 1", name)
		}
		p := &Predicate{name: name, arity: d.Arity, props: d.Properties, id: len(v.preds)}
		v.preds = append(v.preds, p)
		v.byName[name] = p
		return nil
	}

	for _, d := range defs {
		if err := add(d); err != nil {
			return nil, err
		}
	}
	if _, ok := v.byName[SummaryName]; !ok {
		if err := add(PredicateDef{Name: SummaryName, Arity: 1}); err != nil {
			return nil, err
		}
	}
	if _, ok := v.byName[ActiveName]; !ok {
		if err := add(PredicateDef{Name: ActiveName, Arity: 1, Properties: Abstraction}); err != nil {
			return nil, err
		}
	}
	v.sm = v.byName[SummaryName]
	v.active = v.byName[ActiveName]
	if v.sm.arity != 1 || v.active.arity != 1 {
		return nil, fmt.Errorf("built-in predicates %s and %s must be unary", SummaryName, ActiveName)
	}
	v.all = NewDynamicVocabulary(v.preds...)
	return v, nil
}

// MustVocabulary is like NewVocabulary but panics on error.
// Use only in tests or with known-good tables.
func MustVocabulary(defs ...PredicateDef) *Vocabulary {
	v, err := NewVocabulary(defs...)
	if err != nil {
		panic(err)
	}
	return v
}

// Len returns the number of predicates.
func (v *Vocabulary) Len() int { return len(v.preds) }

// Predicates returns all predicates in declaration order.
func (v *Vocabulary) Predicates() []*Predicate { return slices.Clone(v.preds) }

// At returns the predicate with the given dense id.
func (v *Vocabulary) At(id int) *Predicate { return v.preds[id] }

// Lookup finds a predicate by name.
func (v *Vocabulary) Lookup(name string) (*Predicate, bool) {
	p, ok := v.byName[norm.NFC.String(name)]
	return p, ok
}

// MustLookup is like Lookup but panics when the predicate is missing.
func (v *Vocabulary) MustLookup(name string) *Predicate {
	p, ok := v.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("ir: predicate %q not in vocabulary", name))
	}
	return p
}

// Summary returns the built-in sm predicate.
func (v *Vocabulary) Summary() *Predicate { return v.sm }

// Active returns the built-in active predicate.
func (v *Vocabulary) Active() *Predicate { return v.active }

// All returns the dynamic vocabulary holding every predicate.
func (v *Vocabulary) All() DynamicVocabulary { return v.all.Clone() }

// ByArity returns the predicates of the given arity in declaration order.
func (v *Vocabulary) ByArity(arity int) []*Predicate {
	var out []*Predicate
	for _, p := range v.preds {
		if p.arity == arity {
			out = append(out, p)
		}
	}
	return out
}

// AbstractionPredicates returns the unary abstraction predicates in
// declaration order. Their order fixes the slot order of canonical names.
func (v *Vocabulary) AbstractionPredicates() []*Predicate {
	var out []*Predicate
	for _, p := range v.preds {
		if p.IsAbstraction() {
			out = append(out, p)
		}
	}
	return out
}

// DynamicVocabulary is a per-structure subset of a Vocabulary, stored as a
// bit set over predicate ids. The zero value is the empty set.
type DynamicVocabulary struct {
	words []uint64
}

// NewDynamicVocabulary returns the set holding preds.
func NewDynamicVocabulary(preds ...*Predicate) DynamicVocabulary {
	var d DynamicVocabulary
	for _, p := range preds {
		d.Add(p)
	}
	return d
}

// Clone returns an independent copy.
func (d DynamicVocabulary) Clone() DynamicVocabulary {
	return DynamicVocabulary{words: slices.Clone(d.words)}
}

// Contains reports whether p is in the set.
func (d DynamicVocabulary) Contains(p *Predicate) bool {
	return d.has(p.id)
}

func (d DynamicVocabulary) has(id int) bool {
	w := id / 64
	return w < len(d.words) && d.words[w]&(1<<(uint(id)%64)) != 0
}

// Add inserts p.
func (d *DynamicVocabulary) Add(p *Predicate) {
	w := p.id / 64
	for len(d.words) <= w {
		d.words = append(d.words, 0)
	}
	d.words[w] |= 1 << (uint(p.id) % 64)
}

// Remove deletes p.
func (d *DynamicVocabulary) Remove(p *Predicate) {
	w := p.id / 64
	if w < len(d.words) {
		d.words[w] &^= 1 << (uint(p.id) % 64)
	}
}

// Union returns d ∪ o.
func (d DynamicVocabulary) Union(o DynamicVocabulary) DynamicVocabulary {
	n := max(len(d.words), len(o.words))
	out := make([]uint64, n)
	for i := range out {
		out[i] = word(d.words, i) | word(o.words, i)
	}
	return DynamicVocabulary{words: out}
}

// Subtract returns d \ o.
func (d DynamicVocabulary) Subtract(o DynamicVocabulary) DynamicVocabulary {
	out := make([]uint64, len(d.words))
	for i := range out {
		out[i] = d.words[i] &^ word(o.words, i)
	}
	return DynamicVocabulary{words: out}
}

// Intersect returns d ∩ o.
func (d DynamicVocabulary) Intersect(o DynamicVocabulary) DynamicVocabulary {
	out := make([]uint64, min(len(d.words), len(o.words)))
	for i := range out {
		out[i] = d.words[i] & o.words[i]
	}
	return DynamicVocabulary{words: out}
}

// SubsetOf reports whether every member of d is in o.
func (d DynamicVocabulary) SubsetOf(o DynamicVocabulary) bool {
	for i, w := range d.words {
		if w&^word(o.words, i) != 0 {
			return false
		}
	}
	return true
}

// Equal reports set equality.
func (d DynamicVocabulary) Equal(o DynamicVocabulary) bool {
	return d.SubsetOf(o) && o.SubsetOf(d)
}

// Len returns the number of members.
func (d DynamicVocabulary) Len() int {
	n := 0
	for _, w := range d.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsEmpty reports whether the set has no members.
func (d DynamicVocabulary) IsEmpty() bool {
	for _, w := range d.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Members returns the member predicates of v in id order.
func (d DynamicVocabulary) Members(v *Vocabulary) []*Predicate {
	var out []*Predicate
	for i, w := range d.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, v.preds[i*64+b])
			w &^= 1 << uint(b)
		}
	}
	return out
}

// IDs returns the member ids in increasing order.
func (d DynamicVocabulary) IDs() []int {
	var out []int
	for i, w := range d.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, i*64+b)
			w &^= 1 << uint(b)
		}
	}
	return out
}

func word(ws []uint64, i int) uint64 {
	if i < len(ws) {
		return ws[i]
	}
	return 0
}
