package tvs

import (
	"hash/fnv"
	"slices"
	"strings"
	"unique"

	"github.com/roach88/tvs/internal/ir"
)

// Canonic is the canonical name of a node: its vector of values over the
// vocabulary's unary abstraction predicates. Canonic values are interned and
// compare with ==; the hash is precomputed.
type Canonic struct {
	key  unique.Handle[string]
	hash uint64
}

// NewCanonic interns the value vector vs.
func NewCanonic(vs []ir.Kleene) Canonic {
	b := make([]byte, len(vs))
	for i, v := range vs {
		b[i] = byte(v)
	}
	h := fnv.New64a()
	h.Write(b)
	return Canonic{key: unique.Make(string(b)), hash: h.Sum64()}
}

// Len returns the number of slots.
func (c Canonic) Len() int { return len(c.key.Value()) }

// At returns the value of slot i.
func (c Canonic) At(i int) ir.Kleene { return ir.Kleene(c.key.Value()[i]) }

// Hash returns the precomputed hash.
func (c Canonic) Hash() uint64 { return c.hash }

// Key returns the raw slot bytes, usable for ordering.
func (c Canonic) Key() string { return c.key.Value() }

// Compare orders canonical names lexicographically by slot value.
func (c Canonic) Compare(o Canonic) int { return strings.Compare(c.Key(), o.Key()) }

// String renders the vector as "[1,0,1/2]".
func (c Canonic) String() string {
	k := c.key.Value()
	parts := make([]string, len(k))
	for i := range k {
		parts[i] = ir.Kleene(k[i]).String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// canonCache maps nodes to canonical names for one structure version.
type canonCache struct {
	version uint64
	byNode  map[ir.Node]Canonic
	byName  map[Canonic][]ir.Node
	blurred bool
}

func (s *Structure) canonic() *canonCache {
	if s.canon != nil && s.canon.version == s.version {
		return s.canon
	}
	abs := s.vocab.AbstractionPredicates()
	c := &canonCache{
		version: s.version,
		byNode:  make(map[ir.Node]Canonic, len(s.nodes)),
		byName:  make(map[Canonic][]ir.Node),
	}
	vs := make([]ir.Kleene, len(abs))
	for _, n := range s.nodes {
		for i, p := range abs {
			vs[i] = s.Eval1(p, n)
		}
		name := NewCanonic(vs)
		c.byNode[n] = name
		c.byName[name] = append(c.byName[name], n)
	}
	c.blurred = true
	for _, group := range c.byName {
		if len(group) > 1 {
			c.blurred = false
			break
		}
	}
	s.canon = c
	return c
}

// Canonic returns the canonical name of n.
func (s *Structure) Canonic(n ir.Node) Canonic {
	if !s.Live(n) {
		panic("tvs: canonic of node " + n.String() + " not live in this structure")
	}
	return s.canonic().byNode[n]
}

// CanonicNames returns the canonical name of every live node.
func (s *Structure) CanonicNames() map[ir.Node]Canonic {
	c := s.canonic()
	out := make(map[ir.Node]Canonic, len(c.byNode))
	for n, name := range c.byNode {
		out[n] = name
	}
	return out
}

// CanonicNode returns the node named c. The lookup only succeeds when s is
// blurred, i.e. canonical names are unique.
func (s *Structure) CanonicNode(c Canonic) (ir.Node, bool) {
	cc := s.canonic()
	if !cc.blurred {
		return ir.NoNode, false
	}
	nodes, ok := cc.byName[c]
	if !ok {
		return ir.NoNode, false
	}
	return nodes[0], true
}

// IsBlurred reports whether all live nodes have distinct canonical names.
func (s *Structure) IsBlurred() bool { return s.canonic().blurred }

// CanonicMultiset returns the canonical names of all nodes, sorted.
func (s *Structure) CanonicMultiset() []Canonic {
	c := s.canonic()
	out := make([]Canonic, 0, len(c.byNode))
	for _, n := range s.nodes {
		out = append(out, c.byNode[n])
	}
	slices.SortFunc(out, Canonic.Compare)
	return out
}
