package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxArity is the largest predicate arity the engine supports.
const MaxArity = 4

// Node is an individual of a structure. It is a dense arena index and is only
// meaningful inside the structure that owns it; nodes are never compared
// across structures.
type Node int32

// NoNode marks an unbound slot.
const NoNode Node = -1

// String renders the node as "uN".
func (n Node) String() string {
	return "u" + strconv.Itoa(int(n))
}

// Tuple is an immutable ordered sequence of 0..MaxArity nodes. Tuples are
// comparable and used directly as map keys of predicate tables.
type Tuple struct {
	n   uint8
	ids [MaxArity]Node
}

// EmptyTuple is the tuple of nullary predicates.
var EmptyTuple = Tuple{}

// T builds a tuple from nodes. It panics on arity overflow.
func T(nodes ...Node) Tuple {
	if len(nodes) > MaxArity {
		panic(fmt.Sprintf("ir: tuple arity %d exceeds MaxArity %d", len(nodes), MaxArity))
	}
	t := Tuple{n: uint8(len(nodes))}
	copy(t.ids[:], nodes)
	return t
}

// Len returns the tuple arity.
func (t Tuple) Len() int {
	return int(t.n)
}

// At returns the i-th node.
func (t Tuple) At(i int) Node {
	if i < 0 || i >= int(t.n) {
		panic(fmt.Sprintf("ir: tuple index %d out of range [0,%d)", i, t.n))
	}
	return t.ids[i]
}

// Nodes returns a fresh slice with the tuple's nodes.
func (t Tuple) Nodes() []Node {
	out := make([]Node, t.n)
	copy(out, t.ids[:t.n])
	return out
}

// Contains reports whether n occurs in t.
func (t Tuple) Contains(n Node) bool {
	for i := 0; i < int(t.n); i++ {
		if t.ids[i] == n {
			return true
		}
	}
	return false
}

// ContainsAny reports whether any node of set occurs in t.
func (t Tuple) ContainsAny(set map[Node]bool) bool {
	for i := 0; i < int(t.n); i++ {
		if set[t.ids[i]] {
			return true
		}
	}
	return false
}

// Substitute returns t with every occurrence of from replaced by to.
func (t Tuple) Substitute(from, to Node) Tuple {
	for i := 0; i < int(t.n); i++ {
		if t.ids[i] == from {
			t.ids[i] = to
		}
	}
	return t
}

// With returns t with position i replaced by n.
func (t Tuple) With(i int, n Node) Tuple {
	if i < 0 || i >= int(t.n) {
		panic(fmt.Sprintf("ir: tuple index %d out of range [0,%d)", i, t.n))
	}
	t.ids[i] = n
	return t
}

// Map remaps every node of t through f.
func (t Tuple) Map(f func(Node) Node) Tuple {
	for i := 0; i < int(t.n); i++ {
		t.ids[i] = f(t.ids[i])
	}
	return t
}

// Less orders tuples lexicographically, shorter first.
func (t Tuple) Less(o Tuple) bool {
	if t.n != o.n {
		return t.n < o.n
	}
	for i := 0; i < int(t.n); i++ {
		if t.ids[i] != o.ids[i] {
			return t.ids[i] < o.ids[i]
		}
	}
	return false
}

// String renders the tuple as "(u0,u1)".
func (t Tuple) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 0; i < int(t.n); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.ids[i].String())
	}
	b.WriteByte(')')
	return b.String()
}

// ForEachTuple calls fn for every tuple of the given arity over nodes, in
// lexicographic order. Iteration stops when fn returns false.
func ForEachTuple(nodes []Node, arity int, fn func(Tuple) bool) {
	if arity == 0 {
		fn(EmptyTuple)
		return
	}
	if arity > MaxArity {
		panic(fmt.Sprintf("ir: arity %d exceeds MaxArity %d", arity, MaxArity))
	}
	if len(nodes) == 0 {
		return
	}
	idx := make([]int, arity)
	t := Tuple{n: uint8(arity)}
	for {
		for i, j := range idx {
			t.ids[i] = nodes[j]
		}
		if !fn(t) {
			return
		}
		k := arity - 1
		for k >= 0 {
			idx[k]++
			if idx[k] < len(nodes) {
				break
			}
			idx[k] = 0
			k--
		}
		if k < 0 {
			return
		}
	}
}
