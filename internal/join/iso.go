package join

import (
	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// Isomorphic reports whether a and b are equal up to node renaming and, if
// so, returns the bijection from nodes of a to nodes of b. Only nodes with
// equal canonical names are paired. When canonical names are unique the
// bijection is fixed and merely verified; otherwise a backtracking search
// pairs the nodes of each name class.
func Isomorphic(a, b *tvs.Structure) (map[ir.Node]ir.Node, bool) {
	if a.NodeCount() != b.NodeCount() || !a.Dynamic().Equal(b.Dynamic()) {
		return nil, false
	}
	for _, p := range a.Vocabulary().Predicates() {
		if !a.InVocabulary(p) {
			continue
		}
		if p.Arity() == 0 && a.Eval0(p) != b.Eval0(p) {
			return nil, false
		}
		at, au := a.Count(p)
		bt, bu := b.Count(p)
		if at != bt || au != bu {
			return nil, false
		}
	}

	classesA := classes(a)
	classesB := classes(b)
	if len(classesA) != len(classesB) {
		return nil, false
	}
	for name, ns := range classesA {
		if len(classesB[name]) != len(ns) {
			return nil, false
		}
	}

	st := &isoState{
		a:       a,
		b:       b,
		classB:  classesB,
		names:   a.CanonicNames(),
		mapping: make(map[ir.Node]ir.Node, a.NodeCount()),
		used:    make(map[ir.Node]bool, a.NodeCount()),
		order:   a.Nodes(),
		preds:   a.Dynamic().Members(a.Vocabulary()),
	}
	if !st.match(0) {
		return nil, false
	}
	return st.mapping, true
}

func classes(s *tvs.Structure) map[tvs.Canonic][]ir.Node {
	out := make(map[tvs.Canonic][]ir.Node)
	for _, n := range s.Nodes() {
		c := s.Canonic(n)
		out[c] = append(out[c], n)
	}
	return out
}

type isoState struct {
	a, b    *tvs.Structure
	classB  map[tvs.Canonic][]ir.Node
	names   map[ir.Node]tvs.Canonic
	mapping map[ir.Node]ir.Node
	used    map[ir.Node]bool
	order   []ir.Node
	preds   []*ir.Predicate
}

func (st *isoState) match(i int) bool {
	if i == len(st.order) {
		return st.verify()
	}
	n := st.order[i]
	for _, m := range st.classB[st.names[n]] {
		if st.used[m] || !st.feasible(n, m) {
			continue
		}
		st.mapping[n] = m
		st.used[m] = true
		if st.match(i + 1) {
			return true
		}
		delete(st.mapping, n)
		delete(st.used, m)
	}
	return false
}

// feasible checks unary and binary predicates between n and every node
// mapped so far.
func (st *isoState) feasible(n, m ir.Node) bool {
	for _, p := range st.preds {
		switch p.Arity() {
		case 1:
			if st.a.Eval1(p, n) != st.b.Eval1(p, m) {
				return false
			}
		case 2:
			if st.a.Eval2(p, n, n) != st.b.Eval2(p, m, m) {
				return false
			}
			for pn, pm := range st.mapping {
				if st.a.Eval2(p, n, pn) != st.b.Eval2(p, m, pm) ||
					st.a.Eval2(p, pn, n) != st.b.Eval2(p, pm, m) {
					return false
				}
			}
		}
	}
	return true
}

// verify checks every tuple under the complete mapping. Equal counts make
// the check one-directional.
func (st *isoState) verify() bool {
	remap := func(n ir.Node) ir.Node { return st.mapping[n] }
	for _, p := range st.preds {
		if p.Arity() == 0 {
			continue
		}
		ok := true
		st.a.Range(p, func(t ir.Tuple, v ir.Kleene) bool {
			if st.b.Eval(p, t.Map(remap)) != v {
				ok = false
			}
			return ok
		})
		if !ok {
			return false
		}
	}
	return true
}

// nameBijection pairs the nodes of a and b by canonical name. It fails
// unless both structures have unique names and the same name set.
func nameBijection(a, b *tvs.Structure) (map[ir.Node]ir.Node, bool) {
	if a.NodeCount() != b.NodeCount() || !a.IsBlurred() || !b.IsBlurred() {
		return nil, false
	}
	out := make(map[ir.Node]ir.Node, a.NodeCount())
	for n, c := range a.CanonicNames() {
		m, ok := b.CanonicNode(c)
		if !ok {
			return nil, false
		}
		out[n] = m
	}
	return out, true
}
