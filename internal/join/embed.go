package join

import (
	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// embed joins c into m along the node bijection bij (c -> m). Values on
// which they disagree become 1/2 in m; predicates m lacks are adopted from
// c; predicates c lacks are dropped from m. embed reports whether m changed.
func embed(c, m *tvs.Structure, bij map[ir.Node]ir.Node) bool {
	before := m.Version()
	vocab := m.Vocabulary()
	cdyn, mdyn := c.Dynamic(), m.Dynamic()
	inverse := make(map[ir.Node]ir.Node, len(bij))
	for k, v := range bij {
		inverse[v] = k
	}
	toM := func(n ir.Node) ir.Node { return bij[n] }
	toC := func(n ir.Node) ir.Node { return inverse[n] }

	for _, p := range mdyn.Subtract(cdyn).Members(vocab) {
		m.RemovePredicate(p)
	}
	for _, p := range cdyn.Subtract(mdyn).Members(vocab) {
		m.AddPredicate(p)
		for _, e := range c.Tuples(p) {
			m.Update(p, e.Tuple.Map(toM), e.Value)
		}
	}
	for _, p := range cdyn.Intersect(mdyn).Members(vocab) {
		var weaken []ir.Tuple
		c.Range(p, func(t ir.Tuple, v ir.Kleene) bool {
			if mt := t.Map(toM); m.Eval(p, mt) != v {
				weaken = append(weaken, mt)
			}
			return true
		})
		m.Range(p, func(t ir.Tuple, v ir.Kleene) bool {
			if v != ir.Unknown && c.Eval(p, t.Map(toC)) != v {
				weaken = append(weaken, t)
			}
			return true
		})
		for _, t := range weaken {
			m.Update(p, t, ir.Unknown)
		}
	}
	return m.Version() != before
}

// independentJoin joins b into a copy of a. Nodes are paired by canonical
// name; a node present on one side only may not exist after the join and
// becomes maybe-active. The result is re-blurred. It reports whether the
// result differs from a.
func independentJoin(a, b *tvs.Structure) (*tvs.Structure, bool) {
	j := a.Copy()
	vocab := j.Vocabulary()
	active := vocab.Active()

	toJ := make(map[ir.Node]ir.Node, b.NodeCount())
	var fresh []ir.Node
	for _, n := range b.Nodes() {
		if m, ok := a.CanonicNode(b.Canonic(n)); ok {
			toJ[n] = m
		} else {
			fresh = append(fresh, n)
		}
	}
	toB := make(map[ir.Node]ir.Node, len(toJ))
	for n, m := range toJ {
		toB[m] = n
	}
	for _, n := range fresh {
		toJ[n] = j.NewNode()
	}
	isFresh := make(map[ir.Node]bool, len(fresh))
	for _, n := range fresh {
		isFresh[toJ[n]] = true
	}
	paired := func(t ir.Tuple) bool {
		for i := 0; i < t.Len(); i++ {
			if _, ok := toB[t.At(i)]; !ok {
				return false
			}
		}
		return true
	}
	mapJ := func(n ir.Node) ir.Node { return toJ[n] }
	mapB := func(n ir.Node) ir.Node { return toB[n] }

	for _, p := range a.Dynamic().Subtract(b.Dynamic()).Members(vocab) {
		j.RemovePredicate(p)
	}
	for _, p := range j.Dynamic().Members(vocab) {
		updates := make(map[ir.Tuple]ir.Kleene)
		j.Range(p, func(t ir.Tuple, v ir.Kleene) bool {
			if paired(t) {
				updates[t] = ir.Join(v, b.Eval(p, t.Map(mapB)))
			}
			return true
		})
		b.Range(p, func(t ir.Tuple, v ir.Kleene) bool {
			jt := t.Map(mapJ)
			if jt.ContainsAny(isFresh) {
				if p != active {
					updates[jt] = v
				}
				return true
			}
			if _, seen := updates[jt]; !seen {
				updates[jt] = ir.Join(j.Eval(p, jt), v)
			}
			return true
		})
		for t, v := range updates {
			j.Update(p, t, v)
		}
	}

	if j.InVocabulary(active) {
		for _, n := range a.Nodes() {
			if _, ok := toB[n]; !ok && j.Eval1(active, n) != ir.False {
				j.Update(active, ir.T(n), ir.Unknown)
			}
		}
	}
	j.Blur()
	_, same := Isomorphic(j, a)
	return j, !same
}
