package tvs

import (
	"fmt"
	"slices"

	"github.com/roach88/tvs/internal/ir"
)

// Update sets p(t) to v. Writes to predicates outside the dynamic vocabulary
// are ignored. Writing the current value is a no-op and leaves the touched
// set alone. Update panics when t does not match p's arity or references a
// node that is not live.
func (s *Structure) Update(p *ir.Predicate, t ir.Tuple, v ir.Kleene) {
	if !v.Valid() {
		panic(fmt.Sprintf("tvs: invalid Kleene value %d", v))
	}
	if !s.dyn.Contains(p) {
		return
	}
	s.checkTuple(p, t)
	if s.tables[p.ID()][t] == v {
		return
	}
	tab := s.writable(p)
	if v == ir.False {
		delete(tab, t)
	} else {
		tab[t] = v
	}
	s.touch(p)
}

// NewNode allocates a fresh node. When active is part of the dynamic
// vocabulary the node starts with active=1/2; every other predicate is false
// on it.
func (s *Structure) NewNode() ir.Node {
	n := s.allocate(ir.Node(len(s.live)))
	if s.dyn.Contains(s.vocab.Active()) {
		s.Update(s.vocab.Active(), ir.T(n), ir.Unknown)
	}
	return n
}

// allocate makes id live, growing the arena as needed.
func (s *Structure) allocate(id ir.Node) ir.Node {
	for int(id) >= len(s.live) {
		s.live = append(s.live, false)
	}
	if s.live[id] {
		panic(fmt.Sprintf("tvs: node %s already live", id))
	}
	s.live[id] = true
	i, _ := slices.BinarySearch(s.nodes, id)
	s.nodes = slices.Insert(s.nodes, i, id)
	s.universe = true
	s.version++
	return id
}

// RemoveNode deletes n and every tuple mentioning it.
func (s *Structure) RemoveNode(n ir.Node) {
	if !s.Live(n) {
		panic(fmt.Sprintf("tvs: remove of node %s not live in this structure", n))
	}
	for _, p := range s.dyn.Members(s.vocab) {
		if p.Arity() == 0 {
			continue
		}
		var doomed []ir.Tuple
		for t := range s.tables[p.ID()] {
			if t.Contains(n) {
				doomed = append(doomed, t)
			}
		}
		if len(doomed) == 0 {
			continue
		}
		tab := s.writable(p)
		for _, t := range doomed {
			delete(tab, t)
		}
		s.touch(p)
	}
	s.live[n] = false
	i, _ := slices.BinarySearch(s.nodes, n)
	s.nodes = slices.Delete(s.nodes, i, i+1)
	delete(s.twins, n)
	s.universe = true
	s.version++
}

// MergeNodes collapses group into its smallest node and returns it. Every
// tuple of the survivor takes the join of the values of all tuples mapping
// onto it, absent tuples counting as 0. The survivor becomes a summary node
// (sm=1/2). Merging a single node is a no-op.
func (s *Structure) MergeNodes(group []ir.Node) ir.Node {
	if len(group) == 0 {
		panic("tvs: merge of empty node group")
	}
	members := make(map[ir.Node]bool, len(group))
	survivor := group[0]
	for _, n := range group {
		if !s.Live(n) {
			panic(fmt.Sprintf("tvs: merge of node %s not live in this structure", n))
		}
		members[n] = true
		survivor = min(survivor, n)
	}
	if len(members) == 1 {
		return survivor
	}
	sorted := make([]ir.Node, 0, len(members))
	for n := range members {
		sorted = append(sorted, n)
	}
	slices.Sort(sorted)
	collapse := func(n ir.Node) ir.Node {
		if members[n] {
			return survivor
		}
		return n
	}

	for _, p := range s.dyn.Members(s.vocab) {
		if p.Arity() == 0 {
			continue
		}
		old := s.tables[p.ID()]
		var preimages []ir.Tuple
		images := make(map[ir.Tuple]bool)
		for t := range old {
			if t.ContainsAny(members) {
				preimages = append(preimages, t)
				images[t.Map(collapse)] = true
			}
		}
		if len(preimages) == 0 {
			continue
		}
		values := make(map[ir.Tuple]ir.Kleene, len(images))
		for img := range images {
			values[img] = joinPreimages(old, img, survivor, sorted)
		}
		tab := s.writable(p)
		for _, t := range preimages {
			delete(tab, t)
		}
		for img, v := range values {
			if v != ir.False {
				tab[img] = v
			}
		}
		s.touch(p)
	}

	for _, n := range sorted {
		if n == survivor {
			continue
		}
		s.live[n] = false
		delete(s.twins, n)
	}
	s.nodes = slices.DeleteFunc(s.nodes, func(n ir.Node) bool { return members[n] && n != survivor })
	s.universe = true
	s.version++
	s.Update(s.vocab.Summary(), ir.T(survivor), ir.Unknown)
	return survivor
}

// joinPreimages joins the values of every tuple obtained by replacing the
// survivor positions of img with members of group.
func joinPreimages(tab table, img ir.Tuple, survivor ir.Node, group []ir.Node) ir.Kleene {
	var slots []int
	for i := 0; i < img.Len(); i++ {
		if img.At(i) == survivor {
			slots = append(slots, i)
		}
	}
	idx := make([]int, len(slots))
	var acc ir.Kleene
	first := true
	for {
		t := img
		for k, pos := range slots {
			t = t.With(pos, group[idx[k]])
		}
		v := tab[t]
		if first {
			acc, first = v, false
		} else {
			acc = ir.Join(acc, v)
		}
		if acc == ir.Unknown {
			return acc
		}
		k := len(slots) - 1
		for k >= 0 {
			idx[k]++
			if idx[k] < len(group) {
				break
			}
			idx[k] = 0
			k--
		}
		if k < 0 {
			return acc
		}
	}
}

// DuplicateNode creates a twin of n that agrees with n on every predicate,
// including tuples where only some occurrences of n are replaced by the twin.
// The twin is recorded so that deltas can identify it with its origin.
func (s *Structure) DuplicateNode(n ir.Node) ir.Node {
	if !s.Live(n) {
		panic(fmt.Sprintf("tvs: duplicate of node %s not live in this structure", n))
	}
	twin := s.allocate(ir.Node(len(s.live)))
	for _, p := range s.dyn.Members(s.vocab) {
		if p.Arity() == 0 {
			continue
		}
		var src []Entry
		for t, v := range s.tables[p.ID()] {
			if t.Contains(n) {
				src = append(src, Entry{Tuple: t, Value: v})
			}
		}
		if len(src) == 0 {
			continue
		}
		tab := s.writable(p)
		for _, e := range src {
			var slots []int
			for i := 0; i < e.Tuple.Len(); i++ {
				if e.Tuple.At(i) == n {
					slots = append(slots, i)
				}
			}
			for mask := 1; mask < 1<<len(slots); mask++ {
				t := e.Tuple
				for k, pos := range slots {
					if mask&(1<<k) != 0 {
						t = t.With(pos, twin)
					}
				}
				tab[t] = e.Value
			}
		}
		s.touch(p)
	}
	if s.twins == nil {
		s.twins = make(map[ir.Node]ir.Node)
	}
	origin := n
	if o, ok := s.twins[n]; ok {
		origin = o
	}
	s.twins[twin] = origin
	return twin
}
