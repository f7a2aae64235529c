package coerce

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// fix is a deferred head write found by the assignment search.
type fix struct {
	pred  *ir.Predicate
	tuple ir.Tuple
	want  ir.Kleene
}

// breach describes an assignment under which a rule's head is definitely
// false while its body definitely holds.
type breach struct {
	rule       *rule
	assignment tvs.Assignment
}

func (b *breach) String() string {
	vars := make([]string, 0, len(b.assignment))
	for v, n := range b.assignment {
		vars = append(vars, fmt.Sprintf("%s=%s", v, n))
	}
	slices.Sort(vars)
	return fmt.Sprintf("%s [%s]", b.rule.source.label(), strings.Join(vars, " "))
}

// searcher enumerates the assignments under which a rule's body is
// definitely true. Nodes with active=1/2 are never assigned.
type searcher struct {
	s        *tvs.Structure
	r        *rule
	eligible []ir.Node
	a        tvs.Assignment
	fixes    []fix
	breach   *breach
}

func newSearcher(s *tvs.Structure, r *rule, eligible []ir.Node) *searcher {
	return &searcher{s: s, r: r, eligible: eligible, a: make(tvs.Assignment)}
}

// eligibleNodes returns the nodes an assignment may use.
func eligibleNodes(s *tvs.Structure) []ir.Node {
	return slices.DeleteFunc(s.Nodes(), s.MaybeActive)
}

// full searches every assignment.
func (x *searcher) full() bool {
	return x.search(0)
}

// pivot searches the assignments binding vars to the nodes of t. It reports
// false once a breach has been found.
func (x *searcher) pivot(vars []ir.Var, t ir.Tuple) bool {
	clear(x.a)
	for i, v := range vars {
		n := t.At(i)
		if !x.s.Live(n) || x.s.MaybeActive(n) {
			return true
		}
		if prev, ok := x.a[v]; ok && prev != n {
			return true
		}
		x.a[v] = n
	}
	return x.search(0)
}

func (x *searcher) search(i int) bool {
	if i == len(x.r.body) {
		return x.fire()
	}
	c := x.r.body[i]
	var unbound []ir.Var
	for _, v := range c.vars {
		if _, ok := x.a[v]; !ok {
			unbound = append(unbound, v)
		}
	}
	if len(unbound) == 0 {
		if x.s.EvalFormula(c.f, x.a) != ir.True {
			return true
		}
		return x.search(i + 1)
	}
	if c.atomic() && !c.negated {
		return x.matchTable(i, c, unbound)
	}
	return x.enumerate(i, c, unbound, 0)
}

// matchTable binds the unbound variables of a positive atom from the tuples
// of its table that are definitely true.
func (x *searcher) matchTable(i int, c conjunct, unbound []ir.Var) bool {
	var matches []ir.Tuple
	x.s.Range(c.pred, func(t ir.Tuple, v ir.Kleene) bool {
		if v == ir.True {
			matches = append(matches, t)
		}
		return true
	})
	slices.SortFunc(matches, func(a, b ir.Tuple) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	for _, t := range matches {
		if !x.bindArgs(c.args, t) {
			x.unbind(unbound)
			continue
		}
		ok := x.search(i + 1)
		x.unbind(unbound)
		if !ok {
			return false
		}
	}
	return true
}

// bindArgs binds args to the nodes of t, failing on conflicts with existing
// bindings or on maybe-active nodes.
func (x *searcher) bindArgs(args []ir.Var, t ir.Tuple) bool {
	for k, v := range args {
		n := t.At(k)
		if prev, ok := x.a[v]; ok {
			if prev != n {
				return false
			}
			continue
		}
		if x.s.MaybeActive(n) {
			return false
		}
		x.a[v] = n
	}
	return true
}

func (x *searcher) unbind(vars []ir.Var) {
	for _, v := range vars {
		delete(x.a, v)
	}
}

// enumerate binds unbound[k:] to every eligible node and evaluates the
// conjunct once all of its variables are bound.
func (x *searcher) enumerate(i int, c conjunct, unbound []ir.Var, k int) bool {
	if k == len(unbound) {
		if x.s.EvalFormula(c.f, x.a) != ir.True {
			return true
		}
		return x.search(i + 1)
	}
	v := unbound[k]
	for _, n := range x.eligible {
		x.a[v] = n
		ok := x.enumerate(i, c, unbound, k+1)
		delete(x.a, v)
		if !ok {
			return false
		}
	}
	return true
}

// fire checks the head under a body-satisfying assignment.
func (x *searcher) fire() bool {
	h := x.r.head
	switch h.kind {
	case headFalse:
		return x.fail()
	case headAtom:
		nodes := make([]ir.Node, len(h.args))
		for i, v := range h.args {
			nodes[i] = x.a[v]
		}
		t := ir.T(nodes...)
		switch x.s.Eval(h.pred, t) {
		case h.want:
		case ir.Unknown:
			x.fixes = append(x.fixes, fix{pred: h.pred, tuple: t, want: h.want})
		default:
			return x.fail()
		}
	case headEqual:
		l, r := x.a[h.left], x.a[h.right]
		if l != r {
			return x.fail()
		}
		sm := x.s.Vocabulary().Summary()
		if x.s.Eval1(sm, l) != ir.False {
			x.fixes = append(x.fixes, fix{pred: sm, tuple: ir.T(l), want: ir.False})
		}
	case headNotEqual:
		l, r := x.a[h.left], x.a[h.right]
		if l == r && x.s.Eval1(x.s.Vocabulary().Summary(), l) == ir.False {
			return x.fail()
		}
	}
	return true
}

func (x *searcher) fail() bool {
	a := make(tvs.Assignment, len(x.a))
	for k, v := range x.a {
		a[k] = v
	}
	x.breach = &breach{rule: x.r, assignment: a}
	return false
}
