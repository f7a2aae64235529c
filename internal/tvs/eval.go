package tvs

import (
	"fmt"
	"strings"

	"github.com/roach88/tvs/internal/ir"
)

// Assignment binds formula variables to nodes.
type Assignment map[ir.Var]ir.Node

// EvalFormula evaluates f under a in Kleene semantics. Quantifiers range over
// the live nodes weighted by active; equality of a node with itself is 1
// unless the node is a summary node, in which case it is 1/2. EvalFormula
// panics when a free variable of f is unbound.
func (s *Structure) EvalFormula(f ir.Formula, a Assignment) ir.Kleene {
	if a == nil {
		a = Assignment{}
	}
	return s.eval(f, a)
}

func (s *Structure) eval(f ir.Formula, a Assignment) ir.Kleene {
	switch g := f.(type) {
	case ir.Const:
		return g.Value
	case ir.Atom:
		nodes := make([]ir.Node, len(g.Args))
		for i, v := range g.Args {
			nodes[i] = s.lookup(a, v)
		}
		return s.Eval(g.Pred, ir.T(nodes...))
	case ir.Equal:
		return s.equal(s.lookup(a, g.Left), s.lookup(a, g.Right))
	case ir.Not:
		return s.eval(g.Sub, a).Not()
	case ir.And:
		res := ir.True
		for _, sub := range g.Subs {
			res = res.And(s.eval(sub, a))
			if res == ir.False {
				break
			}
		}
		return res
	case ir.Or:
		res := ir.False
		for _, sub := range g.Subs {
			res = res.Or(s.eval(sub, a))
			if res == ir.True {
				break
			}
		}
		return res
	case ir.Exists:
		prev, bound := a[g.Var]
		res := ir.False
		for _, n := range s.nodes {
			a[g.Var] = n
			res = res.Or(s.Activeness(n).And(s.eval(g.Sub, a)))
			if res == ir.True {
				break
			}
		}
		restore(a, g.Var, prev, bound)
		return res
	case ir.Forall:
		prev, bound := a[g.Var]
		res := ir.True
		for _, n := range s.nodes {
			a[g.Var] = n
			res = res.And(s.Activeness(n).Not().Or(s.eval(g.Sub, a)))
			if res == ir.False {
				break
			}
		}
		restore(a, g.Var, prev, bound)
		return res
	case ir.TC:
		return s.closure(g, a)
	}
	panic(fmt.Sprintf("tvs: unsupported formula %T", f))
}

func (s *Structure) lookup(a Assignment, v ir.Var) ir.Node {
	n, ok := a[v]
	if !ok {
		panic(fmt.Sprintf("tvs: variable %s is unbound", v))
	}
	return n
}

func (s *Structure) equal(u, w ir.Node) ir.Kleene {
	if u != w {
		return ir.False
	}
	if s.Eval1(s.vocab.Summary(), u) == ir.False {
		return ir.True
	}
	return ir.Unknown
}

func restore(a Assignment, v ir.Var, prev ir.Node, bound bool) {
	if bound {
		a[v] = prev
	} else {
		delete(a, v)
	}
}

// closureCache memoises TC relations for one structure version.
type closureCache struct {
	version uint64
	rel     map[string]*relation
}

type relation struct {
	index map[ir.Node]int
	m     [][]ir.Kleene
}

// closure evaluates TC(l,r)(from,to).sub as the max-min closure of the step
// relation over paths of length at least one.
func (s *Structure) closure(g ir.TC, a Assignment) ir.Kleene {
	l, r := s.lookup(a, g.Left), s.lookup(a, g.Right)
	rel := s.relationFor(g, a)
	return rel.m[rel.index[l]][rel.index[r]]
}

func (s *Structure) relationFor(g ir.TC, a Assignment) *relation {
	if s.tc == nil || s.tc.version != s.version {
		s.tc = &closureCache{version: s.version, rel: make(map[string]*relation)}
	}
	key := closureKey(g, a)
	if rel, ok := s.tc.rel[key]; ok {
		return rel
	}

	n := len(s.nodes)
	rel := &relation{index: make(map[ir.Node]int, n), m: make([][]ir.Kleene, n)}
	for i, u := range s.nodes {
		rel.index[u] = i
	}
	inner := make(Assignment, len(a)+2)
	for k, v := range a {
		inner[k] = v
	}
	for i, u := range s.nodes {
		rel.m[i] = make([]ir.Kleene, n)
		inner[g.From] = u
		for j, w := range s.nodes {
			inner[g.To] = w
			rel.m[i][j] = s.eval(g.Sub, inner)
		}
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if rel.m[i][k] == ir.False {
				continue
			}
			for j := 0; j < n; j++ {
				rel.m[i][j] = rel.m[i][j].Or(rel.m[i][k].And(rel.m[k][j]))
			}
		}
	}
	s.tc.rel[key] = rel
	return rel
}

// closureKey identifies a TC subformula together with the bindings of its
// parameters, i.e. the free variables of the step formula other than the
// step endpoints.
func closureKey(g ir.TC, a Assignment) string {
	var b strings.Builder
	b.WriteString(ir.TC{From: g.From, To: g.To, Sub: g.Sub}.String())
	for _, v := range g.Sub.FreeVars() {
		if v == g.From || v == g.To {
			continue
		}
		if n, ok := a[v]; ok {
			fmt.Fprintf(&b, ";%s=%d", v, n)
		}
	}
	return b.String()
}
