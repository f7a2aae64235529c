package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// List is the singly-linked-list vocabulary shared by package tests:
//
//	x     unary   unique, abstraction   (a program variable)
//	n     binary  function, acyclic      (the next field)
//	r_x   unary   abstraction            (reachable from x)
//	empty nullary
//
// plus the built-ins sm and active.
type List struct {
	V               *ir.Vocabulary
	X, N, RX, Empty *ir.Predicate
	Summary, Active *ir.Predicate
}

// NewList builds the list vocabulary.
func NewList(t testing.TB) List {
	t.Helper()
	v, err := ir.NewVocabulary(
		ir.PredicateDef{Name: "x", Arity: 1, Properties: ir.Unique | ir.Abstraction},
		ir.PredicateDef{Name: "n", Arity: 2, Properties: ir.Function | ir.Acyclic},
		ir.PredicateDef{Name: "r_x", Arity: 1, Properties: ir.Abstraction},
		ir.PredicateDef{Name: "empty", Arity: 0},
	)
	require.NoError(t, err)
	return List{
		V:       v,
		X:       v.MustLookup("x"),
		N:       v.MustLookup("n"),
		RX:      v.MustLookup("r_x"),
		Empty:   v.MustLookup("empty"),
		Summary: v.Summary(),
		Active:  v.Active(),
	}
}

// ActiveNodes allocates k nodes with active=1.
func (l List) ActiveNodes(s *tvs.Structure, k int) []ir.Node {
	out := make([]ir.Node, k)
	for i := range out {
		out[i] = s.NewNode()
		s.Update(l.Active, ir.T(out[i]), ir.True)
	}
	return out
}

// Chain builds a structure holding the concrete list x -> u0 -> ... -> u(k-1)
// with r_x set on every node.
func (l List) Chain(k int) (*tvs.Structure, []ir.Node) {
	s := tvs.New(l.V)
	us := l.ActiveNodes(s, k)
	if k > 0 {
		s.Update(l.X, ir.T(us[0]), ir.True)
	}
	for i, u := range us {
		s.Update(l.RX, ir.T(u), ir.True)
		if i+1 < k {
			s.Update(l.N, ir.T(u, us[i+1]), ir.True)
		}
	}
	return s, us
}

// AbstractList returns the blurred form of a list of length > 2:
// a head node pointed to by x and a summary tail, connected by 1/2 edges.
func (l List) AbstractList() (*tvs.Structure, ir.Node, ir.Node) {
	s, us := l.Chain(3)
	s.Blur()
	return s, us[0], us[1]
}
