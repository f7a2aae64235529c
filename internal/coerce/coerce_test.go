package coerce

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/testutil"
	"github.com/roach88/tvs/internal/tvs"
)

func newCoercer(t *testing.T, l testutil.List, opts ...Option) *Coercer {
	t.Helper()
	c, err := New(l.V, nil, opts...)
	require.NoError(t, err)
	return c
}

func TestCoerce_UniqueViolation(t *testing.T) {
	l := testutil.NewList(t)
	s := tvs.New(l.V)
	us := l.ActiveNodes(s, 2)
	s.Update(l.X, ir.T(us[0]), ir.True)
	s.Update(l.X, ir.T(us[1]), ir.True)

	var msgs []string
	c := newCoercer(t, l, WithDiagnostics(func(_ *tvs.Structure, msg string) {
		msgs = append(msgs, msg)
	}))

	assert.Equal(t, Invalid, c.Coerce(s))
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "constraint breached: x/unique")
}

func TestCoerce_UniqueSharpensOtherNodes(t *testing.T) {
	l := testutil.NewList(t)
	s := tvs.New(l.V)
	us := l.ActiveNodes(s, 2)
	s.Update(l.X, ir.T(us[0]), ir.True)
	s.Update(l.X, ir.T(us[1]), ir.Unknown)

	c := newCoercer(t, l)

	assert.Equal(t, Modified, c.Coerce(s))
	assert.Equal(t, ir.False, s.Eval1(l.X, us[1]))
	assert.Equal(t, Unmodified, c.Coerce(s), "coerce is a fixpoint")
}

func TestCoerce_UniqueMakesNodeConcrete(t *testing.T) {
	l := testutil.NewList(t)
	s := tvs.New(l.V)
	u := l.ActiveNodes(s, 1)[0]
	s.Update(l.X, ir.T(u), ir.True)
	s.Update(l.Summary, ir.T(u), ir.Unknown)

	c := newCoercer(t, l)

	assert.Equal(t, Modified, c.Coerce(s))
	assert.False(t, s.IsSummary(u))
}

func TestCoerce_FunctionSharpensSecondEdge(t *testing.T) {
	l := testutil.NewList(t)
	s := tvs.New(l.V)
	us := l.ActiveNodes(s, 3)
	s.Update(l.N, ir.T(us[0], us[1]), ir.True)
	s.Update(l.N, ir.T(us[0], us[2]), ir.Unknown)

	c := newCoercer(t, l)

	assert.Equal(t, Modified, c.Coerce(s))
	assert.Equal(t, ir.False, s.Eval2(l.N, us[0], us[2]))
	assert.Equal(t, ir.True, s.Eval2(l.N, us[0], us[1]))
}

func TestCoerce_WithoutContrapositivesKeepsUnknown(t *testing.T) {
	l := testutil.NewList(t)
	s := tvs.New(l.V)
	us := l.ActiveNodes(s, 3)
	s.Update(l.N, ir.T(us[0], us[1]), ir.True)
	s.Update(l.N, ir.T(us[0], us[2]), ir.Unknown)

	c := newCoercer(t, l, WithContrapositives(false))

	assert.Equal(t, Unmodified, c.Coerce(s))
	assert.Equal(t, ir.Unknown, s.Eval2(l.N, us[0], us[2]))
}

func TestCoerce_AcyclicBreaksBackEdge(t *testing.T) {
	l := testutil.NewList(t)
	s := tvs.New(l.V)
	us := l.ActiveNodes(s, 2)
	s.Update(l.N, ir.T(us[0], us[1]), ir.True)
	s.Update(l.N, ir.T(us[1], us[0]), ir.Unknown)

	c := newCoercer(t, l)

	assert.Equal(t, Modified, c.Coerce(s))
	assert.Equal(t, ir.False, s.Eval2(l.N, us[1], us[0]))
}

func TestCoerce_SkipsMaybeActiveNodes(t *testing.T) {
	l := testutil.NewList(t)
	s := tvs.New(l.V)
	u := l.ActiveNodes(s, 1)[0]
	maybe := s.NewNode()
	s.Update(l.X, ir.T(u), ir.True)
	s.Update(l.X, ir.T(maybe), ir.True)

	c := newCoercer(t, l)

	assert.Equal(t, Unmodified, c.Coerce(s))
}

func TestCoerce_AbstractListIsConsistent(t *testing.T) {
	l := testutil.NewList(t)
	s, head, tail := l.AbstractList()

	c := newCoercer(t, l)

	assert.Equal(t, Unmodified, c.Coerce(s))
	assert.Equal(t, ir.Unknown, s.Eval2(l.N, head, tail))
	assert.Equal(t, ir.Unknown, s.Eval2(l.N, tail, tail))
	assert.True(t, s.IsSummary(tail))
}

func TestCoerce_InactiveConstraintsAreSkipped(t *testing.T) {
	l := testutil.NewList(t)
	c, err := New(l.V, []Constraint{{Body: ir.P(l.X, "v"), Head: ir.P(l.RX, "v")}})
	require.NoError(t, err)

	s := tvs.NewWithVocabulary(l.V, ir.NewDynamicVocabulary(l.Summary, l.Active, l.X))
	u := l.ActiveNodes(s, 1)[0]
	s.Update(l.X, ir.T(u), ir.True)

	assert.Equal(t, Unmodified, c.Coerce(s))
	assert.Equal(t, ir.Unknown, s.Eval1(l.RX, u))

	s.AddPredicate(l.RX)
	s.Update(l.RX, ir.T(u), ir.Unknown)
	assert.Equal(t, Modified, c.Coerce(s))
	assert.Equal(t, ir.True, s.Eval1(l.RX, u))
}

func TestCoerceDelta_MatchesFullCoerce(t *testing.T) {
	l := testutil.NewList(t)
	s := tvs.New(l.V)
	us := l.ActiveNodes(s, 3)
	s.Update(l.X, ir.T(us[0]), ir.True)
	s.Update(l.N, ir.T(us[0], us[1]), ir.True)
	c := newCoercer(t, l)
	require.Equal(t, Unmodified, c.Coerce(s))
	s.Commit()

	s.Update(l.X, ir.T(us[1]), ir.Unknown)
	s.Update(l.N, ir.T(us[0], us[2]), ir.Unknown)
	d, ok := s.Delta(0)
	require.True(t, ok)
	full := s.Copy()

	assert.Equal(t, Modified, c.CoerceDelta(s, d))
	assert.Equal(t, Modified, c.Coerce(full))

	want, err := full.MarshalCanonical()
	require.NoError(t, err)
	got, err := s.MarshalCanonical()
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
	assert.Equal(t, ir.False, s.Eval1(l.X, us[1]))
	assert.Equal(t, ir.False, s.Eval2(l.N, us[0], us[2]))
}

func TestCoerceDelta_AddedPredicateFallsBackToFullPass(t *testing.T) {
	l := testutil.NewList(t)
	c, err := New(l.V, []Constraint{{Body: ir.P(l.X, "v"), Head: ir.P(l.RX, "v")}})
	require.NoError(t, err)

	s := tvs.NewWithVocabulary(l.V, ir.NewDynamicVocabulary(l.Summary, l.Active, l.X))
	u := l.ActiveNodes(s, 1)[0]
	s.Update(l.X, ir.T(u), ir.True)
	require.Equal(t, Unmodified, c.Coerce(s))
	s.Commit()

	s.AddPredicate(l.RX)
	d, ok := s.Delta(0)
	require.True(t, ok)
	require.Zero(t, d.Len())
	full := s.Copy()

	assert.Equal(t, Invalid, c.Coerce(full))
	assert.Equal(t, Invalid, c.CoerceDelta(s, d), "r_x(u) became 0 under x(u) = 1")
}

func TestCoerceDelta_DetectsBreach(t *testing.T) {
	l := testutil.NewList(t)
	s := tvs.New(l.V)
	us := l.ActiveNodes(s, 2)
	s.Update(l.X, ir.T(us[0]), ir.True)
	c := newCoercer(t, l)
	s.Commit()

	s.Update(l.X, ir.T(us[1]), ir.True)
	d, ok := s.Delta(0)
	require.True(t, ok)

	assert.Equal(t, Invalid, c.CoerceDelta(s, d))
}

func TestCoerceDelta_FallsBackWhenUniverseChanges(t *testing.T) {
	l := testutil.NewList(t)
	s := tvs.New(l.V)
	u := l.ActiveNodes(s, 1)[0]
	s.Update(l.X, ir.T(u), ir.True)
	c := newCoercer(t, l)
	s.Commit()

	w := s.NewNode()
	s.Update(l.Active, ir.T(w), ir.True)
	s.Update(l.X, ir.T(w), ir.Unknown)
	d, ok := s.Delta(0)
	require.True(t, ok)
	require.True(t, d.UniverseChanged())

	assert.Equal(t, Modified, c.CoerceDelta(s, d))
	assert.Equal(t, ir.False, s.Eval1(l.X, w))
}

func TestNew_SpecErrors(t *testing.T) {
	l := testutil.NewList(t)

	tests := []struct {
		name string
		c    Constraint
		want string
	}{
		{
			name: "head variable not bound",
			c:    Constraint{Body: ir.P(l.X, "v"), Head: ir.P(l.N, "v", "w")},
			want: "not bound",
		},
		{
			name: "disjunctive head",
			c:    Constraint{Body: ir.P(l.X, "v"), Head: ir.Disj(ir.P(l.RX, "v"), ir.P(l.X, "v"))},
			want: "unsupported head",
		},
		{
			name: "unknown head",
			c:    Constraint{Body: ir.P(l.X, "v"), Head: ir.UnknownF},
			want: "unsupported head",
		},
		{
			name: "missing body",
			c:    Constraint{Name: "broken", Head: ir.FalseF},
			want: "required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(l.V, []Constraint{tt.c})
			require.Error(t, err)
			var spec *SpecError
			require.True(t, errors.As(err, &spec))
			assert.Contains(t, spec.Message, tt.want)
		})
	}
}

func TestCoerce_UserConstraint(t *testing.T) {
	l := testutil.NewList(t)
	// Every node reachable from x has r_x.
	reach := Constraint{
		Name: "reach",
		Body: ir.Ex("w", ir.Conj(ir.P(l.X, "w"), ir.P(l.N, "w", "v"))),
		Head: ir.P(l.RX, "v"),
	}
	c, err := New(l.V, []Constraint{reach})
	require.NoError(t, err)

	s := tvs.New(l.V)
	us := l.ActiveNodes(s, 2)
	s.Update(l.X, ir.T(us[0]), ir.True)
	s.Update(l.N, ir.T(us[0], us[1]), ir.True)
	s.Update(l.RX, ir.T(us[1]), ir.Unknown)

	assert.Equal(t, Modified, c.Coerce(s))
	assert.Equal(t, ir.True, s.Eval1(l.RX, us[1]))
}

func TestCoerce_EmptyBodyFalseHead(t *testing.T) {
	l := testutil.NewList(t)
	c, err := New(l.V, []Constraint{{Name: "never-empty", Body: ir.P(l.Empty), Head: ir.FalseF}})
	require.NoError(t, err)

	s := tvs.New(l.V)
	s.Update(l.Empty, ir.EmptyTuple, ir.Unknown)
	assert.Equal(t, Unmodified, c.Coerce(s))

	s.Update(l.Empty, ir.EmptyTuple, ir.True)
	assert.Equal(t, Invalid, c.Coerce(s))
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "unmodified", Unmodified.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "invalid", Invalid.String())
}
