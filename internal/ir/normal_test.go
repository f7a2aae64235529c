package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormula_FreeVarsAndString(t *testing.T) {
	v := listVocabulary(t)
	n, x := v.MustLookup("n"), v.MustLookup("x")

	f := Conj(P(x, "v1"), Ex("w", Conj(P(n, "v1", "w"), Neg(Eq("w", "v2")))))
	assert.Equal(t, []Var{"v1", "v2"}, f.FreeVars())
	assert.Equal(t, "(x(v1) & E(w) (n(v1,w) & w != v2))", f.String())

	tc := Closure("a", "b", "s", "t", P(n, "s", "t"))
	assert.Equal(t, []Var{"a", "b"}, tc.FreeVars())
	assert.Equal(t, "TC(a,b)(s,t) n(s,t)", tc.String())

	assert.Panics(t, func() { P(n, "v") })
}

func TestSubstitute_AvoidsCapture(t *testing.T) {
	v := listVocabulary(t)
	n := v.MustLookup("n")

	f := Ex("w", P(n, "v", "w"))
	got := Substitute(f, map[Var]Var{"v": "w"})

	ex, ok := got.(Exists)
	require.True(t, ok)
	assert.NotEqual(t, Var("w"), ex.Var, "bound variable must be renamed")
	assert.Equal(t, []Var{"w"}, got.FreeVars())

	shadowed := Substitute(Ex("v", P(n, "v", "u")), map[Var]Var{"v": "z"})
	assert.Equal(t, "E(v) n(v,u)", shadowed.String())
}

func TestNNF_PushesNegation(t *testing.T) {
	v := listVocabulary(t)
	n, x := v.MustLookup("n"), v.MustLookup("x")

	f := Neg(Conj(P(x, "v"), All("w", P(n, "v", "w"))))
	assert.Equal(t, "(!x(v) | E(w) !n(v,w))", NNF(f).String())
	assert.Equal(t, TrueF, NNF(Not{Sub: FalseF}))
}

func TestDNF(t *testing.T) {
	v := listVocabulary(t)
	n, x, rx := v.MustLookup("n"), v.MustLookup("x"), v.MustLookup("r_x")

	f := Conj(P(x, "a"), Disj(P(n, "a", "b"), Neg(P(rx, "b"))))
	d, err := DNF(f)
	require.NoError(t, err)
	require.Len(t, d, 2)
	assert.Equal(t, "x(a)", d[0][0].String())
	assert.Equal(t, "n(a,b)", d[0][1].String())
	assert.Equal(t, "!r_x(b)", d[1][1].String())
	assert.True(t, d[1][1].Negated)

	d, err = DNF(TrueF)
	require.NoError(t, err)
	assert.Equal(t, [][]Literal{{}}, d)

	d, err = DNF(FalseF)
	require.NoError(t, err)
	assert.Empty(t, d)

	_, err = DNF(UnknownF)
	assert.ErrorIs(t, err, ErrUnknownConstant)

	_, err = DNF(Ex("w", P(x, "w")))
	assert.ErrorIs(t, err, ErrQuantified)
}

func TestOccurrences(t *testing.T) {
	v := listVocabulary(t)
	n, x := v.MustLookup("n"), v.MustLookup("x")

	f := Conj(P(x, "a"), Neg(Ex("w", Conj(P(n, "a", "w"), P(x, "w")))), Eq("a", "b"))
	occ := Occurrences(f, v)

	assert.Equal(t, Positive|Negative, occ[x])
	assert.Equal(t, Negative, occ[n])
	assert.Equal(t, Positive|Negative, occ[v.Summary()])
	assert.Equal(t, []*Predicate{x, n}, Predicates(Conj(P(n, "a", "b"), P(x, "a"))))
}

func TestConjunctsAndLiterals(t *testing.T) {
	v := listVocabulary(t)
	x := v.MustLookup("x")

	cs := Conjuncts(Conj(P(x, "a"), Conj(Eq("a", "b"), Neg(P(x, "b")))))
	assert.Len(t, cs, 3)
	assert.Empty(t, Conjuncts(TrueF))

	l, ok := AsLiteral(cs[2])
	require.True(t, ok)
	assert.True(t, l.Negated)
	assert.Equal(t, "x(b)", l.Negate().String())

	_, ok = AsLiteral(Ex("w", P(x, "w")))
	assert.False(t, ok)
	assert.True(t, IsQuantifierFree(Conj(P(x, "a"), Neg(Eq("a", "b")))))
	assert.False(t, IsQuantifierFree(Closure("a", "b", "s", "t", P(x, "s"))))
	assert.True(t, ContainsVars([]Var{"a", "b"}, []Var{"b"}))
}
