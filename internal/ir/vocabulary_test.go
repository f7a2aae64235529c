package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listVocabulary(t *testing.T) *Vocabulary {
	t.Helper()
	v, err := NewVocabulary(
		PredicateDef{Name: "x", Arity: 1, Properties: Unique | Abstraction},
		PredicateDef{Name: "n", Arity: 2, Properties: Function | Acyclic},
		PredicateDef{Name: "r_x", Arity: 1, Properties: Abstraction},
		PredicateDef{Name: "empty", Arity: 0},
	)
	require.NoError(t, err)
	return v
}

func TestNewVocabulary_AddsBuiltins(t *testing.T) {
	v := listVocabulary(t)

	assert.Equal(t, 6, v.Len())
	assert.Equal(t, SummaryName, v.Summary().Name())
	assert.Equal(t, ActiveName, v.Active().Name())
	assert.True(t, v.Active().IsAbstraction())
	assert.False(t, v.Summary().IsAbstraction())

	names := func(ps []*Predicate) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.Name())
		}
		return out
	}
	assert.Equal(t, []string{"x", "r_x", "active"}, names(v.AbstractionPredicates()))
	assert.Equal(t, []string{"n"}, names(v.ByArity(2)))
	assert.Equal(t, []string{"empty"}, names(v.ByArity(0)))

	for i, p := range v.Predicates() {
		assert.Equal(t, i, p.ID())
		assert.Same(t, p, v.At(i))
	}
}

func TestNewVocabulary_Rejects(t *testing.T) {
	tests := []struct {
		name string
		defs []PredicateDef
		want string
	}{
		{"empty name", []PredicateDef{{Name: " ", Arity: 1}}, "required"},
		{"duplicate", []PredicateDef{{Name: "p", Arity: 1}, {Name: "p", Arity: 2}}, "duplicate"},
		{"arity", []PredicateDef{{Name: "p", Arity: MaxArity + 1}}, "out of range"},
		{"function on unary", []PredicateDef{{Name: "p", Arity: 1, Properties: Function}}, "arity 2"},
		{"unique on binary", []PredicateDef{{Name: "p", Arity: 2, Properties: Unique}}, "unique"},
		{"binary sm", []PredicateDef{{Name: SummaryName, Arity: 2}}, "unary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVocabulary(tt.defs...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestVocabulary_LookupNormalisesNames(t *testing.T) {
	// "é" precomposed vs. "e" + combining acute accent
	v := MustVocabulary(PredicateDef{Name: "caf\u00e9", Arity: 1})
	p, ok := v.Lookup("cafe\u0301")
	require.True(t, ok)
	assert.Equal(t, "caf\u00e9", p.Name())

	_, ok = v.Lookup("missing")
	assert.False(t, ok)
	assert.Panics(t, func() { v.MustLookup("missing") })
}

func TestDynamicVocabulary_SetAlgebra(t *testing.T) {
	v := listVocabulary(t)
	x, n, rx := v.MustLookup("x"), v.MustLookup("n"), v.MustLookup("r_x")

	a := NewDynamicVocabulary(x, n)
	b := NewDynamicVocabulary(n, rx)

	assert.True(t, a.Contains(x))
	assert.False(t, a.Contains(rx))
	assert.Equal(t, []*Predicate{x, n, rx}, a.Union(b).Members(v))
	assert.Equal(t, []*Predicate{x}, a.Subtract(b).Members(v))
	assert.Equal(t, []*Predicate{n}, a.Intersect(b).Members(v))
	assert.True(t, a.Intersect(b).SubsetOf(a))
	assert.False(t, a.SubsetOf(b))
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []int{x.ID(), n.ID()}, a.IDs())

	c := a.Clone()
	c.Remove(x)
	assert.True(t, a.Contains(x), "clone is independent")
	assert.False(t, c.Contains(x))
	assert.True(t, c.Equal(NewDynamicVocabulary(n)))

	var empty DynamicVocabulary
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.SubsetOf(a))
	assert.True(t, v.All().Contains(v.Summary()))
}

func TestProperty_ParseAndString(t *testing.T) {
	p, err := ParseProperty("invfunction")
	require.NoError(t, err)
	assert.Equal(t, InvFunction, p)
	assert.Equal(t, "function|acyclic", (Function | Acyclic).String())
	_, err = ParseProperty("transitive")
	assert.Error(t, err)
}
