package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tvs/internal/compiler"
	"github.com/roach88/tvs/internal/ir"
)

func listDefinition(t *testing.T) *compiler.Analysis {
	t.Helper()
	def, err := LoadDefinition("testdata/list")
	require.NoError(t, err)
	return def
}

func pushEdge() EdgeSpec {
	return EdgeSpec{
		Name: "push", From: "loop", To: "loop", New: "fresh",
		Updates: []Update{
			{Pred: "n", Args: []string{"v1", "v2"}, Formula: "push_n"},
			{Pred: "x", Args: []string{"v"}, Formula: "is_fresh"},
			{Pred: "r_x", Args: []string{"v"}, Formula: "push_rx"},
		},
	}
}

func TestCompileEdge_PushPrependsNode(t *testing.T) {
	def := listDefinition(t)
	e, err := compileEdge(def, pushEdge())
	require.NoError(t, err)
	require.NotNil(t, e.Apply)
	assert.Nil(t, e.Focus)

	single, ok := def.Structure("single")
	require.True(t, ok)
	s := single.Structure.Copy()
	old := single.Nodes["u"]

	require.NoError(t, e.Apply(s))
	require.Equal(t, 2, s.NodeCount())
	var head ir.Node
	for _, n := range s.Nodes() {
		if n != old {
			head = n
		}
	}

	v := def.Vocabulary
	x, n, rx, fresh := v.MustLookup("x"), v.MustLookup("n"), v.MustLookup("r_x"), v.MustLookup("fresh")
	assert.Equal(t, ir.True, s.Eval1(x, head))
	assert.Equal(t, ir.False, s.Eval1(x, old))
	assert.Equal(t, ir.True, s.Eval2(n, head, old))
	assert.Equal(t, ir.False, s.Eval2(n, old, head))
	assert.Equal(t, ir.True, s.Eval1(rx, head))
	assert.Equal(t, ir.True, s.Eval1(rx, old))
	assert.Equal(t, ir.True, s.Activeness(head))
	assert.Equal(t, ir.False, s.Eval1(fresh, head), "the marker is cleared after the updates")

	assert.Equal(t, 1, single.Structure.NodeCount(), "the definition's structure is untouched")
}

func TestCompileEdge_ConstantUpdate(t *testing.T) {
	def := listDefinition(t)
	e, err := compileEdge(def, EdgeSpec{
		Name: "clear", From: "a", To: "b",
		Updates: []Update{{Pred: "x", Args: []string{"v"}, Value: "1/2"}},
	})
	require.NoError(t, err)

	single, _ := def.Structure("single")
	s := single.Structure.Copy()
	require.NoError(t, e.Apply(s))
	assert.Equal(t, ir.Unknown, s.Eval1(def.Vocabulary.MustLookup("x"), single.Nodes["u"]))
}

func TestCompileEdge_FocusOnly(t *testing.T) {
	def := listDefinition(t)
	e, err := compileEdge(def, EdgeSpec{Name: "f", From: "a", To: "b", Focus: "nonempty"})
	require.NoError(t, err)
	assert.NotNil(t, e.Focus)
	assert.Nil(t, e.Apply, "an edge without updates only filters")
}

func TestCompileEdge_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec EdgeSpec
		want string
	}{
		{
			name: "unknown marker",
			spec: EdgeSpec{Name: "e", New: "nope"},
			want: `unknown marker predicate "nope"`,
		},
		{
			name: "binary marker",
			spec: EdgeSpec{Name: "e", New: "n"},
			want: "must be unary",
		},
		{
			name: "unknown predicate",
			spec: EdgeSpec{Name: "e", Updates: []Update{{Pred: "y", Value: "1"}}},
			want: `unknown predicate "y"`,
		},
		{
			name: "arity mismatch",
			spec: EdgeSpec{Name: "e", Updates: []Update{{Pred: "n", Args: []string{"v"}, Value: "1"}}},
			want: "has arity 2, got 1 arguments",
		},
		{
			name: "repeated argument",
			spec: EdgeSpec{Name: "e", Updates: []Update{{Pred: "n", Args: []string{"v", "v"}, Value: "1"}}},
			want: "argument v repeated",
		},
		{
			name: "bad value",
			spec: EdgeSpec{Name: "e", Updates: []Update{{Pred: "x", Args: []string{"v"}, Value: "maybe"}}},
			want: "invalid Kleene value",
		},
		{
			name: "unknown formula",
			spec: EdgeSpec{Name: "e", Updates: []Update{{Pred: "x", Args: []string{"v"}, Formula: "nope"}}},
			want: `unknown formula "nope"`,
		},
		{
			name: "free variables escape",
			spec: EdgeSpec{Name: "e", Updates: []Update{{Pred: "x", Args: []string{"v"}, Formula: "push_n"}}},
			want: "free variables outside",
		},
	}

	def := listDefinition(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileEdge(def, tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
