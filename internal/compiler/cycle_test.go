package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tvs/internal/coerce"
	"github.com/roach88/tvs/internal/ir"
)

func TestAnalyzeCycles_DAG(t *testing.T) {
	v := ir.MustVocabulary(ir.PredicateDef{Name: "p", Arity: 1}, ir.PredicateDef{Name: "q", Arity: 1})
	c, err := coerce.New(v, []coerce.Constraint{{
		Name: "p-implies-q",
		Body: ir.P(v.MustLookup("p"), "v"),
		Head: ir.P(v.MustLookup("q"), "v"),
	}}, coerce.WithContrapositives(false))
	require.NoError(t, err)

	warnings := AnalyzeCycles(c)
	assert.NotNil(t, warnings)
	assert.Empty(t, warnings)
}

func TestAnalyzeCycles_ContrapositivePair(t *testing.T) {
	v := ir.MustVocabulary(ir.PredicateDef{Name: "p", Arity: 1}, ir.PredicateDef{Name: "q", Arity: 1})
	c, err := coerce.New(v, []coerce.Constraint{{
		Name: "p-implies-q",
		Body: ir.P(v.MustLookup("p"), "v"),
		Head: ir.P(v.MustLookup("q"), "v"),
	}})
	require.NoError(t, err)

	warnings := AnalyzeCycles(c)
	require.Len(t, warnings, 1)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Equal(t, []string{"p-implies-q", "p-implies-q/contra0", "p-implies-q"}, warnings[0].Path)
	assert.Equal(t, "Constraint cycle: p-implies-q → p-implies-q/contra0 → p-implies-q", warnings[0].Message)
}

func TestAnalyzeCycles_SelfFeeding(t *testing.T) {
	v := ir.MustVocabulary(ir.PredicateDef{Name: "eq", Arity: 2, Properties: ir.Symmetric})
	c, err := coerce.New(v, nil, coerce.WithContrapositives(false))
	require.NoError(t, err)

	warnings := AnalyzeCycles(c)
	require.Len(t, warnings, 1)
	assert.Equal(t, "info", warnings[0].Level)
	assert.Equal(t, []string{"eq/symmetric", "eq/symmetric"}, warnings[0].Path)
}

func TestReconstructCyclePath(t *testing.T) {
	graph := [][]int{{1}, {2}, {0}, {}}
	assert.Equal(t, []int{0, 1, 2, 0}, reconstructCyclePath([]int{0, 1, 2}, graph))
	assert.Equal(t, []int{}, reconstructCyclePath(nil, graph))
}
