package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKleene = []Kleene{False, Unknown, True}

func TestKleene_Not(t *testing.T) {
	assert.Equal(t, True, False.Not())
	assert.Equal(t, Unknown, Unknown.Not())
	assert.Equal(t, False, True.Not())
}

// TestKleene_TruthTables checks and/or on all nine input pairs.
func TestKleene_TruthTables(t *testing.T) {
	tests := []struct {
		a, b    Kleene
		and, or Kleene
	}{
		{False, False, False, False},
		{False, Unknown, False, Unknown},
		{False, True, False, True},
		{Unknown, False, False, Unknown},
		{Unknown, Unknown, Unknown, Unknown},
		{Unknown, True, Unknown, True},
		{True, False, False, True},
		{True, Unknown, Unknown, True},
		{True, True, True, True},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.and, tt.a.And(tt.b), "%s & %s", tt.a, tt.b)
		assert.Equal(t, tt.or, tt.a.Or(tt.b), "%s | %s", tt.a, tt.b)
	}
}

func TestKleene_JoinLaws(t *testing.T) {
	for _, a := range allKleene {
		assert.Equal(t, a, Join(a, a), "idempotent on %s", a)
		assert.Equal(t, Unknown, Join(a, Unknown), "absorbing unknown on %s", a)
		for _, b := range allKleene {
			assert.Equal(t, Join(a, b), Join(b, a), "commutative on %s,%s", a, b)
			assert.True(t, LessOrEqual(a, Join(a, b)), "join is an upper bound")
		}
	}
	assert.Equal(t, Unknown, Join(True, False))
}

func TestKleene_DeMorgan(t *testing.T) {
	for _, a := range allKleene {
		for _, b := range allKleene {
			assert.Equal(t, a.And(b).Not(), a.Not().Or(b.Not()))
		}
	}
}

func TestKleene_StringAndParse(t *testing.T) {
	for _, k := range allKleene {
		parsed, err := ParseKleene(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKleene("maybe")
	assert.Error(t, err)
	assert.True(t, Unknown.Valid())
	assert.False(t, Kleene(7).Valid())
	assert.False(t, Unknown.IsDefinite())
	assert.True(t, Of(true).IsDefinite())
}
