package tvs

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tvs/internal/ir"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestSnapshot_BlurredList(t *testing.T) {
	f := newListFixture(t)
	s, _ := threeList(t, f)
	s.Blur()

	data, err := s.MarshalCanonical()
	require.NoError(t, err)

	g := newGoldie(t)
	g.Assert(t, "blurred_list_json", append(data, '\n'))
	g.Assert(t, "blurred_list_text", []byte(s.String()+"\n"))
}

func TestSnapshot_IgnoresNodeNumbering(t *testing.T) {
	f := newListFixture(t)

	a := New(f.v)
	ua := f.activeNodes(a, 2)
	a.Update(f.x, ir.T(ua[0]), ir.True)
	a.Update(f.n, ir.T(ua[0], ua[1]), ir.True)

	b := New(f.v)
	ub := f.activeNodes(b, 3)
	b.RemoveNode(ub[0])
	b.Update(f.x, ir.T(ub[2]), ir.True)
	b.Update(f.n, ir.T(ub[2], ub[1]), ir.True)

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)
}
