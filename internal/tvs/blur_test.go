package tvs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tvs/internal/ir"
)

// threeList builds x -> u0 -> u1 -> u2 with every node reachable from x.
func threeList(t *testing.T, f listFixture) (*Structure, []ir.Node) {
	t.Helper()
	s := New(f.v)
	us := f.activeNodes(s, 3)
	s.Update(f.x, ir.T(us[0]), ir.True)
	s.Update(f.n, ir.T(us[0], us[1]), ir.True)
	s.Update(f.n, ir.T(us[1], us[2]), ir.True)
	for _, u := range us {
		s.Update(f.rx, ir.T(u), ir.True)
	}
	return s, us
}

func TestCanonic_Names(t *testing.T) {
	f := newListFixture(t)
	s, us := threeList(t, f)

	head := s.Canonic(us[0])
	tail := s.Canonic(us[1])
	assert.Equal(t, "[1,1,1]", head.String())
	assert.Equal(t, tail, s.Canonic(us[2]))
	assert.NotEqual(t, head, tail)
	assert.Equal(t, tail.Hash(), s.Canonic(us[2]).Hash())
	assert.Equal(t, NewCanonic([]ir.Kleene{ir.False, ir.True, ir.True}), tail)
	assert.Equal(t, 3, tail.Len())
	assert.Equal(t, ir.False, tail.At(0))

	assert.False(t, s.IsBlurred())
	_, ok := s.CanonicNode(tail)
	assert.False(t, ok, "lookup requires unique names")
}

func TestBlur_MergesEqualNames(t *testing.T) {
	f := newListFixture(t)
	s, us := threeList(t, f)

	s.Blur()

	require.Equal(t, []ir.Node{us[0], us[1]}, s.Nodes())
	assert.True(t, s.IsBlurred())
	assert.True(t, s.IsSummary(us[1]))
	assert.False(t, s.IsSummary(us[0]))
	assert.Equal(t, ir.Unknown, s.Eval2(f.n, us[0], us[1]))
	assert.Equal(t, ir.Unknown, s.Eval2(f.n, us[1], us[1]))

	n, ok := s.CanonicNode(s.Canonic(us[1]))
	assert.True(t, ok)
	assert.Equal(t, us[1], n)
}

func TestBlur_Idempotent(t *testing.T) {
	f := newListFixture(t)
	s, _ := threeList(t, f)

	s.Blur()
	once, err := s.MarshalCanonical()
	require.NoError(t, err)
	v := s.Version()

	s.Blur()
	twice, err := s.MarshalCanonical()
	require.NoError(t, err)

	assert.Equal(t, string(once), string(twice))
	assert.Equal(t, v, s.Version())
}

func TestBlur_CopyKeepsNames(t *testing.T) {
	f := newListFixture(t)
	s, us := threeList(t, f)
	s.Blur()

	c := s.Copy()
	assert.Equal(t, s.CanonicNames(), c.CanonicNames())
	assert.Equal(t, s.CanonicMultiset(), c.CanonicMultiset())
	assert.True(t, c.IsBlurred())
	assert.Equal(t, s.Canonic(us[0]), c.Canonic(us[0]))
}
