package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTuple_Basics(t *testing.T) {
	tup := T(1, 2, 1)

	assert.Equal(t, 3, tup.Len())
	assert.Equal(t, Node(2), tup.At(1))
	assert.True(t, tup.Contains(1))
	assert.False(t, tup.Contains(3))
	assert.Equal(t, "(u1,u2,u1)", tup.String())
	assert.Equal(t, T(5, 2, 5), tup.Substitute(1, 5))
	assert.Equal(t, T(1, 9, 1), tup.With(1, 9))
	assert.Equal(t, T(1, 2, 1), tup, "tuples are values")
	assert.Equal(t, T(2, 3, 2), tup.Map(func(n Node) Node { return n + 1 }))
}

func TestTuple_Comparable(t *testing.T) {
	m := map[Tuple]int{T(1, 2): 1}
	m[T(1, 2)]++
	assert.Equal(t, 2, m[T(1, 2)])
	assert.NotEqual(t, T(1), T(1, 0), "arity is part of identity")
	assert.True(t, T(1).Less(T(0, 0)))
	assert.True(t, T(0, 1).Less(T(0, 2)))
}

func TestTuple_ArityOverflowPanics(t *testing.T) {
	assert.Panics(t, func() { T(1, 2, 3, 4, 5) })
	assert.Panics(t, func() { T(1).At(1) })
}

func TestForEachTuple(t *testing.T) {
	var got []Tuple
	ForEachTuple([]Node{0, 3}, 2, func(tp Tuple) bool {
		got = append(got, tp)
		return true
	})
	assert.Equal(t, []Tuple{T(0, 0), T(0, 3), T(3, 0), T(3, 3)}, got)

	count := 0
	ForEachTuple([]Node{0, 1, 2}, 0, func(Tuple) bool { count++; return true })
	assert.Equal(t, 1, count, "arity zero yields the empty tuple once")

	count = 0
	ForEachTuple([]Node{0, 1, 2}, 2, func(Tuple) bool { count++; return count < 4 })
	assert.Equal(t, 4, count, "iteration stops when fn returns false")

	count = 0
	ForEachTuple(nil, 1, func(Tuple) bool { count++; return true })
	assert.Zero(t, count)
}
