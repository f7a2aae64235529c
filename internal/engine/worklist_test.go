package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorklist_FIFOWithoutDuplicates(t *testing.T) {
	w := newWorklist()
	assert.True(t, w.Push("a"))
	assert.True(t, w.Push("b"))
	assert.False(t, w.Push("a"), "already queued")
	assert.Equal(t, 2, w.Len())

	loc, ok := w.Pop()
	assert.True(t, ok)
	assert.Equal(t, "a", loc)

	assert.True(t, w.Push("a"), "popped locations can be queued again")
	loc, _ = w.Pop()
	assert.Equal(t, "b", loc)
	loc, _ = w.Pop()
	assert.Equal(t, "a", loc)

	_, ok = w.Pop()
	assert.False(t, ok)
}
