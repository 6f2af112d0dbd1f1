package visited

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := New(4)

	assert.False(t, s.Marked(1))
	assert.True(t, s.Mark(1))
	assert.False(t, s.Mark(1))
	assert.True(t, s.Marked(1))
	assert.False(t, s.Marked(2))

	s.Clear()
	assert.False(t, s.Marked(1))
	assert.True(t, s.Mark(1))

	assert.Panics(t, func() { s.Mark(4) })
}

func TestSet_GenerationWrap(t *testing.T) {
	s := New(2)
	s.Mark(0)
	s.gen = ^uint32(0)
	s.Mark(1)

	s.Clear()
	assert.Equal(t, uint32(1), s.gen)
	assert.False(t, s.Marked(0))
	assert.False(t, s.Marked(1))
}
