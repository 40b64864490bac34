package sortedseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intKey(v int) any { return v }

func intCmp(a, b any) int {
	ai, bi := a.(int), b.(int)
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

func TestInsertKeepsSortedOrder(t *testing.T) {
	s := New(intKey, intCmp)
	for _, v := range []int{5, 1, 3, 2, 4} {
		s.Insert(v)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, s.Items())
}

func TestFindAndRemove(t *testing.T) {
	s := New(intKey, intCmp)
	s.Insert(10)
	s.Insert(20)
	s.Insert(30)

	v, ok := s.Find(20)
	require.True(t, ok)
	assert.Equal(t, 20, v)

	_, ok = s.Find(25)
	assert.False(t, ok)

	assert.True(t, s.Remove(20))
	assert.False(t, s.Remove(20))
	assert.Equal(t, []int{10, 30}, s.Items())
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(intKey, intCmp)
	s.Insert(1)
	s.Insert(2)

	c := s.Clone()
	c.Insert(3)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 3, c.Len())
}
