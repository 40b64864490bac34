package shardkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCompareSentinels(t *testing.T) {
	assert.Equal(t, 0, Compare(Min(), Min()))
	assert.Equal(t, 0, Compare(Max(), Max()))
	assert.Equal(t, -1, Compare(Min(), int32(5)))
	assert.Equal(t, 1, Compare(int32(5), Min()))
	assert.Equal(t, 1, Compare(Max(), int32(5)))
	assert.Equal(t, -1, Compare(int32(5), Max()))
	assert.Equal(t, -1, Compare(Min(), Max()))
}

func TestCompareNumeric(t *testing.T) {
	assert.Equal(t, -1, Compare(int32(1), int64(2)))
	assert.Equal(t, 0, Compare(int32(3), float64(3)))
	assert.Equal(t, 1, Compare(float64(4.5), int32(4)))
}

func TestCompareStrings(t *testing.T) {
	assert.Equal(t, -1, Compare("alice", "bob"))
	assert.Equal(t, 0, Compare("same", "same"))
}

func TestCompareObjectID(t *testing.T) {
	a := primitive.ObjectID{1, 2, 3}
	b := primitive.ObjectID{1, 2, 4}
	assert.Equal(t, -1, Compare(a, b))
	assert.Equal(t, 0, Compare(a, a))
}

func TestTupleCompareMixedArityPanics(t *testing.T) {
	a := Tuple{int32(1)}
	b := Tuple{int32(1), int32(2)}
	assert.Panics(t, func() { a.Compare(b) })
}

func TestTupleCompareLexicographic(t *testing.T) {
	a := Tuple{int32(1), "x"}
	b := Tuple{int32(1), "y"}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Equal(Tuple{int32(1), "x"}))
}

func TestSentinelTuples(t *testing.T) {
	min := Tuple{Min(), Min()}
	max := Tuple{Max(), Max()}
	mixed := Tuple{Min(), int32(1)}

	require.True(t, IsMinSentinel(min))
	require.True(t, IsMaxSentinel(max))
	assert.False(t, IsMinSentinel(mixed))
	assert.False(t, IsMaxSentinel(mixed))
	assert.False(t, IsMinSentinel(Tuple{}))
}
