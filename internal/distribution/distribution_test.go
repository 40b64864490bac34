package distribution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rueckstiess/mconfcheck/internal/chunk"
	"github.com/rueckstiess/mconfcheck/internal/shardkey"
)

func mustRange(t *testing.T, min, max shardkey.Value) chunk.Range {
	t.Helper()
	r, err := chunk.NewRange(shardkey.Tuple{min}, shardkey.Tuple{max})
	require.NoError(t, err)
	return r
}

func twoChunkDistribution(t *testing.T) *Distribution {
	t.Helper()
	d := New("db.coll")
	require.NoError(t, d.Insert(&chunk.Chunk{
		Namespace: "db.coll",
		Range:     mustRange(t, shardkey.Min(), int32(0)),
		Shard:     "shard0000",
		Fields:    []string{"x"},
	}))
	require.NoError(t, d.Insert(&chunk.Chunk{
		Namespace: "db.coll",
		Range:     mustRange(t, int32(0), shardkey.Max()),
		Shard:     "shard0001",
		Fields:    []string{"x"},
	}))
	return d
}

func TestInsertRejectsNamespaceMismatch(t *testing.T) {
	d := twoChunkDistribution(t)
	err := d.Insert(&chunk.Chunk{Namespace: "other.coll", Range: mustRange(t, int32(100), int32(200)), Fields: []string{"x"}})
	require.Error(t, err)
}

func TestInsertRejectsArityMismatch(t *testing.T) {
	d := twoChunkDistribution(t)
	badRange, err := chunk.NewRange(shardkey.Tuple{int32(100), int32(0)}, shardkey.Tuple{int32(200), int32(1)})
	require.NoError(t, err)
	err = d.Insert(&chunk.Chunk{Namespace: "db.coll", Range: badRange, Fields: []string{"x", "y"}})
	require.Error(t, err)
}

func TestCheckDetectsGap(t *testing.T) {
	d := New("db.coll")
	require.NoError(t, d.Insert(&chunk.Chunk{Namespace: "db.coll", Range: mustRange(t, shardkey.Min(), int32(0)), Fields: []string{"x"}}))
	require.NoError(t, d.Insert(&chunk.Chunk{Namespace: "db.coll", Range: mustRange(t, int32(5), shardkey.Max()), Fields: []string{"x"}}))

	ok, msgs := d.Check()
	assert.False(t, ok)
	assert.NotEmpty(t, msgs)
}

func TestCheckPassesForCoveringRange(t *testing.T) {
	d := twoChunkDistribution(t)
	ok, msgs := d.Check()
	assert.True(t, ok)
	assert.Equal(t, []string{"ok"}, msgs)
}

func TestFindContaining(t *testing.T) {
	d := twoChunkDistribution(t)
	c, err := d.FindContaining(shardkey.Tuple{int32(-5)})
	require.NoError(t, err)
	assert.Equal(t, "shard0000", c.Shard)

	c, err = d.FindContaining(shardkey.Tuple{int32(5)})
	require.NoError(t, err)
	assert.Equal(t, "shard0001", c.Shard)
}

func TestEqualIgnoresShardVersion(t *testing.T) {
	a := twoChunkDistribution(t)
	b := a.Clone()
	orig := b.Chunks()[0]
	changed := *orig
	changed.Version = chunk.ShardVersion{Major: 99}
	require.NoError(t, b.Remove(orig))
	require.NoError(t, b.Insert(&changed))
	assert.True(t, a.Equal(b))
}

func TestEqualCatchesShardDifference(t *testing.T) {
	a := twoChunkDistribution(t)
	b := a.Clone()
	orig := b.Chunks()[0]
	changed := *orig
	changed.Shard = "shard9999"
	require.NoError(t, b.Remove(orig))
	require.NoError(t, b.Insert(&changed))
	assert.False(t, a.Equal(b))
}

func TestCloneIsIndependentOfContainer(t *testing.T) {
	a := twoChunkDistribution(t)
	b := a.Clone()
	require.NoError(t, b.Remove(b.Chunks()[0]))
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestTimeOrdering(t *testing.T) {
	now := At(time.Now())
	assert.True(t, NegativeInfinity().Before(now))
	assert.True(t, now.Before(PositiveInfinity()))
	assert.False(t, PositiveInfinity().Before(now))
}
