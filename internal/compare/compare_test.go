package compare

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rueckstiess/mconfcheck/internal/chunk"
	"github.com/rueckstiess/mconfcheck/internal/distribution"
	"github.com/rueckstiess/mconfcheck/internal/journal"
	"github.com/rueckstiess/mconfcheck/internal/mcerr"
	"github.com/rueckstiess/mconfcheck/internal/reconstruct"
	"github.com/rueckstiess/mconfcheck/internal/shardkey"
)

type sliceSource struct {
	events []journal.Event
	pos    int
}

func (s *sliceSource) Next(ctx context.Context) (journal.Event, bool, error) {
	if s.pos >= len(s.events) {
		return journal.Event{}, false, nil
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, true, nil
}

func mustRange(t *testing.T, min, max shardkey.Value) chunk.Range {
	t.Helper()
	r, err := chunk.NewRange(shardkey.Tuple{min}, shardkey.Tuple{max})
	require.NoError(t, err)
	return r
}

func insertChunk(t *testing.T, d *distribution.Distribution, min, max shardkey.Value, shard string, major, minor int64) {
	t.Helper()
	require.NoError(t, d.Insert(&chunk.Chunk{
		Namespace: d.Namespace,
		Range:     mustRange(t, min, max),
		Shard:     shard,
		Version:   chunk.ShardVersion{Major: major, Minor: minor},
		Fields:    []string{"x"},
	}))
}

func subRecord(min, max shardkey.Value, major, minor int64) journal.SubRecord {
	return journal.SubRecord{
		Fields:  []string{"x"},
		Min:     shardkey.Tuple{min},
		Max:     shardkey.Tuple{max},
		Version: journal.ShardVersion{Major: major, Minor: minor},
	}
}

// Comparator convergence: byte-identical catalogs converge immediately at +inf.
func TestConvergesImmediatelyWhenIdentical(t *testing.T) {
	build := func() *distribution.Distribution {
		d := distribution.New("db.coll")
		insertChunk(t, d, shardkey.Min(), int32(0), "S0", 2, 1)
		insertChunk(t, d, int32(0), shardkey.Max(), "S1", 2, 0)
		return d
	}

	a := reconstruct.New(build(), &sliceSource{}, reconstruct.DefaultOptions())
	b := reconstruct.New(build(), &sliceSource{}, reconstruct.DefaultOptions())

	result, err := Compare(context.Background(), []*reconstruct.Reconstructor{a, b})
	require.NoError(t, err)
	assert.True(t, result.Time.PosInf)
}

// scenario 6: two catalogs diverging by one split converge after A inverts.
func TestConvergesAfterOneSplitInversion(t *testing.T) {
	splitTime := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	// Catalog A: split already applied (one extra chunk, higher version).
	a := distribution.New("db.coll")
	insertChunk(t, a, shardkey.Min(), int32(5), "S0", 3, 1)
	insertChunk(t, a, int32(5), shardkey.Max(), "S0", 3, 0)
	aEvents := []journal.Event{{
		Kind: journal.Split, Namespace: "db.coll", Time: splitTime,
		Before: subRecord(shardkey.Min(), shardkey.Max(), 2, 0),
		Left:   subRecord(shardkey.Min(), int32(5), 3, 1),
		Right:  subRecord(int32(5), shardkey.Max(), 3, 0),
	}}

	// Catalog B: never split, fewer chunks, lower version.
	b := distribution.New("db.coll")
	insertChunk(t, b, shardkey.Min(), shardkey.Max(), "S0", 2, 0)

	streamA := reconstruct.New(a, &sliceSource{events: aEvents}, reconstruct.DefaultOptions())
	streamB := reconstruct.New(b, &sliceSource{}, reconstruct.DefaultOptions())

	result, err := Compare(context.Background(), []*reconstruct.Reconstructor{streamA, streamB})
	require.NoError(t, err)
	assert.False(t, result.Time.PosInf)
	assert.False(t, result.Time.NegInf)
	assert.True(t, result.Time.At.Equal(splitTime))
	assert.Equal(t, 1, result.Distribution.Len())
}

func TestNoCommonHistoryWhenStreamExhausts(t *testing.T) {
	a := distribution.New("db.coll")
	insertChunk(t, a, shardkey.Min(), int32(5), "S0", 3, 0)
	insertChunk(t, a, int32(5), shardkey.Max(), "S0", 3, 0)

	b := distribution.New("db.coll")
	insertChunk(t, b, shardkey.Min(), shardkey.Max(), "S1", 1, 0)

	streamA := reconstruct.New(a, &sliceSource{}, reconstruct.DefaultOptions())
	streamB := reconstruct.New(b, &sliceSource{}, reconstruct.DefaultOptions())

	_, err := Compare(context.Background(), []*reconstruct.Reconstructor{streamA, streamB})
	require.Error(t, err)
	assert.True(t, errors.Is(err, mcerr.ErrNoCommonHistory))
}

func TestCompareRequiresAtLeastTwoStreams(t *testing.T) {
	d := distribution.New("db.coll")
	r := reconstruct.New(d, &sliceSource{}, reconstruct.DefaultOptions())
	_, err := Compare(context.Background(), []*reconstruct.Reconstructor{r})
	require.Error(t, err)
}
