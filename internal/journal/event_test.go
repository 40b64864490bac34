package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func subRecordDoc(min, max int32, major, minor int64) bson.M {
	return bson.M{
		"min":     bson.D{{Key: "x", Value: min}},
		"max":     bson.D{{Key: "x", Value: max}},
		"lastmod": primitive.Timestamp{T: uint32(major), I: uint32(minor)},
	}
}

func TestDecodeSplit(t *testing.T) {
	doc := bson.M{
		"ns":   "db.coll",
		"what": "split",
		"details": bson.M{
			"before": subRecordDoc(0, 10, 1, 0),
			"left":   subRecordDoc(0, 5, 1, 1),
			"right":  subRecordDoc(5, 10, 1, 2),
		},
	}
	ev, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, Split, ev.Kind)
	assert.Equal(t, "db.coll", ev.Namespace)
	assert.Equal(t, ShardVersion{Major: 1, Minor: 1}, ev.Left.Version)
	assert.Equal(t, ShardVersion{Major: 1, Minor: 2}, ev.Right.Version)
}

func TestDecodeSplitMissingDetails(t *testing.T) {
	_, err := Decode(bson.M{"ns": "db.coll", "what": "split"})
	require.Error(t, err)
}

func TestDecodeMultiSplit(t *testing.T) {
	doc := bson.M{
		"ns":   "db.coll",
		"what": "multi-split",
		"details": bson.M{
			"before": subRecordDoc(0, 10, 1, 0),
			"chunk":  subRecordDoc(0, 3, 1, 1),
		},
	}
	ev, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, MultiSplit, ev.Kind)
	assert.Equal(t, ShardVersion{Major: 1, Minor: 1}, ev.Sibling.Version)
}

func TestDecodeMoveFromAbort(t *testing.T) {
	doc := bson.M{
		"ns":   "db.coll",
		"what": "moveChunk.from",
		"details": bson.M{
			"min":  bson.D{{Key: "x", Value: int32(0)}},
			"max":  bson.D{{Key: "x", Value: int32(5)}},
			"note": "abort",
		},
	}
	ev, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, MoveFrom, ev.Kind)
	assert.True(t, ev.Aborted())
}

func TestDecodeMoveStartFromShard(t *testing.T) {
	doc := bson.M{
		"ns":   "db.coll",
		"what": "moveChunk.start",
		"details": bson.M{
			"min":  bson.D{{Key: "x", Value: int32(0)}},
			"max":  bson.D{{Key: "x", Value: int32(5)}},
			"from": "shard0000",
		},
	}
	ev, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, MoveStart, ev.Kind)
	assert.Equal(t, "shard0000", ev.FromShard)
}

func TestDecodeUnrecognizedIsIgnored(t *testing.T) {
	ev, err := Decode(bson.M{"ns": "db.coll", "what": "addShard"})
	require.NoError(t, err)
	assert.Equal(t, Ignored, ev.Kind)
}

func TestSameRange(t *testing.T) {
	a, err := Decode(bson.M{"ns": "db.coll", "what": "moveChunk.from", "details": bson.M{
		"min": bson.D{{Key: "x", Value: int32(0)}},
		"max": bson.D{{Key: "x", Value: int32(5)}},
	}})
	require.NoError(t, err)
	b, err := Decode(bson.M{"ns": "db.coll", "what": "moveChunk.to", "details": bson.M{
		"min": bson.D{{Key: "x", Value: int32(0)}},
		"max": bson.D{{Key: "x", Value: int32(5)}},
	}})
	require.NoError(t, err)
	assert.True(t, a.SameRange(b))
}
