// Package chunk implements the smallest addressable unit of a sharded
// namespace: a half-open shard-key range owned by one shard.
package chunk

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rueckstiess/mconfcheck/internal/journal"
	"github.com/rueckstiess/mconfcheck/internal/shardkey"
)

// ShardVersion re-exports journal.ShardVersion: split/multi-split/move events
// and config.chunks documents use the identical (major, minor) representation,
// so there is a single definition, owned by the package that first needs to
// decode it off the wire.
type ShardVersion = journal.ShardVersion

// UnknownVersion is the shard version used when a chunk's version is not
// known (e.g. the donor side of a completed move).
var UnknownVersion = journal.UnknownVersion

// UnknownShard marks a chunk whose owning shard has not yet been filled in.
// A Chunk with an unknown shard equals itself only — the caller is
// responsible for overwriting it with a real shard id before comparing two
// chunks that both originated with an unknown shard.
const UnknownShard = ""

// Chunk is one [Range.Min, Range.Max) interval of one namespace, owned by one
// shard at one shard version.
type Chunk struct {
	Namespace string
	Range     Range
	Shard     string
	Version   ShardVersion
	Fields    []string

	Parent   *Chunk
	Children []*Chunk
}

// IsShardUnknown reports whether c's shard has not yet been filled in.
func (c *Chunk) IsShardUnknown() bool {
	return c.Shard == UnknownShard
}

// FromSnapshot constructs a Chunk from a config.chunks document: requires
// min, max, shard, ns, and lastmod (the shard version).
func FromSnapshot(doc bson.M) (*Chunk, error) {
	ns, ok := doc["ns"].(string)
	if !ok || ns == "" {
		return nil, fmt.Errorf("chunk: snapshot document missing ns")
	}
	shard, ok := doc["shard"].(string)
	if !ok || shard == "" {
		return nil, fmt.Errorf("chunk: snapshot document missing shard")
	}
	minDoc, ok := doc["min"].(bson.D)
	if !ok {
		return nil, fmt.Errorf("chunk: snapshot document missing min")
	}
	maxDoc, ok := doc["max"].(bson.D)
	if !ok {
		return nil, fmt.Errorf("chunk: snapshot document missing max")
	}
	ts, ok := doc["lastmod"].(primitive.Timestamp)
	if !ok {
		return nil, fmt.Errorf("chunk: snapshot document missing lastmod")
	}

	fields := make([]string, len(minDoc))
	minTuple := make(shardkey.Tuple, len(minDoc))
	for i, elem := range minDoc {
		fields[i] = elem.Key
		minTuple[i] = elem.Value
	}
	maxTuple := make(shardkey.Tuple, len(maxDoc))
	for i, elem := range maxDoc {
		maxTuple[i] = elem.Value
	}

	rng, err := NewRange(minTuple, maxTuple)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}

	return &Chunk{
		Namespace: ns,
		Range:     rng,
		Shard:     shard,
		Version:   ShardVersion{Major: int64(ts.T), Minor: int64(ts.I)},
		Fields:    fields,
	}, nil
}

// FromEvent constructs a Chunk from one sub-record of a decoded journal
// event, selected by role. The shard is left unknown — split/multi-split
// journal entries never carry it — and must be filled in by the caller
// before the chunk is compared against one located in a distribution.
func FromEvent(ev journal.Event, role journal.Role) (*Chunk, error) {
	var sub journal.SubRecord
	switch role {
	case journal.RoleBefore:
		sub = ev.Before
	case journal.RoleLeft:
		sub = ev.Left
	case journal.RoleRight:
		sub = ev.Right
	case journal.RoleSibling:
		sub = ev.Sibling
	default:
		return nil, fmt.Errorf("chunk: unknown role %d", role)
	}

	rng, err := NewRange(sub.Min, sub.Max)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}

	return &Chunk{
		Namespace: ev.Namespace,
		Range:     rng,
		Shard:     UnknownShard,
		Version:   sub.Version,
		Fields:    sub.Fields,
	}, nil
}

// Equal reports whether two chunks agree on namespace, range, shard, shard
// version, and shard-key fields. Parent/children are provenance metadata and
// excluded.
func (c *Chunk) Equal(other *Chunk) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Namespace == other.Namespace &&
		c.Range.Equal(other.Range) &&
		c.Shard == other.Shard &&
		c.Version.Equal(other.Version) &&
		fieldsEqual(c.Fields, other.Fields)
}

// EqualDistributionFields reports whether two chunks agree on range, shard,
// and namespace only. This is the weaker equality ChunkDistribution equality
// uses, which deliberately excludes shard version.
func (c *Chunk) EqualDistributionFields(other *Chunk) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Range.Equal(other.Range) && c.Shard == other.Shard && c.Namespace == other.Namespace
}

func fieldsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *Chunk) String() string {
	var fields []string
	for _, ch := range c.Children {
		fields = append(fields, ch.Range.String())
	}
	children := ""
	if len(fields) > 0 {
		children = fmt.Sprintf(" children=[%s]", strings.Join(fields, ", "))
	}
	return fmt.Sprintf("Chunk(ns=%s, range=%s, shard=%s, version=%s%s)", c.Namespace, c.Range, c.Shard, c.Version, children)
}
