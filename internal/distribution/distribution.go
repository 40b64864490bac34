// Package distribution implements ChunkDistribution: a sorted, gap-free,
// overlap-free sequence of chunks covering shard-key space for one
// namespace, backed by a sortedseq.Seq kept ordered by chunk range.
package distribution

import (
	"fmt"
	"time"

	"github.com/rueckstiess/mconfcheck/internal/chunk"
	"github.com/rueckstiess/mconfcheck/internal/journal"
	"github.com/rueckstiess/mconfcheck/internal/mcerr"
	"github.com/rueckstiess/mconfcheck/internal/shardkey"
	"github.com/rueckstiess/mconfcheck/internal/sortedseq"
)

// Distribution is an ordered sequence of Chunks for one namespace, sorted by
// range, plus the time it was valid at and the event whose inversion
// produced it (if any).
type Distribution struct {
	Namespace     string
	Time          Time
	AppliedChange *journal.Event

	seq *sortedseq.Seq[*chunk.Chunk]
}

// Time marks when a Distribution was valid. PosInf is the live snapshot,
// corresponding to the Python walker's starting point; NegInf is the
// earliest reconstructable distribution, corresponding to its final yield at
// datetime.min. Ordinary values carry a concrete wall-clock time, the instant
// of the changelog entry whose inversion produced the distribution.
type Time struct {
	PosInf bool
	NegInf bool
	At     time.Time
}

// PositiveInfinity is the Time of the live catalog snapshot.
func PositiveInfinity() Time { return Time{PosInf: true} }

// NegativeInfinity is the Time of the earliest reconstructable distribution.
func NegativeInfinity() Time { return Time{NegInf: true} }

// At builds an ordinary Time from a concrete instant.
func At(t time.Time) Time { return Time{At: t} }

// Before reports whether t chronologically precedes other, treating PosInf
// as greater than every ordinary instant and NegInf as less than every
// ordinary instant.
func (t Time) Before(other Time) bool {
	if t.NegInf {
		return !other.NegInf
	}
	if other.PosInf {
		return !t.PosInf
	}
	if t.PosInf || other.NegInf {
		return false
	}
	return t.At.Before(other.At)
}

func (t Time) String() string {
	switch {
	case t.PosInf:
		return "+inf"
	case t.NegInf:
		return "-inf"
	default:
		return t.At.String()
	}
}

func rangeKey(c *chunk.Chunk) any { return c.Range }

func rangeCmp(a, b any) int {
	ra, rb := a.(chunk.Range), b.(chunk.Range)
	return ra.Compare(rb)
}

// New builds an empty Distribution for namespace ns, valid at PositiveInfinity
// until chunks are inserted and Time is set explicitly by the caller.
func New(ns string) *Distribution {
	return &Distribution{
		Namespace: ns,
		Time:      PositiveInfinity(),
		seq:       sortedseq.New(rangeKey, rangeCmp),
	}
}

// Len returns the number of chunks.
func (d *Distribution) Len() int { return d.seq.Len() }

// Chunks returns the chunks in sorted order. The returned slice must not be
// mutated.
func (d *Distribution) Chunks() []*chunk.Chunk { return d.seq.Items() }

// Insert places chunk c at its sorted position. It fails with
// mcerr.ErrArityMismatch or mcerr.ErrNamespaceMismatch if c is incompatible
// with the distribution's existing contents.
func (d *Distribution) Insert(c *chunk.Chunk) error {
	if d.Namespace != "" && c.Namespace != d.Namespace {
		return fmt.Errorf("distribution: insert %s into %s: %w", c.Namespace, d.Namespace, mcerr.ErrNamespaceMismatch)
	}
	if d.seq.Len() > 0 {
		existing := d.seq.At(0)
		if len(existing.Fields) != len(c.Fields) {
			return fmt.Errorf("distribution: insert chunk with arity %d into distribution of arity %d: %w", len(c.Fields), len(existing.Fields), mcerr.ErrArityMismatch)
		}
	}
	if d.Namespace == "" {
		d.Namespace = c.Namespace
	}
	d.seq.Insert(c)
	return nil
}

// Remove deletes the chunk equal by range to c. It fails with
// mcerr.ErrNotFound if no such chunk is present.
func (d *Distribution) Remove(c *chunk.Chunk) error {
	if !d.seq.Remove(c.Range) {
		return fmt.Errorf("distribution: remove %s: %w", c.Range, mcerr.ErrNotFound)
	}
	return nil
}

// FindByRange returns the chunk whose range exactly matches rng.
func (d *Distribution) FindByRange(rng chunk.Range) (*chunk.Chunk, error) {
	c, ok := d.seq.Find(rng)
	if !ok {
		return nil, fmt.Errorf("distribution: no chunk with range %s: %w", rng, mcerr.ErrNotFound)
	}
	return c, nil
}

// FindContaining returns the unique chunk whose range contains key. This
// should always succeed when the distribution's invariants hold (coverage +
// no gaps).
func (d *Distribution) FindContaining(key shardkey.Tuple) (*chunk.Chunk, error) {
	items := d.seq.Items()
	i := 0
	for ; i < len(items); i++ {
		if key.Less(items[i].Range.Max) {
			break
		}
	}
	if i < len(items) && !key.Less(items[i].Range.Min) {
		return items[i], nil
	}
	return nil, fmt.Errorf("distribution: no chunk contains %v: %w", key, mcerr.ErrNotFound)
}

// MaxShardVersion returns the greatest shard version across all contained
// chunks, used by the CatalogComparator's version-driven tournament.
func (d *Distribution) MaxShardVersion() chunk.ShardVersion {
	max := chunk.UnknownVersion
	for _, c := range d.seq.Items() {
		if c.Version.Compare(max) > 0 {
			max = c.Version
		}
	}
	return max
}

// Check validates all four ChunkDistribution invariants: arity, coverage
// (MinSentinel..MaxSentinel), no gaps/overlaps, and namespace coherence. It
// never panics or returns an error; violations are reported as human-readable
// messages.
func (d *Distribution) Check() (ok bool, messages []string) {
	items := d.seq.Items()
	if len(items) == 0 {
		return true, []string{"ok"}
	}

	ok = true

	for _, c := range items[1:] {
		same := len(c.Fields) == len(items[0].Fields)
		for j := 0; same && j < len(c.Fields); j++ {
			same = c.Fields[j] == items[0].Fields[j]
		}
		if !same {
			ok = false
			messages = append(messages, fmt.Sprintf("chunk %s has shard-key fields %v, expected %v", c.Range, c.Fields, items[0].Fields))
		}
	}

	if !shardkey.IsMinSentinel(items[0].Range.Min) {
		ok = false
		messages = append(messages, fmt.Sprintf("chunk range does not start with MinSentinel (starts at %v)", items[0].Range.Min))
	}
	if !shardkey.IsMaxSentinel(items[len(items)-1].Range.Max) {
		ok = false
		messages = append(messages, fmt.Sprintf("chunk range does not end with MaxSentinel (ends at %v)", items[len(items)-1].Range.Max))
	}

	for i := 0; i+1 < len(items); i++ {
		a, b := items[i], items[i+1]
		if !a.Range.Max.Equal(b.Range.Min) {
			messages = append(messages, fmt.Sprintf("discontinuity in chunk range between %v and %v", a.Range.Max, b.Range.Min))
			ok = false
		}
	}

	nsSet := map[string]struct{}{}
	for _, c := range items {
		nsSet[c.Namespace] = struct{}{}
	}
	if len(nsSet) > 1 {
		ok = false
		names := make([]string, 0, len(nsSet))
		for n := range nsSet {
			names = append(names, n)
		}
		messages = append(messages, fmt.Sprintf("chunk range has different namespaces: %v", names))
	}

	if ok {
		messages = []string{"ok"}
	}
	return ok, messages
}

// Equal reports whether two distributions have the same length and every
// positionally paired chunk agrees on (range, shard, namespace). Shard
// version is deliberately excluded: two catalogs can share the same logical
// layout while disagreeing on per-chunk versions.
func (d *Distribution) Equal(other *Distribution) bool {
	if d == nil || other == nil {
		return d == other
	}
	a, b := d.seq.Items(), other.seq.Items()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].EqualDistributionFields(b[i]) {
			return false
		}
	}
	return true
}

// Clone returns a shallow clone: a new Distribution sharing Chunk references
// with d. Insert and Remove mutate the distribution they are called on, so
// callers that must keep d unchanged clone it first and mutate the clone;
// this gives reconstruction an immutable-snapshot feel without copying chunks.
func (d *Distribution) Clone() *Distribution {
	return &Distribution{
		Namespace:     d.Namespace,
		Time:          d.Time,
		AppliedChange: d.AppliedChange,
		seq:           d.seq.Clone(),
	}
}
