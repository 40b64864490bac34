// Package reconstruct implements the Reconstructor: a lazy, pull-style walk
// of a ChunkDistribution backwards in time by inverting split, multi-split,
// and completed-move changelog events.
package reconstruct

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rueckstiess/mconfcheck/internal/chunk"
	"github.com/rueckstiess/mconfcheck/internal/distribution"
	"github.com/rueckstiess/mconfcheck/internal/journal"
	"github.com/rueckstiess/mconfcheck/internal/mcerr"
)

// EventSource supplies decoded changelog events in strictly descending time
// order. A CatalogAccessor-backed implementation wraps a mongo.Cursor;
// tests use an in-memory slice.
type EventSource interface {
	// Next returns the next event, or ok=false once the source is
	// exhausted. err is reserved for I/O failures; a well-formed but
	// irrelevant document decodes to journal.Ignored, not an error.
	Next(ctx context.Context) (journal.Event, bool, error)
}

// Options tunes Reconstructor behavior at points left open by design.
type Options struct {
	// StrictSplitCompare makes a right-side split comparison mismatch fatal,
	// matching the left side. Default true. Set false to only log right-side
	// mismatches.
	StrictSplitCompare bool

	// Logger receives non-fatal warnings (e.g. a permitted right-side split
	// mismatch when StrictSplitCompare is false). May be nil.
	Logger *logrus.Logger
}

// DefaultOptions returns the recommended, strict configuration.
func DefaultOptions() Options {
	return Options{StrictSplitCompare: true}
}

// Reconstructor walks a ChunkDistribution backwards in time. Next is called
// repeatedly; the first call returns the starting distribution unchanged,
// each subsequent call returns the result of inverting the next applicable
// event, and the last distribution returned is tagged NegativeInfinity; a
// call after that returns ok=false.
type Reconstructor struct {
	current *distribution.Distribution
	source  EventSource
	opts    Options

	processed map[journal.ShardVersion]bool
	pending   *journal.Event
	first     bool
	done      bool
}

// New builds a Reconstructor starting from initial (conventionally tagged
// distribution.PositiveInfinity, the live snapshot) and pulling events from
// source.
func New(initial *distribution.Distribution, source EventSource, opts Options) *Reconstructor {
	return &Reconstructor{
		current:   initial,
		source:    source,
		opts:      opts,
		processed: make(map[journal.ShardVersion]bool),
		first:     true,
	}
}

// Next returns the next distribution in the walk. ok is false only once the
// sequence is fully consumed (after the NegativeInfinity-tagged
// distribution has already been returned).
func (r *Reconstructor) Next(ctx context.Context) (*distribution.Distribution, bool, error) {
	if r.first {
		r.first = false
		return r.current, true, nil
	}
	if r.done {
		return nil, false, nil
	}

	for {
		ev, ok, err := r.nextEvent(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			final := r.current.Clone()
			final.Time = distribution.NegativeInfinity()
			final.AppliedChange = nil
			r.current = final
			r.done = true
			return final, true, nil
		}

		switch ev.Kind {
		case journal.Split:
			next, err := r.invertSplit(ev)
			if err != nil {
				return nil, false, err
			}
			r.current = next
			return next, true, nil

		case journal.MultiSplit:
			if r.processed[ev.Before.Version] {
				continue
			}
			next, err := r.invertMultiSplit(ctx, ev)
			if err != nil {
				return nil, false, err
			}
			r.current = next
			return next, true, nil

		case journal.MoveFrom:
			if ev.Aborted() {
				continue
			}
			next, err := r.invertMove(ctx, ev)
			if err != nil {
				return nil, false, err
			}
			if next == nil {
				// Incomplete or otherwise terminated scan: silent non-event.
				continue
			}
			r.current = next
			return next, true, nil

		default:
			// Ignored entries, and moveChunk.start/to/commit seen outside an
			// active from-scan, are silent non-events.
			continue
		}
	}
}

// nextEvent returns a previously pushed-back event if one is pending,
// otherwise pulls from the source. Lookahead during multi-split gathering
// and move-phase scanning uses pushBack to return an unconsumed event to the
// front of the stream.
func (r *Reconstructor) nextEvent(ctx context.Context) (journal.Event, bool, error) {
	if r.pending != nil {
		ev := *r.pending
		r.pending = nil
		return ev, true, nil
	}
	return r.source.Next(ctx)
}

func (r *Reconstructor) pushBack(ev journal.Event) {
	e := ev
	r.pending = &e
}

// invertSplit inverts one split event against r.current.
func (r *Reconstructor) invertSplit(ev journal.Event) (*distribution.Distribution, error) {
	decodedLeft, err := chunk.FromEvent(ev, journal.RoleLeft)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: split at %s: %w", ev.Time, err)
	}
	decodedRight, err := chunk.FromEvent(ev, journal.RoleRight)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: split at %s: %w", ev.Time, err)
	}
	before, err := chunk.FromEvent(ev, journal.RoleBefore)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: split at %s: %w", ev.Time, err)
	}

	leftChunk, err := r.current.FindByRange(decodedLeft.Range)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: split at %s: locate left chunk %s: %w", ev.Time, decodedLeft.Range, mcerr.ErrInconsistentJournal)
	}
	rightChunk, err := r.current.FindByRange(decodedRight.Range)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: split at %s: locate right chunk %s: %w", ev.Time, decodedRight.Range, mcerr.ErrInconsistentJournal)
	}

	// The journal's sub-records omit the shard; borrow it from the located
	// chunks so comparison is meaningful.
	decodedLeft.Shard = leftChunk.Shard
	decodedRight.Shard = rightChunk.Shard

	// Journals may carry a version that post-dates later moves; the version
	// recorded at split time is authoritative for the reconstructed past.
	leftChunk.Version = decodedLeft.Version
	rightChunk.Version = decodedRight.Version

	if !decodedLeft.Equal(leftChunk) {
		return nil, fmt.Errorf("reconstruct: split at %s: left chunk %s does not match journal record %s: %w", ev.Time, leftChunk, decodedLeft, mcerr.ErrInconsistentJournal)
	}
	if !decodedRight.Equal(rightChunk) {
		if r.opts.StrictSplitCompare {
			return nil, fmt.Errorf("reconstruct: split at %s: right chunk %s does not match journal record %s: %w", ev.Time, rightChunk, decodedRight, mcerr.ErrInconsistentJournal)
		}
		if r.opts.Logger != nil {
			r.opts.Logger.WithFields(logrus.Fields{
				"namespace": ev.Namespace,
				"time":      ev.Time,
			}).Warnf("split right chunk %s does not match journal record %s", rightChunk, decodedRight)
		}
	}

	before.Shard = leftChunk.Shard
	before.Children = []*chunk.Chunk{leftChunk, rightChunk}
	leftChunk.Parent = before
	rightChunk.Parent = before

	next := r.current.Clone()
	if err := next.Remove(leftChunk); err != nil {
		return nil, fmt.Errorf("reconstruct: split at %s: %w", ev.Time, err)
	}
	if err := next.Remove(rightChunk); err != nil {
		return nil, fmt.Errorf("reconstruct: split at %s: %w", ev.Time, err)
	}
	if err := next.Insert(before); err != nil {
		return nil, fmt.Errorf("reconstruct: split at %s: %w", ev.Time, err)
	}

	evCopy := ev
	next.Time = distribution.At(ev.Time)
	next.AppliedChange = &evCopy

	if ok, msgs := next.Check(); !ok {
		return nil, fmt.Errorf("reconstruct: split at %s: invariant check failed %v: %w", ev.Time, msgs, mcerr.ErrInconsistentJournal)
	}
	return next, nil
}

// invertMultiSplit gathers the sibling entries sharing first's
// before-version and merges them into one inversion. Only siblings that
// immediately follow first in the stream are gathered; a sibling separated
// from them by another entry is not merged, and is later skipped because its
// before-version is already marked processed.
func (r *Reconstructor) invertMultiSplit(ctx context.Context, first journal.Event) (*distribution.Distribution, error) {
	version := first.Before.Version
	siblings := []journal.Event{first}

	for {
		ev, ok, err := r.nextEvent(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if ev.Kind == journal.MultiSplit && ev.Before.Version.Equal(version) {
			siblings = append(siblings, ev)
			continue
		}
		r.pushBack(ev)
		break
	}
	r.processed[version] = true

	children := make([]*chunk.Chunk, 0, len(siblings))
	for _, sibEv := range siblings {
		decodedSibling, err := chunk.FromEvent(sibEv, journal.RoleSibling)
		if err != nil {
			return nil, fmt.Errorf("reconstruct: multi-split at %s: %w", sibEv.Time, err)
		}
		located, err := r.current.FindByRange(decodedSibling.Range)
		if err != nil {
			return nil, fmt.Errorf("reconstruct: multi-split at %s: locate sibling %s: %w", sibEv.Time, decodedSibling.Range, mcerr.ErrInconsistentJournal)
		}
		located.Version = decodedSibling.Version
		children = append(children, located)
	}

	before, err := chunk.FromEvent(first, journal.RoleBefore)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: multi-split at %s: %w", first.Time, err)
	}
	before.Shard = children[0].Shard
	before.Children = children
	for _, c := range children {
		c.Parent = before
	}

	next := r.current.Clone()
	for _, c := range children {
		if err := next.Remove(c); err != nil {
			return nil, fmt.Errorf("reconstruct: multi-split at %s: %w", first.Time, err)
		}
	}
	if err := next.Insert(before); err != nil {
		return nil, fmt.Errorf("reconstruct: multi-split at %s: %w", first.Time, err)
	}

	evCopy := first
	next.Time = distribution.At(first.Time)
	next.AppliedChange = &evCopy

	if ok, msgs := next.Check(); !ok {
		return nil, fmt.Errorf("reconstruct: multi-split at %s: invariant check failed %v: %w", first.Time, msgs, mcerr.ErrInconsistentJournal)
	}
	return next, nil
}

// invertMove scans forward from a moveChunk.from entry collecting the
// remaining three phases of a completed move. It returns (nil, nil) when
// the scan terminates without completing — a silent non-event, not an
// error.
func (r *Reconstructor) invertMove(ctx context.Context, from journal.Event) (*distribution.Distribution, error) {
	have := map[journal.Kind]journal.Event{journal.MoveFrom: from}

	for len(have) < 4 {
		ev, ok, err := r.nextEvent(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}

		switch ev.Kind {
		case journal.MoveStart, journal.MoveTo, journal.MoveCommit:
			if _, dup := have[ev.Kind]; dup {
				r.pushBack(ev)
				return nil, nil
			}
			if !ev.SameRange(from) {
				r.pushBack(ev)
				return nil, nil
			}
			have[ev.Kind] = ev
		case journal.MoveFrom:
			r.pushBack(ev)
			return nil, nil
		default:
			r.pushBack(ev)
			return nil, nil
		}
	}

	start := have[journal.MoveStart]
	commit := have[journal.MoveCommit]

	rng, err := chunk.NewRange(from.Min, from.Max)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: move commit at %s: %w", commit.Time, err)
	}
	located, err := r.current.FindByRange(rng)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: move commit at %s: locate chunk %s: %w", commit.Time, rng, mcerr.ErrInconsistentJournal)
	}

	predecessor := &chunk.Chunk{
		Namespace: located.Namespace,
		Range:     located.Range,
		Shard:     start.FromShard,
		Version:   chunk.UnknownVersion,
		Fields:    located.Fields,
		Children:  []*chunk.Chunk{located},
	}
	located.Parent = predecessor

	next := r.current.Clone()
	if err := next.Remove(located); err != nil {
		return nil, fmt.Errorf("reconstruct: move commit at %s: %w", commit.Time, err)
	}
	if err := next.Insert(predecessor); err != nil {
		return nil, fmt.Errorf("reconstruct: move commit at %s: %w", commit.Time, err)
	}

	commitCopy := commit
	next.Time = distribution.At(commit.Time)
	next.AppliedChange = &commitCopy

	if ok, msgs := next.Check(); !ok {
		return nil, fmt.Errorf("reconstruct: move commit at %s: invariant check failed %v: %w", commit.Time, msgs, mcerr.ErrInconsistentJournal)
	}
	return next, nil
}
