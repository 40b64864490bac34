// Package compare implements the version-driven tournament that finds the
// latest point at which K catalogs' chunk distributions agree.
package compare

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rueckstiess/mconfcheck/internal/distribution"
	"github.com/rueckstiess/mconfcheck/internal/mcerr"
	"github.com/rueckstiess/mconfcheck/internal/reconstruct"
)

// Result is the outcome of a converged comparison: the latest moment at
// which every catalog's distribution agreed, and that shared distribution.
type Result struct {
	Time         distribution.Time
	Distribution *distribution.Distribution
}

// Compare drives len(streams) reconstructor streams (K ≥ 2) to their latest
// common point of agreement: repeatedly rewinding whichever stream currently
// holds the highest MaxShardVersion until all streams' distributions are
// equal. It returns mcerr.ErrNoCommonHistory, wrapped, if no such point
// exists before one stream exhausts.
func Compare(ctx context.Context, streams []*reconstruct.Reconstructor) (Result, error) {
	if len(streams) < 2 {
		return Result{}, fmt.Errorf("compare: need at least 2 catalogs, got %d", len(streams))
	}

	current := make([]*distribution.Distribution, len(streams))
	for i, s := range streams {
		d, ok, err := s.Next(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("compare: catalog %d: %w", i, err)
		}
		if !ok {
			return Result{}, fmt.Errorf("compare: catalog %d: empty stream: %w", i, mcerr.ErrNoCommonHistory)
		}
		current[i] = d
	}

	for {
		if allEqual(current) {
			return Result{Time: minTime(current), Distribution: current[0]}, nil
		}

		j := argmax(current)
		d, ok, err := streams[j].Next(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("compare: catalog %d: %w", j, err)
		}
		if !ok {
			// One stream exhausted without reaching agreement: the
			// remaining streams have nothing left to converge toward.
			return Result{}, fmt.Errorf("compare: catalog %d exhausted before convergence: %w", j, mcerr.ErrNoCommonHistory)
		}
		current[j] = d
	}
}

func allEqual(ds []*distribution.Distribution) bool {
	for i := 1; i < len(ds); i++ {
		if !ds[0].Equal(ds[i]) {
			return false
		}
	}
	return true
}

func minTime(ds []*distribution.Distribution) distribution.Time {
	min := ds[0].Time
	for _, d := range ds[1:] {
		if d.Time.Before(min) {
			min = d.Time
		}
	}
	return min
}

// argmax returns the index of the stream with the greatest MaxShardVersion,
// ties broken by lowest index for determinism.
func argmax(ds []*distribution.Distribution) int {
	best := 0
	bestVersion := ds[0].MaxShardVersion()
	for i := 1; i < len(ds); i++ {
		if v := ds[i].MaxShardVersion(); v.Compare(bestVersion) > 0 {
			best, bestVersion = i, v
		}
	}
	return best
}

// Source is the subset of a catalog accessor the comparator needs to build
// one namespace's reconstruction stream: a live snapshot and a descending
// event source. internal/catalog.Accessor implements this.
type Source interface {
	Snapshot(ctx context.Context, namespace string) (*distribution.Distribution, error)
	Events(ctx context.Context, namespace string) (reconstruct.EventSource, error)
}

// CompareNamespace fetches each catalog's snapshot and event source in
// parallel, since each is an independent round trip to a different cluster,
// builds one reconstructor per catalog, and runs the tournament.
func CompareNamespace(ctx context.Context, sources []Source, namespace string, opts reconstruct.Options) (Result, error) {
	reconstructors := make([]*reconstruct.Reconstructor, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			snap, err := src.Snapshot(gctx, namespace)
			if err != nil {
				return fmt.Errorf("compare: catalog %d: snapshot: %w", i, err)
			}
			events, err := src.Events(gctx, namespace)
			if err != nil {
				return fmt.Errorf("compare: catalog %d: changelog: %w", i, err)
			}
			reconstructors[i] = reconstruct.New(snap, events, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Compare(ctx, reconstructors)
}
