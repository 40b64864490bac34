// Package catalog implements the CatalogAccessor: the read-only boundary
// between the core (shardkey/chunk/distribution/journal/reconstruct/compare)
// and one live MongoDB config server.
package catalog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rueckstiess/mconfcheck/internal/chunk"
	"github.com/rueckstiess/mconfcheck/internal/distribution"
	"github.com/rueckstiess/mconfcheck/internal/journal"
	"github.com/rueckstiess/mconfcheck/internal/mcerr"
	"github.com/rueckstiess/mconfcheck/internal/reconstruct"
)

// changelogKinds is the "what" filter for the six event kinds the
// Reconstructor knows how to invert.
var changelogKinds = []string{
	"split",
	"multi-split",
	"moveChunk.from",
	"moveChunk.start",
	"moveChunk.to",
	"moveChunk.commit",
}

// CollectionInfo is one entry from config.collections, as consumed by the
// cross-catalog collection-agreement report.
type CollectionInfo struct {
	Namespace string
	Dropped   bool
}

// Accessor is a CatalogAccessor backed by a live mongo.Client pointed at a
// mongos or config server.
type Accessor struct {
	Label  string
	client *mongo.Client
}

// New wraps an already-connected client. label identifies the catalog in
// reports and error messages (conventionally its URI's host:port/database).
func New(label string, client *mongo.Client) *Accessor {
	return &Accessor{Label: label, client: client}
}

func (a *Accessor) config() *mongo.Database { return a.client.Database("config") }

// Chunks returns every config.chunks document for namespace ns, decoded into
// Chunks, sorted by range (ascending min). Falls back to a UUID-keyed lookup
// against config.collections for MongoDB 7.0+ catalogs, where config.chunks
// no longer carries ns directly.
func (a *Accessor) Chunks(ctx context.Context, ns string) ([]*chunk.Chunk, error) {
	chunks, err := a.chunksByNamespace(ctx, ns)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: chunks(%s): %w", a.Label, ns, mcerr.ErrCatalogUnreachable)
	}
	if len(chunks) > 0 {
		return chunks, nil
	}
	return a.chunksByUUID(ctx, ns)
}

func (a *Accessor) chunksByNamespace(ctx context.Context, ns string) ([]*chunk.Chunk, error) {
	cursor, err := a.config().Collection("chunks").Find(ctx, bson.M{"ns": ns}, options.Find().SetSort(bson.D{{Key: "min", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeChunkCursor(ctx, cursor)
}

func (a *Accessor) chunksByUUID(ctx context.Context, ns string) ([]*chunk.Chunk, error) {
	var collDoc bson.M
	if err := a.config().Collection("collections").FindOne(ctx, bson.M{"_id": ns}).Decode(&collDoc); err != nil {
		return nil, fmt.Errorf("catalog %s: lookup uuid for %s: %w", a.Label, ns, mcerr.ErrCatalogUnreachable)
	}
	uuid, ok := collDoc["uuid"]
	if !ok {
		return nil, fmt.Errorf("catalog %s: collection %s has no uuid: %w", a.Label, ns, mcerr.ErrCatalogUnreachable)
	}

	cursor, err := a.config().Collection("chunks").Find(ctx, bson.M{"uuid": uuid}, options.Find().SetSort(bson.D{{Key: "min", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: chunks by uuid for %s: %w", a.Label, ns, mcerr.ErrCatalogUnreachable)
	}
	defer cursor.Close(ctx)

	// These documents carry no ns field, which chunk.FromSnapshot requires,
	// so the namespace is filled in before decoding.
	var chunks []*chunk.Chunk
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		doc["ns"] = ns
		c, err := chunk.FromSnapshot(doc)
		if err != nil {
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks, cursor.Err()
}

func decodeChunkCursor(ctx context.Context, cursor *mongo.Cursor) ([]*chunk.Chunk, error) {
	var chunks []*chunk.Chunk
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		c, err := chunk.FromSnapshot(doc)
		if err != nil {
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks, cursor.Err()
}

// Snapshot builds the live ChunkDistribution for namespace ns, tagged
// distribution.PositiveInfinity — the Reconstructor's starting point.
func (a *Accessor) Snapshot(ctx context.Context, ns string) (*distribution.Distribution, error) {
	chunks, err := a.Chunks(ctx, ns)
	if err != nil {
		return nil, err
	}
	d := distribution.New(ns)
	for _, c := range chunks {
		if err := d.Insert(c); err != nil {
			return nil, fmt.Errorf("catalog %s: snapshot %s: %w", a.Label, ns, err)
		}
	}
	return d, nil
}

// Events returns a reconstruct.EventSource over config.changelog for
// namespace ns, filtered to the six recognized kinds and sorted time
// descending, matching the Reconstructor's required input order.
func (a *Accessor) Events(ctx context.Context, ns string) (reconstruct.EventSource, error) {
	filter := bson.M{
		"ns":   ns,
		"what": bson.M{"$in": changelogKinds},
	}
	cursor, err := a.config().Collection("changelog").Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "time", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: changelog(%s): %w", a.Label, ns, mcerr.ErrCatalogUnreachable)
	}
	return &cursorEventSource{cursor: cursor}, nil
}

// cursorEventSource adapts a mongo.Cursor to reconstruct.EventSource,
// skipping documents that journal.Decode rejects as malformed. Documents that
// decode to journal.Ignored are passed through; the Reconstructor treats them
// as non-events.
type cursorEventSource struct {
	cursor *mongo.Cursor
}

func (s *cursorEventSource) Next(ctx context.Context) (journal.Event, bool, error) {
	if !s.cursor.Next(ctx) {
		if err := s.cursor.Err(); err != nil {
			return journal.Event{}, false, fmt.Errorf("changelog cursor: %w", mcerr.ErrCatalogUnreachable)
		}
		s.cursor.Close(ctx)
		return journal.Event{}, false, nil
	}
	var doc bson.M
	if err := s.cursor.Decode(&doc); err != nil {
		return journal.Event{}, false, fmt.Errorf("changelog cursor: decode: %w", mcerr.ErrCatalogUnreachable)
	}
	ev, err := journal.Decode(doc)
	if err != nil {
		// Malformed entries are skipped, never fatal. They are not logged.
		return s.Next(ctx)
	}
	return ev, true, nil
}

// Collections returns every config.collections entry, for the cross-catalog
// collection-agreement report.
func (a *Accessor) Collections(ctx context.Context) ([]CollectionInfo, error) {
	cursor, err := a.config().Collection("collections").Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("catalog %s: collections: %w", a.Label, mcerr.ErrCatalogUnreachable)
	}
	defer cursor.Close(ctx)

	var out []CollectionInfo
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		ns, _ := doc["_id"].(string)
		if ns == "" {
			continue
		}
		dropped, _ := doc["dropped"].(bool)
		out = append(out, CollectionInfo{Namespace: ns, Dropped: dropped})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("catalog %s: collections: %w", a.Label, mcerr.ErrCatalogUnreachable)
	}
	return out, nil
}
