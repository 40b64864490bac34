// Package journal decodes config.changelog documents into a tagged variant of
// the events the Reconstructor knows how to invert. This is the single place
// that inspects raw documents; the rest of the system only ever sees an
// Event.
package journal

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rueckstiess/mconfcheck/internal/shardkey"
)

// Kind discriminates the shape of a decoded changelog entry.
type Kind int

const (
	// Ignored marks a changelog "what" value the reconstructor does not act
	// on.
	Ignored Kind = iota
	Split
	MultiSplit
	MoveFrom
	MoveStart
	MoveTo
	MoveCommit
)

func (k Kind) String() string {
	switch k {
	case Split:
		return "split"
	case MultiSplit:
		return "multi-split"
	case MoveFrom:
		return "moveChunk.from"
	case MoveStart:
		return "moveChunk.start"
	case MoveTo:
		return "moveChunk.to"
	case MoveCommit:
		return "moveChunk.commit"
	default:
		return "ignored"
	}
}

// Role selects which sub-record of a split/multi-split event to decode into a
// Chunk.
type Role int

const (
	RoleBefore Role = iota
	RoleLeft
	RoleRight
	RoleSibling
)

// SubRecord is one named chunk-shaped fragment of a split/multi-split event:
// a range plus the shard version it was given at split time.
type SubRecord struct {
	Fields  []string
	Min     shardkey.Tuple
	Max     shardkey.Tuple
	Version ShardVersion
}

// Event is the decoded, typed form of one config.changelog document.
type Event struct {
	Kind      Kind
	Namespace string
	Time      time.Time

	// Split: Before, Left, Right are all populated.
	Before SubRecord
	Left   SubRecord
	Right  SubRecord

	// MultiSplit: Before and Sibling are populated; one decoded Event
	// corresponds to one sibling document, mirroring the journal (the
	// Reconstructor is responsible for gathering all siblings of one
	// multi-split into a single inversion).
	Sibling SubRecord

	// MoveFrom/MoveStart/MoveTo/MoveCommit: Min/Max identify the moved
	// range. MoveFrom additionally carries Note ("abort" marks an aborted
	// move). MoveStart additionally carries FromShard, the donor shard.
	Min       shardkey.Tuple
	Max       shardkey.Tuple
	Note      string
	FromShard string
}

// Aborted reports whether a MoveFrom event was tagged as an aborted move.
func (e Event) Aborted() bool {
	return e.Kind == MoveFrom && e.Note == "abort"
}

// SameRange reports whether two move-phase events describe the same chunk
// range, the correlation key the Reconstructor uses to assemble a completed
// move out of its four phases.
func (e Event) SameRange(other Event) bool {
	return e.Min.Equal(other.Min) && e.Max.Equal(other.Max)
}

// Decode classifies a raw config.changelog document and extracts its typed
// payload. Unrecognized "what" values decode to Kind Ignored with no error:
// they are silent non-events, not malformed ones.
func Decode(doc bson.M) (Event, error) {
	what, _ := doc["what"].(string)
	ns, _ := doc["ns"].(string)
	ev := Event{Namespace: ns}

	if t, ok := doc["time"].(primitive.DateTime); ok {
		ev.Time = t.Time()
	} else if t, ok := doc["time"].(time.Time); ok {
		ev.Time = t
	}

	switch what {
	case "split":
		return decodeSplit(doc, ev)
	case "multi-split":
		return decodeMultiSplit(doc, ev)
	case "moveChunk.from":
		return decodeMoveFrom(doc, ev)
	case "moveChunk.start":
		return decodeMoveStart(doc, ev)
	case "moveChunk.to":
		return decodeMoveTo(doc, ev)
	case "moveChunk.commit":
		return decodeMoveCommit(doc, ev)
	default:
		ev.Kind = Ignored
		return ev, nil
	}
}

func decodeSplit(doc bson.M, ev Event) (Event, error) {
	details, ok := doc["details"].(bson.M)
	if !ok {
		return ev, fmt.Errorf("journal: malformed split event: missing details")
	}

	before, err := decodeSubRecord(details, "before")
	if err != nil {
		return ev, fmt.Errorf("journal: malformed split event: %w", err)
	}
	left, err := decodeSubRecord(details, "left")
	if err != nil {
		return ev, fmt.Errorf("journal: malformed split event: %w", err)
	}
	right, err := decodeSubRecord(details, "right")
	if err != nil {
		return ev, fmt.Errorf("journal: malformed split event: %w", err)
	}

	ev.Kind = Split
	ev.Before, ev.Left, ev.Right = before, left, right
	return ev, nil
}

func decodeMultiSplit(doc bson.M, ev Event) (Event, error) {
	details, ok := doc["details"].(bson.M)
	if !ok {
		return ev, fmt.Errorf("journal: malformed multi-split event: missing details")
	}

	before, err := decodeSubRecord(details, "before")
	if err != nil {
		return ev, fmt.Errorf("journal: malformed multi-split event: %w", err)
	}

	sibling, err := decodeSubRecord(details, "chunk")
	if err != nil {
		return ev, fmt.Errorf("journal: malformed multi-split event: %w", err)
	}

	ev.Kind = MultiSplit
	ev.Before, ev.Sibling = before, sibling
	return ev, nil
}

func decodeMoveFrom(doc bson.M, ev Event) (Event, error) {
	details, ok := doc["details"].(bson.M)
	if !ok {
		return ev, fmt.Errorf("journal: malformed moveChunk.from event: missing details")
	}
	min, max, err := decodeMinMax(details)
	if err != nil {
		return ev, fmt.Errorf("journal: malformed moveChunk.from event: %w", err)
	}
	ev.Kind = MoveFrom
	ev.Min, ev.Max = min, max
	if note, ok := details["note"].(string); ok {
		ev.Note = note
	}
	return ev, nil
}

func decodeMoveStart(doc bson.M, ev Event) (Event, error) {
	details, ok := doc["details"].(bson.M)
	if !ok {
		return ev, fmt.Errorf("journal: malformed moveChunk.start event: missing details")
	}
	min, max, err := decodeMinMax(details)
	if err != nil {
		return ev, fmt.Errorf("journal: malformed moveChunk.start event: %w", err)
	}
	ev.Kind = MoveStart
	ev.Min, ev.Max = min, max
	from, _ := details["from"].(string)
	ev.FromShard = from
	return ev, nil
}

func decodeMoveTo(doc bson.M, ev Event) (Event, error) {
	details, ok := doc["details"].(bson.M)
	if !ok {
		return ev, fmt.Errorf("journal: malformed moveChunk.to event: missing details")
	}
	min, max, err := decodeMinMax(details)
	if err != nil {
		return ev, fmt.Errorf("journal: malformed moveChunk.to event: %w", err)
	}
	ev.Kind = MoveTo
	ev.Min, ev.Max = min, max
	return ev, nil
}

func decodeMoveCommit(doc bson.M, ev Event) (Event, error) {
	details, ok := doc["details"].(bson.M)
	if !ok {
		return ev, fmt.Errorf("journal: malformed moveChunk.commit event: missing details")
	}
	min, max, err := decodeMinMax(details)
	if err != nil {
		return ev, fmt.Errorf("journal: malformed moveChunk.commit event: %w", err)
	}
	ev.Kind = MoveCommit
	ev.Min, ev.Max = min, max
	return ev, nil
}

func decodeSubRecord(details bson.M, key string) (SubRecord, error) {
	sub, ok := details[key].(bson.M)
	if !ok {
		return SubRecord{}, fmt.Errorf("missing or malformed %q sub-record", key)
	}
	min, max, err := decodeMinMax(sub)
	if err != nil {
		return SubRecord{}, fmt.Errorf("%q sub-record: %w", key, err)
	}
	version, err := decodeVersion(sub)
	if err != nil {
		return SubRecord{}, fmt.Errorf("%q sub-record: %w", key, err)
	}
	return SubRecord{
		Fields:  fieldNames(sub["min"]),
		Min:     min,
		Max:     max,
		Version: version,
	}, nil
}

func decodeMinMax(doc bson.M) (min, max shardkey.Tuple, err error) {
	minTuple, err := decodeTuple(doc["min"])
	if err != nil {
		return nil, nil, fmt.Errorf("min: %w", err)
	}
	maxTuple, err := decodeTuple(doc["max"])
	if err != nil {
		return nil, nil, fmt.Errorf("max: %w", err)
	}
	return minTuple, maxTuple, nil
}

func decodeTuple(v any) (shardkey.Tuple, error) {
	d, ok := v.(bson.D)
	if !ok {
		return nil, fmt.Errorf("expected an ordered document, got %T", v)
	}
	tuple := make(shardkey.Tuple, len(d))
	for i, elem := range d {
		tuple[i] = elem.Value
	}
	return tuple, nil
}

func fieldNames(v any) []string {
	d, ok := v.(bson.D)
	if !ok {
		return nil
	}
	names := make([]string, len(d))
	for i, elem := range d {
		names[i] = elem.Key
	}
	return names
}

func decodeVersion(sub bson.M) (ShardVersion, error) {
	ts, ok := sub["lastmod"].(primitive.Timestamp)
	if !ok {
		return ShardVersion{}, fmt.Errorf("missing or malformed lastmod")
	}
	return ShardVersion{Major: int64(ts.T), Minor: int64(ts.I)}, nil
}
