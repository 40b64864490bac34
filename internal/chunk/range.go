package chunk

import (
	"fmt"

	"github.com/rueckstiess/mconfcheck/internal/shardkey"
)

// Range is a half-open shard-key interval [Min, Max), represented as two tuples
// of equal arity with Min strictly less than Max.
type Range struct {
	Min shardkey.Tuple
	Max shardkey.Tuple
}

// NewRange builds a Range, validating arity and ordering.
func NewRange(min, max shardkey.Tuple) (Range, error) {
	if len(min) != len(max) {
		return Range{}, fmt.Errorf("range: arity mismatch: min has %d fields, max has %d", len(min), len(max))
	}
	if !min.Less(max) {
		return Range{}, fmt.Errorf("range: min %v is not strictly less than max %v", min, max)
	}
	return Range{Min: min, Max: max}, nil
}

// Equal reports whether two ranges have the same min and max.
func (r Range) Equal(other Range) bool {
	return r.Min.Equal(other.Min) && r.Max.Equal(other.Max)
}

// Compare orders ranges by Min, the sort key a ChunkDistribution keeps its
// chunks ordered by.
func (r Range) Compare(other Range) int {
	return r.Min.Compare(other.Min)
}

func (r Range) String() string {
	return fmt.Sprintf("%v-->%v", r.Min, r.Max)
}
