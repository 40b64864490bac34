// Package shardkey implements the total order over shard-key values and tuples
// that a ChunkDistribution is sorted by: primitive.MinKey sorts below every
// ordinary value, primitive.MaxKey sorts above every ordinary value, and two
// ordinary values compare as compareOrdinary describes.
package shardkey

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Value is a single shard-key component: either a sentinel (primitive.MinKey,
// primitive.MaxKey) or an ordinary BSON scalar decoded by the driver.
type Value = any

// Compare returns -1, 0, or 1 as a < b, a == b, a > b under the sentinel-first
// total order: MinKey < any ordinary value < MaxKey, MinKey == MinKey, MaxKey ==
// MaxKey. Ordinary values are compared with compareOrdinary.
func Compare(a, b Value) int {
	aMin, aMax := isMinKey(a), isMaxKey(a)
	bMin, bMax := isMinKey(b), isMaxKey(b)

	switch {
	case aMin && bMin:
		return 0
	case aMax && bMax:
		return 0
	case aMin:
		return -1
	case bMin:
		return 1
	case aMax:
		return 1
	case bMax:
		return -1
	}
	return compareOrdinary(a, b)
}

func isMinKey(v Value) bool {
	_, ok := v.(primitive.MinKey)
	return ok
}

func isMaxKey(v Value) bool {
	_, ok := v.(primitive.MaxKey)
	return ok
}

// compareOrdinary compares two non-sentinel BSON scalars. Numeric kinds compare
// numerically across width/signedness, strings and ObjectIDs compare by their
// natural byte order, and everything else falls back to a formatted-string
// comparison so that arbitrary opaque identifiers still total-order consistently.
func compareOrdinary(a, b Value) int {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			switch {
			case as < bs:
				return -1
			case as > bs:
				return 1
			default:
				return 0
			}
		}
	}

	if aid, aok := a.(primitive.ObjectID); aok {
		if bid, bok := b.(primitive.ObjectID); bok {
			return compareBytes(aid[:], bid[:])
		}
	}

	as, bs := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func asFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Equal reports whether a and b are the same shard-key value under Compare.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

// Tuple is an ordered sequence of Values; its length is a namespace's declared
// shard-key arity and is constant for that namespace.
type Tuple []Value

// Compare lexicographically compares two tuples component by component. Both
// tuples must share the same arity; mixing arities is a precondition
// violation and panics.
func (t Tuple) Compare(other Tuple) int {
	if len(t) != len(other) {
		panic(fmt.Sprintf("shardkey: arity mismatch comparing tuples of length %d and %d", len(t), len(other)))
	}
	for i := range t {
		if c := Compare(t[i], other[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Equal reports whether two tuples are component-wise equal.
func (t Tuple) Equal(other Tuple) bool {
	if len(t) != len(other) {
		return false
	}
	return t.Compare(other) == 0
}

// Less reports whether t sorts strictly before other.
func (t Tuple) Less(other Tuple) bool {
	return t.Compare(other) < 0
}

// IsMinSentinel reports whether every component of t is the MinKey sentinel.
func IsMinSentinel(t Tuple) bool {
	for _, v := range t {
		if !isMinKey(v) {
			return false
		}
	}
	return len(t) > 0
}

// IsMaxSentinel reports whether every component of t is the MaxKey sentinel.
func IsMaxSentinel(t Tuple) bool {
	for _, v := range t {
		if !isMaxKey(v) {
			return false
		}
	}
	return len(t) > 0
}

// Min returns the MinSentinel value for a single shard-key component.
func Min() Value { return primitive.MinKey{} }

// Max returns the MaxSentinel value for a single shard-key component.
func Max() Value { return primitive.MaxKey{} }
