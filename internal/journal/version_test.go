package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardVersionCompare(t *testing.T) {
	assert.Equal(t, -1, ShardVersion{Major: 1, Minor: 0}.Compare(ShardVersion{Major: 2, Minor: 0}))
	assert.Equal(t, 1, ShardVersion{Major: 2, Minor: 0}.Compare(ShardVersion{Major: 2, Minor: -1}))
	assert.Equal(t, 0, ShardVersion{Major: 5, Minor: 5}.Compare(ShardVersion{Major: 5, Minor: 5}))
}

func TestShardVersionUnknownSortsLowest(t *testing.T) {
	assert.Equal(t, -1, UnknownVersion.Compare(ShardVersion{Major: 0, Minor: 0}))
	assert.Equal(t, 1, ShardVersion{Major: 0, Minor: 0}.Compare(UnknownVersion))
	assert.Equal(t, 0, UnknownVersion.Compare(UnknownVersion))
}
