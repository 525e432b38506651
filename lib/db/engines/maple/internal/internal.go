package internal

import (
	"github.com/ValentinKolb/dStore/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Shard Type (partition of a container)
// --------------------------------------------------------------------------

// Shard represents a partition of a container
// Each shard has its own independent concurrent map
type Shard struct {
	Data *xsync.MapOf[string, []byte] // Map of key-value entries
}

// NewShard creates a new empty shard
func NewShard() *Shard {
	return &Shard{
		Data: xsync.NewMapOf[string, []byte](),
	}
}

// NewShards creates n empty shards
func NewShards(n int) []*Shard {
	if n < 1 {
		n = 1
	}
	shards := make([]*Shard, n)
	for i := range shards {
		shards[i] = NewShard()
	}
	return shards
}

// GetShard returns the appropriate shard for a given key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](key util.UintKey, shards []*T) *T {
	// Shift right by 7 bits to use higher-quality bits for distribution
	shiftedKey := uint64(key) >> 7
	shardPos := shiftedKey % uint64(len(shards))
	return shards[shardPos]
}

// CopyBytes returns a copy of b (nil stays nil)
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
