package game

import (
	"sync"

	"go.hexfield.org/game/go/hexcoord"
)

// lockShards is the number of mutexes coordinates are hashed onto. Two
// clicks contend only when their coordinates map to the same shard.
const lockShards = 256

// coordLocks serializes clicks per coordinate with a fixed pool of sharded
// mutexes. The zero value is ready to use.
type coordLocks struct {
	shards [lockShards]sync.Mutex
}

func (l *coordLocks) lock(coords hexcoord.AxialCoords) func() {
	shard := &l.shards[shardFor(coords)]
	shard.Lock()
	return shard.Unlock
}

func shardFor(coords hexcoord.AxialCoords) uint32 {
	// Knuth multiplicative hashing over the packed pair.
	h := uint64(uint32(coords.Q))<<32 | uint64(uint32(coords.R))
	return uint32((h * 2654435761) >> 32) % lockShards
}
