// Package maple implements the default dStore storage engine. Containers are held in
// sharded concurrent maps and persisted to one binary snapshot file per container.
// It provides a complete implementation of the db.Engine, db.Environment and
// db.Container interfaces with a focus on thread safety and simple on-disk state.
//
// The package focuses on:
//   - Concurrent access through sharding and lock-free maps (xsync.MapOf)
//   - Container data shared by every handle opened for the same name
//   - Crash-safe snapshots written to a temp file and renamed into place
//   - Cheap statistics (size histogram, shard distribution) for monitoring
//
// Key Components:
//
//   - engineImpl: Opens environments. It resolves the directory, creates it if the
//     EnvConfig allows it and claims it with db.LockPath so that no second environment
//     in the process can open the same directory.
//
//   - environmentImpl: One directory. It keeps a reference counted containerState per
//     open container name. The first handle of a name loads the snapshot, the last
//     handle persists it (persistent containers) or drops it (temporary containers).
//     Close persists every modified container and releases the path lock.
//
//   - containerState: The shared data of a container: a seed, the shards and a dirty
//     flag that is set by every modification and cleared when a snapshot is written.
//
//   - handleImpl: A db.Container handle. It fails with db.ErrClosed once it or its
//     environment has been closed.
//
// Internal Mechanisms:
//
//   - Sharding Strategy: Keys are distributed across shards in a two-step process:
//     1. Keys are converted to 64-bit integers using the HashString function
//     with a container-specific seed
//     2. The integer key is right-shifted by 7 bits to use higher-quality bits for
//     distribution
//
//   - Durability: Transactional environments fsync every snapshot before renaming it,
//     non-transactional environments rely on the OS page cache.
//
// Snapshot Format:
//
// Every persistent container is written to "<path-escaped name>.maple" in little endian:
//
//	magic   "MAPLECT\x00"
//	version uint8
//	count   uint64
//	count x (keyLen uint32, key []byte, valueLen uint32, value []byte)
//
// Usage Example:
//
//	engine := maple.NewEngine(nil)
//	env, err := engine.OpenEnvironment("/var/lib/app", db.EnvConfig{AllowCreate: true})
//	if err != nil {
//	    // Handle error
//	}
//	defer env.Close()
//
//	users, err := env.OpenContainer("users", db.ContainerConfig{AllowCreate: true})
//	if err != nil {
//	    // Handle error
//	}
//	defer users.Close()
//
//	_, _, err = users.Put([]byte("alice"), []byte("42"))
package maple
