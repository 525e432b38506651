// Package sqlite implements a dStore storage engine on top of modernc.org/sqlite,
// a pure Go SQLite driver. Every environment is a directory with a single database
// file (dstore.db) that stores all containers of that environment.
//
// Schema:
//
//	containers(name TEXT PRIMARY KEY, temporary INTEGER)
//	entries(container TEXT, key BLOB, value BLOB, PRIMARY KEY (container, key))
//
// Environment tuning:
//   - Transactional environments use journal_mode=WAL and synchronous=FULL,
//     other environments use journal_mode=MEMORY and synchronous=OFF.
//   - EnvConfig.CacheSize is applied as PRAGMA cache_size (in KiB).
//   - The database is used through a single connection, which serializes writers.
//
// Temporary containers are flagged in the containers table. They are removed when
// their last handle is closed, when the environment is closed and, in case the
// process died before, when the environment is opened again.
package sqlite
