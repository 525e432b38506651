// Package db defines the storage engine capability used by dStore.
// It abstracts an embedded, disk-backed key-value engine behind three small interfaces
// so that the lifecycle layer (see lib/store) never depends on a concrete engine.
//
// Key Components:
//
//   - Engine: Opens environments at a directory with an EnvConfig (create flag,
//     durability, cache size) and deletes environment directories once they are closed.
//
//   - Environment: One open directory. It opens named containers with a ContainerConfig
//     (create flag, temporary flag), reports which containers exist and persists
//     everything on Close.
//
//   - Container: A handle to a named key-value container. Keys and values are opaque
//     byte slices; encoding typed keys and values is the job of the caller (see lib/codec).
//     Handles opened for the same name observe the same data.
//
//   - Errors: Sentinel errors (ErrClosed, ErrEnvironmentLocked, ErrEnvironmentNotFound,
//     ErrContainerNotFound, ErrInvalidName) shared by all engines so that callers can
//     classify failures with errors.Is.
//
//   - Path locking: LockPath gives an engine an exclusive, process-wide claim on an
//     environment directory and writes a LOCK file with a random owner id.
//
// Reserved names:
//
// CatalogContainerName is reserved for the encoding catalog maintained by lib/store/estore.
// Engines store it like any other container; the lifecycle layer refuses to hand it out.
//
// Related Packages:
//
// The engines/maple package provides the default engine: sharded concurrent maps that are
// persisted to one snapshot file per container. The engines/sqlite package stores all
// containers of an environment in a single SQLite database. Both pass the conformance
// suite in the testing package (RunEngineTests).
package db
