package db

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple  Implementation = "maple"
	ImplSQLite Implementation = "sqlite"
)

// CatalogContainerName is the reserved container name under which the encoding
// catalog of an environment is stored. Callers can not open a container with this name.
const CatalogContainerName = "__dstore_catalog"

// EnvConfig holds the tuning parameters of an environment
type EnvConfig struct {
	AllowCreate   bool  // Create the environment directory and files if they don't exist
	Transactional bool  // Durable writes (fsync / WAL) instead of best-effort writes
	CacheSize     int64 // Cache size in bytes (0 = engine default)
}

// ContainerConfig holds the tuning parameters of a single container
type ContainerConfig struct {
	AllowCreate bool // Create the container if it doesn't exist
	Temporary   bool // Content is never persisted and dropped when the last handle closes
}

type DatabaseInfo struct {
	SizeBytes int            `json:"size_bytes" yaml:"size_bytes"`
	Entries   int            `json:"entries" yaml:"entries"`
	DbType    Implementation `json:"db_type" yaml:"db_type"`
	Metadata  interface{}    `json:"metadata" yaml:"metadata"`
}

// --------------------------------------------------------------------------
// Engine Interfaces
// --------------------------------------------------------------------------

// Engine opens storage environments. An environment is a directory on disk that
// holds any number of named containers.
type Engine interface {
	// OpenEnvironment opens (or creates, if config.AllowCreate is set) the environment
	// rooted at path. Only one open environment per path is allowed in a process,
	// a second attempt fails with ErrEnvironmentLocked.
	OpenEnvironment(path string, config EnvConfig) (env Environment, err error)

	// DeleteDirectory removes the directory of a closed environment recursively.
	DeleteDirectory(path string) (err error)

	// Implementation returns the identifier of the engine.
	Implementation() Implementation
}

// Environment is an open storage environment.
// All methods are safe for concurrent use.
type Environment interface {
	// Path returns the absolute root directory of the environment.
	Path() string

	// OpenContainer opens the named container. Handles opened for the same name
	// share the same underlying data.
	// Fails with ErrContainerNotFound if the container doesn't exist and
	// config.AllowCreate is false.
	OpenContainer(name string, config ContainerConfig) (c Container, err error)

	// HasContainer reports whether the named container exists.
	HasContainer(name string) (ok bool, err error)

	// ContainerNames returns the names of all existing containers (including reserved ones).
	ContainerNames() (names []string, err error)

	// Close persists all open containers and closes the environment.
	// Container handles that are still open fail with ErrClosed afterwards.
	Close() (err error)
}

// Container is a handle to one named key-value container inside an environment.
// Keys and values are opaque byte slices. All methods are safe for concurrent use
// and fail with ErrClosed once the handle or its environment has been closed.
type Container interface {
	// Name returns the container name.
	Name() string

	// Get returns a copy of the value for key. The boolean indicates whether the key was found.
	Get(key []byte) (value []byte, loaded bool, err error)

	// Put stores value under key and returns the previous value if there was one.
	Put(key, value []byte) (previous []byte, loaded bool, err error)

	// Remove deletes key and returns the removed value if there was one.
	Remove(key []byte) (previous []byte, loaded bool, err error)

	// Has reports whether key exists.
	Has(key []byte) (ok bool, err error)

	// ContainsValue reports whether any key maps to a byte-equal value.
	ContainsValue(value []byte) (ok bool, err error)

	// Len returns the number of entries.
	Len() (n int, err error)

	// Clear removes all entries.
	Clear() (err error)

	// Range calls fn for every entry until fn returns false. The slices passed to fn
	// are copies and may be retained. The iteration order is engine specific.
	Range(fn func(key, value []byte) bool) (err error)

	// Info returns statistics about the container.
	Info() (info DatabaseInfo, err error)

	// Close releases the handle. Closing an already closed handle is a no-op.
	Close() (err error)
}
