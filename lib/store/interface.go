package store

import (
	"github.com/ValentinKolb/dStore/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Entry is a single key–value pair of a store
type Entry[K comparable, V any] struct {
	Key   K `json:"key" yaml:"key"`
	Value V `json:"value" yaml:"value"`
}

// Store is a map-like view of one named container inside a storage environment.
// Every failure is returned as a *Error, engine and codec failures are reported
// with KindOperationFailure and keep the original error as cause.
//
// A Store is open until Shutdown succeeds (or its factory is closed). After that
// all operations fail with an error wrapping db.ErrClosed.
type Store[K comparable, V any] interface {
	// Name returns the container name of the store.
	Name() string
	// Path returns the root directory of the environment the store lives in.
	Path() string

	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key K) (value V, loaded bool, err error)
	// Put inserts or updates a key–value pair and returns the previous value if there was one.
	Put(key K, value V) (prev V, loaded bool, err error)
	// Remove deletes a key–value pair and returns the removed value if there was one.
	Remove(key K) (prev V, loaded bool, err error)
	// PutAll inserts or updates all pairs of entries. It stops at the first failure,
	// pairs written before the failure stay written.
	PutAll(entries map[K]V) error
	// ContainsKey returns whether a key exists in the store.
	ContainsKey(key K) (bool, error)
	// ContainsValue returns whether at least one key maps to value. Values are compared
	// in their encoded form.
	ContainsValue(value V) (bool, error)
	// Len returns the number of entries.
	Len() (int, error)
	// IsEmpty returns whether the store has no entries.
	IsEmpty() (bool, error)
	// Clear removes all entries.
	Clear() error

	// Keys returns all keys. The order is defined by the storage engine.
	Keys() ([]K, error)
	// Values returns all values. The order is defined by the storage engine.
	Values() ([]V, error)
	// Entries returns all key–value pairs. The order is defined by the storage engine.
	Entries() ([]Entry[K, V], error)
	// Range calls fn for every entry until fn returns false. The store may be modified from fn.
	Range(fn func(key K, value V) bool) error

	// Info returns metadata about the container underlying the store.
	// It is not guaranteed that all fields are filled in!
	Info() (db.DatabaseInfo, error)

	// Shutdown closes the store and removes it from its factory. The store is only
	// marked closed if the underlying container was closed successfully, so a failed
	// Shutdown can be retried. Calling Shutdown on a closed store is a no-op.
	Shutdown() error
	// IsClosed returns whether Shutdown completed successfully.
	IsClosed() bool
	// Equal reports whether other is a view of the same container
	// (same environment path and same name).
	Equal(other Store[K, V]) bool
}

// Factory creates stores inside the single environment it owns. The environment
// is created lazily by the first operation that needs it.
type Factory[K comparable, V any] interface {
	// Exists returns whether a store with the given name can be opened without creating it.
	Exists(name string) (bool, error)
	// GetInstance opens the named store, creating it if it does not exist yet.
	GetInstance(name string) (Store[K, V], error)
	// NewInstance is an alias for GetInstance.
	NewInstance(name string) (Store[K, V], error)
	// Names returns the names of all stores in the environment.
	Names() ([]string, error)
	// Path returns the root directory of the environment.
	Path() string
	// Close closes every store opened by this factory and the environment itself.
	// Calling Close more than once is a no-op.
	Close() error
}
