package estore

import (
	"errors"

	"github.com/ValentinKolb/dStore/lib/db"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Environment Info
// --------------------------------------------------------------------------

// HandleRemover closes container handles on behalf of the factory that opened them
type HandleRemover interface {
	// CloseAndRemove closes the handle and removes it from the registry. On failure
	// the handle stays registered. Unknown handles are ignored.
	CloseAndRemove(handle db.Container) error
	// CloseAll closes and removes every registered handle, continuing after failures.
	CloseAll() error
	// Registered reports whether the handle is still open and tracked
	Registered(handle db.Container) bool
}

// EnvironmentInfo bundles everything the stores and the coordinator need to know
// about one environment. It is created once per factory and never modified.
type EnvironmentInfo struct {
	engine       db.Engine
	env          db.Environment
	catalog      *Catalog
	remover      HandleRemover
	deleteOnExit bool
}

// Environment returns the environment handle
func (i *EnvironmentInfo) Environment() db.Environment { return i.env }

// Catalog returns the encoding catalog of the environment
func (i *EnvironmentInfo) Catalog() *Catalog { return i.catalog }

// Remover returns the handle remover of the owning factory
func (i *EnvironmentInfo) Remover() HandleRemover { return i.remover }

// Path returns the root directory of the environment
func (i *EnvironmentInfo) Path() string { return i.env.Path() }

// --------------------------------------------------------------------------
// Handle registry
// --------------------------------------------------------------------------

// registry is the set of open container handles of a factory
type registry struct {
	handles *xsync.MapOf[db.Container, struct{}]
}

func newRegistry() *registry {
	return &registry{handles: xsync.NewMapOf[db.Container, struct{}]()}
}

func (r *registry) add(handle db.Container) {
	r.handles.Store(handle, struct{}{})
}

func (r *registry) size() int {
	return r.handles.Size()
}

// CloseAndRemove closes the handle while holding its registry entry, so two
// concurrent calls never close the same handle twice.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (r *registry) CloseAndRemove(handle db.Container) error {
	var err error
	closed := false
	r.handles.Compute(handle, func(_ struct{}, loaded bool) (struct{}, bool) {
		if !loaded {
			// delete=true leaves an absent key absent
			return struct{}{}, true
		}
		err = handle.Close()
		closed = err == nil
		return struct{}{}, closed
	})
	if closed {
		containersClosed.Inc()
	}
	return err
}

// CloseAll closes every handle. Handles that fail to close are logged and dropped
// from the registry anyway, their environment is about to be closed.
func (r *registry) CloseAll() error {
	var errs []error
	r.handles.Range(func(handle db.Container, _ struct{}) bool {
		if err := r.CloseAndRemove(handle); err != nil {
			log.Errorf("failed to close store %q: %v", handle.Name(), err)
			errs = append(errs, err)
			r.handles.Delete(handle)
		}
		return true
	})
	return errors.Join(errs...)
}

func (r *registry) Registered(handle db.Container) bool {
	_, ok := r.handles.Load(handle)
	return ok
}
