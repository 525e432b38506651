package estore

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/ValentinKolb/dStore/lib/codec"
	"github.com/ValentinKolb/dStore/lib/db"
	"github.com/ValentinKolb/dStore/lib/db/engines/maple"
	"github.com/ValentinKolb/dStore/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("estore")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a factory. Zero fields fall back to DefaultOptions.
type Options struct {
	Engine       db.Engine    // Storage engine (default: maple)
	Codec        codec.Codec  // Key and value encoding (default: json)
	Coordinator  *Coordinator // Teardown coordinator (default: a private one)
	CacheDivisor int          // Persistent factories only, see PersistentPolicy
	CacheSize    int64        // Persistent factories only, see PersistentPolicy
}

// DefaultOptions returns the default factory options
func DefaultOptions() *Options {
	return &Options{
		Engine:       maple.NewEngine(nil),
		Codec:        codec.NewJSONCodec(),
		CacheDivisor: DefaultCacheDivisor,
	}
}

// --------------------------------------------------------------------------
// Factory
// --------------------------------------------------------------------------

// Factory implements store.Factory on top of a db.Engine
type Factory[K comparable, V any] struct {
	path        string
	policy      Policy
	engine      db.Engine
	codec       codec.Codec
	coordinator *Coordinator
	binding     Binding
	registry    *registry

	mu     sync.RWMutex // Lock excludes environment creation and Close, RLock is held while opening stores
	info   *EnvironmentInfo
	closed bool
}

// NewPersistentFactory creates a factory whose stores survive the process.
// The environment at path is transactional and its cache is sized from the free heap.
func NewPersistentFactory[K comparable, V any](path string, opts *Options) *Factory[K, V] {
	if opts == nil {
		opts = DefaultOptions()
	}
	policy := PersistentPolicy{CacheDivisor: opts.CacheDivisor, CacheSize: opts.CacheSize}
	return NewFactory[K, V](path, policy, opts)
}

// NewTemporaryFactory creates a factory for scratch stores at path. Stores are discarded
// when they are closed, with deleteOnExit the whole directory is removed on teardown.
func NewTemporaryFactory[K comparable, V any](path string, deleteOnExit bool, opts *Options) *Factory[K, V] {
	return NewFactory[K, V](path, TemporaryPolicy{RemoveOnExit: deleteOnExit}, opts)
}

// NewFactory creates a factory with a custom policy. No I/O happens until the first
// store is requested.
func NewFactory[K comparable, V any](path string, policy Policy, opts *Options) *Factory[K, V] {
	defaults := DefaultOptions()
	if opts == nil {
		opts = defaults
	}
	engine := opts.Engine
	if engine == nil {
		engine = defaults.Engine
	}
	c := opts.Codec
	if c == nil {
		c = defaults.Codec
	}
	coordinator := opts.Coordinator
	if coordinator == nil {
		coordinator = NewCoordinator(policy.DeleteOnExit())
	}

	return &Factory[K, V]{
		path:        path,
		policy:      policy,
		engine:      engine,
		codec:       c,
		coordinator: coordinator,
		binding: Binding{
			KeyType:   reflect.TypeFor[K]().String(),
			ValueType: reflect.TypeFor[V]().String(),
			Codec:     c.Name(),
		},
		registry: newRegistry(),
	}
}

// Path returns the root directory of the factory's environment
func (f *Factory[K, V]) Path() string {
	return f.path
}

// IsClosed reports whether Close was called on the factory
func (f *Factory[K, V]) IsClosed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}

// Coordinator returns the coordinator the environment is registered with
func (f *Factory[K, V]) Coordinator() *Coordinator {
	return f.coordinator
}

// ensureEnvironment creates the environment and its catalog on first use
//
// Thread-safety: This method is thread-safe, concurrent first calls create one environment.
func (f *Factory[K, V]) ensureEnvironment() (*EnvironmentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, fmt.Errorf("factory for %s: %w", f.path, db.ErrClosed)
	}
	if f.info != nil {
		return f.info, nil
	}

	config := f.policy.EnvConfig()
	env, err := f.engine.OpenEnvironment(f.path, config)
	if err != nil {
		return nil, err
	}
	catalog, err := openCatalog(env, f.policy.CatalogConfig())
	if err != nil {
		_ = env.Close()
		return nil, err
	}

	f.info = &EnvironmentInfo{
		engine:       f.engine,
		env:          env,
		catalog:      catalog,
		remover:      f.registry,
		deleteOnExit: f.policy.DeleteOnExit(),
	}
	f.coordinator.Register(f.info)
	environmentsCreated.Inc()
	log.Infof("created %s environment at %s (transactional=%t, cache=%d bytes)",
		f.engine.Implementation(), env.Path(), config.Transactional, config.CacheSize)
	return f.info, nil
}

// validateName rejects names that can never be a store
func validateName(op, name string) error {
	switch name {
	case "":
		return store.NewError(store.KindInvalidArgument, op, name, fmt.Errorf("%w: empty store name", db.ErrInvalidName))
	case db.CatalogContainerName:
		return store.NewError(store.KindInvalidArgument, op, name, fmt.Errorf("%w: %q is reserved", db.ErrInvalidName, name))
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (f *Factory[K, V]) Exists(name string) (bool, error) {
	if err := validateName("exists", name); err != nil {
		return false, err
	}
	info, err := f.ensureEnvironment()
	if err != nil {
		return false, store.NewError(store.KindOpenFailure, "exists", name, err)
	}
	ok, err := info.env.HasContainer(name)
	if err != nil {
		return false, store.NewError(store.KindOpenFailure, "exists", name, err)
	}
	return ok, nil
}

func (f *Factory[K, V]) GetInstance(name string) (store.Store[K, V], error) {
	if err := validateName("open", name); err != nil {
		return nil, err
	}
	if _, err := f.ensureEnvironment(); err != nil {
		return nil, store.NewError(store.KindOpenFailure, "open", name, err)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, store.NewError(store.KindOpenFailure, "open", name, fmt.Errorf("factory for %s: %w", f.path, db.ErrClosed))
	}

	// the binding is only recorded for containers that could be opened
	if err := f.info.catalog.Check(name, f.binding); err != nil {
		return nil, store.NewError(store.KindOpenFailure, "open", name, err)
	}
	handle, err := f.info.env.OpenContainer(name, f.policy.ContainerConfig())
	if err != nil {
		return nil, store.NewError(store.KindOpenFailure, "open", name, err)
	}
	if err := f.info.catalog.Bind(name, f.binding); err != nil {
		if closeErr := handle.Close(); closeErr != nil {
			log.Errorf("failed to close store %q after a failed bind: %v", name, closeErr)
		}
		return nil, store.NewError(store.KindOpenFailure, "open", name, err)
	}

	f.registry.add(handle)
	containersOpened.Inc()
	log.Debugf("opened store %q in %s", name, f.info.Path())
	return newMap[K, V](name, f.info, handle, f.codec), nil
}

func (f *Factory[K, V]) NewInstance(name string) (store.Store[K, V], error) {
	return f.GetInstance(name)
}

// Names returns the names of all stores in the environment, the catalog is not included
func (f *Factory[K, V]) Names() ([]string, error) {
	info, err := f.ensureEnvironment()
	if err != nil {
		return nil, store.NewError(store.KindOpenFailure, "names", "", err)
	}
	all, err := info.env.ContainerNames()
	if err != nil {
		return nil, store.NewError(store.KindOpenFailure, "names", "", err)
	}
	names := make([]string, 0, len(all))
	for _, name := range all {
		if name != db.CatalogContainerName {
			names = append(names, name)
		}
	}
	return names, nil
}

// Close closes all stores, the catalog and the environment, and deletes the
// directory if the policy asks for it. A factory that never created its
// environment has nothing to close.
func (f *Factory[K, V]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	if f.info == nil {
		return nil
	}
	if err := f.coordinator.Release(f.info); err != nil {
		return store.NewError(store.KindShutdownFailure, "close", "", err)
	}
	return nil
}
