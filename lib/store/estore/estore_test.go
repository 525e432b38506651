package estore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dStore/lib/codec"
	"github.com/ValentinKolb/dStore/lib/db"
	"github.com/ValentinKolb/dStore/lib/db/engines/maple"
	"github.com/ValentinKolb/dStore/lib/db/engines/sqlite"
	"github.com/ValentinKolb/dStore/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEngines are the engines every lifecycle test runs against
var testEngines = map[string]func() db.Engine{
	"maple":  func() db.Engine { return maple.NewEngine(&maple.Options{NumShards: 4}) },
	"sqlite": func() db.Engine { return sqlite.NewEngine() },
}

// forEachEngine runs fn as a subtest for every engine
func forEachEngine(t *testing.T, fn func(t *testing.T, newEngine func() db.Engine)) {
	for name, newEngine := range testEngines {
		t.Run(name, func(t *testing.T) {
			fn(t, newEngine)
		})
	}
}

// --------------------------------------------------------------------------
// Flaky engine
// --------------------------------------------------------------------------

// flakyEngine wraps a real engine and can be told to fail container closes and
// directory deletions. It counts opened environments.
type flakyEngine struct {
	db.Engine
	failClose  atomic.Bool
	failDelete atomic.Bool
	envOpens   atomic.Int32
}

func (e *flakyEngine) OpenEnvironment(path string, config db.EnvConfig) (db.Environment, error) {
	env, err := e.Engine.OpenEnvironment(path, config)
	if err != nil {
		return nil, err
	}
	e.envOpens.Add(1)
	return &flakyEnvironment{Environment: env, engine: e}, nil
}

func (e *flakyEngine) DeleteDirectory(path string) error {
	if e.failDelete.Load() {
		return errors.New("directory is busy")
	}
	return e.Engine.DeleteDirectory(path)
}

type flakyEnvironment struct {
	db.Environment
	engine *flakyEngine
}

func (env *flakyEnvironment) OpenContainer(name string, config db.ContainerConfig) (db.Container, error) {
	c, err := env.Environment.OpenContainer(name, config)
	if err != nil {
		return nil, err
	}
	return &flakyContainer{Container: c, engine: env.engine}, nil
}

type flakyContainer struct {
	db.Container
	engine *flakyEngine
}

func (c *flakyContainer) Close() error {
	if c.engine.failClose.Load() {
		return errors.New("container is busy")
	}
	return c.Container.Close()
}

// --------------------------------------------------------------------------
// Factory tests
// --------------------------------------------------------------------------

// TestExistsBeforeAndAfterGetInstance verifies that a store only exists once it was requested
func TestExistsBeforeAndAfterGetInstance(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		factories := map[string]*Factory[string, int]{
			"persistent": NewPersistentFactory[string, int](t.TempDir(), &Options{Engine: newEngine()}),
			"temporary":  NewTemporaryFactory[string, int](t.TempDir(), false, &Options{Engine: newEngine()}),
		}
		for name, f := range factories {
			t.Run(name, func(t *testing.T) {
				defer f.Close()

				for _, storeName := range []string{"users", "orders/2024", "ünïcode"} {
					ok, err := f.Exists(storeName)
					require.NoError(t, err)
					assert.False(t, ok, "store %q should not exist yet", storeName)

					_, err = f.GetInstance(storeName)
					require.NoError(t, err)

					ok, err = f.Exists(storeName)
					require.NoError(t, err)
					assert.True(t, ok, "store %q should exist", storeName)
				}
			})
		}
	})
}

// TestSameNameSharesData verifies that two stores of the same name observe the same data
func TestSameNameSharesData(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		f := NewPersistentFactory[string, string](t.TempDir(), &Options{Engine: newEngine()})
		defer f.Close()

		a, err := f.GetInstance("shared")
		require.NoError(t, err)
		b, err := f.NewInstance("shared")
		require.NoError(t, err)

		_, _, err = a.Put("key", "value")
		require.NoError(t, err)

		v, ok, err := b.Get("key")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "value", v)

		assert.True(t, a.Equal(b))
		assert.Equal(t, 2, f.registry.size())
	})
}

// TestConcurrentFirstGetInstance verifies that concurrent first calls create exactly one environment
func TestConcurrentFirstGetInstance(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		engine := &flakyEngine{Engine: newEngine()}
		f := NewPersistentFactory[string, int](filepath.Join(t.TempDir(), "env"), &Options{Engine: engine})
		defer f.Close()

		const n = 16
		stores := make([]store.Store[string, int], n)
		errs := make([]error, n)

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				stores[i], errs[i] = f.GetInstance(fmt.Sprintf("store-%d", i%4))
			}(i)
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			_, _, err := stores[i].Put(fmt.Sprintf("key-%d", i), i)
			require.NoError(t, err)
		}

		assert.Equal(t, int32(1), engine.envOpens.Load(), "exactly one environment must be created")
		assert.Equal(t, n, f.registry.size())
		assert.Equal(t, 1, f.Coordinator().Len())

		names, err := f.Names()
		require.NoError(t, err)
		assert.Equal(t, []string{"store-0", "store-1", "store-2", "store-3"}, names)
	})
}

// TestTwoGoroutinesGetInstance covers two goroutines opening the same store on a fresh factory
func TestTwoGoroutinesGetInstance(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		f := NewPersistentFactory[string, int](t.TempDir(), &Options{Engine: newEngine()})
		defer f.Close()

		var a, b store.Store[string, int]
		var errA, errB error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); a, errA = f.GetInstance("x") }()
		go func() { defer wg.Done(); b, errB = f.GetInstance("x") }()
		wg.Wait()

		require.NoError(t, errA)
		require.NoError(t, errB)

		_, _, err := a.Put("from-a", 1)
		require.NoError(t, err)
		v, ok, err := b.Get("from-a")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, v)
	})
}

// TestInvalidNames verifies that invalid names fail before any I/O
func TestInvalidNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-created")
	f := NewPersistentFactory[string, int](path, nil)
	defer f.Close()

	for _, name := range []string{"", db.CatalogContainerName} {
		_, err := f.GetInstance(name)
		assert.ErrorIs(t, err, store.ErrInvalidArgument)
		assert.ErrorIs(t, err, db.ErrInvalidName)

		_, err = f.Exists(name)
		assert.ErrorIs(t, err, store.ErrInvalidArgument)
	}

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no directory may be created for invalid names")
	assert.Equal(t, 0, f.Coordinator().Len())
}

// TestOpenFailures verifies that engine failures are reported as open failures
// without registering anything
func TestOpenFailures(t *testing.T) {
	dir := t.TempDir()

	first := NewPersistentFactory[string, int](dir, nil)
	defer first.Close()
	_, err := first.GetInstance("a")
	require.NoError(t, err)

	// the environment directory is already held by the first factory
	second := NewPersistentFactory[string, int](dir, nil)
	defer second.Close()
	_, err = second.GetInstance("a")
	assert.ErrorIs(t, err, store.ErrOpenFailure)
	assert.ErrorIs(t, err, db.ErrEnvironmentLocked)
	assert.Equal(t, 0, second.registry.size())

	_, err = second.Exists("a")
	assert.ErrorIs(t, err, store.ErrOpenFailure)
}

// TestIncompatibleTypes verifies the catalog binding of key and value types
func TestIncompatibleTypes(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		dir := t.TempDir()

		ints := NewPersistentFactory[string, int](dir, &Options{Engine: newEngine()})
		_, err := ints.GetInstance("numbers")
		require.NoError(t, err)
		require.NoError(t, ints.Close())

		strs := NewPersistentFactory[string, string](dir, &Options{Engine: newEngine()})
		defer strs.Close()
		_, err = strs.GetInstance("numbers")
		assert.ErrorIs(t, err, store.ErrOpenFailure)
		assert.ErrorIs(t, err, ErrIncompatibleTypes)
		assert.Equal(t, 0, strs.registry.size())

		// a different store in the same environment is fine
		_, err = strs.GetInstance("words")
		assert.NoError(t, err)
	})
}

// TestFailedOpenLeavesNoBinding verifies that a store that could not be opened
// can later be opened with other types
func TestFailedOpenLeavesNoBinding(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "broken.maple")
	require.NoError(t, os.WriteFile(corrupt, []byte("NOTMAPLE"), 0o644))

	ints := NewPersistentFactory[string, int](dir, &Options{Engine: maple.NewEngine(nil)})
	_, err := ints.GetInstance("broken")
	assert.ErrorIs(t, err, store.ErrOpenFailure)
	assert.NotErrorIs(t, err, ErrIncompatibleTypes)

	_, bound, err := ints.info.catalog.Lookup("broken")
	require.NoError(t, err)
	assert.False(t, bound)
	require.NoError(t, ints.Close())

	require.NoError(t, os.Remove(corrupt))
	strs := NewPersistentFactory[string, string](dir, &Options{Engine: maple.NewEngine(nil)})
	defer strs.Close()
	s, err := strs.GetInstance("broken")
	require.NoError(t, err)
	_, _, err = s.Put("k", "v")
	assert.NoError(t, err)
}

// TestIncompatibleCodec verifies that the codec is part of the binding
func TestIncompatibleCodec(t *testing.T) {
	dir := t.TempDir()

	f := NewPersistentFactory[string, int](dir, nil)
	_, err := f.GetInstance("s")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f = NewPersistentFactory[string, int](dir, &Options{Codec: codec.NewGOBCodec()})
	defer f.Close()
	_, err = f.GetInstance("s")
	assert.ErrorIs(t, err, ErrIncompatibleTypes)
}

// --------------------------------------------------------------------------
// Store tests
// --------------------------------------------------------------------------

// TestRoundTrips covers put/get, remove/get and clear/isEmpty
func TestRoundTrips(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		for _, c := range []codec.Codec{codec.NewJSONCodec(), codec.NewGOBCodec(), codec.NewYAMLCodec()} {
			t.Run(c.Name(), func(t *testing.T) {
				f := NewTemporaryFactory[string, int](t.TempDir(), true, &Options{Engine: newEngine(), Codec: c})
				defer f.Close()

				s, err := f.GetInstance("numbers")
				require.NoError(t, err)

				_, loaded, err := s.Put("a", 1)
				require.NoError(t, err)
				assert.False(t, loaded)

				prev, loaded, err := s.Put("a", 2)
				require.NoError(t, err)
				assert.True(t, loaded)
				assert.Equal(t, 1, prev)

				v, ok, err := s.Get("a")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, 2, v)

				prev, loaded, err = s.Remove("a")
				require.NoError(t, err)
				assert.True(t, loaded)
				assert.Equal(t, 2, prev)

				_, ok, err = s.Get("a")
				require.NoError(t, err)
				assert.False(t, ok)

				require.NoError(t, s.PutAll(map[string]int{"x": 1, "y": 2, "z": 3}))
				n, err := s.Len()
				require.NoError(t, err)
				assert.Equal(t, 3, n)

				require.NoError(t, s.Clear())
				empty, err := s.IsEmpty()
				require.NoError(t, err)
				assert.True(t, empty)
				n, err = s.Len()
				require.NoError(t, err)
				assert.Equal(t, 0, n)
			})
		}
	})
}

// TestCollectionViews covers Keys, Values, Entries, Range and the contains checks
func TestCollectionViews(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		f := NewPersistentFactory[string, int](t.TempDir(), &Options{Engine: newEngine()})
		defer f.Close()

		s, err := f.GetInstance("views")
		require.NoError(t, err)
		require.NoError(t, s.PutAll(map[string]int{"a": 1, "b": 2, "c": 3}))

		keys, err := s.Keys()
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"a", "b", "c"}, keys)

		values, err := s.Values()
		require.NoError(t, err)
		sort.Ints(values)
		assert.Equal(t, []int{1, 2, 3}, values)

		entries, err := s.Entries()
		require.NoError(t, err)
		assert.Len(t, entries, 3)
		for _, e := range entries {
			assert.Equal(t, int(e.Key[0]-'a')+1, e.Value)
		}

		visited := 0
		require.NoError(t, s.Range(func(string, int) bool {
			visited++
			return visited < 2
		}))
		assert.Equal(t, 2, visited)

		ok, err := s.ContainsKey("b")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.ContainsKey("d")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.ContainsValue(3)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.ContainsValue(4)
		require.NoError(t, err)
		assert.False(t, ok)

		info, err := s.Info()
		require.NoError(t, err)
		assert.Equal(t, 3, info.Entries)
	})
}

// TestDecodeFailure verifies that undecodable data is reported as an operation failure
func TestDecodeFailure(t *testing.T) {
	f := NewPersistentFactory[string, int](t.TempDir(), nil)
	defer f.Close()

	s, err := f.GetInstance("broken")
	require.NoError(t, err)

	// write a value that is not a json number directly into the container
	handle := s.(*mapImpl[string, int]).handle
	_, _, err = handle.Put([]byte(`"k"`), []byte(`"not a number"`))
	require.NoError(t, err)

	_, _, err = s.Get("k")
	assert.ErrorIs(t, err, store.ErrOperationFailure)

	_, err = s.Values()
	assert.ErrorIs(t, err, store.ErrOperationFailure)
}

// TestShutdown verifies that Shutdown removes the handle and is idempotent
func TestShutdown(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		f := NewPersistentFactory[string, int](t.TempDir(), &Options{Engine: newEngine()})
		defer f.Close()

		s, err := f.GetInstance("s")
		require.NoError(t, err)
		other, err := f.GetInstance("s")
		require.NoError(t, err)
		require.Equal(t, 2, f.registry.size())

		require.NoError(t, s.Shutdown())
		assert.True(t, s.IsClosed())
		assert.Equal(t, 1, f.registry.size())
		assert.False(t, f.registry.Registered(s.(*mapImpl[string, int]).handle))

		// second shutdown is a no-op
		assert.NoError(t, s.Shutdown())

		_, _, err = s.Get("k")
		assert.ErrorIs(t, err, store.ErrOperationFailure)
		assert.ErrorIs(t, err, db.ErrClosed)

		// the other store of the same name is unaffected
		assert.False(t, other.IsClosed())
		_, _, err = other.Put("k", 1)
		assert.NoError(t, err)
	})
}

// TestShutdownFailureKeepsHandle verifies that a failed Shutdown can be retried
func TestShutdownFailureKeepsHandle(t *testing.T) {
	engine := &flakyEngine{Engine: maple.NewEngine(nil)}
	f := NewPersistentFactory[string, int](t.TempDir(), &Options{Engine: engine})
	defer f.Close()

	s, err := f.GetInstance("s")
	require.NoError(t, err)

	engine.failClose.Store(true)
	err = s.Shutdown()
	assert.ErrorIs(t, err, store.ErrShutdownFailure)
	assert.False(t, s.IsClosed())
	assert.Equal(t, 1, f.registry.size())

	engine.failClose.Store(false)
	require.NoError(t, s.Shutdown())
	assert.True(t, s.IsClosed())
	assert.Equal(t, 0, f.registry.size())
}

// TestRetriedShutdownKeepsData verifies that a store whose data could not be
// persisted on Shutdown keeps it until a retry succeeds
func TestRetriedShutdownKeepsData(t *testing.T) {
	path := t.TempDir()
	f := NewPersistentFactory[string, string](path, &Options{Engine: maple.NewEngine(nil)})

	s, err := f.GetInstance("a")
	require.NoError(t, err)
	_, _, err = s.Put("k", "v")
	require.NoError(t, err)

	// a directory in place of the snapshot temp file makes persisting fail
	blocker := filepath.Join(path, "a.maple.tmp")
	require.NoError(t, os.Mkdir(blocker, 0o755))

	err = s.Shutdown()
	assert.ErrorIs(t, err, store.ErrShutdownFailure)
	assert.False(t, s.IsClosed())

	require.NoError(t, os.Remove(blocker))
	require.NoError(t, s.Shutdown())
	assert.True(t, s.IsClosed())
	require.NoError(t, f.Close())

	f = NewPersistentFactory[string, string](path, &Options{Engine: maple.NewEngine(nil)})
	defer f.Close()
	s, err = f.GetInstance("a")
	require.NoError(t, err)
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

// TestFactoryClose verifies that closing the factory closes all stores
func TestFactoryClose(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		f := NewPersistentFactory[string, int](t.TempDir(), &Options{Engine: newEngine()})

		a, err := f.GetInstance("a")
		require.NoError(t, err)
		b, err := f.GetInstance("b")
		require.NoError(t, err)

		assert.False(t, f.IsClosed())
		require.NoError(t, f.Close())
		assert.True(t, f.IsClosed())
		assert.NoError(t, f.Close(), "second close is a no-op")

		for _, s := range []store.Store[string, int]{a, b} {
			assert.True(t, s.IsClosed())
			_, _, err := s.Put("k", 1)
			assert.ErrorIs(t, err, store.ErrOperationFailure)
			assert.NoError(t, s.Shutdown())
		}
		assert.Equal(t, 0, f.registry.size())
		assert.Equal(t, 0, f.Coordinator().Len())

		_, err = f.GetInstance("c")
		assert.ErrorIs(t, err, store.ErrOpenFailure)
		assert.ErrorIs(t, err, db.ErrClosed)
	})
}

// TestFactoryCloseBestEffort verifies that one failing store does not stop the teardown
func TestFactoryCloseBestEffort(t *testing.T) {
	engine := &flakyEngine{Engine: maple.NewEngine(nil)}
	dir := t.TempDir()
	f := NewPersistentFactory[string, int](dir, &Options{Engine: engine})

	_, err := f.GetInstance("a")
	require.NoError(t, err)
	_, err = f.GetInstance("b")
	require.NoError(t, err)

	engine.failClose.Store(true)
	err = f.Close()
	assert.ErrorIs(t, err, store.ErrShutdownFailure)
	assert.Equal(t, 0, f.registry.size())

	// the environment was closed anyway and can be opened again
	f2 := NewPersistentFactory[string, int](dir, nil)
	defer f2.Close()
	ok, err := f2.Exists("a")
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestFactoryCloseWithoutEnvironment verifies that an unused factory closes without I/O
func TestFactoryCloseWithoutEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unused")
	f := NewTemporaryFactory[string, int](path, true, nil)
	assert.NoError(t, f.Close())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

// --------------------------------------------------------------------------
// Scenarios
// --------------------------------------------------------------------------

// TestTemporaryScenario: temporary factory with delete-on-exit, one store, shutdown
// deletes the directory
func TestTemporaryScenario(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		path := filepath.Join(t.TempDir(), "ds1")
		f := NewTemporaryFactory[string, int](path, true, &Options{Engine: newEngine()})

		users, err := f.NewInstance("users")
		require.NoError(t, err)

		_, _, err = users.Put("alice", 42)
		require.NoError(t, err)

		v, ok, err := users.Get("alice")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 42, v)

		_, err = os.Stat(path)
		require.NoError(t, err, "the environment directory must exist while open")

		require.NoError(t, f.Coordinator().Run())

		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err), "the directory must be deleted on shutdown")
		assert.True(t, users.IsClosed())

		// everything was torn down already
		assert.NoError(t, f.Coordinator().Run())
		assert.NoError(t, f.Close())
	})
}

// TestPersistentRestartScenario: data survives a new factory on the same path
func TestPersistentRestartScenario(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		path := filepath.Join(t.TempDir(), "ds2")

		f := NewPersistentFactory[string, string](path, &Options{Engine: newEngine()})
		cache, err := f.NewInstance("cache")
		require.NoError(t, err)
		_, _, err = cache.Put("greeting", "hello")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		f = NewPersistentFactory[string, string](path, &Options{Engine: newEngine()})
		defer f.Close()

		ok, err := f.Exists("cache")
		require.NoError(t, err)
		assert.True(t, ok)

		cache, err = f.GetInstance("cache")
		require.NoError(t, err)
		v, ok, err := cache.Get("greeting")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "hello", v)
	})
}

// TestTemporaryStoresAreDiscarded verifies that temporary stores do not outlive their handles
func TestTemporaryStoresAreDiscarded(t *testing.T) {
	forEachEngine(t, func(t *testing.T, newEngine func() db.Engine) {
		f := NewTemporaryFactory[string, int](t.TempDir(), false, &Options{Engine: newEngine()})
		defer f.Close()

		s, err := f.GetInstance("scratch")
		require.NoError(t, err)
		_, _, err = s.Put("k", 1)
		require.NoError(t, err)
		require.NoError(t, s.Shutdown())

		ok, err := f.Exists("scratch")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

// --------------------------------------------------------------------------
// Coordinator tests
// --------------------------------------------------------------------------

// TestCoordinatorCollectsDeletionFailures verifies that a failing deletion does not stop
// the other environments and is reported at the end
func TestCoordinatorCollectsDeletionFailures(t *testing.T) {
	coordinator := NewCoordinator(true)

	failing := &flakyEngine{Engine: maple.NewEngine(nil)}
	failing.failDelete.Store(true)

	pathA := filepath.Join(t.TempDir(), "a")
	pathB := filepath.Join(t.TempDir(), "b")
	fa := NewPersistentFactory[string, int](pathA, &Options{Engine: failing, Coordinator: coordinator})
	fb := NewPersistentFactory[string, int](pathB, &Options{Coordinator: coordinator})

	sa, err := fa.GetInstance("s")
	require.NoError(t, err)
	sb, err := fb.GetInstance("s")
	require.NoError(t, err)
	require.Equal(t, 2, coordinator.Len())

	err = coordinator.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory is busy")

	assert.True(t, sa.IsClosed())
	assert.True(t, sb.IsClosed())

	_, err = os.Stat(pathA)
	assert.NoError(t, err, "the failing directory is left in place")
	_, err = os.Stat(pathB)
	assert.True(t, os.IsNotExist(err), "the other directory is deleted")

	assert.Equal(t, 0, coordinator.Len())
	assert.NoError(t, coordinator.Run(), "a second run is a no-op")
	assert.NoError(t, fa.Close())
	assert.NoError(t, fb.Close())
}

// --------------------------------------------------------------------------
// Policy tests
// --------------------------------------------------------------------------

func TestPolicies(t *testing.T) {
	t.Run("persistent", func(t *testing.T) {
		p := PersistentPolicy{}
		config := p.EnvConfig()
		assert.True(t, config.Transactional)
		assert.True(t, config.AllowCreate)
		assert.GreaterOrEqual(t, config.CacheSize, int64(minCacheSize))
		assert.False(t, p.ContainerConfig().Temporary)
		assert.False(t, p.DeleteOnExit())

		assert.Equal(t, int64(123456), PersistentPolicy{CacheSize: 123456}.EnvConfig().CacheSize)

		// a larger divisor never yields a larger cache
		small := PersistentPolicy{CacheDivisor: 1000}.EnvConfig().CacheSize
		assert.GreaterOrEqual(t, small, int64(minCacheSize))
	})

	t.Run("temporary", func(t *testing.T) {
		p := TemporaryPolicy{RemoveOnExit: true}
		assert.False(t, p.EnvConfig().Transactional)
		assert.True(t, p.ContainerConfig().Temporary)
		assert.True(t, p.CatalogConfig().Temporary)
		assert.True(t, p.DeleteOnExit())
	})
}
