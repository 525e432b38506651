package testing

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/ValentinKolb/dStore/lib/db"
)

// EngineFactory is a function that creates a new instance of an Engine implementation
type EngineFactory func() db.Engine

// RunEngineTests runs a comprehensive test suite for an Engine implementation.
func RunEngineTests(t *testing.T, name string, factory EngineFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, factory())
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, factory())
		})

		t.Run("Has&ContainsValue", func(t *testing.T) {
			testHasContainsValue(t, factory())
		})

		t.Run("LenClear", func(t *testing.T) {
			testLenClear(t, factory())
		})

		t.Run("Range", func(t *testing.T) {
			testRange(t, factory())
		})

		t.Run("SharedHandles", func(t *testing.T) {
			testSharedHandles(t, factory())
		})

		t.Run("ReopenPersists", func(t *testing.T) {
			testReopenPersists(t, factory)
		})

		t.Run("TemporaryContainer", func(t *testing.T) {
			testTemporaryContainer(t, factory())
		})

		t.Run("ContainerNames", func(t *testing.T) {
			testContainerNames(t, factory())
		})

		t.Run("ClosedHandles", func(t *testing.T) {
			testClosedHandles(t, factory())
		})

		t.Run("EnvironmentLocking", func(t *testing.T) {
			testEnvironmentLocking(t, factory())
		})

		t.Run("DeleteDirectory", func(t *testing.T) {
			testDeleteDirectory(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("ConcurrentUsage", func(t *testing.T) {
			testConcurrentUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// openEnv opens a fresh environment in a temp dir and closes it on cleanup
func openEnv(t testing.TB, engine db.Engine) (db.Environment, string) {
	dir := t.TempDir()
	env, err := engine.OpenEnvironment(dir, db.EnvConfig{AllowCreate: true})
	if err != nil {
		t.Fatalf("OpenEnvironment failed: %v", err)
	}
	t.Cleanup(func() {
		_ = env.Close()
	})
	return env, dir
}

// openContainer opens (and creates) a persistent container and closes it on cleanup
func openContainer(t testing.TB, env db.Environment, name string) db.Container {
	c, err := env.OpenContainer(name, db.ContainerConfig{AllowCreate: true})
	if err != nil {
		t.Fatalf("OpenContainer(%s) failed: %v", name, err)
	}
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

func mustPut(t testing.TB, c db.Container, key, value string) {
	if _, _, err := c.Put([]byte(key), []byte(value)); err != nil {
		t.Fatalf("Put(%s) failed: %v", key, err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, engine db.Engine) {
	env, _ := openEnv(t, engine)
	c := openContainer(t, env, "test")

	testKey := []byte("test-key")
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	prev, loaded, err := c.Put(testKey, testValue1)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if loaded || prev != nil {
		t.Errorf("Expected no previous value, got %s (loaded=%t)", prev, loaded)
	}

	result, exists, err := c.Get(testKey)
	if err != nil || !exists {
		t.Fatalf("Expected key %s to exist after Put (err=%v)", testKey, err)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	prev, loaded, err = c.Put(testKey, testValue2)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !loaded || !bytes.Equal(prev, testValue1) {
		t.Errorf("Expected previous value %s, got %s (loaded=%t)", testValue1, prev, loaded)
	}

	result, _, _ = c.Get(testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists, err = c.Get([]byte("nonexistent-key"))
	if err != nil || exists {
		t.Errorf("Expected nonexistent key to return exists=false (err=%v)", err)
	}

	retrievedValue, _, _ := c.Get(testKey)
	retrievedValue[0] = 'X'

	originalValue, _, _ := c.Get(testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	input := []byte("input-value")
	mustPut(t, c, "copy-key", string(input))
	input[0] = 'X'
	stored, _, _ := c.Get([]byte("copy-key"))
	if !bytes.Equal(stored, []byte("input-value")) {
		t.Errorf("Put should store a copy of the value, got %s", stored)
	}
}

func testRemove(t *testing.T, engine db.Engine) {
	env, _ := openEnv(t, engine)
	c := openContainer(t, env, "test")

	mustPut(t, c, "key", "value")

	prev, loaded, err := c.Remove([]byte("key"))
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !loaded || !bytes.Equal(prev, []byte("value")) {
		t.Errorf("Expected removed value 'value', got %s (loaded=%t)", prev, loaded)
	}

	if _, exists, _ := c.Get([]byte("key")); exists {
		t.Errorf("Key should not exist after Remove")
	}

	_, loaded, err = c.Remove([]byte("key"))
	if err != nil {
		t.Fatalf("Second Remove failed: %v", err)
	}
	if loaded {
		t.Errorf("Removing a missing key should report loaded=false")
	}
}

func testHasContainsValue(t *testing.T, engine db.Engine) {
	env, _ := openEnv(t, engine)
	c := openContainer(t, env, "test")

	mustPut(t, c, "a", "1")
	mustPut(t, c, "b", "2")

	if ok, err := c.Has([]byte("a")); err != nil || !ok {
		t.Errorf("Has(a) should be true (err=%v)", err)
	}
	if ok, err := c.Has([]byte("c")); err != nil || ok {
		t.Errorf("Has(c) should be false (err=%v)", err)
	}
	if ok, err := c.ContainsValue([]byte("2")); err != nil || !ok {
		t.Errorf("ContainsValue(2) should be true (err=%v)", err)
	}
	if ok, err := c.ContainsValue([]byte("3")); err != nil || ok {
		t.Errorf("ContainsValue(3) should be false (err=%v)", err)
	}
}

func testLenClear(t *testing.T, engine db.Engine) {
	env, _ := openEnv(t, engine)
	c := openContainer(t, env, "test")

	if n, err := c.Len(); err != nil || n != 0 {
		t.Errorf("Expected empty container, got %d (err=%v)", n, err)
	}

	for i := 0; i < 100; i++ {
		mustPut(t, c, fmt.Sprintf("key-%d", i), fmt.Sprintf("value-%d", i))
	}
	if n, _ := c.Len(); n != 100 {
		t.Errorf("Expected 100 entries, got %d", n)
	}

	info, err := c.Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Entries != 100 {
		t.Errorf("Expected info to report 100 entries, got %d", info.Entries)
	}
	if info.DbType != engine.Implementation() {
		t.Errorf("Expected db type %s, got %s", engine.Implementation(), info.DbType)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Expected 0 entries after Clear, got %d", n)
	}
}

func testRange(t *testing.T, engine db.Engine) {
	env, _ := openEnv(t, engine)
	c := openContainer(t, env, "test")

	want := map[string]string{"a": "1", "b": "2", "c": "3"}
	for k, v := range want {
		mustPut(t, c, k, v)
	}

	got := map[string]string{}
	err := c.Range(func(key, value []byte) bool {
		got[string(key)] = string(value)
		return true
	})
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(got))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Expected %s=%s, got %s", k, v, got[k])
		}
	}

	// early stop
	calls := 0
	_ = c.Range(func(key, value []byte) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Errorf("Range should stop after fn returns false, got %d calls", calls)
	}

	// modifying the container from fn must not deadlock
	err = c.Range(func(key, value []byte) bool {
		_, _, err := c.Remove(key)
		return err == nil
	})
	if err != nil {
		t.Fatalf("Range with Remove failed: %v", err)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Expected all entries removed during Range, %d left", n)
	}
}

func testSharedHandles(t *testing.T, engine db.Engine) {
	env, _ := openEnv(t, engine)
	c1 := openContainer(t, env, "shared")
	c2 := openContainer(t, env, "shared")

	mustPut(t, c1, "key", "value")

	result, exists, err := c2.Get([]byte("key"))
	if err != nil || !exists || !bytes.Equal(result, []byte("value")) {
		t.Errorf("Second handle should see the value, got %s (exists=%t, err=%v)", result, exists, err)
	}

	// closing one handle keeps the other usable
	if err := c1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, exists, err := c2.Get([]byte("key")); err != nil || !exists {
		t.Errorf("Remaining handle should still work (exists=%t, err=%v)", exists, err)
	}
}

func testReopenPersists(t *testing.T, factory EngineFactory) {
	dir := t.TempDir()

	for _, transactional := range []bool{true, false} {
		config := db.EnvConfig{AllowCreate: true, Transactional: transactional}
		name := fmt.Sprintf("persist-%t", transactional)

		env, err := factory().OpenEnvironment(dir, config)
		if err != nil {
			t.Fatalf("OpenEnvironment failed: %v", err)
		}
		c, err := env.OpenContainer(name, db.ContainerConfig{AllowCreate: true})
		if err != nil {
			t.Fatalf("OpenContainer failed: %v", err)
		}
		for i := 0; i < 50; i++ {
			mustPut(t, c, fmt.Sprintf("key-%d", i), fmt.Sprintf("value-%d", i))
		}
		// the environment is closed while the handle is still open
		if err := env.Close(); err != nil {
			t.Fatalf("Close environment failed: %v", err)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("Closing a handle after its environment failed: %v", err)
		}

		env, err = factory().OpenEnvironment(dir, db.EnvConfig{Transactional: transactional})
		if err != nil {
			t.Fatalf("Reopen failed: %v", err)
		}
		ok, err := env.HasContainer(name)
		if err != nil || !ok {
			t.Fatalf("Container should exist after reopen (err=%v)", err)
		}
		c, err = env.OpenContainer(name, db.ContainerConfig{})
		if err != nil {
			t.Fatalf("OpenContainer after reopen failed: %v", err)
		}
		for i := 0; i < 50; i++ {
			value, exists, err := c.Get([]byte(fmt.Sprintf("key-%d", i)))
			if err != nil || !exists || string(value) != fmt.Sprintf("value-%d", i) {
				t.Errorf("Expected key-%d=value-%d after reopen, got %s (exists=%t, err=%v)", i, i, value, exists, err)
			}
		}
		_ = c.Close()
		_ = env.Close()
	}
}

func testTemporaryContainer(t *testing.T, engine db.Engine) {
	env, _ := openEnv(t, engine)

	c, err := env.OpenContainer("temp", db.ContainerConfig{AllowCreate: true, Temporary: true})
	if err != nil {
		t.Fatalf("OpenContainer failed: %v", err)
	}
	mustPut(t, c, "key", "value")

	if ok, _ := env.HasContainer("temp"); !ok {
		t.Errorf("Temporary container should exist while it is open")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if ok, _ := env.HasContainer("temp"); ok {
		t.Errorf("Temporary container should be gone after its last handle closed")
	}
}

func testContainerNames(t *testing.T, engine db.Engine) {
	env, _ := openEnv(t, engine)

	for _, name := range []string{"b", "a", "c/d"} {
		openContainer(t, env, name)
	}

	names, err := env.ContainerNames()
	if err != nil {
		t.Fatalf("ContainerNames failed: %v", err)
	}
	sort.Strings(names)
	want := []string{"a", "b", "c/d"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, names)
	}

	if _, err := env.OpenContainer("missing", db.ContainerConfig{}); !errors.Is(err, db.ErrContainerNotFound) {
		t.Errorf("Expected ErrContainerNotFound, got %v", err)
	}
	if _, err := env.OpenContainer("", db.ContainerConfig{AllowCreate: true}); !errors.Is(err, db.ErrInvalidName) {
		t.Errorf("Expected ErrInvalidName, got %v", err)
	}
}

func testClosedHandles(t *testing.T, engine db.Engine) {
	env, _ := openEnv(t, engine)

	c, err := env.OpenContainer("test", db.ContainerConfig{AllowCreate: true})
	if err != nil {
		t.Fatalf("OpenContainer failed: %v", err)
	}
	mustPut(t, c, "key", "value")
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}

	if _, _, err := c.Get([]byte("key")); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Get on closed handle: expected ErrClosed, got %v", err)
	}
	if _, _, err := c.Put([]byte("key"), []byte("v")); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Put on closed handle: expected ErrClosed, got %v", err)
	}
	if _, err := c.Len(); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Len on closed handle: expected ErrClosed, got %v", err)
	}

	c2 := openContainer(t, env, "other")
	if err := env.Close(); err != nil {
		t.Fatalf("Close environment failed: %v", err)
	}
	if _, _, err := c2.Get([]byte("key")); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Get after environment close: expected ErrClosed, got %v", err)
	}
	if _, err := env.OpenContainer("other", db.ContainerConfig{}); !errors.Is(err, db.ErrClosed) {
		t.Errorf("OpenContainer on closed environment: expected ErrClosed, got %v", err)
	}
	if err := env.Close(); err != nil {
		t.Errorf("Second environment Close should be a no-op, got %v", err)
	}
}

func testEnvironmentLocking(t *testing.T, engine db.Engine) {
	env, dir := openEnv(t, engine)

	if _, err := engine.OpenEnvironment(dir, db.EnvConfig{AllowCreate: true}); !errors.Is(err, db.ErrEnvironmentLocked) {
		t.Errorf("Expected ErrEnvironmentLocked for a second open, got %v", err)
	}

	if err := env.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	env2, err := engine.OpenEnvironment(dir, db.EnvConfig{})
	if err != nil {
		t.Fatalf("Open after close failed: %v", err)
	}
	_ = env2.Close()

	missing := dir + "-missing"
	if _, err := engine.OpenEnvironment(missing, db.EnvConfig{}); !errors.Is(err, db.ErrEnvironmentNotFound) {
		t.Errorf("Expected ErrEnvironmentNotFound, got %v", err)
	}
}

func testDeleteDirectory(t *testing.T, engine db.Engine) {
	dir := t.TempDir() + "/env"
	env, err := engine.OpenEnvironment(dir, db.EnvConfig{AllowCreate: true})
	if err != nil {
		t.Fatalf("OpenEnvironment failed: %v", err)
	}
	c, _ := env.OpenContainer("test", db.ContainerConfig{AllowCreate: true})
	mustPut(t, c, "key", "value")
	_ = c.Close()

	if err := engine.DeleteDirectory(dir); !errors.Is(err, db.ErrEnvironmentLocked) {
		t.Errorf("Deleting an open environment should fail with ErrEnvironmentLocked, got %v", err)
	}

	if err := env.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := engine.DeleteDirectory(dir); err != nil {
		t.Fatalf("DeleteDirectory failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("Directory should not exist after DeleteDirectory, stat err: %v", err)
	}
}

func testEdgeCases(t *testing.T, engine db.Engine) {
	env, _ := openEnv(t, engine)
	c := openContainer(t, env, "test")

	// empty value
	mustPut(t, c, "empty", "")
	value, exists, err := c.Get([]byte("empty"))
	if err != nil || !exists || len(value) != 0 {
		t.Errorf("Expected empty value to exist, got %q (exists=%t, err=%v)", value, exists, err)
	}

	// binary keys and values
	binKey := []byte{0, 1, 2, 255}
	binValue := []byte{255, 0, 254, 1}
	if _, _, err := c.Put(binKey, binValue); err != nil {
		t.Fatalf("Put binary failed: %v", err)
	}
	value, _, _ = c.Get(binKey)
	if !bytes.Equal(value, binValue) {
		t.Errorf("Expected binary value %v, got %v", binValue, value)
	}

	// large value
	large := bytes.Repeat([]byte("x"), 1<<20)
	if _, _, err := c.Put([]byte("large"), large); err != nil {
		t.Fatalf("Put large failed: %v", err)
	}
	value, _, _ = c.Get([]byte("large"))
	if !bytes.Equal(value, large) {
		t.Errorf("Large value mismatch (len %d)", len(value))
	}

	// containers are isolated from each other
	other := openContainer(t, env, "other")
	if _, exists, _ := other.Get([]byte("empty")); exists {
		t.Errorf("Containers should not share keys")
	}
}

func testConcurrentUsage(t *testing.T, engine db.Engine) {
	env, _ := openEnv(t, engine)
	c := openContainer(t, env, "test")

	const goroutines = 8
	const perGoroutine = 50

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			h, err := env.OpenContainer("test", db.ContainerConfig{AllowCreate: true})
			if err != nil {
				errs <- err
				return
			}
			defer h.Close()
			for i := 0; i < perGoroutine; i++ {
				key := []byte(fmt.Sprintf("g%d-key%d", g, i))
				if _, _, err := h.Put(key, key); err != nil {
					errs <- err
					return
				}
				if _, _, err := h.Get(key); err != nil {
					errs <- err
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent operation failed: %v", err)
	}

	if n, _ := c.Len(); n != goroutines*perGoroutine {
		t.Errorf("Expected %d entries, got %d", goroutines*perGoroutine, n)
	}
}
