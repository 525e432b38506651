package testing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ValentinKolb/dStore/lib/db"
)

// RunEngineBenchmarks runs all benchmarks for a storage engine implementation
func RunEngineBenchmarks(b *testing.B, name string, factory EngineFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Put", func(b *testing.B) {
			benchmarkPut(b, factory())
		})

		b.Run("PutExisting", func(b *testing.B) {
			benchmarkPutExisting(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("Remove", func(b *testing.B) {
			benchmarkRemove(b, factory())
		})

		b.Run("Has(not)", func(b *testing.B) {
			benchmarkHasNot(b, factory())
		})

		b.Run("CloseReopen", func(b *testing.B) {
			benchmarkCloseReopen(b, factory())
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// fill stores n entries named test-key-<i>
func fill(b *testing.B, c db.Container, n int) {
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if _, _, err := c.Put(key, value); err != nil {
			b.Fatalf("Put failed: %v", err)
		}
	}
}

// Benchmark for Put operation
func benchmarkPut(b *testing.B, engine db.Engine) {
	env, _ := openEnv(b, engine)
	c := openContainer(b, env, "bench")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("test-key-%d", counter))
			value := []byte(fmt.Sprintf("test-value-%d", counter))
			c.Put(key, value)
			counter++
		}
	})
}

// Benchmark for Put operation with existing keys
func benchmarkPutExisting(b *testing.B, engine db.Engine) {
	env, _ := openEnv(b, engine)
	c := openContainer(b, env, "bench")

	numKeys := 1000
	fill(b, c, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("test-key-%d", counter%numKeys))
			value := []byte(fmt.Sprintf("test-value-%d", counter))
			c.Put(key, value)
			counter++
		}
	})
}

// Parallel benchmarking for Get operation
func benchmarkGet(b *testing.B, engine db.Engine) {
	env, _ := openEnv(b, engine)
	c := openContainer(b, env, "bench")

	numKeys := 10000
	fill(b, c, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("test-key-%d", counter%numKeys))
			c.Get(key)
			counter++
		}
	})
}

// Benchmark for Remove operation
func benchmarkRemove(b *testing.B, engine db.Engine) {
	env, _ := openEnv(b, engine)
	c := openContainer(b, env, "bench")

	fill(b, c, b.N)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Remove([]byte(fmt.Sprintf("test-key-%d", i)))
	}
}

// Benchmark for Has operation with missing keys
func benchmarkHasNot(b *testing.B, engine db.Engine) {
	env, _ := openEnv(b, engine)
	c := openContainer(b, env, "bench")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			c.Has([]byte(fmt.Sprintf("missing-key-%d", counter)))
			counter++
		}
	})
}

// Benchmark for closing and reopening a persistent container with 10k entries
func benchmarkCloseReopen(b *testing.B, engine db.Engine) {
	env, _ := openEnv(b, engine)

	c, err := env.OpenContainer("bench", db.ContainerConfig{AllowCreate: true})
	if err != nil {
		b.Fatalf("OpenContainer failed: %v", err)
	}
	fill(b, c, 10000)
	if err := c.Close(); err != nil {
		b.Fatalf("Close failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c, err := env.OpenContainer("bench", db.ContainerConfig{})
		if err != nil {
			b.Fatalf("OpenContainer failed: %v", err)
		}
		// one modification forces a rewrite on close
		c.Put([]byte("touched"), []byte(fmt.Sprint(i)))
		if err := c.Close(); err != nil {
			b.Fatalf("Close failed: %v", err)
		}
	}
}

// Benchmark mixing reads, writes and removals (80/15/5)
func benchmarkMixedUsage(b *testing.B, engine db.Engine) {
	env, _ := openEnv(b, engine)
	c := openContainer(b, env, "bench")

	numKeys := 10000
	fill(b, c, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := []byte(fmt.Sprintf("test-key-%d", rng.Intn(numKeys)))
			switch op := rng.Intn(100); {
			case op < 80:
				c.Get(key)
			case op < 95:
				c.Put(key, key)
			default:
				c.Remove(key)
			}
		}
	})
}
