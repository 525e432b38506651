package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/dStore/lib/db"
	dbtesting "github.com/ValentinKolb/dStore/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunEngineTests(t, "SQLite", func() db.Engine {
		return NewEngine()
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunEngineBenchmarks(b, "SQLite", func() db.Engine {
		return NewEngine()
	})
}

func TestDatabaseFile(t *testing.T) {
	dir := t.TempDir()

	env, err := NewEngine().OpenEnvironment(dir, db.EnvConfig{AllowCreate: true, Transactional: true, CacheSize: 8 << 20})
	if err != nil {
		t.Fatalf("OpenEnvironment failed: %v", err)
	}
	defer env.Close()

	if _, err := os.Stat(filepath.Join(dir, DatabaseFileName)); err != nil {
		t.Errorf("Expected database file: %v", err)
	}
}

func TestTemporaryContainersArePurgedOnOpen(t *testing.T) {
	dir := t.TempDir()
	engine := NewEngine()

	env, err := engine.OpenEnvironment(dir, db.EnvConfig{AllowCreate: true})
	if err != nil {
		t.Fatalf("OpenEnvironment failed: %v", err)
	}
	c, err := env.OpenContainer("scratch", db.ContainerConfig{AllowCreate: true, Temporary: true})
	if err != nil {
		t.Fatalf("OpenContainer failed: %v", err)
	}
	if _, _, err := c.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// simulate a crash: the rows are left behind in the database file
	sqlDB := env.(*environmentImpl).db
	if err := sqlDB.Close(); err != nil {
		t.Fatal(err)
	}
	_ = env.(*environmentImpl).lock.Release()

	env, err = engine.OpenEnvironment(dir, db.EnvConfig{AllowCreate: true})
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer env.Close()

	ok, err := env.HasContainer("scratch")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("Temporary container should have been purged on open")
	}
}

func TestFailedDiscardCanBeRetried(t *testing.T) {
	dir := t.TempDir()

	env, err := NewEngine().OpenEnvironment(dir, db.EnvConfig{AllowCreate: true})
	if err != nil {
		t.Fatalf("OpenEnvironment failed: %v", err)
	}
	defer env.Close()

	c, err := env.OpenContainer("scratch", db.ContainerConfig{AllowCreate: true, Temporary: true})
	if err != nil {
		t.Fatalf("OpenContainer failed: %v", err)
	}
	if _, _, err := c.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	sqlDB := env.(*environmentImpl).db
	if _, err := sqlDB.Exec(`CREATE TRIGGER block_discard BEFORE DELETE ON containers
		BEGIN SELECT RAISE(ABORT, 'blocked'); END`); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err == nil {
		t.Fatalf("Expected Close to fail while the container cannot be discarded")
	}
	if _, ok, err := c.Get([]byte("k")); err != nil || !ok {
		t.Errorf("Expected handle to stay usable after a failed close, got %t %v", ok, err)
	}

	if _, err := sqlDB.Exec("DROP TRIGGER block_discard"); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Retried Close failed: %v", err)
	}
	ok, err := env.HasContainer("scratch")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("Temporary container should be discarded by the retried close")
	}
}
