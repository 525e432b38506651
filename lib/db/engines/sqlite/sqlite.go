package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dStore/lib/db"
	"github.com/lni/dragonboat/v4/logger"

	_ "modernc.org/sqlite"
)

// DatabaseFileName is the name of the SQLite file inside an environment directory
const DatabaseFileName = "dstore.db"

var log = logger.GetLogger("sqlite")

const schema = `
CREATE TABLE IF NOT EXISTS containers (
	name      TEXT PRIMARY KEY,
	temporary INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS entries (
	container TEXT NOT NULL,
	key       BLOB NOT NULL,
	value     BLOB NOT NULL,
	PRIMARY KEY (container, key)
) WITHOUT ROWID;`

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

type engineImpl struct{}

// NewEngine creates a storage engine that keeps all containers of an environment
// in a single SQLite database.
func NewEngine() db.Engine {
	return &engineImpl{}
}

func (e *engineImpl) Implementation() db.Implementation {
	return db.ImplSQLite
}

// OpenEnvironment opens (or creates) <path>/dstore.db
func (e *engineImpl) OpenEnvironment(path string, config db.EnvConfig) (db.Environment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty environment path", db.ErrEnvironmentNotFound)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
		if !config.AllowCreate {
			return nil, fmt.Errorf("%w: %s", db.ErrEnvironmentNotFound, abs)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("create environment directory: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	lock, err := db.LockPath(abs)
	if err != nil {
		return nil, err
	}

	sqlDB, err := openDatabase(filepath.Join(abs, DatabaseFileName), config)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}

	log.Debugf("opened environment %s (owner %s, transactional=%t)", abs, lock.Owner(), config.Transactional)

	return &environmentImpl{
		path: abs,
		db:   sqlDB,
		lock: lock,
		refs: make(map[string]int),
	}, nil
}

// openDatabase opens the SQLite file and applies the environment tuning
func openDatabase(file string, config db.EnvConfig) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", file, err)
	}
	// a single connection serializes writers and keeps the pragmas below in effect
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA journal_mode=MEMORY", "PRAGMA synchronous=OFF"}
	if config.Transactional {
		pragmas = []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=FULL"}
	}
	if config.CacheSize > 0 {
		// negative values are interpreted as KiB
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA cache_size=-%d", max(config.CacheSize/1024, 1)))
	}

	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	// temporary containers never survive their environment
	if err := purgeTemporary(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("purge temporary containers: %w", err)
	}
	return sqlDB, nil
}

func purgeTemporary(sqlDB *sql.DB) error {
	tx, err := sqlDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries WHERE container IN (SELECT name FROM containers WHERE temporary = 1)"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM containers WHERE temporary = 1"); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteDirectory removes an environment directory. The environment must be closed.
func (e *engineImpl) DeleteDirectory(path string) error {
	if db.IsLocked(path) {
		return fmt.Errorf("%w: %s is still open", db.ErrEnvironmentLocked, path)
	}
	return os.RemoveAll(path)
}

// --------------------------------------------------------------------------
// Environment
// --------------------------------------------------------------------------

type environmentImpl struct {
	path   string
	db     *sql.DB
	lock   *db.PathLock
	closed atomic.Bool

	mu   sync.Mutex     // guards refs
	refs map[string]int // open handles per container name
}

func (env *environmentImpl) Path() string {
	return env.path
}

func (env *environmentImpl) OpenContainer(name string, config db.ContainerConfig) (db.Container, error) {
	if name == "" {
		return nil, db.ErrInvalidName
	}

	env.mu.Lock()
	defer env.mu.Unlock()

	if env.closed.Load() {
		return nil, db.ErrClosed
	}

	var temporary bool
	err := env.db.QueryRow("SELECT temporary FROM containers WHERE name = ?", name).Scan(&temporary)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !config.AllowCreate {
			return nil, fmt.Errorf("%w: %s", db.ErrContainerNotFound, name)
		}
		temporary = config.Temporary
		if _, err := env.db.Exec("INSERT INTO containers (name, temporary) VALUES (?, ?)", name, temporary); err != nil {
			return nil, fmt.Errorf("create container %q: %w", name, err)
		}
	case err != nil:
		return nil, fmt.Errorf("open container %q: %w", name, err)
	}

	env.refs[name]++
	return &handleImpl{name: name, temporary: temporary, env: env}, nil
}

func (env *environmentImpl) HasContainer(name string) (bool, error) {
	if env.closed.Load() {
		return false, db.ErrClosed
	}
	var one int
	err := env.db.QueryRow("SELECT 1 FROM containers WHERE name = ?", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (env *environmentImpl) ContainerNames() ([]string, error) {
	if env.closed.Load() {
		return nil, db.ErrClosed
	}
	rows, err := env.db.Query("SELECT name FROM containers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close drops temporary containers, closes the database and releases the path lock.
// Closing an already closed environment is a no-op.
func (env *environmentImpl) Close() error {
	if !env.closed.CompareAndSwap(false, true) {
		return nil
	}

	env.mu.Lock()
	defer env.mu.Unlock()

	var errs []error
	if err := purgeTemporary(env.db); err != nil {
		errs = append(errs, fmt.Errorf("purge temporary containers: %w", err))
	}
	if err := env.db.Close(); err != nil {
		errs = append(errs, err)
	}
	clear(env.refs)
	if err := env.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	log.Debugf("closed environment %s", env.path)
	return errors.Join(errs...)
}

// release drops one reference of the named container. The last reference of a
// temporary container deletes it.
func (env *environmentImpl) release(name string, temporary bool) error {
	env.mu.Lock()
	defer env.mu.Unlock()

	if env.closed.Load() {
		return nil
	}

	if env.refs[name] > 1 {
		env.refs[name]--
		return nil
	}

	// a failed discard keeps the reference, so the last handle can retry it
	if temporary {
		if err := env.discard(name); err != nil {
			return fmt.Errorf("discard temporary container %q: %w", name, err)
		}
	}
	delete(env.refs, name)
	return nil
}

// discard removes a container and all of its entries
func (env *environmentImpl) discard(name string) error {
	tx, err := env.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM entries WHERE container = ?", name); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM containers WHERE name = ?", name); err != nil {
		return err
	}
	return tx.Commit()
}
