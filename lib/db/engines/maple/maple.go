package maple

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dStore/lib/db"
	"github.com/ValentinKolb/dStore/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/dStore/lib/db/util"
	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Constants for snapshot files and buffering
const (
	magicNum          = "MAPLECT\x00" // File format identifier
	mapleVersion      = 1             // Snapshot format version
	fileSuffix        = ".maple"      // Suffix of container snapshot files
	tmpSuffix         = ".tmp"        // Suffix of snapshot files being written
	defaultBufferSize = 1024 * 1024   // 1 MB snapshot buffer
	minBufferSize     = 4 * 1024      // 4 KB lower bound for the snapshot buffer
)

var log = logger.GetLogger("maple")

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Options configures the maple engine
type Options struct {
	NumShards int // Number of shards per container (0 = auto)
}

// DefaultOptions returns the default maple options
func DefaultOptions() *Options {
	return &Options{
		NumShards: runtime.NumCPU(), // Auto-determine based on CPU count
	}
}

type engineImpl struct {
	numShards int
}

// NewEngine creates a new maple engine with the specified options (optional)
func NewEngine(opts *Options) db.Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = runtime.NumCPU()
	}
	return &engineImpl{numShards: numShards}
}

func (e *engineImpl) Implementation() db.Implementation {
	return db.ImplMaple
}

// OpenEnvironment opens the directory at path as a maple environment.
// Container snapshots are loaded lazily when a container is opened.
func (e *engineImpl) OpenEnvironment(path string, config db.EnvConfig) (db.Environment, error) {
	abs, err := prepareDirectory(path, config.AllowCreate)
	if err != nil {
		return nil, err
	}

	lock, err := db.LockPath(abs)
	if err != nil {
		return nil, err
	}

	bufferSize := defaultBufferSize
	if config.CacheSize > 0 && config.CacheSize < defaultBufferSize {
		bufferSize = max(int(config.CacheSize), minBufferSize)
	}

	log.Debugf("opened environment %s (owner %s, transactional=%t, buffer=%d)",
		abs, lock.Owner(), config.Transactional, bufferSize)

	return &environmentImpl{
		path:       abs,
		config:     config,
		numShards:  e.numShards,
		bufferSize: bufferSize,
		lock:       lock,
		states:     make(map[string]*containerState),
	}, nil
}

// DeleteDirectory removes an environment directory. The environment must be closed.
func (e *engineImpl) DeleteDirectory(path string) error {
	if db.IsLocked(path) {
		return fmt.Errorf("%w: %s is still open", db.ErrEnvironmentLocked, path)
	}
	return os.RemoveAll(path)
}

// prepareDirectory resolves path and makes sure it is an existing directory
func prepareDirectory(path string, allowCreate bool) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty environment path", db.ErrEnvironmentNotFound)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("environment path %s is not a directory", abs)
	case errors.Is(err, os.ErrNotExist):
		if !allowCreate {
			return "", fmt.Errorf("%w: %s", db.ErrEnvironmentNotFound, abs)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return "", fmt.Errorf("create environment directory: %w", err)
		}
	case err != nil:
		return "", err
	}
	return abs, nil
}

// --------------------------------------------------------------------------
// Environment
// --------------------------------------------------------------------------

// environmentImpl is a directory with one snapshot file per persistent container
type environmentImpl struct {
	path       string
	config     db.EnvConfig
	numShards  int
	bufferSize int
	lock       *db.PathLock
	closed     atomic.Bool

	mu     sync.Mutex                 // guards states and refcounts
	states map[string]*containerState // open containers by name
}

func (env *environmentImpl) Path() string {
	return env.path
}

// OpenContainer opens the named container, loading its snapshot on first use
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (env *environmentImpl) OpenContainer(name string, config db.ContainerConfig) (db.Container, error) {
	if name == "" {
		return nil, db.ErrInvalidName
	}

	env.mu.Lock()
	defer env.mu.Unlock()

	if env.closed.Load() {
		return nil, db.ErrClosed
	}

	st, ok := env.states[name]
	if !ok {
		file := env.fileFor(name)
		st = newContainerState(name, file, config.Temporary, env.numShards)

		_, statErr := os.Stat(file)
		switch {
		case statErr == nil:
			if err := env.load(st); err != nil {
				return nil, fmt.Errorf("load container %q: %w", name, err)
			}
		case errors.Is(statErr, os.ErrNotExist):
			if !config.AllowCreate {
				return nil, fmt.Errorf("%w: %s", db.ErrContainerNotFound, name)
			}
			// write an empty snapshot right away so that the container exists on disk
			if !config.Temporary {
				if err := env.persist(st); err != nil {
					return nil, fmt.Errorf("create container %q: %w", name, err)
				}
			}
		default:
			return nil, statErr
		}
		env.states[name] = st
	}

	st.refs++
	return &handleImpl{state: st, env: env}, nil
}

func (env *environmentImpl) HasContainer(name string) (bool, error) {
	env.mu.Lock()
	defer env.mu.Unlock()

	if env.closed.Load() {
		return false, db.ErrClosed
	}
	if _, ok := env.states[name]; ok {
		return true, nil
	}

	_, err := os.Stat(env.fileFor(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (env *environmentImpl) ContainerNames() ([]string, error) {
	env.mu.Lock()
	defer env.mu.Unlock()

	if env.closed.Load() {
		return nil, db.ErrClosed
	}

	seen := make(map[string]struct{}, len(env.states))
	for name := range env.states {
		seen[name] = struct{}{}
	}

	entries, err := os.ReadDir(env.path)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		name, err := url.PathUnescape(strings.TrimSuffix(entry.Name(), fileSuffix))
		if err != nil {
			log.Warningf("ignoring snapshot file with invalid name %s", entry.Name())
			continue
		}
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close persists all modified persistent containers and releases the path lock.
// Closing an already closed environment is a no-op.
func (env *environmentImpl) Close() error {
	if !env.closed.CompareAndSwap(false, true) {
		return nil
	}

	env.mu.Lock()
	defer env.mu.Unlock()

	var errs []error
	for name, st := range env.states {
		if st.temporary || !st.dirty.Load() {
			continue
		}
		if err := env.persist(st); err != nil {
			errs = append(errs, fmt.Errorf("persist container %q: %w", name, err))
		}
	}
	clear(env.states)

	if err := env.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	log.Debugf("closed environment %s", env.path)
	return errors.Join(errs...)
}

// release drops one reference to st. The last reference persists (or discards) the container.
// A failed persist keeps the reference and the state, so nothing is lost and release can be retried.
func (env *environmentImpl) release(st *containerState) error {
	env.mu.Lock()
	defer env.mu.Unlock()

	if st.refs > 1 {
		st.refs--
		return nil
	}

	// the environment already persisted everything on close
	if !env.closed.Load() && !st.temporary && st.dirty.Load() {
		if err := env.persist(st); err != nil {
			return fmt.Errorf("persist container %q: %w", st.name, err)
		}
	}

	st.refs--
	if env.states[st.name] == st {
		delete(env.states, st.name)
	}
	return nil
}

// fileFor returns the snapshot file of a container. Names are path-escaped so that
// any container name maps to a single file inside the environment directory.
func (env *environmentImpl) fileFor(name string) string {
	return filepath.Join(env.path, url.PathEscape(name)+fileSuffix)
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// persist writes the snapshot of st atomically (temp file + rename).
// Transactional environments additionally fsync the file before the rename.
func (env *environmentImpl) persist(st *containerState) error {
	// modifications during the write mark the state dirty again
	st.dirty.Store(false)

	tmp := st.file + tmpSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		st.dirty.Store(true)
		return err
	}

	if err := writeSnapshot(f, st, env.bufferSize); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		st.dirty.Store(true)
		return err
	}
	if env.config.Transactional {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			st.dirty.Store(true)
			return err
		}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		st.dirty.Store(true)
		return err
	}
	if err := os.Rename(tmp, st.file); err != nil {
		st.dirty.Store(true)
		return err
	}
	return nil
}

// load reads the snapshot file of st into its shards
func (env *environmentImpl) load(st *containerState) error {
	f, err := os.Open(st.file)
	if err != nil {
		return err
	}
	defer f.Close()
	return readSnapshot(f, st, env.bufferSize)
}

// writeSnapshot persists the container to the writer
// Concurrent reading and writing is allowed during the write, it takes a fuzzy
// snapshot of the shards without blocking modifications.
func writeSnapshot(w io.Writer, st *containerState, bufferSize int) error {
	bw := bufio.NewWriterSize(w, bufferSize)

	type entryToSave struct {
		key   string
		value []byte
	}

	// Collect snapshots of all shards
	var entries []entryToSave
	for _, shard := range st.shards {
		shard.Data.Range(func(key string, value []byte) bool {
			entries = append(entries, entryToSave{key, internal.CopyBytes(value)})
			return true
		})
	}

	// Write file header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}

	// Write snapshot version
	if err := binary.Write(bw, binary.LittleEndian, uint8(mapleVersion)); err != nil {
		return err
	}

	// Write total entries count
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, item := range entries {
		// Write key length and key bytes
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(item.key); err != nil {
			return err
		}

		// Write value length and value bytes
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.value))); err != nil {
			return err
		}
		if _, err := bw.Write(item.value); err != nil {
			return err
		}
	}

	// Flush buffer to ensure all data is written
	return bw.Flush()
}

// readSnapshot restores a container from the reader
//
// Thread-safety: This function is not thread-safe, it is only called before the
// state is visible to any handle.
func readSnapshot(r io.Reader, st *containerState, bufferSize int) error {
	br := bufio.NewReaderSize(r, bufferSize)

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	// Read and verify version
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != mapleVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, mapleVersion)
	}

	// Read entries count
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	for i := uint64(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(br, key); err != nil {
			return err
		}

		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return err
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return err
		}

		k := string(key)
		internal.GetShard(util.HashString(k, st.seed), st.shards).Data.Store(k, value)
	}

	return nil
}
