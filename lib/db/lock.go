package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// LockFileName is the name of the owner file written into every open environment directory
const LockFileName = "LOCK"

// lockedPaths maps absolute environment paths to the owner id holding them
var lockedPaths = xsync.NewMapOf[string, string]()

// PathLock is an exclusive claim on an environment directory held by this process.
type PathLock struct {
	path  string
	owner string
}

// LockPath claims the environment directory at path for the calling engine.
// The directory must exist. The owner id is written to the LOCK file for diagnostics.
// Returns ErrEnvironmentLocked if the path is already claimed in this process.
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func LockPath(path string) (*PathLock, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	owner := uuid.NewString()
	if holder, loaded := lockedPaths.LoadOrStore(abs, owner); loaded {
		return nil, fmt.Errorf("%w: %s (owner %s)", ErrEnvironmentLocked, abs, holder)
	}

	if err := os.WriteFile(filepath.Join(abs, LockFileName), []byte(owner+"\n"), 0o644); err != nil {
		lockedPaths.Delete(abs)
		return nil, fmt.Errorf("write lock file: %w", err)
	}

	return &PathLock{path: abs, owner: owner}, nil
}

// Owner returns the owner id of the lock
func (l *PathLock) Owner() string {
	return l.owner
}

// Release removes the lock file and gives up the claim on the path.
func (l *PathLock) Release() error {
	err := os.Remove(filepath.Join(l.path, LockFileName))
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	lockedPaths.Compute(l.path, func(holder string, loaded bool) (string, bool) {
		// only the owner may drop the claim, delete=true on !loaded keeps the map unchanged
		return holder, !loaded || holder == l.owner
	})
	return err
}

// IsLocked reports whether the path is claimed by an open environment in this process
func IsLocked(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	_, ok := lockedPaths.Load(abs)
	return ok
}
