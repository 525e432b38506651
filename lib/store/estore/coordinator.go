package estore

import (
	"errors"
	"fmt"
	"sync"
)

// --------------------------------------------------------------------------
// Shutdown Coordinator
// --------------------------------------------------------------------------

// Coordinator tears down environments when the process exits. Factories register
// their environment when it is created, the host calls Run from its exit handling
// (the CLI does so on SIGINT/SIGTERM and after every command).
//
// A Coordinator may be shared by several factories.
type Coordinator struct {
	mu           sync.Mutex
	deleteOnExit bool
	infos        map[*EnvironmentInfo]struct{}
}

// NewCoordinator creates a coordinator. With deleteOnExit every tracked environment
// directory is deleted on teardown, otherwise only those whose policy asks for it.
func NewCoordinator(deleteOnExit bool) *Coordinator {
	return &Coordinator{
		deleteOnExit: deleteOnExit,
		infos:        make(map[*EnvironmentInfo]struct{}),
	}
}

// Register adds an environment to the teardown set
func (c *Coordinator) Register(info *EnvironmentInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.infos[info] = struct{}{}
}

// Len returns the number of tracked environments
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.infos)
}

// Run tears down every tracked environment: its stores, the catalog, the environment
// and (optionally) the directory. A failing environment does not stop the others,
// all failures are returned together after the last environment was processed.
// The set is empty afterwards, so calling Run again is a no-op.
func (c *Coordinator) Run() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for info := range c.infos {
		if err := c.teardown(info); err != nil {
			errs = append(errs, err)
		}
	}
	clear(c.infos)
	return errors.Join(errs...)
}

// Release tears down a single environment. Environments that are not tracked
// (e.g. because Run already processed them) are ignored.
func (c *Coordinator) Release(info *EnvironmentInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.infos[info]; !ok {
		return nil
	}
	delete(c.infos, info)
	return c.teardown(info)
}

// teardown closes the stores before the catalog, the catalog before the environment
func (c *Coordinator) teardown(info *EnvironmentInfo) error {
	path := info.Path()
	var errs []error

	if err := info.remover.CloseAll(); err != nil {
		errs = append(errs, fmt.Errorf("close stores in %s: %w", path, err))
	}

	if err := info.catalog.Close(); err != nil {
		log.Errorf("failed to close encoding catalog of %s: %v", path, err)
	}

	if err := info.env.Close(); err != nil {
		log.Errorf("failed to close environment %s: %v", path, err)
		errs = append(errs, fmt.Errorf("close environment %s: %w", path, err))
	} else {
		environmentsClosed.Inc()
	}

	if c.deleteOnExit || info.deleteOnExit {
		if err := info.engine.DeleteDirectory(path); err != nil {
			log.Errorf("failed to delete environment directory %s: %v", path, err)
			errs = append(errs, fmt.Errorf("delete %s: %w", path, err))
		} else {
			directoriesDeleted.Inc()
			log.Infof("deleted environment directory %s", path)
		}
	}

	return errors.Join(errs...)
}
