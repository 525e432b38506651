package estore

import (
	"math"
	"runtime"
	"runtime/debug"

	"github.com/ValentinKolb/dStore/lib/db"
)

// --------------------------------------------------------------------------
// Policy
// --------------------------------------------------------------------------

// Policy decides how a factory configures its environment and containers
type Policy interface {
	// EnvConfig returns the tuning used to open the environment
	EnvConfig() db.EnvConfig
	// ContainerConfig returns the configuration used to open store containers
	ContainerConfig() db.ContainerConfig
	// CatalogConfig returns the configuration used to open the encoding catalog
	CatalogConfig() db.ContainerConfig
	// DeleteOnExit reports whether the environment directory is deleted on teardown
	DeleteOnExit() bool
}

const (
	// DefaultCacheDivisor is the share of the free heap a persistent environment may use (1/6)
	DefaultCacheDivisor = 6
	// minCacheSize is the lower bound of a computed cache size (1 MiB)
	minCacheSize = 1 << 20
)

// PersistentPolicy keeps all data after the process exits. Environments are
// transactional and get a cache sized from the free heap.
type PersistentPolicy struct {
	CacheDivisor int   // Divisor of the free heap (0 = DefaultCacheDivisor)
	CacheSize    int64 // Absolute cache size in bytes, overrides the divisor if > 0
}

func (p PersistentPolicy) EnvConfig() db.EnvConfig {
	return db.EnvConfig{
		AllowCreate:   true,
		Transactional: true,
		CacheSize:     p.cacheSize(),
	}
}

func (p PersistentPolicy) ContainerConfig() db.ContainerConfig {
	return db.ContainerConfig{AllowCreate: true}
}

func (p PersistentPolicy) CatalogConfig() db.ContainerConfig {
	return db.ContainerConfig{AllowCreate: true}
}

func (p PersistentPolicy) DeleteOnExit() bool {
	return false
}

// cacheSize computes round((max heap - used heap) / divisor). The max heap is the
// soft memory limit of the runtime, or the memory obtained from the OS if no limit is set.
func (p PersistentPolicy) cacheSize() int64 {
	if p.CacheSize > 0 {
		return p.CacheSize
	}
	divisor := p.CacheDivisor
	if divisor <= 0 {
		divisor = DefaultCacheDivisor
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	maxHeap := debug.SetMemoryLimit(-1) // -1 only reads the current limit
	if maxHeap == math.MaxInt64 {
		maxHeap = int64(ms.Sys)
	}
	free := maxHeap - int64(ms.HeapAlloc)

	size := int64(math.Round(float64(free) / float64(divisor)))
	log.Debugf("computed cache size %d bytes (max heap %d, used %d, divisor %d)", size, maxHeap, ms.HeapAlloc, divisor)
	return max(size, minCacheSize)
}

// TemporaryPolicy is used for scratch data. Environments skip durability and all
// containers are discarded when they are closed.
type TemporaryPolicy struct {
	RemoveOnExit bool // Delete the environment directory on teardown
}

func (p TemporaryPolicy) EnvConfig() db.EnvConfig {
	return db.EnvConfig{AllowCreate: true}
}

func (p TemporaryPolicy) ContainerConfig() db.ContainerConfig {
	return db.ContainerConfig{AllowCreate: true, Temporary: true}
}

func (p TemporaryPolicy) CatalogConfig() db.ContainerConfig {
	return db.ContainerConfig{AllowCreate: true, Temporary: true}
}

func (p TemporaryPolicy) DeleteOnExit() bool {
	return p.RemoveOnExit
}
