package maple

import (
	"bytes"
	"sync/atomic"

	"github.com/ValentinKolb/dStore/lib/db"
	"github.com/ValentinKolb/dStore/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/dStore/lib/db/util"
)

// --------------------------------------------------------------------------
// Container state (shared by all handles of one container)
// --------------------------------------------------------------------------

type containerState struct {
	name      string
	file      string
	temporary bool
	seed      uint64            // Seed for hash function
	shards    []*internal.Shard // Array of shards
	dirty     atomic.Bool       // Modified since the last snapshot
	refs      int               // Open handles, guarded by environmentImpl.mu
}

func newContainerState(name, file string, temporary bool, numShards int) *containerState {
	return &containerState{
		name:      name,
		file:      file,
		temporary: temporary,
		seed:      util.GenerateSeed(),
		shards:    internal.NewShards(numShards),
	}
}

// shardFor returns the shard responsible for key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (st *containerState) shardFor(key string) *internal.Shard {
	return internal.GetShard(util.HashString(key, st.seed), st.shards)
}

// --------------------------------------------------------------------------
// Container handle
// --------------------------------------------------------------------------

type handleImpl struct {
	state  *containerState
	env    *environmentImpl
	closed atomic.Bool
}

// check fails with db.ErrClosed if the handle or its environment is closed
func (h *handleImpl) check() error {
	if h.closed.Load() || h.env.closed.Load() {
		return db.ErrClosed
	}
	return nil
}

func (h *handleImpl) Name() string {
	return h.state.name
}

// Get returns a copy of the stored value
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (h *handleImpl) Get(key []byte) ([]byte, bool, error) {
	if err := h.check(); err != nil {
		return nil, false, err
	}
	k := string(key)
	value, ok := h.state.shardFor(k).Data.Load(k)
	if !ok {
		return nil, false, nil
	}
	return internal.CopyBytes(value), true, nil
}

// Put stores a copy of value
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (h *handleImpl) Put(key, value []byte) ([]byte, bool, error) {
	if err := h.check(); err != nil {
		return nil, false, err
	}
	k := string(key)
	// Copy value to prevent memory corruption
	prev, loaded := h.state.shardFor(k).Data.LoadAndStore(k, internal.CopyBytes(value))
	h.state.dirty.Store(true)
	return prev, loaded, nil
}

func (h *handleImpl) Remove(key []byte) ([]byte, bool, error) {
	if err := h.check(); err != nil {
		return nil, false, err
	}
	k := string(key)
	prev, loaded := h.state.shardFor(k).Data.LoadAndDelete(k)
	if loaded {
		h.state.dirty.Store(true)
	}
	return prev, loaded, nil
}

func (h *handleImpl) Has(key []byte) (bool, error) {
	if err := h.check(); err != nil {
		return false, err
	}
	k := string(key)
	_, ok := h.state.shardFor(k).Data.Load(k)
	return ok, nil
}

// ContainsValue scans all shards for a byte-equal value
func (h *handleImpl) ContainsValue(value []byte) (bool, error) {
	if err := h.check(); err != nil {
		return false, err
	}
	found := false
	for _, shard := range h.state.shards {
		shard.Data.Range(func(_ string, v []byte) bool {
			found = bytes.Equal(v, value)
			return !found
		})
		if found {
			break
		}
	}
	return found, nil
}

func (h *handleImpl) Len() (int, error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	n := 0
	for _, shard := range h.state.shards {
		n += shard.Data.Size()
	}
	return n, nil
}

func (h *handleImpl) Clear() error {
	if err := h.check(); err != nil {
		return err
	}
	for _, shard := range h.state.shards {
		shard.Data.Clear()
	}
	h.state.dirty.Store(true)
	return nil
}

// Range iterates over all shards. Modifying the container from fn is allowed.
func (h *handleImpl) Range(fn func(key, value []byte) bool) error {
	if err := h.check(); err != nil {
		return err
	}
	proceed := true
	for _, shard := range h.state.shards {
		shard.Data.Range(func(k string, v []byte) bool {
			proceed = fn([]byte(k), internal.CopyBytes(v))
			return proceed
		})
		if !proceed {
			break
		}
	}
	return nil
}

// Info returns statistics about the container
func (h *handleImpl) Info() (db.DatabaseInfo, error) {
	if err := h.check(); err != nil {
		return db.DatabaseInfo{}, err
	}

	histogram := util.NewSizeHistogram()
	shardSizes := make([]float64, len(h.state.shards))
	sizeBytes := 0
	entries := 0

	for i, shard := range h.state.shards {
		shard.Data.Range(func(k string, v []byte) bool {
			histogram.AddSample(len(v))
			sizeBytes += len(k) + len(v)
			return true
		})
		size := shard.Data.Size()
		shardSizes[i] = float64(size)
		entries += size
	}

	// Metadata for this specific engine
	meta := &struct {
		File              string                 `json:"file" yaml:"file"`
		Temporary         bool                   `json:"temporary" yaml:"temporary"`
		ShardCount        int                    `json:"shard_count" yaml:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution" yaml:"shard_distribution"`
		AverageValueSize  int                    `json:"average_value_size" yaml:"average_value_size"`
		MedianValueSize   int                    `json:"median_value_size" yaml:"median_value_size"`
		P90ValueSize      int                    `json:"p90_value_size" yaml:"p90_value_size"`
	}{
		File:              h.state.file,
		Temporary:         h.state.temporary,
		ShardCount:        len(h.state.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
		AverageValueSize:  histogram.AverageSize(),
		MedianValueSize:   histogram.MedianEstimate(),
		P90ValueSize:      histogram.GetPercentileEstimate(90),
	}

	return db.DatabaseInfo{
		SizeBytes: sizeBytes,
		Entries:   entries,
		DbType:    db.ImplMaple,
		Metadata:  meta,
	}, nil
}

// Close releases the handle, the last handle of a container persists it.
// If persisting fails the handle stays open and Close can be retried.
func (h *handleImpl) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := h.env.release(h.state); err != nil {
		h.closed.Store(false)
		return err
	}
	return nil
}
