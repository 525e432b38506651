package estore

import (
	"sync"

	"github.com/ValentinKolb/dStore/lib/codec"
	"github.com/ValentinKolb/dStore/lib/db"
	"github.com/ValentinKolb/dStore/lib/store"
)

// mapImpl is the store.Store facade over one container handle
type mapImpl[K comparable, V any] struct {
	name   string
	info   *EnvironmentInfo
	handle db.Container
	codec  codec.Codec

	mu     sync.Mutex // guards closed
	closed bool
}

func newMap[K comparable, V any](name string, info *EnvironmentInfo, handle db.Container, c codec.Codec) *mapImpl[K, V] {
	return &mapImpl[K, V]{
		name:   name,
		info:   info,
		handle: handle,
		codec:  c,
	}
}

// fail converts err into the uniform operation failure
func (m *mapImpl[K, V]) fail(op string, err error) error {
	operationFailed(op)
	return store.NewError(store.KindOperationFailure, op, m.name, err)
}

func (m *mapImpl[K, V]) decodeValue(raw []byte) (V, error) {
	var v V
	err := m.codec.Unmarshal(raw, &v)
	return v, err
}

func (m *mapImpl[K, V]) decodeKey(raw []byte) (K, error) {
	var k K
	err := m.codec.Unmarshal(raw, &k)
	return k, err
}

// rangeDecoded iterates over the handle, decoding every entry. A decode error stops the iteration.
func (m *mapImpl[K, V]) rangeDecoded(fn func(key K, value V) bool) error {
	var decodeErr error
	err := m.handle.Range(func(rawKey, rawValue []byte) bool {
		k, err := m.decodeKey(rawKey)
		if err != nil {
			decodeErr = err
			return false
		}
		v, err := m.decodeValue(rawValue)
		if err != nil {
			decodeErr = err
			return false
		}
		return fn(k, v)
	})
	if err != nil {
		return err
	}
	return decodeErr
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (m *mapImpl[K, V]) Name() string {
	return m.name
}

func (m *mapImpl[K, V]) Path() string {
	return m.info.Path()
}

func (m *mapImpl[K, V]) Get(key K) (V, bool, error) {
	var zero V
	k, err := m.codec.Marshal(key)
	if err != nil {
		return zero, false, m.fail("get", err)
	}
	raw, ok, err := m.handle.Get(k)
	if err != nil {
		return zero, false, m.fail("get", err)
	}
	if !ok {
		return zero, false, nil
	}
	v, err := m.decodeValue(raw)
	if err != nil {
		return zero, false, m.fail("get", err)
	}
	return v, true, nil
}

func (m *mapImpl[K, V]) Put(key K, value V) (V, bool, error) {
	var zero V
	k, err := m.codec.Marshal(key)
	if err != nil {
		return zero, false, m.fail("put", err)
	}
	v, err := m.codec.Marshal(value)
	if err != nil {
		return zero, false, m.fail("put", err)
	}
	raw, loaded, err := m.handle.Put(k, v)
	if err != nil {
		return zero, false, m.fail("put", err)
	}
	if !loaded {
		return zero, false, nil
	}
	prev, err := m.decodeValue(raw)
	if err != nil {
		return zero, false, m.fail("put", err)
	}
	return prev, true, nil
}

func (m *mapImpl[K, V]) Remove(key K) (V, bool, error) {
	var zero V
	k, err := m.codec.Marshal(key)
	if err != nil {
		return zero, false, m.fail("remove", err)
	}
	raw, loaded, err := m.handle.Remove(k)
	if err != nil {
		return zero, false, m.fail("remove", err)
	}
	if !loaded {
		return zero, false, nil
	}
	prev, err := m.decodeValue(raw)
	if err != nil {
		return zero, false, m.fail("remove", err)
	}
	return prev, true, nil
}

func (m *mapImpl[K, V]) PutAll(entries map[K]V) error {
	for k, v := range entries {
		if _, _, err := m.Put(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *mapImpl[K, V]) ContainsKey(key K) (bool, error) {
	k, err := m.codec.Marshal(key)
	if err != nil {
		return false, m.fail("contains_key", err)
	}
	ok, err := m.handle.Has(k)
	if err != nil {
		return false, m.fail("contains_key", err)
	}
	return ok, nil
}

func (m *mapImpl[K, V]) ContainsValue(value V) (bool, error) {
	v, err := m.codec.Marshal(value)
	if err != nil {
		return false, m.fail("contains_value", err)
	}
	ok, err := m.handle.ContainsValue(v)
	if err != nil {
		return false, m.fail("contains_value", err)
	}
	return ok, nil
}

func (m *mapImpl[K, V]) Len() (int, error) {
	n, err := m.handle.Len()
	if err != nil {
		return 0, m.fail("len", err)
	}
	return n, nil
}

func (m *mapImpl[K, V]) IsEmpty() (bool, error) {
	n, err := m.handle.Len()
	if err != nil {
		return false, m.fail("is_empty", err)
	}
	return n == 0, nil
}

func (m *mapImpl[K, V]) Clear() error {
	if err := m.handle.Clear(); err != nil {
		return m.fail("clear", err)
	}
	return nil
}

func (m *mapImpl[K, V]) Keys() ([]K, error) {
	var keys []K
	err := m.rangeDecoded(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	if err != nil {
		return nil, m.fail("keys", err)
	}
	return keys, nil
}

func (m *mapImpl[K, V]) Values() ([]V, error) {
	var values []V
	err := m.rangeDecoded(func(_ K, value V) bool {
		values = append(values, value)
		return true
	})
	if err != nil {
		return nil, m.fail("values", err)
	}
	return values, nil
}

func (m *mapImpl[K, V]) Entries() ([]store.Entry[K, V], error) {
	var entries []store.Entry[K, V]
	err := m.rangeDecoded(func(key K, value V) bool {
		entries = append(entries, store.Entry[K, V]{Key: key, Value: value})
		return true
	})
	if err != nil {
		return nil, m.fail("entries", err)
	}
	return entries, nil
}

func (m *mapImpl[K, V]) Range(fn func(key K, value V) bool) error {
	if err := m.rangeDecoded(fn); err != nil {
		return m.fail("range", err)
	}
	return nil
}

func (m *mapImpl[K, V]) Info() (db.DatabaseInfo, error) {
	info, err := m.handle.Info()
	if err != nil {
		return db.DatabaseInfo{}, m.fail("info", err)
	}
	return info, nil
}

// Shutdown asks the factory to close and forget the handle. The store only counts
// as closed once that succeeded.
func (m *mapImpl[K, V]) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	if err := m.info.remover.CloseAndRemove(m.handle); err != nil {
		return store.NewError(store.KindShutdownFailure, "shutdown", m.name, err)
	}
	m.closed = true
	return nil
}

// IsClosed also reports stores whose handle was closed by the factory or the coordinator
func (m *mapImpl[K, V]) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed || !m.info.remover.Registered(m.handle)
}

func (m *mapImpl[K, V]) Equal(other store.Store[K, V]) bool {
	if other == nil {
		return false
	}
	return m.Path() == other.Path() && m.name == other.Name()
}
