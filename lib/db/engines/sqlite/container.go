package sqlite

import (
	"database/sql"
	"errors"
	"sync/atomic"

	"github.com/ValentinKolb/dStore/lib/db"
)

// handleImpl is a db.Container backed by the rows of one container in the entries table
type handleImpl struct {
	name      string
	temporary bool
	env       *environmentImpl
	closed    atomic.Bool
}

func (h *handleImpl) check() error {
	if h.closed.Load() || h.env.closed.Load() {
		return db.ErrClosed
	}
	return nil
}

func (h *handleImpl) Name() string {
	return h.name
}

func (h *handleImpl) Get(key []byte) ([]byte, bool, error) {
	if err := h.check(); err != nil {
		return nil, false, err
	}
	var value []byte
	err := h.env.db.QueryRow("SELECT value FROM entries WHERE container = ? AND key = ?", h.name, nonNil(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put upserts the entry and returns the previous value in one transaction
func (h *handleImpl) Put(key, value []byte) ([]byte, bool, error) {
	if err := h.check(); err != nil {
		return nil, false, err
	}
	key, value = nonNil(key), nonNil(value)

	tx, err := h.env.db.Begin()
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	prev, loaded, err := lookup(tx, h.name, key)
	if err != nil {
		return nil, false, err
	}
	if _, err := tx.Exec(
		"INSERT INTO entries (container, key, value) VALUES (?, ?, ?) ON CONFLICT (container, key) DO UPDATE SET value = excluded.value",
		h.name, key, value,
	); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return prev, loaded, nil
}

func (h *handleImpl) Remove(key []byte) ([]byte, bool, error) {
	if err := h.check(); err != nil {
		return nil, false, err
	}
	key = nonNil(key)

	tx, err := h.env.db.Begin()
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	prev, loaded, err := lookup(tx, h.name, key)
	if err != nil || !loaded {
		return nil, false, err
	}
	if _, err := tx.Exec("DELETE FROM entries WHERE container = ? AND key = ?", h.name, key); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return prev, true, nil
}

// lookup reads one value inside a transaction
func lookup(tx *sql.Tx, container string, key []byte) ([]byte, bool, error) {
	var value []byte
	err := tx.QueryRow("SELECT value FROM entries WHERE container = ? AND key = ?", container, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (h *handleImpl) Has(key []byte) (bool, error) {
	return h.exists("SELECT 1 FROM entries WHERE container = ? AND key = ? LIMIT 1", h.name, nonNil(key))
}

func (h *handleImpl) ContainsValue(value []byte) (bool, error) {
	return h.exists("SELECT 1 FROM entries WHERE container = ? AND value = ? LIMIT 1", h.name, nonNil(value))
}

// nonNil maps nil to an empty slice, the driver would bind nil as NULL
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func (h *handleImpl) exists(query string, args ...any) (bool, error) {
	if err := h.check(); err != nil {
		return false, err
	}
	var one int
	err := h.env.db.QueryRow(query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (h *handleImpl) Len() (int, error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	var n int
	err := h.env.db.QueryRow("SELECT COUNT(*) FROM entries WHERE container = ?", h.name).Scan(&n)
	return n, err
}

func (h *handleImpl) Clear() error {
	if err := h.check(); err != nil {
		return err
	}
	_, err := h.env.db.Exec("DELETE FROM entries WHERE container = ?", h.name)
	return err
}

// Range reads all rows first so that fn may call back into the container
// (the environment uses a single connection).
func (h *handleImpl) Range(fn func(key, value []byte) bool) error {
	if err := h.check(); err != nil {
		return err
	}

	rows, err := h.env.db.Query("SELECT key, value FROM entries WHERE container = ? ORDER BY key", h.name)
	if err != nil {
		return err
	}

	type entry struct{ key, value []byte }
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.key, &e.value); err != nil {
			rows.Close()
			return err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, e := range entries {
		if !fn(e.key, e.value) {
			break
		}
	}
	return nil
}

func (h *handleImpl) Info() (db.DatabaseInfo, error) {
	if err := h.check(); err != nil {
		return db.DatabaseInfo{}, err
	}

	var entries int
	var size sql.NullInt64
	err := h.env.db.QueryRow(
		"SELECT COUNT(*), SUM(LENGTH(key) + LENGTH(value)) FROM entries WHERE container = ?", h.name,
	).Scan(&entries, &size)
	if err != nil {
		return db.DatabaseInfo{}, err
	}

	var pageCount, pageSize int64
	_ = h.env.db.QueryRow("PRAGMA page_count").Scan(&pageCount)
	_ = h.env.db.QueryRow("PRAGMA page_size").Scan(&pageSize)

	meta := &struct {
		File          string `json:"file" yaml:"file"`
		Temporary     bool   `json:"temporary" yaml:"temporary"`
		DatabaseBytes int64  `json:"database_bytes" yaml:"database_bytes"`
	}{
		File:          DatabaseFileName,
		Temporary:     h.temporary,
		DatabaseBytes: pageCount * pageSize,
	}

	return db.DatabaseInfo{
		SizeBytes: int(size.Int64),
		Entries:   entries,
		DbType:    db.ImplSQLite,
		Metadata:  meta,
	}, nil
}

func (h *handleImpl) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := h.env.release(h.name, h.temporary); err != nil {
		h.closed.Store(false)
		return err
	}
	return nil
}
