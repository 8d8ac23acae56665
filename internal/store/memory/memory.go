// Package memory implements store.Store in process memory, optionally
// persisted to a single JSON snapshot file.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/store"
)

// MemoryStore implements store.Store with a single lock around all state.
// When a snapshot path is configured every mutation is written to disk before
// it is acknowledged; a failed write rolls the mutation back.
type MemoryStore struct {
	mu    sync.RWMutex
	st    *state
	path  string
	clock func() time.Time
}

// Compile-time check that MemoryStore implements store.Store.
var _ store.Store = (*MemoryStore)(nil)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.clock = now }
}

// New returns an empty, non-persistent store.
func New(opts ...Option) *MemoryStore {
	s := &MemoryStore{clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.st = newState(s.clock)
	return s
}

// Open returns a store backed by the snapshot file at path. A missing file
// yields an empty store; an unreadable or corrupt one is an error.
func Open(path string, opts ...Option) (*MemoryStore, error) {
	s := New(opts...)
	s.path = path
	st, err := loadSnapshot(path, s.clock)
	if err != nil {
		return nil, err
	}
	s.st = st
	return s, nil
}

// Path returns the snapshot file, or "" for a purely in-memory store.
func (s *MemoryStore) Path() string {
	return s.path
}

// mutate applies fn under the write lock and persists the result. The prior
// state is restored if fn or the snapshot write fails.
func (s *MemoryStore) mutate(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.st.clone()
	if err := fn(s.st); err != nil {
		s.st = prev
		return err
	}
	if err := s.persist(); err != nil {
		s.st = prev
		return err
	}
	return nil
}

func (s *MemoryStore) persist() error {
	if s.path == "" {
		return nil
	}
	if err := writeSnapshot(s.path, s.st); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

func (s *MemoryStore) CreateCollection(_ context.Context, name string) error {
	return s.mutate(func(st *state) error {
		_, err := st.createCollection(name)
		return err
	})
}

func (s *MemoryStore) Collections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.names(), nil
}

func (s *MemoryStore) Info(_ context.Context, collection string) (*store.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.info(collection), nil
}

func (s *MemoryStore) Insert(_ context.Context, collection string, fields store.Fields) (int64, error) {
	var id int64
	err := s.mutate(func(st *state) error {
		var err error
		id, err = st.insert(collection, fields)
		return err
	})
	return id, err
}

func (s *MemoryStore) Get(_ context.Context, collection string, id int64) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.get(collection, id), nil
}

func (s *MemoryStore) List(_ context.Context, collection string) ([]*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.selectWhere(collection, nil)
}

func (s *MemoryStore) Select(_ context.Context, collection string, where store.Fields) ([]*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.selectWhere(collection, where)
}

func (s *MemoryStore) Update(_ context.Context, collection string, id int64, fields store.Fields) (bool, error) {
	var found bool
	err := s.mutate(func(st *state) error {
		var err error
		found, err = st.update(collection, id, fields)
		return err
	})
	return found, err
}

func (s *MemoryStore) Delete(_ context.Context, collection string, id int64) (bool, error) {
	var found bool
	err := s.mutate(func(st *state) error {
		found = st.delete(collection, id)
		return nil
	})
	return found, err
}

func (s *MemoryStore) Clear(_ context.Context, collection string) error {
	return s.mutate(func(st *state) error {
		st.clear(collection)
		return nil
	})
}

func (s *MemoryStore) Drop(_ context.Context, collection string) error {
	return s.mutate(func(st *state) error {
		st.drop(collection)
		return nil
	})
}

func (s *MemoryStore) Reset(_ context.Context) error {
	return s.mutate(func(st *state) error {
		st.reset()
		return nil
	})
}

// RunInTransaction holds the write lock for the duration of fn. Writes made
// through tx are persisted once at the end, or discarded when fn fails.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.mutate(func(st *state) error {
		return fn(&txStore{st: st})
	})
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

// txStore implements store.Store directly on the locked state.
type txStore struct {
	st *state
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (t *txStore) CreateCollection(_ context.Context, name string) error {
	_, err := t.st.createCollection(name)
	return err
}

func (t *txStore) Collections(_ context.Context) ([]string, error) {
	return t.st.names(), nil
}

func (t *txStore) Info(_ context.Context, collection string) (*store.CollectionInfo, error) {
	return t.st.info(collection), nil
}

func (t *txStore) Insert(_ context.Context, collection string, fields store.Fields) (int64, error) {
	return t.st.insert(collection, fields)
}

func (t *txStore) Get(_ context.Context, collection string, id int64) (*store.Record, error) {
	return t.st.get(collection, id), nil
}

func (t *txStore) List(_ context.Context, collection string) ([]*store.Record, error) {
	return t.st.selectWhere(collection, nil)
}

func (t *txStore) Select(_ context.Context, collection string, where store.Fields) ([]*store.Record, error) {
	return t.st.selectWhere(collection, where)
}

func (t *txStore) Update(_ context.Context, collection string, id int64, fields store.Fields) (bool, error) {
	return t.st.update(collection, id, fields)
}

func (t *txStore) Delete(_ context.Context, collection string, id int64) (bool, error) {
	return t.st.delete(collection, id), nil
}

func (t *txStore) Clear(_ context.Context, collection string) error {
	t.st.clear(collection)
	return nil
}

func (t *txStore) Drop(_ context.Context, collection string) error {
	t.st.drop(collection)
	return nil
}

func (t *txStore) Reset(_ context.Context) error {
	t.st.reset()
	return nil
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (t *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

func (t *txStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op for a transaction store; the parent store owns the state.
func (t *txStore) Close() error {
	return nil
}
