// Package memstore keeps every table in process memory. It serves single node
// deployments and tests, nothing survives a restart.
//
// All tables share one RWMutex and a transaction holds its write side until the
// callback returns, so mutations on different tables run one after another.
// The per-table locker above the store still orders writers within a table, it
// just cannot buy parallelism across tables here. Use the postgres driver when
// independent tables must be written concurrently.
package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/quka-ai/livetable/app/store"
	"github.com/quka-ai/livetable/pkg/types"
)

var ErrDuplicateKey = errors.New("memstore: duplicate key")

type txKey struct{}

type txn struct {
	owner *Store
	undo  []func()
}

func (t *txn) record(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

func (t *txn) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

type Store struct {
	mu       sync.RWMutex
	tables   map[string]types.Table
	columns  map[string]types.Column
	cells    map[types.CellKey]types.Cell
	sessions map[string]types.TableSession
}

func New() *Store {
	return &Store{
		tables:   make(map[string]types.Table),
		columns:  make(map[string]types.Column),
		cells:    make(map[types.CellKey]types.Cell),
		sessions: make(map[string]types.TableSession),
	}
}

var _ store.Provider = (*Store)(nil)

func (s *Store) txFromCtx(ctx context.Context) *txn {
	if ctx == nil {
		return nil
	}
	if t, ok := ctx.Value(txKey{}).(*txn); ok && t.owner == s {
		return t
	}
	return nil
}

// Transaction holds the store write lock for the whole callback, every write
// made through ctx is undone when next fails or panics.
func (s *Store) Transaction(ctx context.Context, next func(ctx context.Context) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.txFromCtx(ctx) != nil {
		return next(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &txn{owner: s}
	defer func() {
		if r := recover(); r != nil {
			t.rollback()
			panic(r)
		}
		if err != nil {
			t.rollback()
		}
	}()

	return next(context.WithValue(ctx, txKey{}, t))
}

// read and write return the matching unlock func, a no-op inside a transaction.
func (s *Store) read(ctx context.Context) func() {
	if s.txFromCtx(ctx) != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) write(ctx context.Context) (*txn, func()) {
	if t := s.txFromCtx(ctx); t != nil {
		return t, func() {}
	}
	s.mu.Lock()
	return nil, s.mu.Unlock
}

func put[K comparable, V any](t *txn, m map[K]V, k K, v V) {
	prev, ok := m[k]
	t.record(func() {
		if ok {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
	m[k] = v
}

func del[K comparable, V any](t *txn, m map[K]V, k K) bool {
	prev, ok := m[k]
	if !ok {
		return false
	}
	t.record(func() {
		m[k] = prev
	})
	delete(m, k)
	return true
}

func (s *Store) TableStore() store.TableStore {
	return &TableStore{s: s}
}

func (s *Store) ColumnStore() store.ColumnStore {
	return &ColumnStore{s: s}
}

func (s *Store) CellStore() store.CellStore {
	return &CellStore{s: s}
}

func (s *Store) SessionStore() store.SessionStore {
	return &SessionStore{s: s}
}

func (s *Store) Install() error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
