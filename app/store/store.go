package store

import (
	"context"

	"github.com/quka-ai/livetable/pkg/types"
)

// Missing rows are reported as sql.ErrNoRows by every implementation.

type TableStore interface {
	Create(ctx context.Context, data types.Table) error
	GetTable(ctx context.Context, id string) (*types.Table, error)
	// GetForUpdate loads the table and holds its row lock until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*types.Table, error)
	List(ctx context.Context, page, pageSize uint64) ([]types.Table, error)
	Update(ctx context.Context, id, name, desc, editor string, updatedAt int64) error
	Touch(ctx context.Context, id, editor string, updatedAt int64) error
	SetRowCount(ctx context.Context, id string, rowCount int64) error
	Delete(ctx context.Context, id string) error
}

type ColumnStore interface {
	Create(ctx context.Context, data types.Column) error
	Get(ctx context.Context, tableID, id string) (*types.Column, error)
	// ListByTable returns the columns ordered by order_index.
	ListByTable(ctx context.Context, tableID string) ([]types.Column, error)
	// MaxOrderIndex returns -1 when the table has no column.
	MaxOrderIndex(ctx context.Context, tableID string) (int64, error)
	Update(ctx context.Context, tableID, id string, spec types.ColumnSpec, updatedAt int64) error
	// ShiftOrder adds delta to the order index of every column whose index is greater than after.
	ShiftOrder(ctx context.Context, tableID string, after, delta int64) error
	Delete(ctx context.Context, tableID, id string) error
	DeleteAll(ctx context.Context, tableID string) error
}

type CellStore interface {
	Upsert(ctx context.Context, data types.Cell) error
	BatchCreate(ctx context.Context, data []types.Cell) error
	Get(ctx context.Context, tableID, columnID string, rowIndex int64) (*types.Cell, error)
	ListByTable(ctx context.Context, tableID string) ([]types.Cell, error)
	// MaxRowIndex returns -1 when the table has no cell.
	MaxRowIndex(ctx context.Context, tableID string) (int64, error)
	// ShiftRows adds delta to the row index of every cell whose row index is >= from.
	ShiftRows(ctx context.Context, tableID string, from, delta int64) error
	Delete(ctx context.Context, tableID, columnID string, rowIndex int64) error
	DeleteRow(ctx context.Context, tableID string, rowIndex int64) error
	DeleteByColumn(ctx context.Context, tableID, columnID string) error
	DeleteAll(ctx context.Context, tableID string) error
}

type SessionStore interface {
	Create(ctx context.Context, data types.TableSession) error
	Get(ctx context.Context, id string) (*types.TableSession, error)
	Touch(ctx context.Context, id string, lastActive int64) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, tableID, userID string) (int64, error)
	DeleteAll(ctx context.Context, tableID string) error
	ListByTable(ctx context.Context, tableID string) ([]types.TableSession, error)
	// ListActiveUsers returns distinct user ids with an active session, sorted.
	ListActiveUsers(ctx context.Context, tableID string) ([]string, error)
	// ListStaleTables returns the sorted ids of tables holding a session whose last_active is before the given time.
	ListStaleTables(ctx context.Context, before int64) ([]string, error)
	// DeleteStale removes the table's sessions whose last_active is before the given time and returns them.
	DeleteStale(ctx context.Context, tableID string, before int64) ([]types.TableSession, error)
}

// Provider is the storage engine seen by the logic layer.
type Provider interface {
	Transaction(ctx context.Context, next func(ctx context.Context) error) error
	TableStore() TableStore
	ColumnStore() ColumnStore
	CellStore() CellStore
	SessionStore() SessionStore
	Install() error
	Close() error
}
