package memstore

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/quka-ai/livetable/pkg/types"
)

type TableStore struct {
	s *Store
}

func (r *TableStore) Create(ctx context.Context, data types.Table) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	if _, exist := r.s.tables[data.ID]; exist {
		return ErrDuplicateKey
	}
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}
	put(t, r.s.tables, data.ID, data)
	return nil
}

func (r *TableStore) GetTable(ctx context.Context, id string) (*types.Table, error) {
	defer r.s.read(ctx)()

	data, exist := r.s.tables[id]
	if !exist {
		return nil, sql.ErrNoRows
	}
	return &data, nil
}

// GetForUpdate needs no row lock, a transaction already owns the whole store.
func (r *TableStore) GetForUpdate(ctx context.Context, id string) (*types.Table, error) {
	return r.GetTable(ctx, id)
}

func (r *TableStore) List(ctx context.Context, page, pageSize uint64) ([]types.Table, error) {
	defer r.s.read(ctx)()

	list := make([]types.Table, 0, len(r.s.tables))
	for _, v := range r.s.tables {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt > list[j].CreatedAt
		}
		return list[i].ID < list[j].ID
	})

	if page == types.NO_PAGINATION || pageSize == types.NO_PAGINATION {
		return list, nil
	}
	start := (page - 1) * pageSize
	if start >= uint64(len(list)) {
		return nil, nil
	}
	end := min(start+pageSize, uint64(len(list)))
	return list[start:end], nil
}

func (r *TableStore) modify(ctx context.Context, id string, fn func(*types.Table)) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	data, exist := r.s.tables[id]
	if !exist {
		return nil
	}
	fn(&data)
	put(t, r.s.tables, id, data)
	return nil
}

func (r *TableStore) Update(ctx context.Context, id, name, desc, editor string, updatedAt int64) error {
	return r.modify(ctx, id, func(data *types.Table) {
		data.Name = name
		data.Description = desc
		data.UpdatedBy = editor
		data.UpdatedAt = updatedAt
	})
}

func (r *TableStore) Touch(ctx context.Context, id, editor string, updatedAt int64) error {
	return r.modify(ctx, id, func(data *types.Table) {
		data.UpdatedBy = editor
		data.UpdatedAt = updatedAt
	})
}

func (r *TableStore) SetRowCount(ctx context.Context, id string, rowCount int64) error {
	return r.modify(ctx, id, func(data *types.Table) {
		data.RowCount = rowCount
	})
}

// Delete cascades to the table's columns, cells and sessions.
func (r *TableStore) Delete(ctx context.Context, id string) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	if !del(t, r.s.tables, id) {
		return nil
	}
	for k, v := range r.s.columns {
		if v.TableID == id {
			del(t, r.s.columns, k)
		}
	}
	for k := range r.s.cells {
		if k.TableID == id {
			del(t, r.s.cells, k)
		}
	}
	for k, v := range r.s.sessions {
		if v.TableID == id {
			del(t, r.s.sessions, k)
		}
	}
	return nil
}
