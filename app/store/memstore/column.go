package memstore

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/quka-ai/livetable/pkg/types"
)

type ColumnStore struct {
	s *Store
}

func (r *ColumnStore) orderTaken(tableID string, orderIndex int64, except map[string]bool) bool {
	for _, v := range r.s.columns {
		if v.TableID == tableID && v.OrderIndex == orderIndex && !except[v.ID] {
			return true
		}
	}
	return false
}

func (r *ColumnStore) Create(ctx context.Context, data types.Column) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	if _, exist := r.s.columns[data.ID]; exist {
		return ErrDuplicateKey
	}
	if r.orderTaken(data.TableID, data.OrderIndex, nil) {
		return ErrDuplicateKey
	}
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}
	put(t, r.s.columns, data.ID, data)
	return nil
}

func (r *ColumnStore) Get(ctx context.Context, tableID, id string) (*types.Column, error) {
	defer r.s.read(ctx)()

	data, exist := r.s.columns[id]
	if !exist || data.TableID != tableID {
		return nil, sql.ErrNoRows
	}
	return &data, nil
}

func (r *ColumnStore) ListByTable(ctx context.Context, tableID string) ([]types.Column, error) {
	defer r.s.read(ctx)()

	var list []types.Column
	for _, v := range r.s.columns {
		if v.TableID == tableID {
			list = append(list, v)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].OrderIndex < list[j].OrderIndex
	})
	return list, nil
}

func (r *ColumnStore) MaxOrderIndex(ctx context.Context, tableID string) (int64, error) {
	defer r.s.read(ctx)()

	res := int64(-1)
	for _, v := range r.s.columns {
		if v.TableID == tableID && v.OrderIndex > res {
			res = v.OrderIndex
		}
	}
	return res, nil
}

func (r *ColumnStore) Update(ctx context.Context, tableID, id string, spec types.ColumnSpec, updatedAt int64) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	data, exist := r.s.columns[id]
	if !exist || data.TableID != tableID {
		return nil
	}
	data.ApplySpec(spec)
	data.UpdatedAt = updatedAt
	put(t, r.s.columns, id, data)
	return nil
}

func (r *ColumnStore) ShiftOrder(ctx context.Context, tableID string, after, delta int64) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	shifted := make(map[string]bool)
	for _, v := range r.s.columns {
		if v.TableID == tableID && v.OrderIndex > after {
			shifted[v.ID] = true
		}
	}
	for id := range shifted {
		target := r.s.columns[id].OrderIndex + delta
		if r.orderTaken(tableID, target, shifted) {
			return ErrDuplicateKey
		}
	}
	for id := range shifted {
		data := r.s.columns[id]
		data.OrderIndex += delta
		put(t, r.s.columns, id, data)
	}
	return nil
}

// Delete removes the column with its cells.
func (r *ColumnStore) Delete(ctx context.Context, tableID, id string) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	data, exist := r.s.columns[id]
	if !exist || data.TableID != tableID {
		return nil
	}
	del(t, r.s.columns, id)
	for k := range r.s.cells {
		if k.TableID == tableID && k.ColumnID == id {
			del(t, r.s.cells, k)
		}
	}
	return nil
}

func (r *ColumnStore) DeleteAll(ctx context.Context, tableID string) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	for k, v := range r.s.columns {
		if v.TableID == tableID {
			del(t, r.s.columns, k)
		}
	}
	for k := range r.s.cells {
		if k.TableID == tableID {
			del(t, r.s.cells, k)
		}
	}
	return nil
}
