package memstore

import (
	"context"
	"database/sql"
	"sort"

	"github.com/quka-ai/livetable/pkg/types"
)

type CellStore struct {
	s *Store
}

func (r *CellStore) Upsert(ctx context.Context, data types.Cell) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	put(t, r.s.cells, data.Key(), data)
	return nil
}

func (r *CellStore) BatchCreate(ctx context.Context, data []types.Cell) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	seen := make(map[types.CellKey]bool, len(data))
	for _, v := range data {
		key := v.Key()
		if _, exist := r.s.cells[key]; exist || seen[key] {
			return ErrDuplicateKey
		}
		seen[key] = true
	}
	for _, v := range data {
		put(t, r.s.cells, v.Key(), v)
	}
	return nil
}

func (r *CellStore) Get(ctx context.Context, tableID, columnID string, rowIndex int64) (*types.Cell, error) {
	defer r.s.read(ctx)()

	data, exist := r.s.cells[types.CellKey{TableID: tableID, ColumnID: columnID, RowIndex: rowIndex}]
	if !exist {
		return nil, sql.ErrNoRows
	}
	return &data, nil
}

func (r *CellStore) ListByTable(ctx context.Context, tableID string) ([]types.Cell, error) {
	defer r.s.read(ctx)()

	var list []types.Cell
	for k, v := range r.s.cells {
		if k.TableID == tableID {
			list = append(list, v)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].RowIndex != list[j].RowIndex {
			return list[i].RowIndex < list[j].RowIndex
		}
		return list[i].ColumnID < list[j].ColumnID
	})
	return list, nil
}

func (r *CellStore) MaxRowIndex(ctx context.Context, tableID string) (int64, error) {
	defer r.s.read(ctx)()

	res := int64(-1)
	for k := range r.s.cells {
		if k.TableID == tableID && k.RowIndex > res {
			res = k.RowIndex
		}
	}
	return res, nil
}

// ShiftRows fails without touching anything when a moved cell would land on an unmoved one.
func (r *CellStore) ShiftRows(ctx context.Context, tableID string, from, delta int64) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	var moved []types.Cell
	for k, v := range r.s.cells {
		if k.TableID == tableID && k.RowIndex >= from {
			moved = append(moved, v)
		}
	}
	for _, v := range moved {
		target := types.CellKey{TableID: tableID, ColumnID: v.ColumnID, RowIndex: v.RowIndex + delta}
		if exist, ok := r.s.cells[target]; ok && exist.RowIndex < from {
			return ErrDuplicateKey
		}
	}

	for _, v := range moved {
		del(t, r.s.cells, v.Key())
	}
	for _, v := range moved {
		v.RowIndex += delta
		put(t, r.s.cells, v.Key(), v)
	}
	return nil
}

func (r *CellStore) Delete(ctx context.Context, tableID, columnID string, rowIndex int64) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	del(t, r.s.cells, types.CellKey{TableID: tableID, ColumnID: columnID, RowIndex: rowIndex})
	return nil
}

func (r *CellStore) DeleteRow(ctx context.Context, tableID string, rowIndex int64) error {
	return r.deleteWhere(ctx, func(k types.CellKey) bool {
		return k.TableID == tableID && k.RowIndex == rowIndex
	})
}

func (r *CellStore) DeleteByColumn(ctx context.Context, tableID, columnID string) error {
	return r.deleteWhere(ctx, func(k types.CellKey) bool {
		return k.TableID == tableID && k.ColumnID == columnID
	})
}

func (r *CellStore) DeleteAll(ctx context.Context, tableID string) error {
	return r.deleteWhere(ctx, func(k types.CellKey) bool {
		return k.TableID == tableID
	})
}

func (r *CellStore) deleteWhere(ctx context.Context, match func(types.CellKey) bool) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	for k := range r.s.cells {
		if match(k) {
			del(t, r.s.cells, k)
		}
	}
	return nil
}
