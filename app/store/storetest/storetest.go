// Package storetest holds the behaviour every store.Provider must share.
package storetest

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/livetable/app/store"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/utils"
)

func strPtr(s string) *string {
	return &s
}

func newTable(t *testing.T, ctx context.Context, p store.Provider) types.Table {
	data := types.Table{
		ID:        utils.GenRandomID(),
		Name:      "Stock",
		CreatedBy: "tester",
		CreatedAt: 100,
		UpdatedAt: 100,
	}
	require.NoError(t, p.TableStore().Create(ctx, data))
	t.Cleanup(func() {
		_ = p.TableStore().Delete(context.Background(), data.ID)
	})
	return data
}

func newColumn(t *testing.T, ctx context.Context, p store.Provider, tableID string, order int64, name string) types.Column {
	data := types.Column{
		ID:         utils.GenRandomID(),
		TableID:    tableID,
		Name:       name,
		Type:       types.COLUMN_TYPE_TEXT,
		OrderIndex: order,
		CreatedAt:  100,
		UpdatedAt:  100,
	}
	require.NoError(t, p.ColumnStore().Create(ctx, data))
	return data
}

// Run executes the shared suite against p.
func Run(t *testing.T, p store.Provider) {
	t.Run("Table", func(t *testing.T) { testTable(t, p) })
	t.Run("Column", func(t *testing.T) { testColumn(t, p) })
	t.Run("CellShift", func(t *testing.T) { testCellShift(t, p) })
	t.Run("CellUpsert", func(t *testing.T) { testCellUpsert(t, p) })
	t.Run("Session", func(t *testing.T) { testSession(t, p) })
	t.Run("TransactionRollback", func(t *testing.T) { testRollback(t, p) })
}

func testTable(t *testing.T, p store.Provider) {
	ctx := context.Background()
	data := newTable(t, ctx, p)

	got, err := p.TableStore().GetTable(ctx, data.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stock", got.Name)

	require.NoError(t, p.TableStore().Update(ctx, data.ID, "Inventory", "desc", "editor", 200))
	require.NoError(t, p.TableStore().SetRowCount(ctx, data.ID, 3))

	got, err = p.TableStore().GetTable(ctx, data.ID)
	require.NoError(t, err)
	assert.Equal(t, "Inventory", got.Name)
	assert.Equal(t, "desc", got.Description)
	assert.Equal(t, "editor", got.UpdatedBy)
	assert.Equal(t, int64(200), got.UpdatedAt)
	assert.Equal(t, int64(3), got.RowCount)

	require.NoError(t, p.TableStore().Delete(ctx, data.ID))
	_, err = p.TableStore().GetTable(ctx, data.ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func testColumn(t *testing.T, p store.Provider) {
	ctx := context.Background()
	table := newTable(t, ctx, p)

	maxIdx, err := p.ColumnStore().MaxOrderIndex(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), maxIdx)

	a := newColumn(t, ctx, p, table.ID, 0, "Item")
	b := newColumn(t, ctx, p, table.ID, 1, "Qty")
	c := newColumn(t, ctx, p, table.ID, 2, "Note")

	// 删除中间列后压缩顺序
	err = p.Transaction(ctx, func(ctx context.Context) error {
		if err := p.ColumnStore().Delete(ctx, table.ID, b.ID); err != nil {
			return err
		}
		return p.ColumnStore().ShiftOrder(ctx, table.ID, b.OrderIndex, -1)
	})
	require.NoError(t, err)

	list, err := p.ColumnStore().ListByTable(ctx, table.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, int64(0), list[0].OrderIndex)
	assert.Equal(t, c.ID, list[1].ID)
	assert.Equal(t, int64(1), list[1].OrderIndex)

	spec := c.Spec()
	spec.Name = "Comment"
	spec.Type = types.COLUMN_TYPE_NUMBER
	spec.DefaultValue = strPtr("0")
	require.NoError(t, p.ColumnStore().Update(ctx, table.ID, c.ID, spec, 300))

	got, err := p.ColumnStore().Get(ctx, table.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Comment", got.Name)
	assert.Equal(t, types.COLUMN_TYPE_NUMBER, got.Type)
	require.NotNil(t, got.DefaultValue)
	assert.Equal(t, "0", *got.DefaultValue)

	_, err = p.ColumnStore().Get(ctx, "other", c.ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func cellValues(t *testing.T, p store.Provider, tableID string) map[int64]string {
	cells, err := p.CellStore().ListByTable(context.Background(), tableID)
	require.NoError(t, err)
	res := make(map[int64]string)
	for _, v := range cells {
		res[v.RowIndex] = v.Value
	}
	return res
}

func testCellShift(t *testing.T, p store.Provider) {
	ctx := context.Background()
	table := newTable(t, ctx, p)
	col := newColumn(t, ctx, p, table.ID, 0, "Item")

	var cells []types.Cell
	for i, v := range []string{"a", "b", "c"} {
		cells = append(cells, types.Cell{TableID: table.ID, ColumnID: col.ID, RowIndex: int64(i), Value: v, UpdatedAt: 1})
	}
	require.NoError(t, p.CellStore().BatchCreate(ctx, cells))

	require.NoError(t, p.Transaction(ctx, func(ctx context.Context) error {
		return p.CellStore().ShiftRows(ctx, table.ID, 1, 1)
	}))
	assert.Equal(t, map[int64]string{0: "a", 2: "b", 3: "c"}, cellValues(t, p, table.ID))

	maxIdx, err := p.CellStore().MaxRowIndex(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), maxIdx)

	require.NoError(t, p.Transaction(ctx, func(ctx context.Context) error {
		if err := p.CellStore().DeleteRow(ctx, table.ID, 0); err != nil {
			return err
		}
		return p.CellStore().ShiftRows(ctx, table.ID, 1, -1)
	}))
	assert.Equal(t, map[int64]string{1: "b", 2: "c"}, cellValues(t, p, table.ID))

	require.NoError(t, p.CellStore().DeleteByColumn(ctx, table.ID, col.ID))
	assert.Empty(t, cellValues(t, p, table.ID))
}

func testCellUpsert(t *testing.T, p store.Provider) {
	ctx := context.Background()
	table := newTable(t, ctx, p)
	col := newColumn(t, ctx, p, table.ID, 0, "Item")

	cell := types.Cell{TableID: table.ID, ColumnID: col.ID, RowIndex: 4, Value: "Bolt", UpdatedAt: 1, UpdatedBy: "u1"}
	require.NoError(t, p.CellStore().Upsert(ctx, cell))

	cell.Value = "Nut"
	cell.UpdatedBy = "u2"
	require.NoError(t, p.CellStore().Upsert(ctx, cell))

	got, err := p.CellStore().Get(ctx, table.ID, col.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, "Nut", got.Value)
	assert.Equal(t, "u2", got.UpdatedBy)

	require.NoError(t, p.CellStore().Delete(ctx, table.ID, col.ID, 4))
	_, err = p.CellStore().Get(ctx, table.ID, col.ID, 4)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func testSession(t *testing.T, p store.Provider) {
	ctx := context.Background()
	table := newTable(t, ctx, p)

	for i, user := range []string{"bob", "alice", "bob"} {
		require.NoError(t, p.SessionStore().Create(ctx, types.TableSession{
			ID:         utils.GenRandomID(),
			TableID:    table.ID,
			UserID:     user,
			JoinedAt:   int64(10 + i),
			LastActive: int64(10 + i),
			Active:     true,
		}))
	}

	users, err := p.SessionStore().ListActiveUsers(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)

	affected, err := p.SessionStore().DeleteByUser(ctx, table.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	list, err := p.SessionStore().ListByTable(ctx, table.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, p.SessionStore().Touch(ctx, list[0].ID, 50))
	tables, err := p.SessionStore().ListStaleTables(ctx, 51)
	require.NoError(t, err)
	assert.Contains(t, tables, table.ID)

	stale, err := p.SessionStore().DeleteStale(ctx, table.ID, 20)
	require.NoError(t, err)
	for _, v := range stale {
		assert.NotEqual(t, list[0].ID, v.ID)
	}

	// other tables are left alone
	stale, err = p.SessionStore().DeleteStale(ctx, utils.GenRandomID(), 51)
	require.NoError(t, err)
	assert.Empty(t, stale)

	stale, err = p.SessionStore().DeleteStale(ctx, table.ID, 51)
	require.NoError(t, err)
	ids := make([]string, 0, len(stale))
	for _, v := range stale {
		ids = append(ids, v.ID)
	}
	assert.Contains(t, ids, list[0].ID)

	tables, err = p.SessionStore().ListStaleTables(ctx, 51)
	require.NoError(t, err)
	assert.NotContains(t, tables, table.ID)
}

func testRollback(t *testing.T, p store.Provider) {
	ctx := context.Background()
	table := newTable(t, ctx, p)
	col := newColumn(t, ctx, p, table.ID, 0, "Item")
	require.NoError(t, p.CellStore().Upsert(ctx, types.Cell{TableID: table.ID, ColumnID: col.ID, RowIndex: 0, Value: "keep", UpdatedAt: 1}))

	boom := errors.New("boom")
	err := p.Transaction(ctx, func(ctx context.Context) error {
		if err := p.CellStore().ShiftRows(ctx, table.ID, 0, 1); err != nil {
			return err
		}
		if err := p.CellStore().Upsert(ctx, types.Cell{TableID: table.ID, ColumnID: col.ID, RowIndex: 0, Value: "new", UpdatedAt: 2}); err != nil {
			return err
		}
		if err := p.TableStore().SetRowCount(ctx, table.ID, 9); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, map[int64]string{0: "keep"}, cellValues(t, p, table.ID))
	got, err := p.TableStore().GetTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.RowCount)
}
