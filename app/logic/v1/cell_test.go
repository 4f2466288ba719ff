package v1

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/errors"
)

type position struct {
	column string
	row    int64
	value  string
}

func cellSet(t *testing.T, c *core.Core, ctx context.Context, tableID string) []position {
	cells, err := c.Store().CellStore().ListByTable(ctx, tableID)
	require.NoError(t, err)
	res := make([]position, 0, len(cells))
	for _, cell := range cells {
		res = append(res, position{column: cell.ColumnID, row: cell.RowIndex, value: cell.Value})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].row != res[j].row {
			return res[i].row < res[j].row
		}
		return res[i].column < res[j].column
	})
	return res
}

func TestInsertRowShiftsCells(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, columns := createStock(t, c, ctx)

	logic := NewCellLogic(ctx, c)
	for _, row := range []int64{0, 1, 3, 4} {
		_, err := logic.UpdateCell(table.ID, columns[row%2].ID, row, str(lo.RandomString(6, lo.LettersCharset)))
		require.NoError(t, err)
	}
	before := cellSet(t, c, ctx, table.ID)

	const k = 2
	require.NoError(t, logic.InsertRow(table.ID, k))
	after := cellSet(t, c, ctx, table.ID)
	require.Len(t, after, len(before))

	for i, p := range before {
		want := p
		if p.row >= k {
			want.row++
		}
		assert.Equal(t, want, after[i])
	}

	// deleting the inserted row is the inverse
	require.NoError(t, logic.DeleteRow(table.ID, k))
	assert.Equal(t, before, cellSet(t, c, ctx, table.ID))
}

func TestConcurrentInsertRow(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, columns := createStock(t, c, ctx)

	const rows, writers = 20, 50
	for i := 0; i < rows; i++ {
		_, err := NewCellLogic(ctx, c).UpdateCell(table.ID, columns[0].ID, int64(i), str(fmt.Sprintf("r-%d", i)))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			assert.NoError(t, NewCellLogic(userCtx(user), c).InsertRow(table.ID, 0))
		}(fmt.Sprintf("user-%d", i))
	}
	wg.Wait()

	snapshot, err := NewTableLogic(ctx, c).GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.EqualValues(t, rows+writers, snapshot.Table.RowCount)
	require.Len(t, snapshot.Data, rows+writers)
	for i, row := range rowsOf(snapshot) {
		if i < writers {
			assert.Equal(t, []any{nil, nil}, row, "row %d", i)
			continue
		}
		assert.Equal(t, []any{fmt.Sprintf("r-%d", i-writers), nil}, row, "row %d", i)
	}
}

func TestDeleteRowRemovesOnlyThatRow(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, columns := createStock(t, c, ctx)

	logic := NewCellLogic(ctx, c)
	for row, v := range []string{"a", "b", "c"} {
		_, err := logic.UpdateCell(table.ID, columns[0].ID, int64(row), str(v))
		require.NoError(t, err)
	}

	require.NoError(t, logic.DeleteRow(table.ID, 1))
	snapshot, err := NewTableLogic(ctx, c).GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"a", nil}, {"c", nil}}, rowsOf(snapshot))
	assert.EqualValues(t, 2, snapshot.Table.RowCount)

	// past the extent nothing moves
	require.NoError(t, logic.DeleteRow(table.ID, 10))
	snapshot, err = NewTableLogic(ctx, c).GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.Len(t, snapshot.Data, 2)
}

func TestInsertRowPastExtent(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, _ := createStock(t, c, ctx)

	require.NoError(t, NewCellLogic(ctx, c).InsertRow(table.ID, 3))
	snapshot, err := NewTableLogic(ctx, c).GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.Len(t, snapshot.Data, 4)
}

func TestUpdateCellOverwriteAndClear(t *testing.T) {
	c := newCore(t)
	table, columns := createStock(t, c, userCtx("alice"))

	_, err := NewCellLogic(userCtx("alice"), c).UpdateCell(table.ID, columns[0].ID, 0, str("Bolt"))
	require.NoError(t, err)
	change, err := NewCellLogic(userCtx("bob"), c).UpdateCell(table.ID, columns[0].ID, 0, str("Nut"))
	require.NoError(t, err)
	assert.Equal(t, "Nut", *change.Value)

	cell, err := c.Store().CellStore().Get(context.Background(), table.ID, columns[0].ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Nut", cell.Value)
	assert.Equal(t, "bob", cell.UpdatedBy)

	_, err = NewCellLogic(userCtx("bob"), c).UpdateCell(table.ID, columns[0].ID, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, cellSet(t, c, context.Background(), table.ID))
}

func TestCellValidation(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, columns := createStock(t, c, ctx)
	logic := NewCellLogic(ctx, c)

	_, err := logic.UpdateCell(table.ID, columns[0].ID, -1, str("x"))
	assert.True(t, errors.IsValidation(err))
	assert.True(t, errors.IsValidation(logic.InsertRow(table.ID, -1)))
	assert.True(t, errors.IsValidation(logic.DeleteRow(table.ID, -2)))

	_, err = logic.UpdateCell(table.ID, "missing", 0, str("x"))
	assert.True(t, errors.IsNotFound(err))
	_, err = logic.UpdateCell("missing", columns[0].ID, 0, str("x"))
	assert.True(t, errors.IsNotFound(err))

	_, err = logic.ReplaceCells(table.ID, [][]*string{{str("a"), str("b"), str("c")}})
	assert.True(t, errors.IsValidation(err))

	assert.Empty(t, cellSet(t, c, ctx, table.ID))
}
