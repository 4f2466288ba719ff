package v1

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/types"
)

func assertDenseOrder(t *testing.T, c *core.Core, tableID string) []types.Column {
	columns, err := c.Store().ColumnStore().ListByTable(userCtx("test"), tableID)
	require.NoError(t, err)
	assert.Equal(t, lo.Range(len(columns)), lo.Map(columns, func(c types.Column, _ int) int {
		return int(c.OrderIndex)
	}))
	return columns
}

func TestOrderIndexDensity(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, err := NewTableLogic(ctx, c).CreateTable("t", "")
	require.NoError(t, err)

	logic := NewColumnLogic(ctx, c)
	for _, name := range []string{"a", "b", "c", "d"} {
		col, err := logic.AddColumn(table.ID, types.ColumnSpec{Name: name, Type: types.COLUMN_TYPE_TEXT})
		require.NoError(t, err)
		assert.Equal(t, name, col.Name)
	}
	columns := assertDenseOrder(t, c, table.ID)
	assert.Equal(t, []string{"a", "b", "c", "d"}, lo.Map(columns, func(c types.Column, _ int) string { return c.Name }))

	require.NoError(t, logic.DeleteColumn(table.ID, columns[1].ID))
	columns = assertDenseOrder(t, c, table.ID)
	assert.Equal(t, []string{"a", "c", "d"}, lo.Map(columns, func(c types.Column, _ int) string { return c.Name }))

	added, err := logic.AddColumn(table.ID, types.ColumnSpec{Name: "e", Type: types.COLUMN_TYPE_DATE, DateFormat: "YYYY-MM-DD"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, added.OrderIndex)

	_, err = logic.ReplaceColumns(table.ID, []types.ColumnSpec{
		{Name: "x", Type: types.COLUMN_TYPE_NUMBER},
		{Name: "y", Type: types.COLUMN_TYPE_BOOLEAN},
	})
	require.NoError(t, err)
	columns = assertDenseOrder(t, c, table.ID)
	assert.Len(t, columns, 2)
}

func TestDeleteColumnDropsCells(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, columns := createStock(t, c, ctx)

	cells := NewCellLogic(ctx, c)
	_, err := cells.UpdateCell(table.ID, columns[0].ID, 0, str("Bolt"))
	require.NoError(t, err)
	_, err = cells.UpdateCell(table.ID, columns[1].ID, 0, str("10"))
	require.NoError(t, err)

	require.NoError(t, NewColumnLogic(ctx, c).DeleteColumn(table.ID, columns[0].ID))
	snapshot, err := NewTableLogic(ctx, c).GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"10"}}, rowsOf(snapshot))

	err = NewColumnLogic(ctx, c).DeleteColumn(table.ID, columns[0].ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateColumnKeepsOrderAndCells(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, columns := createStock(t, c, ctx)

	_, err := NewCellLogic(ctx, c).UpdateCell(table.ID, columns[1].ID, 0, str("10"))
	require.NoError(t, err)

	precision := int64(10)
	updated, err := NewColumnLogic(ctx, c).UpdateColumn(table.ID, columns[1].ID, types.ColumnSpec{
		Name:      "quantity",
		Type:      types.COLUMN_TYPE_NUMBER,
		Required:  true,
		Precision: &precision,
	})
	require.NoError(t, err)
	assert.Equal(t, "quantity", updated.Name)
	assert.EqualValues(t, 1, updated.OrderIndex)

	snapshot, err := NewTableLogic(ctx, c).GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.Equal(t, "quantity", snapshot.Columns[1].Name)
	assert.True(t, snapshot.Columns[1].Required)
	assert.Equal(t, [][]any{{nil, "10"}}, rowsOf(snapshot))

	_, err = NewColumnLogic(ctx, c).UpdateColumn(table.ID, "missing", types.ColumnSpec{Name: "a", Type: types.COLUMN_TYPE_TEXT})
	assert.True(t, errors.IsNotFound(err))
	_, err = NewColumnLogic(ctx, c).UpdateColumn(table.ID, columns[1].ID, types.ColumnSpec{Name: "", Type: types.COLUMN_TYPE_TEXT})
	assert.True(t, errors.IsValidation(err))
}
