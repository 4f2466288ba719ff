package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/types/protocol"
)

func TestStockScenario(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, columns := createStock(t, c, ctx)

	cells := NewCellLogic(ctx, c)
	_, err := cells.UpdateCell(table.ID, columns[0].ID, 0, str("Bolt"))
	require.NoError(t, err)
	_, err = cells.UpdateCell(table.ID, columns[1].ID, 0, str("10"))
	require.NoError(t, err)

	require.NoError(t, cells.InsertRow(table.ID, 0))
	snapshot, err := NewTableLogic(ctx, c).GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{nil, nil}, {"Bolt", "10"}}, rowsOf(snapshot))

	require.NoError(t, cells.DeleteRow(table.ID, 0))
	snapshot, err = NewTableLogic(ctx, c).GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"Bolt", "10"}}, rowsOf(snapshot))
	assert.Equal(t, "alice", snapshot.Table.UpdatedBy)
}

func TestCreateTableValidation(t *testing.T) {
	c := newCore(t)
	_, err := NewTableLogic(userCtx("alice"), c).CreateTable("  ", "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestTableNotFound(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	logic := NewTableLogic(ctx, c)

	_, err := logic.GetTable("missing")
	assert.True(t, errors.IsNotFound(err))
	_, err = logic.GetSnapshot("missing")
	assert.True(t, errors.IsNotFound(err))
	_, err = logic.RenameTable("missing", "x", "")
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(logic.DeleteTable("missing")))
	assert.True(t, errors.IsNotFound(NewCellLogic(ctx, c).InsertRow("missing", 0)))
	_, err = NewColumnLogic(ctx, c).AddColumn("missing", types.ColumnSpec{Name: "a", Type: types.COLUMN_TYPE_TEXT})
	assert.True(t, errors.IsNotFound(err))
}

func TestRenameAndList(t *testing.T) {
	c := newCore(t)
	logic := NewTableLogic(userCtx("alice"), c)

	first, err := logic.CreateTable("first", "")
	require.NoError(t, err)
	_, err = logic.CreateTable("second", "")
	require.NoError(t, err)

	renamed, err := NewTableLogic(userCtx("bob"), c).RenameTable(first.ID, "renamed", "desc")
	require.NoError(t, err)
	assert.Equal(t, "renamed", renamed.Name)
	assert.Equal(t, "bob", renamed.UpdatedBy)
	assert.Equal(t, "alice", renamed.CreatedBy)

	list, err := logic.ListTables(0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := logic.GetTable(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "desc", got.Description)
}

func TestDeleteTableCascade(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, columns := createStock(t, c, ctx)

	_, err := NewCellLogic(ctx, c).UpdateCell(table.ID, columns[0].ID, 3, str("x"))
	require.NoError(t, err)
	_, err = NewPresenceLogic(ctx, c).Join(table.ID, nil)
	require.NoError(t, err)

	require.NoError(t, NewTableLogic(ctx, c).DeleteTable(table.ID))

	cols, err := c.Store().ColumnStore().ListByTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Empty(t, cols)
	cells, err := c.Store().CellStore().ListByTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Empty(t, cells)
	sessions, err := c.Store().SessionStore().ListByTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = NewTableLogic(ctx, c).GetTable(table.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, columns := createStock(t, c, ctx)

	cells := NewCellLogic(ctx, c)
	_, err := cells.UpdateCell(table.ID, columns[0].ID, 0, str("Bolt"))
	require.NoError(t, err)
	_, err = cells.UpdateCell(table.ID, columns[1].ID, 2, str("7"))
	require.NoError(t, err)

	original, err := NewTableLogic(ctx, c).GetSnapshot(table.ID)
	require.NoError(t, err)

	fresh, err := NewTableLogic(ctx, c).CreateTable("copy", "")
	require.NoError(t, err)
	specs := make([]types.ColumnSpec, 0, len(original.Columns))
	for _, col := range original.Columns {
		specs = append(specs, col.Spec())
	}
	_, err = NewColumnLogic(ctx, c).ReplaceColumns(fresh.ID, specs)
	require.NoError(t, err)
	copied, err := NewCellLogic(ctx, c).ReplaceCells(fresh.ID, original.Data)
	require.NoError(t, err)

	assert.Equal(t, original.Data, copied.Data)
	assert.Equal(t, specs[0], copied.Columns[0].Spec())
	assert.Equal(t, specs[1], copied.Columns[1].Spec())
}

func TestTrailingEmptyRowsSurvive(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, _ := createStock(t, c, ctx)

	snapshot, err := NewCellLogic(ctx, c).ReplaceCells(table.ID, [][]*string{
		{str("a"), nil},
		{nil, nil},
		{nil, nil},
	})
	require.NoError(t, err)
	assert.Len(t, snapshot.Data, 3)

	snapshot, err = NewTableLogic(ctx, c).GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"a", nil}, {nil, nil}, {nil, nil}}, rowsOf(snapshot))
	assert.EqualValues(t, 3, snapshot.Table.RowCount)
}

func TestEmptyTableSnapshot(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, err := NewTableLogic(ctx, c).CreateTable("empty", "")
	require.NoError(t, err)

	snapshot, err := NewTableLogic(ctx, c).GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.NotNil(t, snapshot.Data)
	assert.Empty(t, snapshot.Data)
	assert.Empty(t, snapshot.Columns)
}

func TestReplaceTable(t *testing.T) {
	c := newCore(t)
	ctx := userCtx("alice")
	table, _ := createStock(t, c, ctx)

	logic := NewTableLogic(ctx, c)
	snapshot, err := logic.ReplaceTable(table.ID, ReplaceTableRequest{
		Name:        "Parts",
		Description: "v2",
		Columns: []types.ColumnSpec{
			{Name: "sku", Type: types.COLUMN_TYPE_TEXT},
			{Name: "price", Type: types.COLUMN_TYPE_NUMBER},
			{Name: "active", Type: types.COLUMN_TYPE_BOOLEAN},
		},
		Data: [][]*string{
			{str("A-1"), str("1.5")},
			{str("A-2"), nil, str("true")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Parts", snapshot.Table.Name)
	assert.Equal(t, [][]any{{"A-1", "1.5", nil}, {"A-2", nil, "true"}}, rowsOf(snapshot))
	for i, col := range snapshot.Columns {
		assert.EqualValues(t, i, col.OrderIndex)
	}

	_, err = logic.ReplaceTable(table.ID, ReplaceTableRequest{
		Name:    "Parts",
		Columns: []types.ColumnSpec{{Name: "sku", Type: types.COLUMN_TYPE_TEXT}},
		Data:    [][]*string{{str("a"), str("b")}},
	})
	assert.True(t, errors.IsValidation(err))

	_, err = logic.ReplaceTable(table.ID, ReplaceTableRequest{
		Name:    "Parts",
		Columns: []types.ColumnSpec{{Name: "sku", Type: "money"}},
	})
	assert.True(t, errors.IsValidation(err))

	// rejected requests leave the table unchanged
	after, err := logic.GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.Equal(t, rowsOf(snapshot), rowsOf(after))
}

func TestReplaceStampsEditor(t *testing.T) {
	c := newCore(t)
	table, _ := createStock(t, c, userCtx("alice"))

	a := newRecorder("conn-a", "alice")
	_, err := NewPresenceLogic(connCtx("alice", a), c).Join(table.ID, a)
	require.NoError(t, err)
	a.reset()

	_, err = NewColumnLogic(userCtx("bob"), c).ReplaceColumns(table.ID, []types.ColumnSpec{{Name: "sku", Type: types.COLUMN_TYPE_TEXT}})
	require.NoError(t, err)
	replaced := a.ofType(protocol.OP_TABLE_REPLACE)
	require.Len(t, replaced, 1)
	broadcast, err := protocol.DecodePayload[types.Snapshot](replaced[0])
	require.NoError(t, err)
	assert.Equal(t, "bob", broadcast.Table.UpdatedBy)
	assert.GreaterOrEqual(t, broadcast.Table.UpdatedAt, table.UpdatedAt)

	snapshot, err := NewCellLogic(userCtx("carol"), c).ReplaceCells(table.ID, [][]*string{{str("A-1")}})
	require.NoError(t, err)
	assert.Equal(t, "carol", snapshot.Table.UpdatedBy)
	assert.GreaterOrEqual(t, snapshot.Table.UpdatedAt, broadcast.Table.UpdatedAt)

	stored, err := NewTableLogic(userCtx("alice"), c).GetSnapshot(table.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Table.UpdatedBy, stored.Table.UpdatedBy)
	assert.Equal(t, snapshot.Table.UpdatedAt, stored.Table.UpdatedAt)
}
