package v1

import (
	"context"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/i18n"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/types/protocol"
)

// 单元格写入为 last-writer-wins，没有版本校验
type CellLogic struct {
	ctx  context.Context
	core *core.Core
	UserInfo
}

func NewCellLogic(ctx context.Context, core *core.Core) *CellLogic {
	l := &CellLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}

	return l
}

func checkRowIndex(trace string, rowIndex int64) error {
	if rowIndex < 0 {
		return validationError(trace, i18n.ERROR_ROW_INDEX_INVALID, nil).WithData(map[string]interface{}{
			"row_index": rowIndex,
		})
	}
	return nil
}

// UpdateCell upserts the value at (column, row). A nil value clears the cell.
func (l *CellLogic) UpdateCell(tableID, columnID string, rowIndex int64, value *string) (*protocol.CellChange, error) {
	if err := checkRowIndex("CellLogic.UpdateCell", rowIndex); err != nil {
		return nil, err
	}

	editor := l.Editor()
	change := protocol.CellChange{
		ColumnID: columnID,
		RowIndex: rowIndex,
		Value:    value,
	}
	err := applyMutation(l.ctx, l.core, editor, protocol.OP_CELL_UPDATE, tableID, func(ctx context.Context, table *types.Table, now int64) (any, error) {
		if _, err := getColumn(ctx, l.core, tableID, columnID); err != nil {
			return nil, err
		}

		if value == nil {
			if err := l.core.Store().CellStore().Delete(ctx, tableID, columnID, rowIndex); err != nil {
				return nil, errors.New("CellLogic.UpdateCell.CellStore.Delete", i18n.ERROR_INTERNAL, err)
			}
			return change, nil
		}

		err := l.core.Store().CellStore().Upsert(ctx, types.Cell{
			TableID:   tableID,
			ColumnID:  columnID,
			RowIndex:  rowIndex,
			Value:     *value,
			UpdatedAt: now,
			UpdatedBy: editor,
		})
		if err != nil {
			return nil, errors.New("CellLogic.UpdateCell.CellStore.Upsert", i18n.ERROR_INTERNAL, err)
		}

		if rowIndex >= table.RowCount {
			if err = l.core.Store().TableStore().SetRowCount(ctx, tableID, rowIndex+1); err != nil {
				return nil, errors.New("CellLogic.UpdateCell.TableStore.SetRowCount", i18n.ERROR_INTERNAL, err)
			}
		}
		return change, nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// InsertRow moves every cell at or below rowIndex one row down. The new row starts empty.
func (l *CellLogic) InsertRow(tableID string, rowIndex int64) error {
	if err := checkRowIndex("CellLogic.InsertRow", rowIndex); err != nil {
		return err
	}

	return applyMutation(l.ctx, l.core, l.Editor(), protocol.OP_ROW_INSERT, tableID, func(ctx context.Context, table *types.Table, now int64) (any, error) {
		if err := l.core.Store().CellStore().ShiftRows(ctx, tableID, rowIndex, 1); err != nil {
			return nil, errors.New("CellLogic.InsertRow.CellStore.ShiftRows", i18n.ERROR_INTERNAL, err)
		}
		if err := l.core.Store().TableStore().SetRowCount(ctx, tableID, max(table.RowCount, rowIndex)+1); err != nil {
			return nil, errors.New("CellLogic.InsertRow.TableStore.SetRowCount", i18n.ERROR_INTERNAL, err)
		}
		return protocol.RowPayload{RowIndex: rowIndex}, nil
	})
}

// DeleteRow removes the cells of rowIndex and moves every later cell one row up.
func (l *CellLogic) DeleteRow(tableID string, rowIndex int64) error {
	if err := checkRowIndex("CellLogic.DeleteRow", rowIndex); err != nil {
		return err
	}

	return applyMutation(l.ctx, l.core, l.Editor(), protocol.OP_ROW_DELETE, tableID, func(ctx context.Context, table *types.Table, now int64) (any, error) {
		if err := l.core.Store().CellStore().DeleteRow(ctx, tableID, rowIndex); err != nil {
			return nil, errors.New("CellLogic.DeleteRow.CellStore.DeleteRow", i18n.ERROR_INTERNAL, err)
		}
		if err := l.core.Store().CellStore().ShiftRows(ctx, tableID, rowIndex+1, -1); err != nil {
			return nil, errors.New("CellLogic.DeleteRow.CellStore.ShiftRows", i18n.ERROR_INTERNAL, err)
		}
		if rowIndex < table.RowCount {
			if err := l.core.Store().TableStore().SetRowCount(ctx, tableID, table.RowCount-1); err != nil {
				return nil, errors.New("CellLogic.DeleteRow.TableStore.SetRowCount", i18n.ERROR_INTERNAL, err)
			}
		}
		return protocol.RowPayload{RowIndex: rowIndex}, nil
	})
}

// ReplaceCells drops every cell of the table and writes the dense rows positionally against
// the current column order. Run it after ReplaceColumns when the shape changes too.
func (l *CellLogic) ReplaceCells(tableID string, rows [][]*string) (*types.Snapshot, error) {
	var snapshot *types.Snapshot
	editor := l.Editor()
	err := applyMutation(l.ctx, l.core, editor, protocol.OP_TABLE_REPLACE, tableID, func(ctx context.Context, table *types.Table, now int64) (any, error) {
		if err := replaceCells(ctx, l.core, tableID, rows, editor, now); err != nil {
			return nil, err
		}
		table.RowCount = int64(len(rows))
		table.UpdatedAt = now
		table.UpdatedBy = editor

		var err error
		if snapshot, err = assembleSnapshot(ctx, l.core, table); err != nil {
			return nil, err
		}
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func replaceCells(ctx context.Context, core *core.Core, tableID string, rows [][]*string, editor string, now int64) error {
	columns, err := core.Store().ColumnStore().ListByTable(ctx, tableID)
	if err != nil {
		return errors.New("replaceCells.ColumnStore.ListByTable", i18n.ERROR_INTERNAL, err)
	}
	if err = validateDenseRows("replaceCells", rows, len(columns)); err != nil {
		return err
	}

	if err = core.Store().CellStore().DeleteAll(ctx, tableID); err != nil {
		return errors.New("replaceCells.CellStore.DeleteAll", i18n.ERROR_INTERNAL, err)
	}

	var cells []types.Cell
	for rowIndex, row := range rows {
		for pos, value := range row {
			if value == nil {
				continue
			}
			cells = append(cells, types.Cell{
				TableID:   tableID,
				ColumnID:  columns[pos].ID,
				RowIndex:  int64(rowIndex),
				Value:     *value,
				UpdatedAt: now,
				UpdatedBy: editor,
			})
		}
	}
	if len(cells) > 0 {
		if err = core.Store().CellStore().BatchCreate(ctx, cells); err != nil {
			return errors.New("replaceCells.CellStore.BatchCreate", i18n.ERROR_INTERNAL, err)
		}
	}

	if err = core.Store().TableStore().SetRowCount(ctx, tableID, int64(len(rows))); err != nil {
		return errors.New("replaceCells.TableStore.SetRowCount", i18n.ERROR_INTERNAL, err)
	}
	return nil
}
