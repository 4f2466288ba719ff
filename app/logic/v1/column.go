package v1

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/i18n"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/types/protocol"
	"github.com/quka-ai/livetable/pkg/utils"
)

type ColumnLogic struct {
	ctx  context.Context
	core *core.Core
	UserInfo
}

func NewColumnLogic(ctx context.Context, core *core.Core) *ColumnLogic {
	l := &ColumnLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}

	return l
}

// AddColumn appends the column after the current last one, existing columns keep their order.
func (l *ColumnLogic) AddColumn(tableID string, spec types.ColumnSpec) (*types.Column, error) {
	if err := validateColumnSpecs("ColumnLogic.AddColumn", []types.ColumnSpec{spec}); err != nil {
		return nil, err
	}

	var column types.Column
	err := applyMutation(l.ctx, l.core, l.Editor(), protocol.OP_COLUMN_ADD, tableID, func(ctx context.Context, table *types.Table, now int64) (any, error) {
		maxIdx, err := l.core.Store().ColumnStore().MaxOrderIndex(ctx, tableID)
		if err != nil {
			return nil, errors.New("ColumnLogic.AddColumn.ColumnStore.MaxOrderIndex", i18n.ERROR_INTERNAL, err)
		}

		column = newColumn(tableID, spec, maxIdx+1, now)
		if err = l.core.Store().ColumnStore().Create(ctx, column); err != nil {
			return nil, errors.New("ColumnLogic.AddColumn.ColumnStore.Create", i18n.ERROR_INTERNAL, err)
		}
		return column, nil
	})
	if err != nil {
		return nil, err
	}
	return &column, nil
}

// UpdateColumn rewrites the column metadata in place. Order index and cell values are untouched,
// existing values are not coerced to a new type.
func (l *ColumnLogic) UpdateColumn(tableID, columnID string, spec types.ColumnSpec) (*types.Column, error) {
	if err := validateColumnSpecs("ColumnLogic.UpdateColumn", []types.ColumnSpec{spec}); err != nil {
		return nil, err
	}

	var column *types.Column
	err := applyMutation(l.ctx, l.core, l.Editor(), protocol.OP_COLUMN_UPDATE, tableID, func(ctx context.Context, table *types.Table, now int64) (any, error) {
		var err error
		if column, err = getColumn(ctx, l.core, tableID, columnID); err != nil {
			return nil, err
		}
		if err = l.core.Store().ColumnStore().Update(ctx, tableID, columnID, spec, now); err != nil {
			return nil, errors.New("ColumnLogic.UpdateColumn.ColumnStore.Update", i18n.ERROR_INTERNAL, err)
		}
		column.ApplySpec(spec)
		column.UpdatedAt = now
		return column, nil
	})
	if err != nil {
		return nil, err
	}
	return column, nil
}

// DeleteColumn drops the column with its cells and closes the gap in the order indices.
func (l *ColumnLogic) DeleteColumn(tableID, columnID string) error {
	return applyMutation(l.ctx, l.core, l.Editor(), protocol.OP_COLUMN_DELETE, tableID, func(ctx context.Context, table *types.Table, now int64) (any, error) {
		column, err := getColumn(ctx, l.core, tableID, columnID)
		if err != nil {
			return nil, err
		}
		if err = l.core.Store().CellStore().DeleteByColumn(ctx, tableID, columnID); err != nil {
			return nil, errors.New("ColumnLogic.DeleteColumn.CellStore.DeleteByColumn", i18n.ERROR_INTERNAL, err)
		}
		if err = l.core.Store().ColumnStore().Delete(ctx, tableID, columnID); err != nil {
			return nil, errors.New("ColumnLogic.DeleteColumn.ColumnStore.Delete", i18n.ERROR_INTERNAL, err)
		}
		if err = l.core.Store().ColumnStore().ShiftOrder(ctx, tableID, column.OrderIndex, -1); err != nil {
			return nil, errors.New("ColumnLogic.DeleteColumn.ColumnStore.ShiftOrder", i18n.ERROR_INTERNAL, err)
		}
		return protocol.ColumnDeletePayload{ColumnID: columnID}, nil
	})
}

// ReplaceColumns drops every column of the table, cells included, and recreates them in the given order.
func (l *ColumnLogic) ReplaceColumns(tableID string, specs []types.ColumnSpec) ([]types.Column, error) {
	if err := validateColumnSpecs("ColumnLogic.ReplaceColumns", specs); err != nil {
		return nil, err
	}

	var snapshot *types.Snapshot
	editor := l.Editor()
	err := applyMutation(l.ctx, l.core, editor, protocol.OP_TABLE_REPLACE, tableID, func(ctx context.Context, table *types.Table, now int64) (any, error) {
		if _, err := replaceColumns(ctx, l.core, tableID, specs, now); err != nil {
			return nil, err
		}
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
	return snapshot.Columns, nil
}

func replaceColumns(ctx context.Context, core *core.Core, tableID string, specs []types.ColumnSpec, now int64) ([]types.Column, error) {
	if err := core.Store().CellStore().DeleteAll(ctx, tableID); err != nil {
		return nil, errors.New("replaceColumns.CellStore.DeleteAll", i18n.ERROR_INTERNAL, err)
	}
	if err := core.Store().ColumnStore().DeleteAll(ctx, tableID); err != nil {
		return nil, errors.New("replaceColumns.ColumnStore.DeleteAll", i18n.ERROR_INTERNAL, err)
	}

	columns := make([]types.Column, 0, len(specs))
	for i, spec := range specs {
		column := newColumn(tableID, spec, int64(i), now)
		if err := core.Store().ColumnStore().Create(ctx, column); err != nil {
			return nil, errors.New("replaceColumns.ColumnStore.Create", i18n.ERROR_INTERNAL, err)
		}
		columns = append(columns, column)
	}
	return columns, nil
}

func newColumn(tableID string, spec types.ColumnSpec, orderIndex, now int64) types.Column {
	column := types.Column{
		ID:         utils.GenSpecIDStr(),
		TableID:    tableID,
		OrderIndex: orderIndex,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	column.ApplySpec(spec)
	return column
}

func getColumn(ctx context.Context, core *core.Core, tableID, columnID string) (*types.Column, error) {
	column, err := core.Store().ColumnStore().Get(ctx, tableID, columnID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("getColumn.ColumnStore.Get", i18n.ERROR_COLUMN_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("getColumn.ColumnStore.Get", i18n.ERROR_INTERNAL, err)
	}
	return column, nil
}
