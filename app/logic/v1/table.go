package v1

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/i18n"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/types/protocol"
	"github.com/quka-ai/livetable/pkg/utils"
)

type TableLogic struct {
	ctx  context.Context
	core *core.Core
	UserInfo
}

func NewTableLogic(ctx context.Context, core *core.Core) *TableLogic {
	l := &TableLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}

	return l
}

func (l *TableLogic) CreateTable(name, desc string) (*types.Table, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("TableLogic.CreateTable", i18n.ERROR_NAME_EMPTY, nil)
	}

	now := time.Now().Unix()
	editor := l.Editor()
	table := types.Table{
		ID:          utils.GenSpecIDStr(),
		Name:        name,
		Description: desc,
		CreatedBy:   editor,
		CreatedAt:   now,
		UpdatedAt:   now,
		UpdatedBy:   editor,
	}

	if err := l.core.Store().TableStore().Create(l.ctx, table); err != nil {
		return nil, errors.New("TableLogic.CreateTable.TableStore.Create", i18n.ERROR_INTERNAL, err)
	}
	return &table, nil
}

func (l *TableLogic) GetTable(id string) (*types.Table, error) {
	table, err := l.core.Store().TableStore().GetTable(l.ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("TableLogic.GetTable.TableStore.GetTable", i18n.ERROR_TABLE_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("TableLogic.GetTable.TableStore.GetTable", i18n.ERROR_INTERNAL, err)
	}
	return table, nil
}

// ListTables returns every table, visibility is decided upstream. pageSize 0 lists all.
func (l *TableLogic) ListTables(page, pageSize uint64) ([]types.Table, error) {
	list, err := l.core.Store().TableStore().List(l.ctx, page, pageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("TableLogic.ListTables.TableStore.List", i18n.ERROR_INTERNAL, err)
	}
	if list == nil {
		list = []types.Table{}
	}
	return list, nil
}

func (l *TableLogic) RenameTable(id, name, desc string) (*types.Table, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("TableLogic.RenameTable", i18n.ERROR_NAME_EMPTY, nil)
	}

	var result types.Table
	editor := l.Editor()
	err := applyMutation(l.ctx, l.core, editor, protocol.OP_TABLE_UPDATE, id, func(ctx context.Context, table *types.Table, now int64) (any, error) {
		if err := l.core.Store().TableStore().Update(ctx, id, name, desc, editor, now); err != nil {
			return nil, errors.New("TableLogic.RenameTable.TableStore.Update", i18n.ERROR_INTERNAL, err)
		}
		result = *table
		result.Name = name
		result.Description = desc
		result.UpdatedAt = now
		result.UpdatedBy = editor
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteTable removes the table with everything it owns: sessions, cells, columns, then the table itself.
func (l *TableLogic) DeleteTable(id string) error {
	return applyMutation(l.ctx, l.core, l.Editor(), protocol.OP_TABLE_DELETE, id, func(ctx context.Context, table *types.Table, now int64) (any, error) {
		if err := l.core.Store().SessionStore().DeleteAll(ctx, id); err != nil {
			return nil, errors.New("TableLogic.DeleteTable.SessionStore.DeleteAll", i18n.ERROR_INTERNAL, err)
		}
		if err := l.core.Store().CellStore().DeleteAll(ctx, id); err != nil {
			return nil, errors.New("TableLogic.DeleteTable.CellStore.DeleteAll", i18n.ERROR_INTERNAL, err)
		}
		if err := l.core.Store().ColumnStore().DeleteAll(ctx, id); err != nil {
			return nil, errors.New("TableLogic.DeleteTable.ColumnStore.DeleteAll", i18n.ERROR_INTERNAL, err)
		}
		if err := l.core.Store().TableStore().Delete(ctx, id); err != nil {
			return nil, errors.New("TableLogic.DeleteTable.TableStore.Delete", i18n.ERROR_INTERNAL, err)
		}
		return nil, nil
	})
}

// GetSnapshot reads under the table lock so the view never interleaves with a structural change.
func (l *TableLogic) GetSnapshot(id string) (*types.Snapshot, error) {
	unlock := l.core.Srv().Locker().Lock(id)
	defer unlock()

	var snapshot *types.Snapshot
	err := l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		table, err := l.core.Store().TableStore().GetTable(ctx, id)
		if err != nil {
			if err == sql.ErrNoRows {
				return errors.New("TableLogic.GetSnapshot.TableStore.GetTable", i18n.ERROR_TABLE_NOT_FOUND, err).Code(http.StatusNotFound)
			}
			return errors.New("TableLogic.GetSnapshot.TableStore.GetTable", i18n.ERROR_INTERNAL, err)
		}
		snapshot, err = assembleSnapshot(ctx, l.core, table)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

type ReplaceTableRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Columns     []types.ColumnSpec `json:"columns"`
	Data        [][]*string        `json:"data"`
}

// ReplaceTable declares the new shape and content of a table: metadata, then replaceColumns,
// then replaceCells, all in one transaction. It returns the resulting snapshot.
func (l *TableLogic) ReplaceTable(id string, req ReplaceTableRequest) (*types.Snapshot, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, validationError("TableLogic.ReplaceTable", i18n.ERROR_NAME_EMPTY, nil)
	}
	if err := validateColumnSpecs("TableLogic.ReplaceTable", req.Columns); err != nil {
		return nil, err
	}
	if err := validateDenseRows("TableLogic.ReplaceTable", req.Data, len(req.Columns)); err != nil {
		return nil, err
	}

	var snapshot *types.Snapshot
	editor := l.Editor()
	err := applyMutation(l.ctx, l.core, editor, protocol.OP_TABLE_REPLACE, id, func(ctx context.Context, table *types.Table, now int64) (any, error) {
		if err := l.core.Store().TableStore().Update(ctx, id, req.Name, req.Description, editor, now); err != nil {
			return nil, errors.New("TableLogic.ReplaceTable.TableStore.Update", i18n.ERROR_INTERNAL, err)
		}
		if _, err := replaceColumns(ctx, l.core, id, req.Columns, now); err != nil {
			return nil, err
		}
		if err := replaceCells(ctx, l.core, id, req.Data, editor, now); err != nil {
			return nil, err
		}

		table.Name = req.Name
		table.Description = req.Description
		table.RowCount = int64(len(req.Data))
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

func validateColumnSpecs(trace string, specs []types.ColumnSpec) error {
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return validationError(trace, i18n.ERROR_COLUMN_SPEC_INVALID, err).WithData(map[string]interface{}{
				"column": spec.Name,
			})
		}
	}
	return nil
}

func validateDenseRows(trace string, rows [][]*string, columns int) error {
	if _, idx, found := lo.FindIndexOf(rows, func(row []*string) bool {
		return len(row) > columns
	}); found {
		return validationError(trace, i18n.ERROR_COLUMN_COUNT_MISMATCH, nil).WithData(map[string]interface{}{
			"row_index": idx,
		})
	}
	return nil
}
