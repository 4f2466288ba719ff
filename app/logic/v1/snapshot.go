package v1

import (
	"context"

	"github.com/samber/lo"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/i18n"
	"github.com/quka-ai/livetable/pkg/types"
)

// assembleSnapshot materializes the dense view of a table from its sparse cells.
// Row count is max(table.RowCount, highest cell row + 1), so trailing empty rows survive.
func assembleSnapshot(ctx context.Context, core *core.Core, table *types.Table) (*types.Snapshot, error) {
	columns, err := core.Store().ColumnStore().ListByTable(ctx, table.ID)
	if err != nil {
		return nil, errors.New("assembleSnapshot.ColumnStore.ListByTable", i18n.ERROR_INTERNAL, err)
	}
	cells, err := core.Store().CellStore().ListByTable(ctx, table.ID)
	if err != nil {
		return nil, errors.New("assembleSnapshot.CellStore.ListByTable", i18n.ERROR_INTERNAL, err)
	}

	position := make(map[string]int, len(columns))
	for i, c := range columns {
		position[c.ID] = i
	}

	rows := table.RowCount
	if len(cells) > 0 {
		rows = max(rows, lo.MaxBy(cells, func(a, b types.Cell) bool {
			return a.RowIndex > b.RowIndex
		}).RowIndex+1)
	}

	data := make([][]*string, rows)
	for i := range data {
		data[i] = make([]*string, len(columns))
	}
	for _, cell := range cells {
		pos, ok := position[cell.ColumnID]
		if !ok {
			continue
		}
		data[cell.RowIndex][pos] = lo.ToPtr(cell.Value)
	}

	if columns == nil {
		columns = []types.Column{}
	}
	return &types.Snapshot{
		Table:   *table,
		Columns: columns,
		Data:    data,
	}, nil
}
