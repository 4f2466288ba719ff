package sqlstore

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/quka-ai/livetable/pkg/register"
	"github.com/quka-ai/livetable/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.CellStore = NewCellStore(provider)
	})
}

// 单次批量插入的最大行数，避免超过 postgres 参数上限
const cellBatchSize = 1000

type CellStore struct {
	CommonFields
}

func NewCellStore(provider SqlProviderAchieve) *CellStore {
	repo := &CellStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CELL)
	repo.SetAllColumns("table_id", "column_id", "row_index", "value", "updated_at", "updated_by")
	return repo
}

// Upsert updates the cell in place and inserts it when absent.
// ON CONFLICT cannot target the deferrable position constraint, callers hold the table row lock.
func (s *CellStore) Upsert(ctx context.Context, data types.Cell) error {
	update := sq.Update(s.GetTable()).
		Set("value", data.Value).
		Set("updated_at", data.UpdatedAt).
		Set("updated_by", data.UpdatedBy).
		Where(sq.Eq{"table_id": data.TableID, "column_id": data.ColumnID, "row_index": data.RowIndex})

	affected, err := exec(ctx, &s.CommonFields, update)
	if err != nil || affected > 0 {
		return err
	}

	return s.BatchCreate(ctx, []types.Cell{data})
}

func (s *CellStore) BatchCreate(ctx context.Context, data []types.Cell) error {
	for start := 0; start < len(data); start += cellBatchSize {
		end := min(start+cellBatchSize, len(data))
		query := sq.Insert(s.GetTable()).Columns(s.GetAllColumns()...)
		for _, v := range data[start:end] {
			query = query.Values(v.TableID, v.ColumnID, v.RowIndex, v.Value, v.UpdatedAt, v.UpdatedBy)
		}
		if _, err := exec(ctx, &s.CommonFields, query); err != nil {
			return err
		}
	}
	return nil
}

func (s *CellStore) Get(ctx context.Context, tableID, columnID string, rowIndex int64) (*types.Cell, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"table_id": tableID, "column_id": columnID, "row_index": rowIndex})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Cell
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *CellStore) ListByTable(ctx context.Context, tableID string) ([]types.Cell, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"table_id": tableID}).
		OrderBy("row_index", "column_id")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.Cell
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *CellStore) MaxRowIndex(ctx context.Context, tableID string) (int64, error) {
	query := sq.Select("MAX(row_index)").From(s.GetTable()).Where(sq.Eq{"table_id": tableID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var res sql.NullInt64
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return 0, err
	}
	if !res.Valid {
		return -1, nil
	}
	return res.Int64, nil
}

// ShiftRows relies on the position constraint being checked at statement end.
func (s *CellStore) ShiftRows(ctx context.Context, tableID string, from, delta int64) error {
	query := sq.Update(s.GetTable()).
		Set("row_index", sq.Expr("row_index + ?", delta)).
		Where(sq.Eq{"table_id": tableID}).
		Where(sq.GtOrEq{"row_index": from})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *CellStore) Delete(ctx context.Context, tableID, columnID string, rowIndex int64) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"table_id": tableID, "column_id": columnID, "row_index": rowIndex})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *CellStore) DeleteRow(ctx context.Context, tableID string, rowIndex int64) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"table_id": tableID, "row_index": rowIndex})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *CellStore) DeleteByColumn(ctx context.Context, tableID, columnID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"table_id": tableID, "column_id": columnID})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *CellStore) DeleteAll(ctx context.Context, tableID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"table_id": tableID})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}
