package sqlstore

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/quka-ai/livetable/pkg/register"
	"github.com/quka-ai/livetable/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.ColumnStore = NewColumnStore(provider)
	})
}

type ColumnStore struct {
	CommonFields
}

func NewColumnStore(provider SqlProviderAchieve) *ColumnStore {
	repo := &ColumnStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_COLUMN)
	repo.SetAllColumns("id", "table_id", "name", "type", "order_index", "required", "default_value",
		"num_precision", "num_scale", "max_length", "date_format", "created_at", "updated_at")
	return repo
}

func (s *ColumnStore) Create(ctx context.Context, data types.Column) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}
	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.TableID, data.Name, data.Type, data.OrderIndex, data.Required, data.DefaultValue,
			data.Precision, data.Scale, data.MaxLength, data.DateFormat, data.CreatedAt, data.UpdatedAt)

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *ColumnStore) Get(ctx context.Context, tableID, id string) (*types.Column, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"table_id": tableID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Column
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *ColumnStore) ListByTable(ctx context.Context, tableID string) ([]types.Column, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"table_id": tableID}).OrderBy("order_index")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.Column
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ColumnStore) MaxOrderIndex(ctx context.Context, tableID string) (int64, error) {
	query := sq.Select("MAX(order_index)").From(s.GetTable()).Where(sq.Eq{"table_id": tableID})

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

func (s *ColumnStore) Update(ctx context.Context, tableID, id string, spec types.ColumnSpec, updatedAt int64) error {
	query := sq.Update(s.GetTable()).
		SetMap(map[string]interface{}{
			"name":          spec.Name,
			"type":          spec.Type,
			"required":      spec.Required,
			"default_value": spec.DefaultValue,
			"num_precision": spec.Precision,
			"num_scale":     spec.Scale,
			"max_length":    spec.MaxLength,
			"date_format":   spec.DateFormat,
			"updated_at":    updatedAt,
		}).
		Where(sq.Eq{"table_id": tableID, "id": id})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *ColumnStore) ShiftOrder(ctx context.Context, tableID string, after, delta int64) error {
	query := sq.Update(s.GetTable()).
		Set("order_index", sq.Expr("order_index + ?", delta)).
		Where(sq.Eq{"table_id": tableID}).
		Where(sq.Gt{"order_index": after})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *ColumnStore) Delete(ctx context.Context, tableID, id string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"table_id": tableID, "id": id})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *ColumnStore) DeleteAll(ctx context.Context, tableID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"table_id": tableID})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}
