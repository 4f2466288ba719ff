package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/quka-ai/livetable/pkg/register"
	"github.com/quka-ai/livetable/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.TableStore = NewTableStore(provider)
	})
}

type TableStore struct {
	CommonFields
}

func NewTableStore(provider SqlProviderAchieve) *TableStore {
	repo := &TableStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_TABLE)
	repo.SetAllColumns("id", "name", "description", "row_count", "created_by", "created_at", "updated_at", "updated_by")
	return repo
}

func (s *TableStore) Create(ctx context.Context, data types.Table) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}
	query := sq.Insert(s.CommonFields.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.Name, data.Description, data.RowCount, data.CreatedBy, data.CreatedAt, data.UpdatedAt, data.UpdatedBy)

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *TableStore) GetTable(ctx context.Context, id string) (*types.Table, error) {
	return s.get(ctx, id, false)
}

func (s *TableStore) GetForUpdate(ctx context.Context, id string) (*types.Table, error) {
	return s.get(ctx, id, true)
}

func (s *TableStore) get(ctx context.Context, id string, lock bool) (*types.Table, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.CommonFields.GetTable()).Where(sq.Eq{"id": id})
	if lock {
		query = query.Suffix("FOR UPDATE")
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Table
	if lock {
		err = s.GetMasterReader(ctx).Get(&res, queryString, args...)
	} else {
		err = s.GetReplica(ctx).Get(&res, queryString, args...)
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *TableStore) List(ctx context.Context, page, pageSize uint64) ([]types.Table, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.CommonFields.GetTable()).OrderBy("created_at DESC", "id")
	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.Table
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *TableStore) Update(ctx context.Context, id, name, desc, editor string, updatedAt int64) error {
	query := sq.Update(s.CommonFields.GetTable()).
		Set("name", name).
		Set("description", desc).
		Set("updated_by", editor).
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": id})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *TableStore) Touch(ctx context.Context, id, editor string, updatedAt int64) error {
	query := sq.Update(s.CommonFields.GetTable()).
		Set("updated_by", editor).
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": id})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *TableStore) SetRowCount(ctx context.Context, id string, rowCount int64) error {
	query := sq.Update(s.CommonFields.GetTable()).Set("row_count", rowCount).Where(sq.Eq{"id": id})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *TableStore) Delete(ctx context.Context, id string) error {
	query := sq.Delete(s.CommonFields.GetTable()).Where(sq.Eq{"id": id})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}
