package sqlstore

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/quka-ai/livetable/pkg/register"
	"github.com/quka-ai/livetable/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.SessionStore = NewSessionStore(provider)
	})
}

// SessionStore 协同会话，记录当前在线编辑者
type SessionStore struct {
	CommonFields
}

func NewSessionStore(provider SqlProviderAchieve) *SessionStore {
	repo := &SessionStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_SESSION)
	repo.SetAllColumns("id", "table_id", "user_id", "joined_at", "last_active", "active")
	return repo
}

func (s *SessionStore) Create(ctx context.Context, data types.TableSession) error {
	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.TableID, data.UserID, data.JoinedAt, data.LastActive, data.Active)

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *SessionStore) Get(ctx context.Context, id string) (*types.TableSession, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.TableSession
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *SessionStore) Touch(ctx context.Context, id string, lastActive int64) error {
	query := sq.Update(s.GetTable()).Set("last_active", lastActive).Where(sq.Eq{"id": id})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"id": id})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *SessionStore) DeleteByUser(ctx context.Context, tableID, userID string) (int64, error) {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"table_id": tableID, "user_id": userID})

	return exec(ctx, &s.CommonFields, query)
}

func (s *SessionStore) DeleteAll(ctx context.Context, tableID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"table_id": tableID})

	_, err := exec(ctx, &s.CommonFields, query)
	return err
}

func (s *SessionStore) ListByTable(ctx context.Context, tableID string) ([]types.TableSession, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"table_id": tableID}).OrderBy("joined_at", "id")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.TableSession
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SessionStore) ListActiveUsers(ctx context.Context, tableID string) ([]string, error) {
	query := sq.Select("DISTINCT user_id").From(s.GetTable()).
		Where(sq.Eq{"table_id": tableID, "active": true}).
		OrderBy("user_id")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []string
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SessionStore) ListStaleTables(ctx context.Context, before int64) ([]string, error) {
	query := sq.Select("DISTINCT table_id").From(s.GetTable()).
		Where(sq.Lt{"last_active": before}).
		OrderBy("table_id")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []string
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SessionStore) DeleteStale(ctx context.Context, tableID string, before int64) ([]types.TableSession, error) {
	query := sq.Delete(s.GetTable()).
		Where(sq.Eq{"table_id": tableID}).
		Where(sq.Lt{"last_active": before}).
		Suffix("RETURNING " + strings.Join(s.GetAllColumns(), ","))

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.TableSession
	if err = s.GetMasterReader(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}
