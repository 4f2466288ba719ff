package memstore

import (
	"context"
	"database/sql"
	"sort"

	"github.com/samber/lo"

	"github.com/quka-ai/livetable/pkg/types"
)

type SessionStore struct {
	s *Store
}

func (r *SessionStore) Create(ctx context.Context, data types.TableSession) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	if _, exist := r.s.sessions[data.ID]; exist {
		return ErrDuplicateKey
	}
	put(t, r.s.sessions, data.ID, data)
	return nil
}

func (r *SessionStore) Get(ctx context.Context, id string) (*types.TableSession, error) {
	defer r.s.read(ctx)()

	data, exist := r.s.sessions[id]
	if !exist {
		return nil, sql.ErrNoRows
	}
	return &data, nil
}

func (r *SessionStore) Touch(ctx context.Context, id string, lastActive int64) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	data, exist := r.s.sessions[id]
	if !exist {
		return nil
	}
	data.LastActive = lastActive
	put(t, r.s.sessions, id, data)
	return nil
}

func (r *SessionStore) Delete(ctx context.Context, id string) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	del(t, r.s.sessions, id)
	return nil
}

func (r *SessionStore) DeleteByUser(ctx context.Context, tableID, userID string) (int64, error) {
	t, unlock := r.s.write(ctx)
	defer unlock()

	var affected int64
	for k, v := range r.s.sessions {
		if v.TableID == tableID && v.UserID == userID {
			del(t, r.s.sessions, k)
			affected++
		}
	}
	return affected, nil
}

func (r *SessionStore) DeleteAll(ctx context.Context, tableID string) error {
	t, unlock := r.s.write(ctx)
	defer unlock()

	for k, v := range r.s.sessions {
		if v.TableID == tableID {
			del(t, r.s.sessions, k)
		}
	}
	return nil
}

func (r *SessionStore) ListByTable(ctx context.Context, tableID string) ([]types.TableSession, error) {
	defer r.s.read(ctx)()

	var list []types.TableSession
	for _, v := range r.s.sessions {
		if v.TableID == tableID {
			list = append(list, v)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinedAt != list[j].JoinedAt {
			return list[i].JoinedAt < list[j].JoinedAt
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (r *SessionStore) ListActiveUsers(ctx context.Context, tableID string) ([]string, error) {
	list, err := r.ListByTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	users := lo.Uniq(lo.FilterMap(list, func(item types.TableSession, _ int) (string, bool) {
		return item.UserID, item.Active
	}))
	sort.Strings(users)
	return users, nil
}

func (r *SessionStore) ListStaleTables(ctx context.Context, before int64) ([]string, error) {
	defer r.s.read(ctx)()

	var list []string
	for _, v := range r.s.sessions {
		if v.LastActive < before {
			list = append(list, v.TableID)
		}
	}
	list = lo.Uniq(list)
	sort.Strings(list)
	return list, nil
}

func (r *SessionStore) DeleteStale(ctx context.Context, tableID string, before int64) ([]types.TableSession, error) {
	t, unlock := r.s.write(ctx)
	defer unlock()

	var res []types.TableSession
	for k, v := range r.s.sessions {
		if v.TableID == tableID && v.LastActive < before {
			del(t, r.s.sessions, k)
			res = append(res, v)
		}
	}
	return res, nil
}
