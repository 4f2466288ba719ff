package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/i18n"
	"github.com/quka-ai/livetable/pkg/socket/hub"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/types/protocol"
	"github.com/quka-ai/livetable/pkg/utils"
)

type PresenceLogic struct {
	ctx  context.Context
	core *core.Core
	UserInfo
}

func NewPresenceLogic(ctx context.Context, core *core.Core) *PresenceLogic {
	l := &PresenceLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}

	return l
}

// Join registers a session for the caller. When conn is given the session id is the connection id,
// the connection joins the table group and receives the snapshot before any later broadcast.
func (l *PresenceLogic) Join(tableID string, conn hub.Conn) (*types.Snapshot, error) {
	sessionID := utils.GenRandomID()
	if conn != nil {
		sessionID = conn.ID()
	}

	var snapshot *types.Snapshot
	userID := l.Editor()
	err := l.withPresence(tableID, func(ctx context.Context, table *types.Table, now int64) error {
		err := l.core.Store().SessionStore().Create(ctx, types.TableSession{
			ID:         sessionID,
			TableID:    tableID,
			UserID:     userID,
			JoinedAt:   now,
			LastActive: now,
			Active:     true,
		})
		if err != nil {
			return errors.New("PresenceLogic.Join.SessionStore.Create", i18n.ERROR_INTERNAL, err)
		}

		if snapshot, err = assembleSnapshot(ctx, l.core, table); err != nil {
			return err
		}
		return nil
	}, func() {
		if conn == nil {
			return
		}
		l.core.Srv().Fanout().Join(tableID, conn)
		if err := sendMessage(conn, protocol.CTRL_SNAPSHOT, tableID, snapshot); err != nil {
			slog.Warn("failed to deliver snapshot", slog.String("component", "PresenceLogic.Join"),
				slog.String("conn", conn.ID()), slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Leave removes every session the caller holds on the table.
func (l *PresenceLogic) Leave(tableID string) (int64, error) {
	var removed int64
	userID := l.Editor()
	err := l.withPresence(tableID, func(ctx context.Context, table *types.Table, now int64) error {
		var err error
		if removed, err = l.core.Store().SessionStore().DeleteByUser(ctx, tableID, userID); err != nil {
			return errors.New("PresenceLogic.Leave.SessionStore.DeleteByUser", i18n.ERROR_INTERNAL, err)
		}
		return nil
	}, nil)
	return removed, err
}

// LeaveSession removes a single connection's session and its fan-out membership.
// A table that no longer exists is not an error, the session went with it.
func (l *PresenceLogic) LeaveSession(tableID, sessionID string) error {
	l.core.Srv().Fanout().Leave(tableID, sessionID)

	err := l.withPresence(tableID, func(ctx context.Context, table *types.Table, now int64) error {
		if err := l.core.Store().SessionStore().Delete(ctx, sessionID); err != nil && err != sql.ErrNoRows {
			return errors.New("PresenceLogic.LeaveSession.SessionStore.Delete", i18n.ERROR_INTERNAL, err)
		}
		return nil
	}, nil)
	if err != nil && errors.IsNotFound(err) {
		return nil
	}
	return err
}

func (l *PresenceLogic) ActiveUsers(tableID string) ([]string, error) {
	if _, err := NewTableLogic(l.ctx, l.core).GetTable(tableID); err != nil {
		return nil, err
	}
	return l.activeUsers(l.ctx, tableID)
}

func (l *PresenceLogic) activeUsers(ctx context.Context, tableID string) ([]string, error) {
	users, err := l.core.Store().SessionStore().ListActiveUsers(ctx, tableID)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("PresenceLogic.ActiveUsers.SessionStore.ListActiveUsers", i18n.ERROR_INTERNAL, err)
	}
	if users == nil {
		users = []string{}
	}
	return users, nil
}

// Touch refreshes the liveness of a session, missing sessions are ignored.
func (l *PresenceLogic) Touch(sessionID string) error {
	if err := l.core.Store().SessionStore().Touch(l.ctx, sessionID, time.Now().Unix()); err != nil && err != sql.ErrNoRows {
		return errors.New("PresenceLogic.Touch.SessionStore.Touch", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// EvictStale removes sessions idle for longer than ttl and announces the new presence of every
// affected table. Each table is swept under its own lock. It returns the number of evicted sessions.
func (l *PresenceLogic) EvictStale(ttl time.Duration) (int, error) {
	before := time.Now().Add(-ttl).Unix()
	tables, err := l.core.Store().SessionStore().ListStaleTables(l.ctx, before)
	if err != nil && err != sql.ErrNoRows {
		return 0, errors.New("PresenceLogic.EvictStale.SessionStore.ListStaleTables", i18n.ERROR_INTERNAL, err)
	}

	var evicted int
	for _, tableID := range tables {
		n, err := l.evictTable(tableID, before)
		if err != nil {
			slog.Error("failed to evict stale sessions", slog.String("component", "PresenceLogic.EvictStale"),
				slog.String("table_id", tableID), slog.String("error", err.Error()))
			continue
		}
		evicted += n
	}

	l.core.Metrics().SessionsEvictedAdd(evicted)
	return evicted, nil
}

func (l *PresenceLogic) evictTable(tableID string, before int64) (int, error) {
	unlock := l.core.Srv().Locker().Lock(tableID)
	defer unlock()

	var (
		stale []types.TableSession
		users []string
	)
	err := l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		var err error
		if stale, err = l.core.Store().SessionStore().DeleteStale(ctx, tableID, before); err != nil && err != sql.ErrNoRows {
			return errors.New("PresenceLogic.evictTable.SessionStore.DeleteStale", i18n.ERROR_INTERNAL, err)
		}
		if len(stale) == 0 {
			return nil
		}
		users, err = l.activeUsers(ctx, tableID)
		return err
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	for _, s := range stale {
		l.core.Srv().Fanout().Leave(tableID, s.ID)
	}
	broadcast(WithConnectionID(l.ctx, ""), l.core, "", protocol.CTRL_PRESENCE, tableID, protocol.PresencePayload{Users: users}, time.Now().Unix())
	return len(stale), nil
}

// withPresence runs fn under the table lock in one transaction, then broadcasts the resulting
// active user list. afterCommit runs before the broadcast, still holding the lock.
func (l *PresenceLogic) withPresence(tableID string, fn func(ctx context.Context, table *types.Table, now int64) error, afterCommit func()) error {
	unlock := l.core.Srv().Locker().Lock(tableID)
	defer unlock()

	var (
		users []string
		now   = time.Now().Unix()
	)
	err := l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		table, err := lockTable(ctx, l.core, tableID)
		if err != nil {
			return err
		}
		if err = fn(ctx, table, now); err != nil {
			return err
		}
		users, err = l.activeUsers(ctx, tableID)
		return err
	})
	if err != nil {
		return err
	}

	if afterCommit != nil {
		afterCommit()
	}
	// presence goes to every member, the originator included
	broadcast(WithConnectionID(l.ctx, ""), l.core, l.Editor(), protocol.CTRL_PRESENCE, tableID, protocol.PresencePayload{Users: users}, now)
	return nil
}

func sendMessage(conn hub.Conn, op protocol.Operation, tableID string, payload any) error {
	msg, err := protocol.NewMessage(op, tableID, payload)
	if err != nil {
		return err
	}
	return sendRaw(conn, msg)
}

func sendRaw(conn hub.Conn, msg protocol.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Send(raw)
}
