package v1

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/i18n"
	"github.com/quka-ai/livetable/pkg/socket/hub"
	"github.com/quka-ai/livetable/pkg/types/protocol"
)

// SyncLogic is the per-connection gateway. A connection is either idle or joined to exactly
// one table; every inbound message is answered with ACK or ERROR on the same connection.
// Methods are called from the connection's read loop only.
type SyncLogic struct {
	ctx       context.Context
	core      *core.Core
	conn      hub.Conn
	localizer i18n.Localizer
	limiter   *rate.Limiter

	tableID   string
	lastTouch time.Time
	UserInfo
}

func NewSyncLogic(ctx context.Context, core *core.Core, conn hub.Conn, localizer i18n.Localizer) *SyncLogic {
	ctx = WithConnectionID(ctx, conn.ID())
	cfg := core.Cfg().Sync
	return &SyncLogic{
		ctx:       ctx,
		core:      core,
		conn:      conn,
		localizer: localizer,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		UserInfo:  SetupUserInfo(ctx, core),
	}
}

// Joined returns the table the connection is joined to, empty when idle.
func (l *SyncLogic) Joined() string {
	return l.tableID
}

func (l *SyncLogic) HandleMessage(raw []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		l.replyError(msg, validationError("SyncLogic.HandleMessage.Unmarshal", i18n.ERROR_MALFORMED_MESSAGE, err))
		return
	}

	if !l.limiter.Allow() {
		l.replyError(msg, errors.New("SyncLogic.HandleMessage.Limiter", i18n.ERROR_TOO_MANY_REQUESTS, nil).Code(http.StatusTooManyRequests))
		return
	}

	l.touch()

	result, err := l.dispatch(msg)
	if err != nil {
		l.replyError(msg, err)
		return
	}
	l.replyAck(msg, result)
}

// OnPong keeps the session alive while the client is idle.
func (l *SyncLogic) OnPong() {
	l.touch()
}

// Close is called once the transport is gone, the connection's own session is removed.
func (l *SyncLogic) Close() {
	if l.tableID == "" {
		return
	}
	tableID := l.tableID
	l.tableID = ""

	ctx := context.WithoutCancel(l.ctx)
	if err := NewPresenceLogic(ctx, l.core).LeaveSession(tableID, l.conn.ID()); err != nil {
		slog.Error("failed to remove session of closed connection", slog.String("component", "SyncLogic.Close"),
			slog.String("table_id", tableID), slog.String("conn", l.conn.ID()), slog.String("error", err.Error()))
	}
}

func (l *SyncLogic) dispatch(msg protocol.Message) (any, error) {
	switch msg.Type {
	case protocol.CTRL_JOIN:
		return l.join(msg.TableID)
	case protocol.CTRL_LEAVE:
		return nil, l.leave(msg.TableID)
	}

	if !msg.Type.IsMutation() {
		return nil, validationError("SyncLogic.dispatch", i18n.ERROR_UNSUPPORTED_OPERATION, nil).WithData(map[string]interface{}{
			"type": msg.Type,
		})
	}

	if l.tableID == "" || (msg.TableID != "" && msg.TableID != l.tableID) {
		return nil, validationError("SyncLogic.dispatch", i18n.ERROR_NOT_JOINED, nil)
	}
	tableID := l.tableID

	switch msg.Type {
	case protocol.OP_CELL_UPDATE:
		p, err := decodePayload[protocol.CellUpdatePayload](msg)
		if err != nil {
			return nil, err
		}
		return NewCellLogic(l.ctx, l.core).UpdateCell(tableID, p.ColumnID, p.RowIndex, p.Value)
	case protocol.OP_ROW_INSERT:
		p, err := decodePayload[protocol.RowPayload](msg)
		if err != nil {
			return nil, err
		}
		return p, NewCellLogic(l.ctx, l.core).InsertRow(tableID, p.RowIndex)
	case protocol.OP_ROW_DELETE:
		p, err := decodePayload[protocol.RowPayload](msg)
		if err != nil {
			return nil, err
		}
		return p, NewCellLogic(l.ctx, l.core).DeleteRow(tableID, p.RowIndex)
	case protocol.OP_COLUMN_UPDATE:
		p, err := decodePayload[protocol.ColumnUpdatePayload](msg)
		if err != nil {
			return nil, err
		}
		return NewColumnLogic(l.ctx, l.core).UpdateColumn(tableID, p.ColumnID, p.Column)
	case protocol.OP_COLUMN_ADD:
		p, err := decodePayload[protocol.ColumnAddPayload](msg)
		if err != nil {
			return nil, err
		}
		return NewColumnLogic(l.ctx, l.core).AddColumn(tableID, p.Column)
	case protocol.OP_COLUMN_DELETE:
		p, err := decodePayload[protocol.ColumnDeletePayload](msg)
		if err != nil {
			return nil, err
		}
		return p, NewColumnLogic(l.ctx, l.core).DeleteColumn(tableID, p.ColumnID)
	}
	return nil, validationError("SyncLogic.dispatch", i18n.ERROR_UNSUPPORTED_OPERATION, nil)
}

// join switches the connection to tableID. Joining another table leaves the current one first.
func (l *SyncLogic) join(tableID string) (any, error) {
	if tableID == "" {
		return nil, validationError("SyncLogic.join", i18n.ERROR_INVALIDARGUMENT, nil)
	}

	if l.tableID != "" {
		if err := l.leave(l.tableID); err != nil {
			return nil, err
		}
	}

	if _, err := NewPresenceLogic(l.ctx, l.core).Join(tableID, l.conn); err != nil {
		return nil, err
	}
	l.tableID = tableID
	l.lastTouch = time.Now()
	return nil, nil
}

func (l *SyncLogic) leave(tableID string) error {
	if l.tableID == "" || (tableID != "" && tableID != l.tableID) {
		return validationError("SyncLogic.leave", i18n.ERROR_NOT_JOINED, nil)
	}

	current := l.tableID
	l.tableID = ""
	return NewPresenceLogic(l.ctx, l.core).LeaveSession(current, l.conn.ID())
}

// touch refreshes the session at most once per heartbeat interval.
func (l *SyncLogic) touch() {
	if l.tableID == "" || time.Since(l.lastTouch) < l.core.Cfg().Sync.Heartbeat() {
		return
	}
	l.lastTouch = time.Now()
	if err := NewPresenceLogic(l.ctx, l.core).Touch(l.conn.ID()); err != nil {
		slog.Warn("failed to touch session", slog.String("component", "SyncLogic.touch"),
			slog.String("conn", l.conn.ID()), slog.String("error", err.Error()))
	}
}

func (l *SyncLogic) replyAck(req protocol.Message, result any) {
	msg, err := protocol.NewMessage(protocol.CTRL_ACK, l.replyTable(req), result)
	if err != nil {
		l.replyError(req, errors.New("SyncLogic.replyAck.NewMessage", i18n.ERROR_INTERNAL, err))
		return
	}
	msg.RequestID = req.RequestID
	msg.Operation = req.Type
	msg.UpdatedBy = l.Editor()
	msg.Timestamp = time.Now().Unix()
	l.send(msg)
}

func (l *SyncLogic) replyError(req protocol.Message, err error) {
	kind := errors.Kind(err)
	message := i18n.ERROR_INTERNAL
	if ce, ok := err.(*errors.CustomizedError); ok && kind != errors.KIND_INTERNAL {
		message = ce.Message()
	}
	if kind == errors.KIND_INTERNAL {
		slog.Error("failed to handle sync message", slog.String("component", "SyncLogic"),
			slog.String("conn", l.conn.ID()), slog.String("type", string(req.Type)), slog.String("error", err.Error()))
	}

	lang, ok := InjectLanguage(l.ctx)
	if !ok {
		lang = i18n.DEFAULT_LANG
	}

	l.send(protocol.Message{
		Type:      protocol.CTRL_ERROR,
		TableID:   l.replyTable(req),
		RequestID: req.RequestID,
		Operation: req.Type,
		Error: &protocol.ErrorBody{
			Kind:    kind,
			Message: l.localizer.Get(lang, message),
		},
	})
}

func (l *SyncLogic) replyTable(req protocol.Message) string {
	if req.TableID != "" {
		return req.TableID
	}
	return l.tableID
}

func (l *SyncLogic) send(msg protocol.Message) {
	if err := sendRaw(l.conn, msg); err != nil {
		slog.Debug("reply not delivered", slog.String("component", "SyncLogic"),
			slog.String("conn", l.conn.ID()), slog.String("error", err.Error()))
	}
}

type validatable interface {
	Validate() error
}

func decodePayload[T any](msg protocol.Message) (T, error) {
	p, err := protocol.DecodePayload[T](msg)
	if err != nil {
		return p, validationError("SyncLogic.decodePayload", i18n.ERROR_MALFORMED_MESSAGE, err)
	}
	if v, ok := any(p).(validatable); ok {
		if err = v.Validate(); err != nil {
			return p, validationError("SyncLogic.decodePayload.Validate", i18n.ERROR_MALFORMED_MESSAGE, err)
		}
	}
	return p, nil
}
