package v1

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/i18n"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/types/protocol"
)

const MUTATION_RESULT_OK = "ok"

// mutationFunc runs inside the table lock and the store transaction. The returned payload
// is broadcast to the table group once the transaction commits.
type mutationFunc func(ctx context.Context, table *types.Table, now int64) (payload any, err error)

// applyMutation serializes every change of one table: the per-table lock is held across the
// transaction and the broadcast, so subscribers observe changes in commit order.
func applyMutation(ctx context.Context, core *core.Core, editor string, op protocol.Operation, tableID string, fn mutationFunc) (err error) {
	unlock := core.Srv().Locker().Lock(tableID)
	defer unlock()

	defer func() {
		result := MUTATION_RESULT_OK
		if err != nil {
			result = errors.Kind(err)
		}
		core.Metrics().MutationInc(string(op), result)
	}()

	var (
		payload any
		now     = time.Now().Unix()
	)
	err = core.Store().Transaction(ctx, func(ctx context.Context) error {
		table, err := lockTable(ctx, core, tableID)
		if err != nil {
			return err
		}

		if payload, err = fn(ctx, table, now); err != nil {
			return err
		}

		if op == protocol.OP_TABLE_DELETE {
			return nil
		}
		if err = core.Store().TableStore().Touch(ctx, tableID, editor, now); err != nil {
			return errors.New("applyMutation.TableStore.Touch", i18n.ERROR_INTERNAL, err)
		}
		return nil
	})
	if err != nil {
		return errors.Trace("applyMutation."+string(op), err)
	}

	broadcast(ctx, core, editor, op, tableID, payload, now)
	return nil
}

func lockTable(ctx context.Context, core *core.Core, tableID string) (*types.Table, error) {
	table, err := core.Store().TableStore().GetForUpdate(ctx, tableID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("lockTable.TableStore.GetForUpdate", i18n.ERROR_TABLE_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("lockTable.TableStore.GetForUpdate", i18n.ERROR_INTERNAL, err)
	}
	return table, nil
}

// broadcast never fails the operation, a lost notification is informational loss only.
func broadcast(ctx context.Context, core *core.Core, editor string, op protocol.Operation, tableID string, payload any, now int64) {
	msg, err := protocol.NewMessage(op, tableID, payload)
	if err != nil {
		slog.Error("failed to encode broadcast payload", slog.String("component", "logic.v1.broadcast"),
			slog.String("op", string(op)), slog.String("error", err.Error()))
		return
	}
	msg.AuthorID = editor
	msg.UpdatedBy = editor
	msg.Timestamp = now

	if err = core.Srv().Fanout().Publish(ctx, InjectConnectionID(ctx), msg); err != nil {
		slog.Error("failed to publish change", slog.String("component", "logic.v1.broadcast"),
			slog.String("table_id", tableID), slog.String("op", string(op)), slog.String("error", err.Error()))
	}
}

func validationError(trace, key string, err error) *errors.CustomizedError {
	return errors.New(trace, key, err).Code(http.StatusBadRequest)
}
