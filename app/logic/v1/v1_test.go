package v1

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/security"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/types/protocol"
)

func newCore(t *testing.T) *core.Core {
	c := core.MustSetupCore(core.CoreConfig{
		Storage: core.StorageConfig{Driver: core.STORAGE_DRIVER_MEMORY},
		Log:     core.Log{Level: "error"},
	})
	t.Cleanup(c.Shutdown)
	return c
}

func userCtx(user string) context.Context {
	return WithTokenClaim(context.Background(), security.NewTokenClaims("test", user, 0))
}

func connCtx(user string, conn *recorder) context.Context {
	return WithConnectionID(userCtx(user), conn.ID())
}

// recorder is an in-memory connection that keeps every message it is sent.
type recorder struct {
	id   string
	user string

	mu   sync.Mutex
	msgs []protocol.Message
}

func newRecorder(id, user string) *recorder {
	return &recorder{id: id, user: user}
}

func (r *recorder) ID() string     { return r.id }
func (r *recorder) UserID() string { return r.user }

func (r *recorder) Send(raw []byte) error {
	var msg protocol.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	return nil
}

func (r *recorder) messages() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Message(nil), r.msgs...)
}

func (r *recorder) ofType(op protocol.Operation) []protocol.Message {
	return lo.Filter(r.messages(), func(m protocol.Message, _ int) bool { return m.Type == op })
}

func (r *recorder) last() protocol.Message {
	msgs := r.messages()
	if len(msgs) == 0 {
		return protocol.Message{}
	}
	return msgs[len(msgs)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}

// createStock builds the "Stock" table with columns name:text and qty:number.
func createStock(t *testing.T, c *core.Core, ctx context.Context) (*types.Table, []types.Column) {
	table, err := NewTableLogic(ctx, c).CreateTable("Stock", "inventory")
	require.NoError(t, err)

	columns, err := NewColumnLogic(ctx, c).ReplaceColumns(table.ID, []types.ColumnSpec{
		{Name: "name", Type: types.COLUMN_TYPE_TEXT},
		{Name: "qty", Type: types.COLUMN_TYPE_NUMBER},
	})
	require.NoError(t, err)
	require.Len(t, columns, 2)
	return table, columns
}

func str(v string) *string {
	return &v
}

func rowsOf(s *types.Snapshot) [][]any {
	return lo.Map(s.Data, func(row []*string, _ int) []any {
		return lo.Map(row, func(v *string, _ int) any {
			if v == nil {
				return nil
			}
			return *v
		})
	})
}
