package v1

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/i18n"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/types/protocol"
)

func newGateway(t *testing.T, c *core.Core, conn *recorder) *SyncLogic {
	return NewSyncLogic(userCtx(conn.UserID()), c, conn, i18n.NewDefaultLocalizer())
}

func send(t *testing.T, g *SyncLogic, op protocol.Operation, tableID, requestID string, payload any) {
	msg, err := protocol.NewMessage(op, tableID, payload)
	require.NoError(t, err)
	msg.RequestID = requestID
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	g.HandleMessage(raw)
}

func TestGatewayRejectsBeforeJoin(t *testing.T) {
	c := newCore(t)
	conn := newRecorder("conn-a", "alice")
	g := newGateway(t, c, conn)

	send(t, g, protocol.OP_ROW_INSERT, "t1", "r1", protocol.RowPayload{RowIndex: 0})
	reply := conn.last()
	assert.Equal(t, protocol.CTRL_ERROR, reply.Type)
	assert.Equal(t, "r1", reply.RequestID)
	assert.Equal(t, protocol.OP_ROW_INSERT, reply.Operation)
	require.NotNil(t, reply.Error)
	assert.Equal(t, errors.KIND_VALIDATION, reply.Error.Kind)

	g.HandleMessage([]byte("{not json"))
	reply = conn.last()
	assert.Equal(t, protocol.CTRL_ERROR, reply.Type)
	assert.Equal(t, errors.KIND_VALIDATION, reply.Error.Kind)

	send(t, g, "SHOUT", "", "r2", nil)
	reply = conn.last()
	assert.Equal(t, protocol.CTRL_ERROR, reply.Type)
	assert.Equal(t, "r2", reply.RequestID)

	send(t, g, protocol.CTRL_JOIN, "missing", "r3", nil)
	reply = conn.last()
	assert.Equal(t, protocol.CTRL_ERROR, reply.Type)
	assert.Equal(t, errors.KIND_NOT_FOUND, reply.Error.Kind)
	assert.Empty(t, g.Joined())
}

func TestGatewayRoundTrip(t *testing.T) {
	c := newCore(t)
	table, columns := createStock(t, c, userCtx("alice"))

	a := newRecorder("conn-a", "alice")
	b := newRecorder("conn-b", "bob")
	ga := newGateway(t, c, a)
	gb := newGateway(t, c, b)

	send(t, ga, protocol.CTRL_JOIN, table.ID, "j1", nil)
	require.Equal(t, table.ID, ga.Joined())
	joinMsgs := a.messages()
	require.Len(t, joinMsgs, 3)
	assert.Equal(t, protocol.CTRL_SNAPSHOT, joinMsgs[0].Type)
	assert.Equal(t, protocol.CTRL_PRESENCE, joinMsgs[1].Type)
	assert.Equal(t, protocol.CTRL_ACK, joinMsgs[2].Type)
	assert.Equal(t, "j1", joinMsgs[2].RequestID)

	snapshot, err := protocol.DecodePayload[types.Snapshot](joinMsgs[0])
	require.NoError(t, err)
	assert.Len(t, snapshot.Columns, 2)

	send(t, gb, protocol.CTRL_JOIN, table.ID, "j2", nil)
	a.reset()
	b.reset()

	// author identity comes from the connection, not from the message
	msg, err := protocol.NewMessage(protocol.OP_CELL_UPDATE, table.ID, protocol.CellUpdatePayload{
		ColumnID: columns[0].ID,
		RowIndex: 0,
		Value:    str("Bolt"),
	})
	require.NoError(t, err)
	msg.RequestID = "c1"
	msg.AuthorID = "mallory"
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	ga.HandleMessage(raw)

	ack := a.last()
	assert.Equal(t, protocol.CTRL_ACK, ack.Type)
	assert.Equal(t, "c1", ack.RequestID)
	assert.Equal(t, protocol.OP_CELL_UPDATE, ack.Operation)
	assert.Len(t, a.messages(), 1)

	got := b.last()
	assert.Equal(t, protocol.OP_CELL_UPDATE, got.Type)
	assert.Equal(t, "alice", got.UpdatedBy)
	assert.Equal(t, "alice", got.AuthorID)

	send(t, gb, protocol.OP_COLUMN_ADD, "", "c2", protocol.ColumnAddPayload{
		Column: types.ColumnSpec{Name: "bin", Type: types.COLUMN_TYPE_TEXT},
	})
	ack = b.last()
	require.Equal(t, protocol.CTRL_ACK, ack.Type)
	added, err := protocol.DecodePayload[types.Column](ack)
	require.NoError(t, err)
	assert.EqualValues(t, 2, added.OrderIndex)
	assert.Len(t, a.ofType(protocol.OP_COLUMN_ADD), 1)

	send(t, gb, protocol.OP_ROW_DELETE, table.ID, "c3", protocol.RowPayload{RowIndex: -1})
	reply := b.last()
	assert.Equal(t, protocol.CTRL_ERROR, reply.Type)
	assert.Equal(t, errors.KIND_VALIDATION, reply.Error.Kind)
	assert.Empty(t, a.ofType(protocol.OP_ROW_DELETE))

	send(t, gb, protocol.OP_CELL_UPDATE, "other-table", "c4", protocol.CellUpdatePayload{ColumnID: columns[0].ID})
	assert.Equal(t, protocol.CTRL_ERROR, b.last().Type)

	send(t, gb, protocol.OP_COLUMN_DELETE, table.ID, "c5", protocol.ColumnDeletePayload{})
	assert.Equal(t, protocol.CTRL_ERROR, b.last().Type)

	send(t, gb, protocol.CTRL_LEAVE, table.ID, "l1", nil)
	assert.Equal(t, protocol.CTRL_ACK, b.last().Type)
	assert.Empty(t, gb.Joined())

	users, err := NewPresenceLogic(userCtx("alice"), c).ActiveUsers(table.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)

	ga.Close()
	users, err = NewPresenceLogic(userCtx("alice"), c).ActiveUsers(table.ID)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Empty(t, c.Srv().Fanout().Members(table.ID))
}

func TestGatewayRateLimit(t *testing.T) {
	c := core.MustSetupCore(core.CoreConfig{
		Storage: core.StorageConfig{Driver: core.STORAGE_DRIVER_MEMORY},
		Log:     core.Log{Level: "error"},
		Sync:    core.SyncConfig{RateLimit: 0.001, RateBurst: 1},
	})
	t.Cleanup(c.Shutdown)

	conn := newRecorder("conn-a", "alice")
	g := newGateway(t, c, conn)

	send(t, g, protocol.CTRL_LEAVE, "", "1", nil)
	send(t, g, protocol.CTRL_LEAVE, "", "2", nil)
	reply := conn.last()
	require.NotNil(t, reply.Error)
	assert.Equal(t, "2", reply.RequestID)
	assert.Equal(t, "Too many requests, please slow down", reply.Error.Message)
}
