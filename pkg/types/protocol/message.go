package protocol

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/quka-ai/livetable/pkg/types"
)

type Operation string

const (
	// inbound mutations
	OP_CELL_UPDATE   Operation = "CELL_UPDATE"
	OP_ROW_INSERT    Operation = "ROW_INSERT"
	OP_ROW_DELETE    Operation = "ROW_DELETE"
	OP_COLUMN_UPDATE Operation = "COLUMN_UPDATE"
	OP_COLUMN_ADD    Operation = "COLUMN_ADD"
	OP_COLUMN_DELETE Operation = "COLUMN_DELETE"

	// broadcast only, produced by the http api
	OP_TABLE_REPLACE Operation = "TABLE_REPLACE"
	OP_TABLE_UPDATE  Operation = "TABLE_UPDATE"
	OP_TABLE_DELETE  Operation = "TABLE_DELETE"

	// control
	CTRL_JOIN     Operation = "JOIN"
	CTRL_LEAVE    Operation = "LEAVE"
	CTRL_ACK      Operation = "ACK"
	CTRL_ERROR    Operation = "ERROR"
	CTRL_SNAPSHOT Operation = "SNAPSHOT"
	CTRL_PRESENCE Operation = "PRESENCE"
)

func (o Operation) IsMutation() bool {
	switch o {
	case OP_CELL_UPDATE, OP_ROW_INSERT, OP_ROW_DELETE, OP_COLUMN_UPDATE, OP_COLUMN_ADD, OP_COLUMN_DELETE:
		return true
	}
	return false
}

// Message is the single envelope used on the streaming channel in both directions.
// AuthorID sent by a client is ignored, the connection identity is authoritative.
type Message struct {
	Type      Operation       `json:"type"`
	TableID   string          `json:"table_id,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Operation Operation       `json:"operation,omitempty"` // the acknowledged or rejected operation
	Payload   json.RawMessage `json:"payload,omitempty"`
	AuthorID  string          `json:"author_id,omitempty"`
	UpdatedBy string          `json:"updated_by,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Error     *ErrorBody      `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type CellUpdatePayload struct {
	ColumnID string  `json:"column_id"`
	RowIndex int64   `json:"row_index"`
	Value    *string `json:"value"` // null clears the cell
}

func (p CellUpdatePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ColumnID, validation.Required),
	)
}

type RowPayload struct {
	RowIndex int64 `json:"row_index"`
}

type ColumnUpdatePayload struct {
	ColumnID string           `json:"column_id"`
	Column   types.ColumnSpec `json:"column"`
}

func (p ColumnUpdatePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ColumnID, validation.Required),
	)
}

type ColumnAddPayload struct {
	Column types.ColumnSpec `json:"column"`
}

type ColumnDeletePayload struct {
	ColumnID string `json:"column_id"`
}

func (p ColumnDeletePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ColumnID, validation.Required),
	)
}

// CellChange is the applied result of CELL_UPDATE.
type CellChange struct {
	ColumnID string  `json:"column_id"`
	RowIndex int64   `json:"row_index"`
	Value    *string `json:"value"`
}

type PresencePayload struct {
	Users []string `json:"users"`
}

// Envelope travels through the fan-out broker, Origin is the connection id that
// produced the change and is skipped on delivery unless echo is enabled.
type Envelope struct {
	Origin  string  `json:"origin,omitempty"`
	Message Message `json:"message"`
}

func NewMessage(op Operation, tableID string, payload any) (Message, error) {
	msg := Message{
		Type:    op,
		TableID: tableID,
	}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return msg, err
	}
	msg.Payload = raw
	return msg, nil
}

func DecodePayload[T any](msg Message) (T, error) {
	var res T
	if len(msg.Payload) == 0 {
		return res, nil
	}
	err := json.Unmarshal(msg.Payload, &res)
	return res, err
}
