package types

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Table 用户自定义表格
type Table struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	RowCount    int64  `json:"row_count" db:"row_count"` // explicit row extent, keeps trailing empty rows
	CreatedBy   string `json:"created_by" db:"created_by"`
	CreatedAt   int64  `json:"created_at" db:"created_at"`
	UpdatedAt   int64  `json:"updated_at" db:"updated_at"`
	UpdatedBy   string `json:"updated_by" db:"updated_by"`
}

type ColumnType string

const (
	COLUMN_TYPE_TEXT    ColumnType = "text"
	COLUMN_TYPE_NUMBER  ColumnType = "number"
	COLUMN_TYPE_BOOLEAN ColumnType = "boolean"
	COLUMN_TYPE_DATE    ColumnType = "date"
)

func (t ColumnType) Valid() bool {
	switch t {
	case COLUMN_TYPE_TEXT, COLUMN_TYPE_NUMBER, COLUMN_TYPE_BOOLEAN, COLUMN_TYPE_DATE:
		return true
	}
	return false
}

// ColumnSpec is the caller supplied shape of a column.
type ColumnSpec struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"type"`
	Required     bool       `json:"required"`
	DefaultValue *string    `json:"default_value,omitempty"`
	Precision    *int64     `json:"precision,omitempty"`
	Scale        *int64     `json:"scale,omitempty"`
	MaxLength    *int64     `json:"max_length,omitempty"`
	DateFormat   string     `json:"date_format,omitempty"`
}

var ErrInvalidColumnType = errors.New("unsupported column type")

var dateFormatRule = regexp.MustCompile(`^[YMDHhms/:.\- ]+$`)

func (s ColumnSpec) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&s.Type, validation.Required, validation.By(func(value interface{}) error {
			if !value.(ColumnType).Valid() {
				return ErrInvalidColumnType
			}
			return nil
		})),
		validation.Field(&s.Precision, validation.NilOrNotEmpty, validation.Min(int64(1)), validation.Max(int64(38))),
		validation.Field(&s.Scale, validation.Min(int64(0)), validation.When(s.Precision != nil, validation.Max(derefInt64(s.Precision)))),
		validation.Field(&s.MaxLength, validation.NilOrNotEmpty, validation.Min(int64(1))),
		validation.Field(&s.DateFormat, validation.When(s.DateFormat != "", validation.Match(dateFormatRule))),
	)
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// Column belongs to exactly one table, order index is dense per table.
type Column struct {
	ID           string     `json:"id" db:"id"`
	TableID      string     `json:"table_id" db:"table_id"`
	Name         string     `json:"name" db:"name"`
	Type         ColumnType `json:"type" db:"type"`
	OrderIndex   int64      `json:"order_index" db:"order_index"`
	Required     bool       `json:"required" db:"required"`
	DefaultValue *string    `json:"default_value,omitempty" db:"default_value"`
	Precision    *int64     `json:"precision,omitempty" db:"num_precision"`
	Scale        *int64     `json:"scale,omitempty" db:"num_scale"`
	MaxLength    *int64     `json:"max_length,omitempty" db:"max_length"`
	DateFormat   string     `json:"date_format,omitempty" db:"date_format"`
	CreatedAt    int64      `json:"created_at" db:"created_at"`
	UpdatedAt    int64      `json:"updated_at" db:"updated_at"`
}

func (c *Column) ApplySpec(spec ColumnSpec) {
	c.Name = spec.Name
	c.Type = spec.Type
	c.Required = spec.Required
	c.DefaultValue = spec.DefaultValue
	c.Precision = spec.Precision
	c.Scale = spec.Scale
	c.MaxLength = spec.MaxLength
	c.DateFormat = spec.DateFormat
}

func (c Column) Spec() ColumnSpec {
	return ColumnSpec{
		Name:         c.Name,
		Type:         c.Type,
		Required:     c.Required,
		DefaultValue: c.DefaultValue,
		Precision:    c.Precision,
		Scale:        c.Scale,
		MaxLength:    c.MaxLength,
		DateFormat:   c.DateFormat,
	}
}

// Cell 稀疏存储，(table_id, column_id, row_index) 唯一
type Cell struct {
	TableID   string `json:"table_id" db:"table_id"`
	ColumnID  string `json:"column_id" db:"column_id"`
	RowIndex  int64  `json:"row_index" db:"row_index"`
	Value     string `json:"value" db:"value"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
	UpdatedBy string `json:"updated_by" db:"updated_by"`
}

type CellKey struct {
	TableID  string
	ColumnID string
	RowIndex int64
}

func (c Cell) Key() CellKey {
	return CellKey{TableID: c.TableID, ColumnID: c.ColumnID, RowIndex: c.RowIndex}
}

// TableSession presence record, one per connection.
type TableSession struct {
	ID         string `json:"id" db:"id"`
	TableID    string `json:"table_id" db:"table_id"`
	UserID     string `json:"user_id" db:"user_id"`
	JoinedAt   int64  `json:"joined_at" db:"joined_at"`
	LastActive int64  `json:"last_active" db:"last_active"`
	Active     bool   `json:"active" db:"active"`
}

// Snapshot is the dense view of a table. A nil value is an empty cell.
type Snapshot struct {
	Table   Table       `json:"table"`
	Columns []Column    `json:"columns"`
	Data    [][]*string `json:"data"`
}
