package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "livetable_"

const (
	TABLE_TABLE   = TableName("table")
	TABLE_COLUMN  = TableName("column")
	TABLE_CELL    = TableName("cell")
	TABLE_SESSION = TableName("session")
)
