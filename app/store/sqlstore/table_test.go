package sqlstore

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableStoreQueries(t *testing.T) {
	s := NewTableStore(nil)
	assert.Equal(t, "livetable_table", s.CommonFields.GetTable())

	queryString, _, err := sq.Select(s.GetAllColumns()...).From(s.CommonFields.GetTable()).Where(sq.Eq{"id": "1"}).Suffix("FOR UPDATE").ToSql()
	require.NoError(t, err)
	assert.Contains(t, queryString, "FROM livetable_table WHERE id = ? FOR UPDATE")
}
