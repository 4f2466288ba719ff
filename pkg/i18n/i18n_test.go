package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLang(t *testing.T) {
	l := NewLocalizer("zh-CN", "en")

	assert.Equal(t, "Table not found", l.Get("en", ERROR_TABLE_NOT_FOUND))
	assert.Equal(t, "表格不存在", l.Get("zh-CN", ERROR_TABLE_NOT_FOUND))
}

func TestUnknownFallsBackToID(t *testing.T) {
	l := NewDefaultLocalizer()

	assert.Equal(t, "error.some.unknown", l.Get("en", "error.some.unknown"))
	assert.Equal(t, ERROR_INTERNAL, l.Get("fr", ERROR_INTERNAL))
}
