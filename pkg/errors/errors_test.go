package errors

import (
	"database/sql"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	assert.Equal(t, KIND_VALIDATION, Kind(New("t", "error.invalidargument", nil).Code(http.StatusBadRequest)))
	assert.Equal(t, KIND_VALIDATION, Kind(New("t", "error.tooManyRequests", nil).Code(http.StatusTooManyRequests)))
	assert.Equal(t, KIND_NOT_FOUND, Kind(New("t", "error.notfound", sql.ErrNoRows).Code(http.StatusNotFound)))
	assert.Equal(t, KIND_CONFLICT, Kind(New("t", "error.conflict", nil).Code(http.StatusConflict)))
	assert.Equal(t, KIND_TRANSPORT, Kind(New("t", "error.transport", nil).Code(StatusTransport)))
	assert.Equal(t, KIND_INTERNAL, Kind(New("t", "error.internal", nil)))
	assert.Equal(t, KIND_INTERNAL, Kind(stderrors.New("plain")))
}

func TestWrapKeepsCode(t *testing.T) {
	inner := New("inner", "error.notfound", sql.ErrNoRows).Code(http.StatusNotFound)
	outer := Wrap(inner, "outer", "error.notfound")

	assert.True(t, IsNotFound(outer))
	assert.True(t, stderrors.Is(outer, sql.ErrNoRows))
}

func TestTraceAppends(t *testing.T) {
	err := New("a", "error.internal", nil)
	err = Trace("b", err)
	assert.Contains(t, err.Error(), `"trace":"a->b"`)

	plain := Trace("c", stderrors.New("boom"))
	assert.Equal(t, "boom", plain.Message())
	assert.Equal(t, http.StatusInternalServerError, plain.GetCode())
}
