package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// error kinds exposed to streaming clients
const (
	KIND_VALIDATION = "validation"
	KIND_NOT_FOUND  = "not_found"
	KIND_CONFLICT   = "conflict"
	KIND_TRANSPORT  = "transport"
	KIND_INTERNAL   = "internal"
)

// StatusTransport marks a dropped connection, never written to an http response.
const StatusTransport = 599

type CustomizedError struct {
	cause   error
	message string
	trace   []string
	wrap    error
	code    int
	data    map[string]interface{}
}

func (e *CustomizedError) WithData(data map[string]interface{}) *CustomizedError {
	e.data = data
	return e
}

func (e *CustomizedError) Data() map[string]interface{} {
	return e.data
}

func (e *CustomizedError) Code(c int) *CustomizedError {
	e.code = c
	return e
}

func (e *CustomizedError) GetCode() int {
	return e.code
}

func New(trace, message string, err error) *CustomizedError {
	return &CustomizedError{
		cause:   err,
		message: message,
		trace:   []string{trace},
		code:    http.StatusInternalServerError,
	}
}

func (e *CustomizedError) Trace(trace string) *CustomizedError {
	e.trace = append(e.trace, trace)
	return e
}

func Wrap(err error, trace, message string) *CustomizedError {
	ce := &CustomizedError{
		cause:   err,
		message: message,
		trace:   []string{trace},
		wrap:    err,
		code:    http.StatusInternalServerError,
	}
	var income *CustomizedError
	if stderrors.As(err, &income) {
		ce.code = income.code
	}
	return ce
}

func Trace(trace string, err error) *CustomizedError {
	if ce, ok := err.(*CustomizedError); ok {
		ce.trace = append(ce.trace, trace)
		return ce
	}
	return Wrap(err, trace, err.Error())
}

func (e *CustomizedError) Message() string {
	if e.message == "" && e.cause != nil {
		return e.cause.Error()
	}
	return e.message
}

func (e *CustomizedError) Unwrap() error {
	if e.wrap != nil {
		return e.wrap
	}
	return e.cause
}

func (e *CustomizedError) Error() string {
	otherDetails := `""`
	if ce, ok := e.wrap.(*CustomizedError); ok {
		otherDetails = ce.Error()
	} else if e.wrap != nil {
		otherDetails = fmt.Sprint("\"", e.wrap.Error(), "\"")
	}
	return fmt.Sprintf(`{"trace":"%s","code":%d,"msg":"%s","error":"%v","wrapd":%s}`, strings.Join(e.trace, "->"), e.code, e.message, e.cause, otherDetails)
}

// Kind maps an error onto the engine's error taxonomy.
func Kind(err error) string {
	var ce *CustomizedError
	if !stderrors.As(err, &ce) {
		return KIND_INTERNAL
	}
	switch ce.code {
	case http.StatusBadRequest, http.StatusTooManyRequests:
		return KIND_VALIDATION
	case http.StatusNotFound:
		return KIND_NOT_FOUND
	case http.StatusConflict:
		return KIND_CONFLICT
	case StatusTransport:
		return KIND_TRANSPORT
	}
	return KIND_INTERNAL
}

func IsNotFound(err error) bool {
	return Kind(err) == KIND_NOT_FOUND
}

func IsValidation(err error) bool {
	return Kind(err) == KIND_VALIDATION
}

func IsTransport(err error) bool {
	return Kind(err) == KIND_TRANSPORT
}
