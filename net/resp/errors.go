package resp

import (
	"net/http"

	"github.com/ncobase/paybatch/ecode"
)

// BadRequest indicates a bad request.
func BadRequest(message string, data ...any) *Exception {
	return newResponse(http.StatusBadRequest, ecode.RequestErr, message, data...)
}

// NotFound indicates that the requested resource is not found.
func NotFound(message string, data ...any) *Exception {
	return newResponse(http.StatusNotFound, ecode.NothingFound, message, data...)
}

// Conflict indicates a conflict error.
func Conflict(message string, data ...any) *Exception {
	return newResponse(http.StatusConflict, ecode.Conflict, message, data...)
}

// InternalServer indicates a server error.
func InternalServer(message string, data ...any) *Exception {
	return newResponse(http.StatusInternalServerError, ecode.ServerErr, message, data...)
}

// WithCode builds an exception whose HTTP status is derived from the business code.
func WithCode(code int, message string, data ...any) *Exception {
	if message == "" {
		message = ecode.Text(code)
	}
	return newResponse(ecode.ToHTTPStatus(code), code, message, data...)
}
