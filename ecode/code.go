// Package ecode defines the business codes returned in API error bodies.
//
// Codes follow the convention:
//   - 0: success
//   - -400 to -499: request and resource errors
//   - -500 and below: server errors
//   - -1000 and below: batch ingestion errors
package ecode

import "net/http"

const (
	OK = 0

	RequestErr   = -400
	ParamErr     = -401
	NothingFound = -404
	Conflict     = -409

	ServerErr          = -500
	ServiceUnavailable = -503

	BatchInvalidState = -1001
	BatchPartial      = -1002
	QueueUnavailable  = -1003
)

var messages = map[int]string{
	OK:                 "success",
	RequestErr:         "Invalid request",
	ParamErr:           "Invalid parameters",
	NothingFound:       "Resource not found",
	Conflict:           "Resource conflict",
	ServerErr:          "Internal server error",
	ServiceUnavailable: "Service unavailable",
	BatchInvalidState:  "Batch is in an invalid state for this operation",
	BatchPartial:       "Batch was only partially enqueued",
	QueueUnavailable:   "Work queue unavailable",
}

// Text returns the message registered for code.
func Text(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[ServerErr]
}

// ToHTTPStatus maps a business code to an HTTP status.
func ToHTTPStatus(code int) int {
	switch code {
	case OK:
		return http.StatusOK
	case RequestErr, ParamErr:
		return http.StatusBadRequest
	case NothingFound:
		return http.StatusNotFound
	case Conflict, BatchInvalidState:
		return http.StatusConflict
	case ServiceUnavailable, QueueUnavailable, BatchPartial:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
