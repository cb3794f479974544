package httpapi

import (
	"fmt"
	"net/http"
)

// Error is the single error shape returned across the HTTP boundary.
// It renders as {"error": Message, "details": Details, ...Fields}.
//
// Services return *Error for every outcome the caller should see verbatim;
// any other error is treated as unexpected and rendered as a generic 500.
type Error struct {
	Status  int
	Message string

	// Details carries upstream bodies or the stringified cause. Omitted when nil.
	Details any

	// Fields are extra top-level keys, e.g. the observed payment status.
	Fields map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// Body returns the JSON response body.
func (e *Error) Body() map[string]any {
	out := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["error"] = e.Message
	if e.Details != nil {
		out["details"] = e.Details
	}
	return out
}

func BadRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

func Internal(msg string) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg}
}

func ServiceUnavailable(msg string) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Message: msg}
}

func TooManyRequests(msg string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Message: msg}
}

// Upstream propagates a third-party failure with its status and body attached.
func Upstream(status int, msg string, body any) *Error {
	return &Error{Status: status, Message: msg, Details: body}
}

// Unexpected wraps an uncaught failure as a generic 500.
func Unexpected(cause any) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Message: "Unexpected error",
		Details: fmt.Sprint(cause),
	}
}
