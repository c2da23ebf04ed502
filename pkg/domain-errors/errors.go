// Package domainerrors defines the coded error taxonomy shared by services and
// the HTTP layer. Services return *Error values; handlers translate the code
// into a status and a `{error, message}` envelope.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure. The string value is what clients
// see in the `error` field of a JSON error response.
type Code string

const (
	// CodeConfiguration marks missing or placeholder required identifiers.
	CodeConfiguration Code = "configuration_error"
	// CodeValidation marks malformed caller input rejected before any upstream call.
	CodeValidation Code = "validation_error"
	// CodeUpstream marks a failed call to the credential platform. A timed-out
	// call keeps this code; StatusOf turns it into a 504.
	CodeUpstream     Code = "upstream_error"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "state_conflict"
	CodeOrphanEvent  Code = "orphan_event"
	CodeUnauthorized Code = "unauthorized"
	CodeBadRequest   Code = "bad_request"
	CodeInternal     Code = "internal_error"
)

// Error is a coded domain error. Err is the optional underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status used by handlers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// StatusOf maps err to an HTTP status. Upstream failures whose chain reports
// Timeout() == true become 504 instead of 502.
func StatusOf(err error) int {
	code := CodeOf(err)
	if code == CodeUpstream && isTimeout(err) {
		return http.StatusGatewayTimeout
	}
	return ToHTTPStatus(code)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
