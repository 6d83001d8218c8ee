package api

import (
	"errors"
	"net/http"
)

// FieldError is a per-field validation failure reported by the backend
// (or by client-side payload validation before a request is sent).
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the structured error carried by every failed API call.
// The server's body is propagated unmodified: Status is the HTTP status,
// Message the server message, Fields any per-field validation errors.
type Error struct {
	Status  int
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return http.StatusText(e.Status)
	}
	return "request failed"
}

// IsUnauthorized reports whether err is an HTTP 401 from the backend.
// 401s are never retried and invalidate the session.
func IsUnauthorized(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

// IsValidation reports whether err carries per-field validation errors.
func IsValidation(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && len(ae.Fields) > 0
}

// StatusOf returns the HTTP status of an API error, or 0 for other errors.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// Message returns the server-provided message when err carries one,
// else the given fallback.
func Message(err error, fallback string) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}

// wireError is the backend's error body shape.
type wireError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (w wireError) toError(status int) *Error {
	e := &Error{Status: status, Message: w.Message}
	for _, fe := range w.Errors {
		e.Fields = append(e.Fields, FieldError{Field: fe.Field, Message: fe.Message})
	}
	return e
}
