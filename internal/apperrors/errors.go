package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrSessionExpired = errors.New("session expired")
)

// AppError represents a structured error received from or raised for the
// Foodify backend, with its HTTP status preserved.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// FromStatus maps an HTTP status code plus a backend error code/message into
// an AppError that preserves the error semantics for errors.Is checks.
func FromStatus(status int, code, message string) *AppError {
	e := &AppError{Code: code, Message: message, Status: status}
	switch {
	case status == http.StatusUnauthorized:
		e.Err = ErrUnauthorized
	case status == http.StatusForbidden:
		e.Err = ErrForbidden
	case status == http.StatusNotFound:
		e.Err = ErrNotFound
	case status == http.StatusBadRequest:
		e.Err = ErrInvalidInput
	case status == http.StatusConflict:
		e.Err = ErrConflict
	case status == http.StatusServiceUnavailable:
		e.Err = ErrServiceUnavail
	case status >= 500:
		e.Err = ErrInternal
	}
	return e
}
