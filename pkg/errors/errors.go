// Package errors holds the service's sentinel errors and maps them to HTTP
// status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTermNotFound = errors.New("term not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("backend unavailable")
	ErrInternal     = errors.New("internal error")
	ErrTimeout      = errors.New("operation timed out")
)

var statusBySentinel = []struct {
	sentinel error
	status   int
}{
	{ErrTermNotFound, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUnavailable, http.StatusServiceUnavailable},
	{ErrTimeout, http.StatusServiceUnavailable},
	{ErrInternal, http.StatusInternalServerError},
}

// AppError classifies a failure with a sentinel and an HTTP status. Cause,
// when set, is the underlying error and stays reachable via errors.Is/As.
type AppError struct {
	Err        error
	Cause      error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Err, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Message)
}

func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// Wrap classifies cause under sentinel, taking the status from the sentinel.
func Wrap(sentinel, cause error, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Cause:      cause,
		Message:    message,
		StatusCode: HTTPStatusCode(sentinel),
	}
}

// HTTPStatusCode prefers the status of the outermost AppError, then the first
// matching sentinel, then 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	for _, s := range statusBySentinel {
		if errors.Is(err, s.sentinel) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
