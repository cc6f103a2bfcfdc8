package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrIndexCorrupt covers any index file whose bytes disagree with its
	// own header or layout.
	ErrIndexCorrupt = errors.New("index file corrupt")
	// ErrIndexIncomplete means the header was never committed. It matches
	// ErrIndexCorrupt under errors.Is.
	ErrIndexIncomplete  = fmt.Errorf("%w: header not committed", ErrIndexCorrupt)
	ErrIndexUnreadable  = errors.New("index file unreadable")
	ErrShardUnavailable = errors.New("shard unavailable")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// IsCorrupt reports whether err means an index file cannot be trusted.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrIndexCorrupt) || errors.Is(err, ErrIndexUnreadable)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrShardUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case IsCorrupt(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
