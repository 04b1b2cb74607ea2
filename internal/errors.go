package internal

import (
	"errors"
	"net/http"
)

// HTTPError is an error with the status code and body fields the error
// handler renders. Err is kept for logs and never sent to the client.
type HTTPError struct {
	Code      int
	Message   string
	ErrorCode string // stable machine-readable code, e.g. "rate_limited"

	// ID and Status identify the outbox record the failure concerns.
	ID     string
	Status string

	RequestID string
	Err       error
}

func (e *HTTPError) Error() string { return e.Message }
func (e *HTTPError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Code }

// HTTPErrorOption sets optional HTTPError fields.
type HTTPErrorOption func(*HTTPError)

// NewHTTPError builds an HTTPError with the given status code.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithErrorCode(code string) HTTPErrorOption {
	return func(e *HTTPError) { e.ErrorCode = code }
}

// WithRecord ties the error to an outbox record.
func WithRecord(id, status string) HTTPErrorOption {
	return func(e *HTTPError) { e.ID, e.Status = id, status }
}

func WithRequestID(id string) HTTPErrorOption {
	return func(e *HTTPError) { e.RequestID = id }
}

// WithError attaches the cause for logging and errors.Is.
func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) { e.Err = err }
}

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrConflict(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusConflict, message, opts...)
}

func ErrTooManyRequests(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusTooManyRequests, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, message, opts...)
}

func ErrGatewayTimeout(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusGatewayTimeout, message, opts...)
}

// AsHTTPError returns the first *HTTPError in err's chain, or nil.
func AsHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	return nil
}

// IsHTTPError reports whether err's chain holds an *HTTPError.
func IsHTTPError(err error) bool {
	return AsHTTPError(err) != nil
}
