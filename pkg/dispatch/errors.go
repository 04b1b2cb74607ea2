package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField     = errors.New("dispatch: missing required field")
	ErrInvalidRecipient = errors.New("dispatch: no valid recipient address")
	ErrUnknownTemplate  = errors.New("dispatch: unknown template")
	ErrInvalidPayload   = errors.New("dispatch: invalid payload")
	ErrInvalidCategory  = errors.New("dispatch: invalid sender category")
	ErrRateLimited      = errors.New("dispatch: rate limit exceeded")
	ErrSendFailed       = errors.New("dispatch: send failed")
	ErrRecordNotFound   = errors.New("dispatch: record not found")
	ErrNotDeliverable   = errors.New("dispatch: record is not deliverable")
	ErrGuardUnavailable = errors.New("dispatch: suppression check unavailable")
)

// FieldError names the request field that failed validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return &FieldError{Field: field, Err: ErrMissingField}
}
