package outbox

import "errors"

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("outbox: record not found")

	// ErrInvalidTransition is returned when a status change violates the state machine.
	ErrInvalidTransition = errors.New("outbox: invalid status transition")

	// ErrInvalidRecord is returned when a new record is missing required fields.
	ErrInvalidRecord = errors.New("outbox: invalid record")

	// ErrDuplicateID is returned when a record with the same id already exists.
	ErrDuplicateID = errors.New("outbox: duplicate record id")
)
