package outbox

import (
	"context"
	"time"
)

// Store persists outbox records.
// Implementations must apply Modify atomically for a single record.
type Store interface {
	// Insert stores a new record.
	Insert(ctx context.Context, r *Record) error

	// Get returns a copy of the record with the given id.
	// Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Record, error)

	// Modify loads the record, applies fn and persists the result as one
	// read-modify-write. If fn returns an error nothing is written.
	Modify(ctx context.Context, id string, fn func(r *Record) error) (*Record, error)

	// ListDue returns failed records whose next retry time is at or before now
	// and whose retry count is below maxRetries, oldest first.
	ListDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]*Record, error)
}
