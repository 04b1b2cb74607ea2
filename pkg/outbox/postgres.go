package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/mailroom/pkg/db"
)

const recordColumns = `id, template, ref_id, caller_id, recipient, to_addresses, cc, bcc, subject, from_address,
	sender_category, payload, status, provider_message_id, error, retry_count, attempts,
	next_retry_at, created_at, updated_at`

// PostgresStore persists records in the email_outbox table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
// The schema is created by the migrations in the migrations package.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, r *Record) error {
	query := `INSERT INTO email_outbox (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.Template, r.RefID, r.CallerID, r.Recipient, nonNil(r.To), nonNil(r.CC), nonNil(r.BCC), r.Subject, r.From,
		r.SenderCategory, payloadOrNull(r.Payload), string(r.Status), r.ProviderMessageID, r.Error, r.RetryCount, r.Attempts,
		r.NextRetryAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateID
		}
		return fmt.Errorf("outbox: insert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM email_outbox WHERE id = $1`, id)
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("outbox: get record: %w", err)
	}
	return r, nil
}

// Modify locks the row with SELECT ... FOR UPDATE, applies fn and writes the
// mutable columns back inside one transaction.
func (s *PostgresStore) Modify(ctx context.Context, id string, fn func(r *Record) error) (*Record, error) {
	var out *Record
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM email_outbox WHERE id = $1 FOR UPDATE`, id)
		r, err := scanRecord(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("outbox: lock record: %w", err)
		}

		if err := fn(r); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE email_outbox
			SET status = $2, provider_message_id = $3, error = $4, retry_count = $5, attempts = $6,
				next_retry_at = $7, from_address = $8, updated_at = $9
			WHERE id = $1`,
			r.ID, string(r.Status), r.ProviderMessageID, r.Error, r.RetryCount, r.Attempts,
			r.NextRetryAt, r.From, r.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("outbox: update record: %w", err)
		}

		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + recordColumns + ` FROM email_outbox
		WHERE status = 'failed' AND next_retry_at IS NOT NULL AND next_retry_at <= $1
			AND ($2 <= 0 OR retry_count < $2)
		ORDER BY next_retry_at ASC
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, now, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: list due records: %w", err)
	}
	defer rows.Close()

	var due []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("outbox: scan due record: %w", err)
		}
		due = append(due, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox: list due records: %w", err)
	}
	return due, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		r      Record
		status string
	)
	err := row.Scan(
		&r.ID, &r.Template, &r.RefID, &r.CallerID, &r.Recipient, &r.To, &r.CC, &r.BCC, &r.Subject, &r.From,
		&r.SenderCategory, &r.Payload, &status, &r.ProviderMessageID, &r.Error, &r.RetryCount, &r.Attempts,
		&r.NextRetryAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = Status(status)
	r.To = nonNil(r.To)
	r.CC = nonNil(r.CC)
	r.BCC = nonNil(r.BCC)
	return &r, nil
}

func payloadOrNull(p []byte) any {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}

var _ Store = (*PostgresStore)(nil)
