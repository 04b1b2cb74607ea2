package guard

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSuppressions stores the suppression list in the email_suppressions table.
type PostgresSuppressions struct {
	pool *pgxpool.Pool
}

// NewPostgresSuppressions creates a Postgres-backed suppression list.
func NewPostgresSuppressions(pool *pgxpool.Pool) *PostgresSuppressions {
	return &PostgresSuppressions{pool: pool}
}

func (s *PostgresSuppressions) IsSuppressed(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM email_suppressions WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, errors.Join(ErrSuppressionLookup, err)
	}
	return exists, nil
}

func (s *PostgresSuppressions) Add(ctx context.Context, email, reason string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO email_suppressions (email, reason, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (email) DO UPDATE SET reason = EXCLUDED.reason`,
		email, reason,
	)
	if err != nil {
		return errors.Join(ErrSuppressionWrite, err)
	}
	return nil
}

func (s *PostgresSuppressions) Remove(ctx context.Context, email string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM email_suppressions WHERE email = $1`, email); err != nil {
		return errors.Join(ErrSuppressionWrite, err)
	}
	return nil
}

// Get returns the stored entry, or nil when the address is not suppressed.
func (s *PostgresSuppressions) Get(ctx context.Context, email string) (*Suppression, error) {
	var sup Suppression
	err := s.pool.QueryRow(ctx,
		`SELECT email, reason, created_at FROM email_suppressions WHERE email = $1`, email,
	).Scan(&sup.Email, &sup.Reason, &sup.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrSuppressionLookup, err)
	}
	return &sup, nil
}

var _ SuppressionStore = (*PostgresSuppressions)(nil)
