// Package db wraps a pgx connection pool for the outbox ledger and the
// suppression list.
//
// It covers pool setup with startup retries, a readiness probe, a
// transaction helper and goose migrations over any fs.FS:
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := db.Migrate(ctx, pool, migrations.FS, cfg.MigrationsTable, log); err != nil {
//		return err
//	}
//
// Errors are joined with the package sentinels so callers can match them
// with errors.Is.
package db
