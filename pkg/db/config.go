package db

import "time"

// Config holds PostgreSQL pool parameters loaded from the environment.
// An empty ConnectionString means the service runs without Postgres
// and falls back to in-memory stores.
type Config struct {
	ConnectionString string `env:"DATABASE_CONN_URL"`

	MigrationsTable string `env:"DATABASE_MIGRATIONS_TABLE" envDefault:"mailroom_migrations"`

	HealthCheckPeriod time.Duration `env:"DATABASE_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" envDefault:"30m"`

	// Startup retries. Attempt n waits n*RetryInterval before the next try.
	RetryAttempts int           `env:"DATABASE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"DATABASE_RETRY_INTERVAL" envDefault:"5s"`

	MaxOpenConns int32 `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MinConns     int32 `env:"DATABASE_MIN_CONNS" envDefault:"2"`
}

// Enabled reports whether a connection string was configured.
func (c Config) Enabled() bool {
	return c.ConnectionString != ""
}
