package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/mailroom/pkg/archive"
	"github.com/dmitrymomot/mailroom/pkg/db"
	"github.com/dmitrymomot/mailroom/pkg/delivery"
	"github.com/dmitrymomot/mailroom/pkg/jwt"
	"github.com/dmitrymomot/mailroom/pkg/logger"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
	"github.com/dmitrymomot/mailroom/pkg/mailer/resend"
	"github.com/dmitrymomot/mailroom/pkg/mailer/ses"
	"github.com/dmitrymomot/mailroom/pkg/redis"
)

// Mail providers accepted by MAIL_PROVIDER.
const (
	ProviderResend = "resend"
	ProviderSES    = "ses"
	ProviderLog    = "log"
)

// flushTimeout bounds how long a command waits for Sentry on exit.
const flushTimeout = 2 * time.Second

var (
	ErrUnknownProvider = errors.New("config: unknown MAIL_PROVIDER")
	ErrInvalidRetry    = errors.New("config: invalid retry settings")
)

// Config is the full process configuration, read from the environment.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	SendTimeout     time.Duration `env:"HTTP_SEND_TIMEOUT" envDefault:"15m"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// InProcessJobs runs the job worker inside `serve`. When false, jobs are
	// only enqueued and a separate `mailroom worker` processes them.
	InProcessJobs bool `env:"JOBS_IN_PROCESS" envDefault:"true"`
	JobWorkers    int  `env:"JOBS_WORKERS" envDefault:"10"`

	Provider string `env:"MAIL_PROVIDER" envDefault:"log"`
	LogBody  bool   `env:"MAIL_LOG_BODY"`

	DefaultFrom delivery.Identity `envPrefix:"MAIL_DEFAULT_FROM_"`
	BillingFrom delivery.Identity `envPrefix:"MAIL_BILLING_FROM_"`

	RateLimit       int           `env:"RATE_LIMIT" envDefault:"10"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60m"`
	SuppressionTTL  time.Duration `env:"SUPPRESSION_CACHE_TTL" envDefault:"5m"`

	RetrySchedule string        `env:"RETRY_SCHEDULE" envDefault:"30s,2m,10m"`
	RetryMax      int           `env:"RETRY_MAX" envDefault:"3"`
	RetryHint     time.Duration `env:"RETRY_HINT" envDefault:"30s"`
	SweepMaxRuns  int           `env:"SWEEP_MAX_RUNS" envDefault:"5"`
	SweepSchedule string        `env:"SWEEP_SCHEDULE" envDefault:"* * * * *"`

	Database db.Config
	Redis    redis.Config
	Mailer   mailer.Config
	Resend   resend.Config
	SES      ses.Config
	Archive  archive.Config
	JWT      jwt.Config
	Log      logger.Config
}

// LoadConfig parses the environment and validates cross-field settings.
func LoadConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderResend, ProviderSES, ProviderLog:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if _, err := c.RetryPolicy(); err != nil {
		return err
	}
	return nil
}

// RetryPolicy builds the transport retry policy from RETRY_SCHEDULE and RETRY_MAX.
func (c *Config) RetryPolicy() (delivery.RetryPolicy, error) {
	schedule, err := delivery.ParseSchedule(c.RetrySchedule)
	if err != nil {
		return delivery.RetryPolicy{}, errors.Join(ErrInvalidRetry, err)
	}
	if c.RetryMax < 0 {
		return delivery.RetryPolicy{}, fmt.Errorf("%w: RETRY_MAX must not be negative", ErrInvalidRetry)
	}
	policy := delivery.DefaultRetryPolicy()
	if len(schedule) > 0 {
		policy.Schedule = schedule
	}
	policy.MaxRetries = c.RetryMax
	return policy, nil
}

// Router returns the sender identities. The billing identity falls back to
// the default one inside delivery.Router when unset.
func (c *Config) Router() delivery.Router {
	def := c.DefaultFrom
	if def.Email == "" {
		def = delivery.Identity{Name: c.Mailer.Brand.Name, Email: c.Mailer.Brand.Email}
	}
	return delivery.Router{Default: def, Billing: c.BillingFrom}
}
