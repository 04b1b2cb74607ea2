package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom"
	"github.com/dmitrymomot/mailroom/handlers"
	"github.com/dmitrymomot/mailroom/middlewares"
	"github.com/dmitrymomot/mailroom/pkg/job"
	"github.com/dmitrymomot/mailroom/pkg/jwt"
	"github.com/dmitrymomot/mailroom/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}

	log, err := logger.Open(cfg.Log, nil,
		middlewares.RequestIDExtractor(),
		middlewares.CallerIDExtractor(),
	)
	if err != nil {
		return err
	}
	defer logger.Flush(flushTimeout)

	d, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	svc, err := d.buildService(ctx)
	if err != nil {
		d.close(context.Background())
		return err
	}

	var adminMW []mailroom.Middleware
	emailOpts := []handlers.EmailsOption{
		handlers.WithSendTimeout(cfg.SendTimeout),
		handlers.WithReadTimeout(cfg.ReadTimeout),
	}
	if cfg.JWT.Enabled() {
		tokens, err := jwt.New(cfg.JWT)
		if err != nil {
			d.close(context.Background())
			return err
		}
		emailOpts = append(emailOpts, handlers.WithEmailsMiddleware(middlewares.Identity(tokens)))
		adminMW = append(adminMW, middlewares.Identity(tokens, middlewares.WithIdentityRequired()))
	} else {
		log.Warn("JWT_SECRET not set, requests are anonymous and suppression admin is open")
	}

	healthOpts := make([]mailroom.HealthOption, 0, len(d.checks)+1)
	for name, check := range d.checks {
		healthOpts = append(healthOpts, mailroom.WithReadinessCheck(name, check))
	}

	opts := []mailroom.Option{
		mailroom.WithCustomLogger(log),
		mailroom.WithMiddleware(
			middlewares.RequestID(),
			middlewares.AccessLog("/health/live", "/health/ready"),
			middlewares.Recover(),
		),
		mailroom.WithErrorHandler(handlers.ErrorHandler(log)),
		mailroom.WithHandlers(
			handlers.NewEmails(svc, emailOpts...),
			handlers.NewSuppressions(d.suppressions, adminMW...),
		),
	}

	var app *mailroom.App
	if d.pool != nil && cfg.InProcessJobs {
		opts = append(opts, mailroom.WithJobs(d.pool, d.jobOptions()...))
		healthOpts = append(healthOpts, mailroom.WithReadinessCheck("jobs", func(ctx context.Context) error {
			return job.Healthcheck(app.JobWorker())(ctx)
		}))
	} else if d.pool != nil {
		opts = append(opts, mailroom.WithJobEnqueuer(d.pool, job.WithEnqueuerLogger(log)))
	}
	opts = append(opts, mailroom.WithHealthChecks(healthOpts...))

	app = mailroom.New(opts...)

	log.Info("starting mailroom",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("provider", cfg.Provider),
		slog.Bool("postgres", d.pool != nil),
		slog.Bool("redis", d.redis != nil),
	)

	runOpts := []mailroom.RunOption{
		mailroom.Logger(log),
		mailroom.ShutdownTimeout(cfg.ShutdownTimeout),
		mailroom.WithContext(ctx),
	}
	for _, fn := range d.shutdown {
		runOpts = append(runOpts, mailroom.ShutdownHook(fn))
	}
	return app.Run(cfg.HTTPAddr, runOpts...)
}
