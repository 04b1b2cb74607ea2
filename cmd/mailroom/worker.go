package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/pkg/job"
	"github.com/dmitrymomot/mailroom/pkg/logger"
)

var errWorkerNeedsDatabase = errors.New("worker: DATABASE_CONN_URL is required")

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process deliver_email and sweep_outbox jobs",
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	log, err := logger.Open(cfg.Log, nil)
	if err != nil {
		return err
	}
	defer logger.Flush(flushTimeout)
	log = log.With("component", "worker")

	d, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.close(context.WithoutCancel(ctx))

	if d.pool == nil {
		return errWorkerNeedsDatabase
	}
	if _, err := d.buildService(ctx); err != nil {
		return err
	}

	m, err := job.NewManager(d.pool, d.jobOptions()...)
	if err != nil {
		return err
	}
	if err := m.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down worker")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	return m.Stop(stopCtx)
}
