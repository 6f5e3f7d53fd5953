package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"league-digest/internal/server"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a digest every interval and expose /healthz, /metrics and /digest",
		Long: `Run one cycle immediately, then one per interval until SIGINT/SIGTERM.

Examples:
  league-digest serve --interval 24h
  league-digest serve --debug --interval 1h --config /config.yml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return a.serve(ctx, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 24*time.Hour, "run interval")
	return cmd
}

func (a *app) serve(ctx context.Context, interval time.Duration) error {
	srv := server.New(a.cfg.Server, a.latest)
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http listening", "addr", a.cfg.Server.ListenAddress)
		if err := srv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	cycle := func() {
		if err := a.runOnce(ctx); err != nil {
			// Next tick retries; the process keeps serving.
			a.log.Error("cycle failed", "err", err)
		}
	}

	a.log.Info("league-digest started", "interval", interval.String())
	cycle()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.log.Info("stopping", "reason", ctx.Err())
			return nil
		case err := <-errCh:
			return err
		case <-ticker.C:
			cycle()
		}
	}
}
