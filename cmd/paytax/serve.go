package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rgehrsitz/paytax/internal/api"
	"github.com/rgehrsitz/paytax/internal/config"
	"github.com/rgehrsitz/paytax/internal/payroll"
	"github.com/rgehrsitz/paytax/internal/telemetry"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the payroll tax HTTP API",
		Long:  "Run the multi-tenant HTTP API. Settings are read from PAYTAX_* environment variables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore("")
			if err != nil {
				return err
			}
			defer st.Close()

			logger := newSlogLogger(st.cfg.Logging)
			slog.SetDefault(logger)

			slog.Info("starting paytax",
				"version", version,
				"commit", commit,
				"build_date", date,
			)
			slog.Info("configuration loaded",
				"repository", st.cfg.Repository.Driver,
				"cache", st.cfg.Cache.Type,
				"tracing", st.cfg.Tracing.Enabled,
			)

			shutdownTracing, err := telemetry.Setup(cmd.Context(), st.cfg.Tracing)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(ctx); err != nil {
					slog.Warn("trace exporter shutdown failed", "error", err)
				}
			}()

			policy, err := config.NewInputParser().LoadPolicyOrDefault(st.cfg.PolicyFile)
			if err != nil {
				return err
			}
			if st.cfg.PolicyFile != "" {
				slog.Info("tax policy loaded", "file", st.cfg.PolicyFile, "name", policy.Name)
			}

			svc := payroll.NewService(st.repo, st.cache, *policy, st.cfg.Cache.TTL)
			svc.SetLogger(slogLogger{l: logger})

			srv := api.NewServer(st.cfg.Server, svc, st.repo, st.cache, version)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			slog.Info("paytax is ready",
				"host", st.cfg.Server.Host,
				"port", st.cfg.Server.Port,
			)

			select {
			case err := <-errCh:
				if err != nil {
					slog.Error("server failed", "error", err)
					return err
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("server forced to shutdown", "error", err)
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}
}
