// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fittrack/accounts/internal/account"
	"github.com/fittrack/accounts/internal/auth"
	"github.com/fittrack/accounts/internal/observability"
	"github.com/fittrack/accounts/internal/web"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the account HTTP API",
		Long: `Start the account HTTP API and, when --metrics-addr is set, the
metrics and health server. Runs until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, deps)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	cfg, err := loadConfig(cmd, deps)
	if err != nil {
		return oops.With("operation", "load configuration").Wrap(err)
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return oops.With("operation", "set up logging").Wrap(err)
	}
	slog.SetDefault(logger)

	logger.Info("starting accounts service",
		"version", version,
		"store", cfg.Store,
		"http_addr", cfg.HTTPAddr,
	)

	backend, err := deps.BackendOpener(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open store").With("store", cfg.Store).Wrap(err)
	}
	defer backend.Close()

	hasher := deps.HasherFactory()
	manager, err := auth.NewSessionManager(backend.Accounts, backend.Sessions, hasher,
		auth.WithLogger(logger),
		auth.WithSessionTTL(cfg.SessionTTL),
	)
	if err != nil {
		return oops.With("operation", "create session manager").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, backend.Ready, logger)
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return oops.With("operation", "start observability server").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
		metrics = obsServer.Metrics()
	}

	svc, err := account.NewService(backend.Accounts, manager, hasher,
		account.WithLogger(logger),
		account.WithMetrics(metrics),
	)
	if err != nil {
		stopAll(logger, obsServer, nil)
		return oops.With("operation", "create account service").Wrap(err)
	}

	router := web.NewRouter(&web.RouterDeps{
		Accounts:     svc,
		Logger:       logger,
		Metrics:      metrics,
		MaxBodyBytes: cfg.MaxBodyBytes,
		CookieSecure: cfg.CookieSecure,
	})
	httpServer := web.NewServer(cfg.HTTPAddr, router, logger)
	httpErrChan, err := httpServer.Start()
	if err != nil {
		stopAll(logger, obsServer, nil)
		return oops.With("operation", "start http server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, httpErrChan, "http", logger)

	if cfg.PurgeInterval > 0 {
		go purgeExpiredSessions(ctx, manager, cfg.PurgeInterval, logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Accounts service started on " + httpServer.Addr())
	logger.Info("accounts service ready", "http_addr", httpServer.Addr())
	if deps.Started != nil {
		deps.Started(httpServer.Addr())
	}

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	stopAll(logger, obsServer, httpServer)
	logger.Info("shutdown complete")
	return nil
}

// stopAll stops whichever servers were started.
func stopAll(logger *slog.Logger, obsServer ObservabilityServer, httpServer *web.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if httpServer != nil {
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping http server", "error", err)
		}
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}
}

// purgeExpiredSessions deletes expired sessions every interval until ctx ends.
func purgeExpiredSessions(ctx context.Context, manager *auth.SessionManager, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := manager.PurgeExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "expired session purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "purged expired sessions", "count", n)
			}
		}
	}
}

// monitorServerErrors cancels the context when a server reports an error.
// It exits when either an error is received, the channel is closed, or the
// context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
