// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/fittrack/accounts/internal/auth/memory"
	authpg "github.com/fittrack/accounts/internal/auth/postgres"
	"github.com/fittrack/accounts/internal/auth/sqlite"
	"github.com/fittrack/accounts/internal/config"
	"github.com/fittrack/accounts/internal/store"
)

// openBackend opens the repositories for cfg.Store.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return openMemoryBackend(), nil
	case config.StorePostgres:
		return openPostgresBackend(ctx, cfg, logger)
	case config.StoreSQLite:
		return openSQLiteBackend(ctx, cfg, logger)
	default:
		return nil, oops.Code("CONFIG_INVALID").With("key", "store").Errorf("unknown store %q", cfg.Store)
	}
}

func openMemoryBackend() *Backend {
	accounts := memory.NewAccountRepository()
	sessions := memory.NewSessionRepository()
	accounts.CascadeTo(sessions)
	return &Backend{
		Accounts: accounts,
		Sessions: sessions,
		Close:    func() {},
	}
}

func openPostgresBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	opts := store.DefaultConnectOptions()
	opts.Logger = logger

	pool, err := store.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		if err := migrateUp(cfg.DatabaseURL, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Backend{
		Accounts: authpg.NewAccountRepository(pool),
		Sessions: authpg.NewSessionRepository(pool),
		Ready:    pool.Ping,
		Close:    pool.Close,
	}, nil
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	logger.Info("database schema up to date")
	return nil
}

func openSQLiteBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	st, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	logger.Info("opened sqlite database", "path", cfg.SQLitePath)

	return &Backend{
		Accounts: st.Accounts(),
		Sessions: st.Sessions(),
		Ready:    st.Ping,
		Close: func() {
			if err := st.Close(); err != nil {
				logger.Warn("failed to close sqlite database", "error", err)
			}
		},
	}, nil
}
