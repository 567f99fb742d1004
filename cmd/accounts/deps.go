// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package main

import (
	"context"
	"log/slog"

	"golang.org/x/term"

	"github.com/fittrack/accounts/internal/auth"
	"github.com/fittrack/accounts/internal/config"
	"github.com/fittrack/accounts/internal/observability"
	"github.com/fittrack/accounts/internal/store"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// Deps contains injectable dependencies for the CLI commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// BackendOpener opens the account and session repositories for cfg.
	// Default: openBackend
	BackendOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

	// HasherFactory creates the password hasher.
	// Default: auth.NewArgon2idHasher
	HasherFactory func() auth.PasswordHasher

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// Environ replaces the process environment when non-nil.
	Environ map[string]string

	// Started is called with the bound API address once serve is ready.
	Started func(httpAddr string)
}

// Backend is an opened storage backend.
type Backend struct {
	Accounts auth.AccountRepository
	Sessions auth.SessionRepository
	// Ready reports whether the backing database answers. Nil means always ready.
	Ready observability.ReadinessChecker
	// Close releases the backend. Never nil.
	Close func()
}

// ObservabilityServer is the part of *observability.Server serve drives.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Migrator is the part of *store.Migrator the migrate commands drive.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

func (d *Deps) withDefaults() *Deps {
	if d == nil {
		d = &Deps{}
	}
	if d.BackendOpener == nil {
		d.BackendOpener = openBackend
	}
	if d.HasherFactory == nil {
		d.HasherFactory = func() auth.PasswordHasher { return auth.NewArgon2idHasher() }
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(databaseURL string) (Migrator, error) {
			m, err := store.NewMigrator(databaseURL)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return d
}
