// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fittrack/accounts/internal/config"
	"github.com/fittrack/accounts/internal/store"
)

// NewMigrateCmd creates the migrate subcommand. Without a subcommand it
// applies every pending migration.
func NewMigrateCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long:  `Run, roll back or inspect the account schema migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	})

	var all, yes bool
	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back one migration, --steps migrations, or with --all every
migration. Rolling back drops account and session data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateDown(cmd, deps, all, steps, yes)
		},
	}
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.Flags().BoolVar(&yes, "yes", false, "confirm that data may be dropped")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateStatus(cmd, deps)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Mark VERSION as applied and clear the dirty flag. Use only after
repairing a migration that failed partway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return runMigrateForce(cmd, deps, version)
		},
	})

	return cmd
}

func runMigrateUp(cmd *cobra.Command, deps *Deps) error {
	migrator, err := openMigrator(cmd, deps)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, migrator)

	cmd.Println("Running migrations...")
	if err := migrator.Up(); err != nil {
		return oops.With("operation", "run migrations").Wrap(err)
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, deps *Deps, all bool, steps int, yes bool) error {
	if !yes {
		return oops.Code("CONFIRMATION_REQUIRED").Errorf("rolling back drops data; pass --yes to confirm")
	}
	if !all && steps < 1 {
		return oops.Code("INVALID_STEPS").With("steps", steps).Errorf("steps must be at least 1, got %d", steps)
	}

	migrator, err := openMigrator(cmd, deps)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, migrator)

	if all {
		cmd.Println("Rolling back all migrations...")
		if err := migrator.Down(); err != nil {
			return oops.With("operation", "roll back migrations").Wrap(err)
		}
	} else {
		cmd.Printf("Rolling back %d migration(s)...\n", steps)
		if err := migrator.Steps(-steps); err != nil {
			return oops.With("operation", "roll back migrations").Wrap(err)
		}
	}
	cmd.Println("Rollback completed successfully")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, deps *Deps) error {
	migrator, err := openMigrator(cmd, deps)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, migrator)

	status, err := migrator.Status()
	if err != nil {
		return err
	}

	name, err := store.MigrationName(status.Version)
	if err != nil {
		return err
	}
	current := strconv.FormatUint(uint64(status.Version), 10)
	if name != "" {
		current += " (" + name + ")"
	}
	cmd.Println("Current version: " + current)
	if status.Dirty {
		cmd.Println("WARNING: database is dirty; repair it and run 'migrate force'")
	}
	cmd.Printf("Applied: %d, pending: %d\n", len(status.Applied), len(status.Pending))
	for _, v := range status.Pending {
		pending, err := store.MigrationName(v)
		if err != nil {
			return err
		}
		cmd.Println("  pending " + pending)
	}
	return nil
}

func runMigrateForce(cmd *cobra.Command, deps *Deps, version int) error {
	migrator, err := openMigrator(cmd, deps)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, migrator)

	if err := migrator.Force(version); err != nil {
		return oops.With("operation", "force version").Wrap(err)
	}
	cmd.Printf("Forced schema version to %d\n", version)
	return nil
}

func openMigrator(cmd *cobra.Command, deps *Deps) (Migrator, error) {
	cfg, err := config.Load(configFile, cmd.Flags(), deps.Environ)
	if err != nil {
		return nil, err
	}
	databaseURL, err := getDatabaseURL(cfg)
	if err != nil {
		return nil, err
	}
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	return migrator, nil
}

func closeMigrator(cmd *cobra.Command, migrator Migrator) {
	if err := migrator.Close(); err != nil {
		cmd.PrintErrln("warning: failed to close migrator:", err)
	}
}

// getDatabaseURL returns the configured PostgreSQL URL. Migrations only
// apply to the postgres store, so an empty URL is a configuration error.
func getDatabaseURL(cfg *config.Config) (string, error) {
	if cfg.DatabaseURL == "" {
		return "", oops.Code("CONFIG_INVALID").
			With("key", "database-url").
			Errorf("database-url (or DATABASE_URL) is required for migrations")
	}
	return cfg.DatabaseURL, nil
}

// parseForceVersion parses a whole-number migration version.
func parseForceVersion(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	version, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").
			With("input", s).
			Wrapf(err, "version must be an integer")
	}
	if version < 0 {
		return 0, oops.Code("INVALID_VERSION").
			With("input", s).
			Errorf("version must be non-negative, got %d", version)
	}
	return version, nil
}
