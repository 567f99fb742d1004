// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fittrack/accounts/internal/config"
	"github.com/fittrack/accounts/internal/logging"
)

const serviceName = "accounts"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the accounts CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Accounts - user registration, login and lookup",
		Long: `Accounts serves the account HTTP API (create, login, lookup, delete,
logout) backed by PostgreSQL, SQLite or an in-memory store.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(deps))
	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewAccountCmd(deps))

	return cmd
}

// loadConfig resolves and validates the configuration for cmd.
func loadConfig(cmd *cobra.Command, deps *Deps) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags(), deps.Environ)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
		Writer:  cmd.ErrOrStderr(),
	})
}
