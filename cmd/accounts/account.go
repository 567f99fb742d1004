// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fittrack/accounts/internal/account"
	"github.com/fittrack/accounts/internal/auth"
	"github.com/fittrack/accounts/internal/validation"
)

// NewAccountCmd creates the account subcommand.
func NewAccountCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts from the terminal",
		Long: `Create, list and delete accounts directly against the configured
store. Input goes through the same validation as the HTTP API.`,
	}

	cmd.AddCommand(newAccountCreateCmd(deps))
	cmd.AddCommand(newAccountListCmd(deps))
	cmd.AddCommand(newAccountDeleteCmd(deps))
	return cmd
}

// createFlags maps account create flags to payload keys.
var createFlags = []struct {
	flag  string
	key   string
	usage string
}{
	{"username", "username", "username (3-150 characters)"},
	{"first-name", "first_name", "first name"},
	{"last-name", "last_name", "last name"},
	{"email", "email", "email address"},
	{"date-of-birth", "date_of_birth", "date of birth (YYYY-MM-DD)"},
	{"phone-number", "phone_number", "phone number in E.164 form, e.g. +447700900123"},
	{"weight", "weight", "weight in kg"},
	{"height", "height", "height in cm"},
}

func newAccountCreateCmd(deps *Deps) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long: `Create an account. The password is prompted for without echo, or
read from the first line of standard input with --password-stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload := validation.Payload{}
			for _, f := range createFlags {
				if cmd.Flags().Changed(f.flag) {
					v, err := cmd.Flags().GetString(f.flag)
					if err != nil {
						return oops.Wrap(err)
					}
					payload[f.key] = v
				}
			}

			password, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), passwordStdin)
			if err != nil {
				return oops.Code("PASSWORD_READ_FAILED").Wrap(err)
			}
			payload["password"] = password

			return withService(cmd, deps, func(ctx context.Context, svc *account.Service) error {
				created, err := svc.CreateAccount(ctx, payload)
				if err != nil {
					return err
				}
				cmd.Printf("Created account %d (%s)\n", created.ID, created.Username)
				return nil
			})
		},
	}

	for _, f := range createFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from standard input")
	return cmd
}

func newAccountListCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts by username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *account.Service) error {
				accounts, err := svc.ListAccounts(ctx)
				if err != nil {
					return err
				}
				return printAccounts(cmd.OutOrStdout(), accounts)
			})
		},
	}
}

func newAccountDeleteCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an account and its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *account.Service) error {
				deleted, err := svc.DeleteAccount(ctx, validation.Payload{"id": args[0]})
				if err != nil {
					return err
				}
				cmd.Printf("Deleted account %d (%s)\n", deleted.ID, deleted.Username)
				return nil
			})
		},
	}
}

// withService opens the configured store, builds an account service on it
// and runs fn.
func withService(cmd *cobra.Command, deps *Deps, fn func(context.Context, *account.Service) error) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, deps)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

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
		return err
	}
	svc, err := account.NewService(backend.Accounts, manager, hasher, account.WithLogger(logger))
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}

// promptPassword reads the first line of in when fromStdin is set, and
// otherwise prompts on out and reads from the terminal without echo.
func promptPassword(in io.Reader, out io.Writer, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	if _, err := fmt.Fprint(out, "Password: "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out) //nolint:errcheck // cosmetic newline after the prompt
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func printAccounts(w io.Writer, accounts []*auth.Account) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tNAME\tCREATED") //nolint:errcheck // flushed below
	for _, a := range accounts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s %s\t%s\n", //nolint:errcheck // flushed below
			a.ID, a.Username, a.Email, a.FirstName, a.LastName, a.CreatedAt.UTC().Format("2006-01-02"))
	}
	if err := tw.Flush(); err != nil {
		return oops.Wrap(err)
	}
	return nil
}
