// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

// Package postgres implements the auth repositories on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fittrack/accounts/internal/auth"
)

// Pool is the subset of *pgxpool.Pool the repositories use.
// pgxmock.PgxPoolIface satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Constraint and index names from the migrations, mapped to the field they guard.
var uniqueConstraintFields = map[string]string{
	"uq_accounts_username":     auth.ConflictUsername,
	"uq_accounts_email":        auth.ConflictEmail,
	"uq_accounts_phone_number": auth.ConflictPhone,
}

// classifyUniqueViolation returns a *auth.ConflictError when err is a
// unique violation, and nil otherwise.
func classifyUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	return &auth.ConflictError{Field: uniqueConstraintFields[pgErr.ConstraintName]}
}
