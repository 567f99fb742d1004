// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
	"github.com/shopspring/decimal"

	"github.com/fittrack/accounts/internal/auth"
)

const accountColumns = `id, username, email, password_hash, first_name, last_name,
		       date_of_birth, phone_number, weight::text, height, created_at, updated_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)

// ExistsByUsername reports whether the exact username is registered.
func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username", `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`, username)
}

// ExistsByEmail reports whether the email is registered, ignoring case.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", `SELECT EXISTS (SELECT 1 FROM accounts WHERE LOWER(email) = LOWER($1))`, email)
}

// ExistsByPhone reports whether the phone number is registered.
func (r *AccountRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, "phone_number", `SELECT EXISTS (SELECT 1 FROM accounts WHERE phone_number = $1)`, phone)
}

func (r *AccountRepository) exists(ctx context.Context, field, query, value string) (bool, error) {
	var found bool
	if err := r.pool.QueryRow(ctx, query, value).Scan(&found); err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").
			With("operation", "check "+field+" exists").
			Wrap(err)
	}
	return found, nil
}

// FindByID retrieves an account by ID.
func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id).
			Wrap(err)
	}
	return account, nil
}

// FindByUsername retrieves an account by exact username.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_USERNAME_FAILED").
			With("operation", "get account by username").
			With("username", username).
			Wrap(err)
	}
	return account, nil
}

// FindByEmail retrieves an account by email, ignoring case.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE LOWER(email) = LOWER($1)`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	return account, nil
}

// Create inserts the account and sets its ID. The unique indexes on
// username, lower(email) and phone_number are the authority on uniqueness.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	var weight *string
	if account.Weight != nil {
		w := account.Weight.StringFixed(2)
		weight = &w
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (
			username, email, password_hash, first_name, last_name,
			date_of_birth, phone_number, weight, height, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11)
		RETURNING id
	`,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.DateOfBirth,
		account.PhoneNumber,
		weight,
		account.Height,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		if conflict := classifyUniqueViolation(err); conflict != nil {
			return oops.Code("ACCOUNT_CONFLICT").
				With("username", account.Username).
				Wrap(conflict)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("username", account.Username).
			Wrap(err)
	}
	return nil
}

// Delete removes an account. Its sessions go with it via ON DELETE CASCADE.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete account").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// List returns all accounts ordered by username.
func (r *AccountRepository) List(ctx context.Context) ([]*auth.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY username`)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list accounts").
			Wrap(err)
	}
	defer rows.Close()

	var accounts []*auth.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, oops.Code("ACCOUNT_LIST_FAILED").
				With("operation", "scan account row").
				Wrap(err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "iterate accounts").
			Wrap(err)
	}
	return accounts, nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		a      auth.Account
		dob    *time.Time
		weight *string
		height *int32
	)

	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.FirstName,
		&a.LastName,
		&dob,
		&a.PhoneNumber,
		&weight,
		&height,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}

	a.DateOfBirth = dob
	if weight != nil {
		w, err := decimal.NewFromString(*weight)
		if err != nil {
			return nil, oops.Code("ACCOUNT_SCAN_FAILED").
				With("weight", *weight).
				Wrap(err)
		}
		a.Weight = &w
	}
	if height != nil {
		h := int(*height)
		a.Height = &h
	}
	return &a, nil
}
