// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/shopspring/decimal"

	"github.com/fittrack/accounts/internal/auth"
)

const dateLayout = "2006-01-02"

const accountColumns = `id, username, email, password_hash, first_name, last_name,
	date_of_birth, phone_number, weight, height, created_at, updated_at`

// AccountRepository implements auth.AccountRepository using SQLite.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// ExistsByUsername reports whether the exact username is registered.
func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username", `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = ?)`, username)
}

// ExistsByEmail reports whether the email is registered, ignoring case.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = ? COLLATE NOCASE)`, email)
}

// ExistsByPhone reports whether the phone number is registered.
func (r *AccountRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, "phone_number", `SELECT EXISTS (SELECT 1 FROM accounts WHERE phone_number = ?)`, phone)
}

func (r *AccountRepository) exists(ctx context.Context, field, query, value string) (bool, error) {
	var found bool
	if err := r.db.QueryRowContext(ctx, query, value).Scan(&found); err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").
			With("operation", "check "+field+" exists").
			Wrap(err)
	}
	return found, nil
}

// FindByID retrieves an account by ID.
func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*auth.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").With("id", id).Wrap(err)
	}
	return account, nil
}

// FindByUsername retrieves an account by exact username.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
	account, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_USERNAME_FAILED").With("username", username).Wrap(err)
	}
	return account, nil
}

// FindByEmail retrieves an account by email, ignoring case.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ? COLLATE NOCASE`, email)
	account, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").Wrap(err)
	}
	return account, nil
}

// Create inserts the account and sets its ID.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	var dob, weight sql.NullString
	if account.DateOfBirth != nil {
		dob = sql.NullString{String: account.DateOfBirth.Format(dateLayout), Valid: true}
	}
	if account.Weight != nil {
		weight = sql.NullString{String: account.Weight.StringFixed(2), Valid: true}
	}
	var phone sql.NullString
	if account.PhoneNumber != nil {
		phone = sql.NullString{String: *account.PhoneNumber, Valid: true}
	}
	var height sql.NullInt64
	if account.Height != nil {
		height = sql.NullInt64{Int64: int64(*account.Height), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (
			username, email, password_hash, first_name, last_name,
			date_of_birth, phone_number, weight, height, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		dob,
		phone,
		weight,
		height,
		toMillis(account.CreatedAt),
		toMillis(account.UpdatedAt),
	)
	if err != nil {
		if conflict := classifyUniqueViolation(err); conflict != nil {
			return oops.Code("ACCOUNT_CONFLICT").With("username", account.Username).Wrap(conflict)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").With("username", account.Username).Wrap(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "read inserted id").
			Wrap(err)
	}
	account.ID = id
	return nil
}

// Delete removes an account. Its sessions go with it via ON DELETE CASCADE.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").With("id", id).Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").With("id", id).Wrap(err)
	}
	if n == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// List returns all accounts ordered by username.
func (r *AccountRepository) List(ctx context.Context) ([]*auth.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY username`)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").Wrap(err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var accounts []*auth.Account
	for rows.Next() {
		account, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, oops.Code("ACCOUNT_LIST_FAILED").With("operation", "scan account row").Wrap(err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").With("operation", "iterate accounts").Wrap(err)
	}
	return accounts, nil
}

func scanAccount(scan func(dest ...any) error) (*auth.Account, error) {
	var (
		a                auth.Account
		dob, phone, wt   sql.NullString
		height           sql.NullInt64
		created, updated int64
	)
	if err := scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.FirstName,
		&a.LastName,
		&dob,
		&phone,
		&wt,
		&height,
		&created,
		&updated,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}

	if dob.Valid {
		d, err := time.Parse(dateLayout, dob.String)
		if err != nil {
			return nil, oops.Code("ACCOUNT_SCAN_FAILED").With("date_of_birth", dob.String).Wrap(err)
		}
		a.DateOfBirth = &d
	}
	if phone.Valid {
		p := phone.String
		a.PhoneNumber = &p
	}
	if wt.Valid {
		w, err := decimal.NewFromString(wt.String)
		if err != nil {
			return nil, oops.Code("ACCOUNT_SCAN_FAILED").With("weight", wt.String).Wrap(err)
		}
		a.Weight = &w
	}
	if height.Valid {
		h := int(height.Int64)
		a.Height = &h
	}
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}
