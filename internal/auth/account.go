// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"
	"github.com/shopspring/decimal"
)

// Write-time bounds for account attributes.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 150
	MaxNameLength     = 150
	MinHeightCM       = 40
	MaxHeightCM       = 300
	MaxAgeDays        = 36525
)

// MaxWeightKG is the upper weight bound; the lower bound is zero.
var MaxWeightKG = decimal.NewFromInt(500)

// Account is a registered user.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	DateOfBirth  *time.Time
	PhoneNumber  *string
	Weight       *decimal.Decimal
	Height       *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountFields are the normalized values a new account is built from.
// The optional attributes are nil when unset.
type AccountFields struct {
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	DateOfBirth  *time.Time
	PhoneNumber  *string
	Weight       *decimal.Decimal
	Height       *int
}

// NewAccount creates a validated Account. The ID is assigned by the
// repository on Create. Weight is quantized to two decimal places.
func NewAccount(f AccountFields) (*Account, error) {
	return NewAccountAt(f, time.Now())
}

// NewAccountAt is NewAccount with now as the creation instant. The date of
// birth is checked against the UTC day of now.
func NewAccountAt(f AccountFields, now time.Time) (*Account, error) {
	if n := utf8.RuneCountInString(f.Username); strings.TrimSpace(f.Username) == "" || n < MinUsernameLength || n > MaxUsernameLength {
		return nil, oops.Code("ACCOUNT_INVALID_USERNAME").
			With("min", MinUsernameLength).
			With("max", MaxUsernameLength).
			Errorf("username must be %d to %d characters", MinUsernameLength, MaxUsernameLength)
	}
	if f.Email == "" || f.Email != strings.ToLower(f.Email) {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email must be non-empty and lowercase")
	}
	if strings.TrimSpace(f.PasswordHash) == "" {
		return nil, oops.Code("ACCOUNT_INVALID_PASSWORD").Errorf("password hash cannot be empty")
	}
	if err := checkName("first name", f.FirstName); err != nil {
		return nil, err
	}
	if err := checkName("last name", f.LastName); err != nil {
		return nil, err
	}
	if f.DateOfBirth != nil {
		y, m, d := now.UTC().Date()
		today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		dob := f.DateOfBirth.UTC()
		if dob.After(today) || dob.Before(today.AddDate(0, 0, -MaxAgeDays)) {
			return nil, oops.Code("ACCOUNT_INVALID_DATE_OF_BIRTH").
				With("date_of_birth", dob.Format(time.DateOnly)).
				Errorf("date of birth out of range")
		}
	}
	if f.PhoneNumber != nil && *f.PhoneNumber == "" {
		return nil, oops.Code("ACCOUNT_INVALID_PHONE_NUMBER").Errorf("phone number cannot be empty when provided")
	}
	var weight *decimal.Decimal
	if f.Weight != nil {
		if f.Weight.IsNegative() || f.Weight.GreaterThan(MaxWeightKG) {
			return nil, oops.Code("ACCOUNT_INVALID_WEIGHT").
				With("weight", f.Weight.String()).
				Errorf("weight must be between 0 and %s", MaxWeightKG)
		}
		w := f.Weight.Round(2)
		weight = &w
	}
	if f.Height != nil && (*f.Height < MinHeightCM || *f.Height > MaxHeightCM) {
		return nil, oops.Code("ACCOUNT_INVALID_HEIGHT").
			With("height", *f.Height).
			Errorf("height must be between %d and %d", MinHeightCM, MaxHeightCM)
	}

	return &Account{
		Username:     f.Username,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		DateOfBirth:  f.DateOfBirth,
		PhoneNumber:  f.PhoneNumber,
		Weight:       weight,
		Height:       f.Height,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func checkName(label, name string) error {
	if strings.TrimSpace(name) == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return oops.Code("ACCOUNT_INVALID_NAME").
			With("field", label).
			Errorf("%s must be 1 to %d characters", label, MaxNameLength)
	}
	return nil
}

// WeightString renders the weight at two decimal places, or "" when unset.
func (a *Account) WeightString() string {
	if a.Weight == nil {
		return ""
	}
	return a.Weight.StringFixed(2)
}

// AccountRepository manages account persistence.
// Lookups return ErrNotFound when no account matches.
type AccountRepository interface {
	// ExistsByUsername reports whether an account has exactly this username.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail reports whether an account has this email, ignoring case.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ExistsByPhone reports whether an account has this phone number.
	ExistsByPhone(ctx context.Context, phone string) (bool, error)

	// FindByID retrieves an account by ID.
	FindByID(ctx context.Context, id int64) (*Account, error)

	// FindByUsername retrieves an account by exact username.
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// FindByEmail retrieves an account by email, ignoring case.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Create stores a new account and sets its ID. A unique constraint
	// violation is reported as a *ConflictError.
	Create(ctx context.Context, account *Account) error

	// Delete removes an account. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error

	// List returns all accounts ordered by username.
	List(ctx context.Context) ([]*Account, error)
}
