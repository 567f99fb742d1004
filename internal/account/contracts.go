// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package account

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/shopspring/decimal"

	"github.com/fittrack/accounts/internal/auth"
	"github.com/fittrack/accounts/internal/validation"
)

// CreateRequest is a Create payload after every field check has passed.
// Values are normalized: names and username trimmed, email lowercased,
// weight at two decimal places.
type CreateRequest struct {
	Username    string
	Password    string
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth time.Time
	PhoneNumber string
	Weight      decimal.Decimal
	Height      int
}

// Fields returns the account fields for req with the given password hash.
func (req *CreateRequest) Fields(passwordHash string) auth.AccountFields {
	dob := req.DateOfBirth
	phone := req.PhoneNumber
	weight := req.Weight
	height := req.Height
	return auth.AccountFields{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DateOfBirth:  &dob,
		PhoneNumber:  &phone,
		Weight:       &weight,
		Height:       &height,
	}
}

// CreateContract validates registration payloads.
type CreateContract struct {
	unique validation.Uniqueness
	now    func() time.Time
}

// NewCreateContract creates a CreateContract checking uniqueness against unique.
func NewCreateContract(unique validation.Uniqueness, now func() time.Time) *CreateContract {
	if now == nil {
		now = time.Now
	}
	return &CreateContract{unique: unique, now: now}
}

// Validate runs the field checks in registration order and returns the first
// failure. Order: username, password (which needs both names), first name,
// last name, email, date of birth, phone number, weight, height.
func (c *CreateContract) Validate(ctx context.Context, p validation.Payload) (*CreateRequest, error) {
	return c.ValidateAt(ctx, p, c.now())
}

// ValidateAt is Validate with the date of birth checked against now.
func (c *CreateContract) ValidateAt(ctx context.Context, p validation.Payload, now time.Time) (*CreateRequest, error) {
	var (
		req CreateRequest
		err error
	)

	if req.Username, err = validation.Username(p.Get(validation.FieldUsername)); err != nil {
		return nil, err
	}
	if err = validation.UniqueUsername(ctx, c.unique, req.Username); err != nil {
		return nil, err
	}

	first, last := p.Get(validation.FieldFirstName), p.Get(validation.FieldLastName)
	if req.Password, err = validation.Password(p.Get(validation.FieldPassword), first, last); err != nil {
		return nil, err
	}
	if req.FirstName, err = validation.FirstName(first); err != nil {
		return nil, err
	}
	if req.LastName, err = validation.LastName(last); err != nil {
		return nil, err
	}

	if req.Email, err = validation.Email(p.Get(validation.FieldEmail)); err != nil {
		return nil, err
	}
	if err = validation.UniqueEmail(ctx, c.unique, req.Email); err != nil {
		return nil, err
	}

	if req.DateOfBirth, err = validation.DateOfBirth(p.Get(validation.FieldDateOfBirth), now); err != nil {
		return nil, err
	}

	if req.PhoneNumber, err = validation.PhoneNumber(p.Get(validation.FieldPhoneNumber)); err != nil {
		return nil, err
	}
	if err = validation.UniquePhone(ctx, c.unique, req.PhoneNumber); err != nil {
		return nil, err
	}

	if req.Weight, err = validation.Weight(p.Get(validation.FieldWeight)); err != nil {
		return nil, err
	}
	if req.Height, err = validation.Height(p.Get(validation.FieldHeight)); err != nil {
		return nil, err
	}
	return &req, nil
}

// conflictFields maps repository conflict fields to payload fields.
var conflictFields = map[string]validation.Field{
	auth.ConflictUsername: validation.FieldUsername,
	auth.ConflictEmail:    validation.FieldEmail,
	auth.ConflictPhone:    validation.FieldPhoneNumber,
}

// takenFromConflict turns a storage conflict on req into the Taken failure
// the pre-checks would have reported. When the store did not name the field
// the uniqueness checks are re-run to find it. A conflict none of them can
// attribute is returned as an infrastructure error.
func (c *CreateContract) takenFromConflict(ctx context.Context, req *CreateRequest, err error) error {
	if name, ok := auth.ConflictField(err); ok {
		if f, known := conflictFields[name]; known {
			return validation.Taken(f)
		}
	}

	checks := []func() error{
		func() error { return validation.UniqueUsername(ctx, c.unique, req.Username) },
		func() error { return validation.UniqueEmail(ctx, c.unique, req.Email) },
		func() error { return validation.UniquePhone(ctx, c.unique, req.PhoneNumber) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return oops.Code("ACCOUNT_CONFLICT_UNRESOLVED").
		With("username", req.Username).
		Wrapf(err, "storage conflict matches no unique field")
}

// LoginRequest holds login credentials that passed the presence checks.
type LoginRequest struct {
	Username string
	Password string
}

// ValidateLogin checks only presence, type and emptiness of the credentials.
// Format rules are skipped so that no detail about stored accounts leaks.
func ValidateLogin(p validation.Payload) (*LoginRequest, error) {
	username, err := validation.LoginUsername(p.Get(validation.FieldUsername))
	if err != nil {
		return nil, err
	}
	password, err := validation.LoginPassword(p.Get(validation.FieldPassword))
	if err != nil {
		return nil, err
	}
	return &LoginRequest{Username: username, Password: password}, nil
}

// CurrentAccountFunc resolves the account bound to a session token.
type CurrentAccountFunc func(ctx context.Context, token string) (*auth.Account, error)

// LookupContract resolves a lookup filter to one account.
type LookupContract struct {
	accounts auth.AccountRepository
	current  CurrentAccountFunc
}

// NewLookupContract creates a LookupContract.
func NewLookupContract(accounts auth.AccountRepository, current CurrentAccountFunc) *LookupContract {
	return &LookupContract{accounts: accounts, current: current}
}

// Resolve picks the first discriminant key present in filter, by precedence
// id, then username, then email, validates it and loads the account. With
// no discriminant key it returns the account of the session token.
func (c *LookupContract) Resolve(ctx context.Context, filter validation.Payload, token string) (*auth.Account, error) {
	switch {
	case filter.Has(validation.FieldUserID):
		id, err := validation.UserID(filter.Get(validation.FieldUserID))
		if err != nil {
			return nil, err
		}
		return c.find(validation.FieldUserID, func() (*auth.Account, error) {
			return c.accounts.FindByID(ctx, id)
		})

	case filter.Has(validation.FieldUsername):
		username, err := validation.Username(filter.Get(validation.FieldUsername))
		if err != nil {
			return nil, err
		}
		return c.find(validation.FieldUsername, func() (*auth.Account, error) {
			return c.accounts.FindByUsername(ctx, username)
		})

	case filter.Has(validation.FieldEmail):
		email, err := validation.Email(filter.Get(validation.FieldEmail))
		if err != nil {
			return nil, err
		}
		return c.find(validation.FieldEmail, func() (*auth.Account, error) {
			return c.accounts.FindByEmail(ctx, email)
		})
	}

	return c.current(ctx, token)
}

func (c *LookupContract) find(f validation.Field, load func() (*auth.Account, error)) (*auth.Account, error) {
	account, err := load()
	if errors.Is(err, auth.ErrNotFound) {
		return nil, validation.NotFound(f)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_LOOKUP_FAILED").With("field", string(f)).Wrap(err)
	}
	return account, nil
}

// DeleteContract resolves the target of a delete request.
type DeleteContract struct {
	accounts auth.AccountRepository
}

// NewDeleteContract creates a DeleteContract.
func NewDeleteContract(accounts auth.AccountRepository) *DeleteContract {
	return &DeleteContract{accounts: accounts}
}

// Resolve requires the id key, validates it and returns the existing
// account. A request without the key fails with IdentifierRequired rather
// than the field-level Missing.
func (c *DeleteContract) Resolve(ctx context.Context, p validation.Payload) (*auth.Account, error) {
	if !p.Has(validation.FieldUserID) {
		return nil, validation.IdentifierRequired(validation.FieldUserID)
	}
	id, err := validation.UserID(p.Get(validation.FieldUserID))
	if err != nil {
		return nil, err
	}

	account, err := c.accounts.FindByID(ctx, id)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, validation.NotFound(validation.FieldUserID)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_LOOKUP_FAILED").With("id", id).Wrap(err)
	}
	return account, nil
}
