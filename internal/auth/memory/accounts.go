// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

// Package memory provides in-process implementations of the auth
// repositories. They enforce the same unique constraints as the SQL stores.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/fittrack/accounts/internal/auth"
)

// AccountRepository stores accounts in a map guarded by a mutex.
// Uniqueness checks and inserts happen under one lock.
type AccountRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*auth.Account

	// Optional hook run on delete, used to cascade to sessions.
	onDelete func(id int64)
}

// NewAccountRepository creates an empty repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{byID: make(map[int64]*auth.Account)}
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)

// ExistsByUsername implements auth.AccountRepository.
func (r *AccountRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(func(a *auth.Account) bool { return a.Username == username }) != nil, nil
}

// ExistsByEmail implements auth.AccountRepository.
func (r *AccountRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(emailMatch(email)) != nil, nil
}

// ExistsByPhone implements auth.AccountRepository.
func (r *AccountRepository) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(phoneMatch(phone)) != nil, nil
}

// FindByID implements auth.AccountRepository.
func (r *AccountRepository) FindByID(_ context.Context, id int64) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.byID[id]; ok {
		return clone(a), nil
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
}

// FindByUsername implements auth.AccountRepository.
func (r *AccountRepository) FindByUsername(_ context.Context, username string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a := r.findLocked(func(a *auth.Account) bool { return a.Username == username }); a != nil {
		return clone(a), nil
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
}

// FindByEmail implements auth.AccountRepository.
func (r *AccountRepository) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a := r.findLocked(emailMatch(email)); a != nil {
		return clone(a), nil
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// Create implements auth.AccountRepository.
func (r *AccountRepository) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		switch {
		case existing.Username == account.Username:
			return &auth.ConflictError{Field: auth.ConflictUsername}
		case strings.EqualFold(existing.Email, account.Email):
			return &auth.ConflictError{Field: auth.ConflictEmail}
		case account.PhoneNumber != nil && phoneMatch(*account.PhoneNumber)(existing):
			return &auth.ConflictError{Field: auth.ConflictPhone}
		}
	}

	r.nextID++
	account.ID = r.nextID
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	r.byID[account.ID] = clone(account)
	return nil
}

// Delete implements auth.AccountRepository.
func (r *AccountRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	if _, ok := r.byID[id]; !ok {
		r.mu.Unlock()
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	delete(r.byID, id)
	hook := r.onDelete
	r.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return nil
}

// List implements auth.AccountRepository.
func (r *AccountRepository) List(_ context.Context) ([]*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*auth.Account, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, clone(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// CascadeTo makes deleting an account remove its sessions from s, matching
// the foreign key behaviour of the SQL stores.
func (r *AccountRepository) CascadeTo(s *SessionRepository) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDelete = func(id int64) {
		_ = s.DeleteByAccount(context.Background(), id) //nolint:errcheck // never fails
	}
}

func (r *AccountRepository) findLocked(match func(*auth.Account) bool) *auth.Account {
	for _, a := range r.byID {
		if match(a) {
			return a
		}
	}
	return nil
}

func emailMatch(email string) func(*auth.Account) bool {
	return func(a *auth.Account) bool { return strings.EqualFold(a.Email, email) }
}

func phoneMatch(phone string) func(*auth.Account) bool {
	return func(a *auth.Account) bool { return a.PhoneNumber != nil && *a.PhoneNumber == phone }
}

func clone(a *auth.Account) *auth.Account {
	c := *a
	if a.DateOfBirth != nil {
		d := *a.DateOfBirth
		c.DateOfBirth = &d
	}
	if a.PhoneNumber != nil {
		p := *a.PhoneNumber
		c.PhoneNumber = &p
	}
	if a.Weight != nil {
		w := *a.Weight
		c.Weight = &w
	}
	if a.Height != nil {
		h := *a.Height
		c.Height = &h
	}
	return &c
}
