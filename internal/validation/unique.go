// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package validation

import (
	"context"

	"github.com/samber/oops"
)

// Uniqueness answers whether an existing account already holds a normalized
// value. These checks are a fast path for a friendly error; the storage
// layer's unique constraints remain the authority.
type Uniqueness interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
}

// UniqueUsername fails with Taken when the username is already registered.
func UniqueUsername(ctx context.Context, u Uniqueness, username string) error {
	return unique(ctx, FieldUsername, username, u.ExistsByUsername)
}

// UniqueEmail fails with Taken when the normalized email is already registered.
func UniqueEmail(ctx context.Context, u Uniqueness, email string) error {
	return unique(ctx, FieldEmail, email, u.ExistsByEmail)
}

// UniquePhone fails with Taken when the phone number is already registered.
func UniquePhone(ctx context.Context, u Uniqueness, phone string) error {
	return unique(ctx, FieldPhoneNumber, phone, u.ExistsByPhone)
}

func unique(ctx context.Context, f Field, value string, exists func(context.Context, string) (bool, error)) error {
	taken, err := exists(ctx, value)
	if err != nil {
		return oops.Code("UNIQUENESS_CHECK_FAILED").With("field", string(f)).Wrap(err)
	}
	if taken {
		return Taken(f)
	}
	return nil
}
