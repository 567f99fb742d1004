// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package auth_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fittrack/accounts/internal/auth"
	"github.com/fittrack/accounts/pkg/errutil"
)

func validFields() auth.AccountFields {
	dob := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	phone := "+447700900123"
	weight := decimal.RequireFromString("70.5")
	height := 180
	return auth.AccountFields{
		Username:     "testuser",
		Email:        "testuser@email.com",
		PasswordHash: "$argon2id$hash",
		FirstName:    "Test",
		LastName:     "User",
		DateOfBirth:  &dob,
		PhoneNumber:  &phone,
		Weight:       &weight,
		Height:       &height,
	}
}

func TestNewAccount(t *testing.T) {
	t.Run("creates valid account", func(t *testing.T) {
		a, err := auth.NewAccount(validFields())
		require.NoError(t, err)
		assert.Zero(t, a.ID)
		assert.Equal(t, "testuser", a.Username)
		assert.Equal(t, "70.50", a.WeightString())
		assert.Equal(t, 180, *a.Height)
		assert.False(t, a.CreatedAt.IsZero())
		assert.Equal(t, a.CreatedAt, a.UpdatedAt)
	})

	t.Run("date of birth is checked against the given instant", func(t *testing.T) {
		now := time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
		f := validFields()
		dob := time.Date(2150, 1, 1, 0, 0, 0, 0, time.UTC)
		f.DateOfBirth = &dob

		a, err := auth.NewAccountAt(f, now)
		require.NoError(t, err)
		assert.Equal(t, now, a.CreatedAt)

		_, err = auth.NewAccountAt(f, time.Date(2149, 12, 31, 0, 0, 0, 0, time.UTC))
		errutil.AssertErrorCode(t, err, "ACCOUNT_INVALID_DATE_OF_BIRTH")
	})

	t.Run("optional fields may be nil", func(t *testing.T) {
		f := validFields()
		f.DateOfBirth, f.PhoneNumber, f.Weight, f.Height = nil, nil, nil, nil
		a, err := auth.NewAccount(f)
		require.NoError(t, err)
		assert.Equal(t, "", a.WeightString())
	})

	t.Run("quantizes weight", func(t *testing.T) {
		f := validFields()
		w := decimal.RequireFromString("70.555")
		f.Weight = &w
		a, err := auth.NewAccount(f)
		require.NoError(t, err)
		assert.Equal(t, "70.56", a.WeightString())
	})

	boundaryHeights := []int{auth.MinHeightCM, auth.MaxHeightCM}
	for _, h := range boundaryHeights {
		t.Run(fmt.Sprintf("height %d accepted", h), func(t *testing.T) {
			f := validFields()
			f.Height = &h
			_, err := auth.NewAccount(f)
			require.NoError(t, err)
		})
	}

	tests := []struct {
		name   string
		mutate func(*auth.AccountFields)
		code   string
	}{
		{"short username", func(f *auth.AccountFields) { f.Username = "ab" }, "ACCOUNT_INVALID_USERNAME"},
		{"long username", func(f *auth.AccountFields) { f.Username = strings.Repeat("a", 151) }, "ACCOUNT_INVALID_USERNAME"},
		{"blank username", func(f *auth.AccountFields) { f.Username = "   " }, "ACCOUNT_INVALID_USERNAME"},
		{"empty email", func(f *auth.AccountFields) { f.Email = "" }, "ACCOUNT_INVALID_EMAIL"},
		{"uppercase email", func(f *auth.AccountFields) { f.Email = "Test@Email.com" }, "ACCOUNT_INVALID_EMAIL"},
		{"empty hash", func(f *auth.AccountFields) { f.PasswordHash = " " }, "ACCOUNT_INVALID_PASSWORD"},
		{"empty first name", func(f *auth.AccountFields) { f.FirstName = "" }, "ACCOUNT_INVALID_NAME"},
		{"empty last name", func(f *auth.AccountFields) { f.LastName = " " }, "ACCOUNT_INVALID_NAME"},
		{"future dob", func(f *auth.AccountFields) {
			d := time.Now().UTC().AddDate(0, 0, 2)
			f.DateOfBirth = &d
		}, "ACCOUNT_INVALID_DATE_OF_BIRTH"},
		{"ancient dob", func(f *auth.AccountFields) {
			d := time.Now().UTC().AddDate(0, 0, -auth.MaxAgeDays-2)
			f.DateOfBirth = &d
		}, "ACCOUNT_INVALID_DATE_OF_BIRTH"},
		{"empty phone", func(f *auth.AccountFields) {
			p := ""
			f.PhoneNumber = &p
		}, "ACCOUNT_INVALID_PHONE_NUMBER"},
		{"negative weight", func(f *auth.AccountFields) {
			w := decimal.NewFromInt(-1)
			f.Weight = &w
		}, "ACCOUNT_INVALID_WEIGHT"},
		{"heavy weight", func(f *auth.AccountFields) {
			w := decimal.RequireFromString("500.01")
			f.Weight = &w
		}, "ACCOUNT_INVALID_WEIGHT"},
		{"short height", func(f *auth.AccountFields) {
			h := 39
			f.Height = &h
		}, "ACCOUNT_INVALID_HEIGHT"},
		{"tall height", func(f *auth.AccountFields) {
			h := 301
			f.Height = &h
		}, "ACCOUNT_INVALID_HEIGHT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			a, err := auth.NewAccount(f)
			assert.Nil(t, a)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestConflictError(t *testing.T) {
	err := fmt.Errorf("insert: %w", &auth.ConflictError{Field: auth.ConflictEmail})

	assert.True(t, errors.Is(err, auth.ErrConflict))
	field, ok := auth.ConflictField(err)
	assert.True(t, ok)
	assert.Equal(t, "email", field)
	assert.Equal(t, "insert: conflict on email", err.Error())

	_, ok = auth.ConflictField(auth.ErrNotFound)
	assert.False(t, ok)
	assert.Equal(t, "conflict", (&auth.ConflictError{}).Error())
}
