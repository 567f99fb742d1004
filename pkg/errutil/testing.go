// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RequireOops fails the test unless err has an oops error in its chain, and
// returns it.
func RequireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode asserts that err is an oops error with the given code.
// Codes set deeper in the chain win, so wrapping with context keeps the code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr := RequireOops(t, err)
	assert.Equal(t, code, oopsErr.Code(), "error: %v, context: %v", err, oopsErr.Context())
}

// AssertErrorContext asserts that err is an oops error with the given context key/value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	ctx := RequireOops(t, err).Context()
	if assert.Contains(t, ctx, key) {
		assert.Equal(t, value, ctx[key])
	}
}
