// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package store

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	names := make(map[string]bool, len(entries))
	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	for _, entry := range entries {
		names[entry.Name()] = true
		assert.True(t, pattern.MatchString(entry.Name()),
			"file %s should match NNNNNN_name.(up|down).sql", entry.Name())
	}

	// Every up migration needs a down.
	for name := range names {
		if stem, ok := strings.CutSuffix(name, ".up.sql"); ok {
			assert.True(t, names[stem+".down.sql"], "missing down migration for %s", stem)
		}
	}

	assert.True(t, names["000001_create_accounts.up.sql"])
	assert.True(t, names["000002_create_sessions.up.sql"])
}

func TestMigrationsFS_AccountConstraints(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/000001_create_accounts.up.sql")
	require.NoError(t, err)
	sql := string(raw)

	// Repositories map these names back to the conflicting field.
	for _, name := range []string{"uq_accounts_username", "uq_accounts_email", "uq_accounts_phone_number"} {
		assert.Contains(t, sql, name)
	}
	assert.Contains(t, sql, "LOWER(email)")
	assert.Contains(t, sql, "WHERE phone_number IS NOT NULL")
}
