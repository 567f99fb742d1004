// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

// Package auth provides the account model and authentication primitives.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewAccount - creates an Account from normalized fields, enforcing bounds
//   - NewSession - creates a Session with a validated account and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Session Manager
//
// SessionManager owns the Anonymous and Authenticated states:
//   - Login - verifies credentials and opens a session
//   - Logout - closes the session; a second logout fails with NotLoggedIn
//   - CurrentAccount - resolves a session token to its Account
//
// The plaintext session token is only ever returned to the caller. Storage
// sees its SHA-256 hash.
package auth
