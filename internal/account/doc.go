// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

// Package account runs the account operations over raw payloads.
//
// Each operation goes through a contract first:
//   - CreateContract - every field check in registration order, fail fast
//   - ValidateLogin - presence, type and emptiness of the credentials only
//   - LookupContract - id, then username, then email, else the session's account
//   - DeleteContract - the id key is required
//
// Service wires the contracts to storage and the session manager. Client
// mistakes come back as *validation.Failure; anything else is an oops error.
package account
