// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

// Package validation turns raw, untyped request fields into normalized values.
//
// Every field validator applies its checks in a fixed order: presence, type,
// emptiness, format, range and, for username, email and phone number,
// uniqueness against existing accounts. The first failing check wins and is
// returned as a *Failure whose Kind callers switch on. Validators never
// panic and never touch storage except through the Uniqueness interface.
package validation
