// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fittrack/accounts/internal/auth"
)

// SessionRepository stores sessions keyed by ID.
type SessionRepository struct {
	mu   sync.RWMutex
	byID map[ulid.ULID]auth.Session
}

// NewSessionRepository creates an empty repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{byID: make(map[ulid.ULID]auth.Session)}
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)

// Create implements auth.SessionRepository.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.TokenHash == session.TokenHash {
			return oops.Code("SESSION_CREATE_FAILED").
				With("session_id", session.ID.String()).
				Wrap(auth.ErrConflict)
		}
	}
	r.byID[session.ID] = *session
	return nil
}

// GetByTokenHash implements auth.SessionRepository.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.byID {
		if s.TokenHash == tokenHash {
			out := s
			return &out, nil
		}
	}
	return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// Delete implements auth.SessionRepository.
func (r *SessionRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(r.byID, id)
	return nil
}

// DeleteByAccount implements auth.SessionRepository.
func (r *SessionRepository) DeleteByAccount(_ context.Context, accountID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.byID {
		if s.AccountID == accountID {
			delete(r.byID, id)
		}
	}
	return nil
}

// DeleteExpired implements auth.SessionRepository.
func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.byID {
		if s.IsExpiredAt(now) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
