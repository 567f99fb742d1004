// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/fittrack/accounts/internal/validation"
)

// State is the authentication state of a request: Anonymous or
// Authenticated with an account ID.
type State struct {
	accountID int64
}

// Anonymous is the state of a request with no valid session.
func Anonymous() State {
	return State{}
}

// Authenticated is the state of a request bound to accountID.
func Authenticated(accountID int64) State {
	return State{accountID: accountID}
}

// IsAuthenticated reports whether the state carries an account.
func (s State) IsAuthenticated() bool {
	return s.accountID > 0
}

// AccountID returns the authenticated account ID.
func (s State) AccountID() (int64, bool) {
	return s.accountID, s.IsAuthenticated()
}

func (s State) String() string {
	if !s.IsAuthenticated() {
		return "anonymous"
	}
	return fmt.Sprintf("authenticated(%d)", s.accountID)
}

// dummyPasswordHash is verified when the username is unknown so that response
// time does not reveal whether an account exists. It matches no password.
//
//nolint:gosec // G101: not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// ManagerOption configures a SessionManager.
type ManagerOption func(*SessionManager)

// WithLogger sets the logger. A nil logger is rejected by NewSessionManager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *SessionManager) {
		m.logger = logger
	}
}

// WithSessionTTL sets how long a new session stays valid.
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *SessionManager) {
		m.ttl = ttl
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// SessionManager moves requests between the Anonymous and Authenticated
// states. Every transition is single-shot.
type SessionManager struct {
	accounts AccountRepository
	sessions SessionRepository
	hasher   PasswordHasher
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(accounts AccountRepository, sessions SessionRepository, hasher PasswordHasher, opts ...ManagerOption) (*SessionManager, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}

	m := &SessionManager{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		logger:   slog.Default(),
		ttl:      DefaultSessionTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if m.ttl <= 0 {
		return nil, oops.With("ttl", m.ttl).Errorf("session TTL must be positive")
	}
	if m.now == nil {
		return nil, oops.Errorf("clock is required")
	}
	return m, nil
}

// Login authenticates username and password and opens a session.
// Returns the session and the plaintext token to hand to the client.
// Unknown usernames and wrong passwords fail identically with
// InvalidCredentials.
func (m *SessionManager) Login(ctx context.Context, username, password string) (*Session, string, error) {
	account, lookupErr := m.accounts.FindByUsername(ctx, username)

	targetHash := dummyPasswordHash
	exists := false
	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
		exists = true
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find account by username").
			Wrap(lookupErr)
	}

	valid, verifyErr := m.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !exists {
			return nil, "", validation.InvalidCredentials()
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("account_id", account.ID).
			Wrap(verifyErr)
	}
	if !exists || !valid {
		m.logger.InfoContext(ctx, "login rejected")
		return nil, "", validation.InvalidCredentials()
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(account.ID, tokenHash, m.now().Add(m.ttl))
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "build session").
			Wrap(err)
	}
	session.CreatedAt = m.now()

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("account_id", account.ID).
			Wrap(err)
	}

	m.logger.InfoContext(ctx, "login succeeded",
		"account_id", account.ID,
		"session_id", session.ID.String())
	return session, token, nil
}

// Logout closes the session identified by token. Logging out without a
// live session fails with NotLoggedIn, so a second logout is an error.
func (m *SessionManager) Logout(ctx context.Context, token string) error {
	session, err := m.lookup(ctx, token)
	if err != nil {
		return err
	}
	if session == nil {
		return validation.NotLoggedIn()
	}

	if err := m.sessions.Delete(ctx, session.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return validation.NotLoggedIn()
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}

	m.logger.InfoContext(ctx, "logout succeeded",
		"account_id", session.AccountID,
		"session_id", session.ID.String())
	return nil
}

// State resolves token to the request's authentication state. Empty,
// unknown and expired tokens are Anonymous.
func (m *SessionManager) State(ctx context.Context, token string) (State, error) {
	session, err := m.lookup(ctx, token)
	if err != nil {
		return Anonymous(), err
	}
	if session == nil {
		return Anonymous(), nil
	}
	return Authenticated(session.AccountID), nil
}

// CurrentAccount returns the account bound to token, or NotLoggedIn.
func (m *SessionManager) CurrentAccount(ctx context.Context, token string) (*Account, error) {
	state, err := m.State(ctx, token)
	if err != nil {
		return nil, err
	}
	id, ok := state.AccountID()
	if !ok {
		return nil, validation.NotLoggedIn()
	}

	account, err := m.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, validation.NotLoggedIn()
		}
		return nil, oops.Code("AUTH_CURRENT_ACCOUNT_FAILED").
			With("operation", "find account by id").
			With("account_id", id).
			Wrap(err)
	}
	return account, nil
}

// RevokeAll closes every session of an account.
func (m *SessionManager) RevokeAll(ctx context.Context, accountID int64) error {
	if err := m.sessions.DeleteByAccount(ctx, accountID); err != nil {
		return oops.Code("AUTH_REVOKE_FAILED").
			With("operation", "delete sessions by account").
			With("account_id", accountID).
			Wrap(err)
	}
	return nil
}

// PurgeExpired deletes expired sessions and returns how many were removed.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, oops.Code("AUTH_PURGE_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return n, nil
}

// lookup returns the live session for token, or nil when there is none.
// An expired session found on the way is removed best-effort.
func (m *SessionManager) lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	session, err := m.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("SESSION_LOOKUP_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpiredAt(m.now()) {
		if delErr := m.sessions.Delete(ctx, session.ID); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			m.logger.WarnContext(ctx, "best-effort expired session delete failed",
				"operation", "delete_expired_session",
				"session_id", session.ID.String(),
				"error", delErr)
		}
		return nil, nil
	}
	return session, nil
}
