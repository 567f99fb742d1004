// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fittrack/accounts/internal/auth"
	"github.com/fittrack/accounts/internal/observability"
	"github.com/fittrack/accounts/internal/validation"
	"github.com/fittrack/accounts/pkg/errutil"
)

const tracerName = "github.com/fittrack/accounts/internal/account"

// Operation names used for spans and metrics.
const (
	OpCreateAccount = "create_account"
	OpLogin         = "login"
	OpLogout        = "logout"
	OpGetAccount    = "get_account"
	OpDeleteAccount = "delete_account"
	OpListAccounts  = "list_accounts"
)

// Outcome labels that are not failure kinds.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. A nil logger is rejected by NewService.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock replaces time.Now for date-of-birth checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics records one operation outcome per call.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// LoginResult is a successful login.
type LoginResult struct {
	Username  string
	Token     string
	ExpiresAt time.Time
}

// Service runs the account operations. Every operation validates its input
// through a contract before touching storage, and every client-caused
// failure is a *validation.Failure.
type Service struct {
	accounts auth.AccountRepository
	manager  *auth.SessionManager
	hasher   auth.PasswordHasher

	create *CreateContract
	lookup *LookupContract
	remove *DeleteContract

	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// NewService creates a Service.
func NewService(accounts auth.AccountRepository, manager *auth.SessionManager, hasher auth.PasswordHasher, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if manager == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}

	s := &Service{
		accounts: accounts,
		manager:  manager,
		hasher:   hasher,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if s.now == nil {
		return nil, oops.Errorf("clock is required")
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}

	s.create = NewCreateContract(accounts, s.now)
	s.lookup = NewLookupContract(accounts, manager.CurrentAccount)
	s.remove = NewDeleteContract(accounts)
	return s, nil
}

// CreateAccount registers a new account. The password is hashed only after
// every field check has passed. A unique violation that slipped past the
// pre-checks is reported as the same Taken failure.
func (s *Service) CreateAccount(ctx context.Context, p validation.Payload) (account *auth.Account, err error) {
	ctx, end := s.begin(ctx, OpCreateAccount)
	defer func() { end(err) }()

	now := s.now()
	req, err := s.create.ValidateAt(ctx, p, now)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_HASH_FAILED").With("username", req.Username).Wrap(err)
	}

	account, err = auth.NewAccountAt(req.Fields(hash), now)
	if err != nil {
		return nil, oops.Code("ACCOUNT_BUILD_FAILED").With("username", req.Username).Wrap(err)
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			s.logger.InfoContext(ctx, "account create lost a uniqueness race", "username", req.Username)
			return nil, s.create.takenFromConflict(ctx, req, err)
		}
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").With("username", req.Username).Wrap(err)
	}

	s.logger.InfoContext(ctx, "account created", "account_id", account.ID, "username", account.Username)
	return account, nil
}

// Login checks credential presence and opens a session.
func (s *Service) Login(ctx context.Context, p validation.Payload) (result *LoginResult, err error) {
	ctx, end := s.begin(ctx, OpLogin)
	defer func() { end(err) }()

	req, err := ValidateLogin(p)
	if err != nil {
		return nil, err
	}

	session, token, err := s.manager.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Username: req.Username, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// Logout closes the session of token.
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	ctx, end := s.begin(ctx, OpLogout)
	defer func() { end(err) }()

	return s.manager.Logout(ctx, token)
}

// GetAccount resolves filter to one account. With an empty filter it returns
// the account of the session token, failing with NotLoggedIn when there is
// none.
func (s *Service) GetAccount(ctx context.Context, token string, filter validation.Payload) (account *auth.Account, err error) {
	ctx, end := s.begin(ctx, OpGetAccount)
	defer func() { end(err) }()

	return s.lookup.Resolve(ctx, filter, token)
}

// DeleteAccount removes the account named by the payload's id and then its
// sessions. Sessions are touched only after the account is gone, so a failed
// delete leaves both in place. It returns the deleted account.
func (s *Service) DeleteAccount(ctx context.Context, p validation.Payload) (account *auth.Account, err error) {
	ctx, end := s.begin(ctx, OpDeleteAccount)
	defer func() { end(err) }()

	account, err = s.remove.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, validation.NotFound(validation.FieldUserID)
		}
		return nil, oops.Code("ACCOUNT_DELETE_FAILED").With("account_id", account.ID).Wrap(err)
	}
	if err := s.manager.RevokeAll(ctx, account.ID); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "session cleanup after delete failed", err)
	}

	s.logger.InfoContext(ctx, "account deleted", "account_id", account.ID, "username", account.Username)
	return account, nil
}

// ListAccounts returns every account ordered by username.
func (s *Service) ListAccounts(ctx context.Context) (accounts []*auth.Account, err error) {
	ctx, end := s.begin(ctx, OpListAccounts)
	defer func() { end(err) }()

	accounts, err = s.accounts.List(ctx)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").Wrap(err)
	}
	return accounts, nil
}

// begin starts the span for op. The returned func ends it and records the
// outcome of err.
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "account."+op)
	return ctx, func(err error) {
		outcome := Outcome(err)
		span.SetAttributes(attribute.String("account.outcome", outcome))
		if err != nil && outcome == OutcomeError {
			span.RecordError(err)
			span.SetStatus(codes.Error, "operation failed")
			errutil.LogErrorContext(ctx, s.logger, op+" failed", err)
		}
		span.End()
		s.metrics.RecordOperation(op, outcome)
	}
}

// Outcome labels err: "ok" for nil, the failure kind for client-caused
// failures and "error" for everything else.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if f, ok := validation.AsFailure(err); ok {
		return f.Kind.String()
	}
	return OutcomeError
}
