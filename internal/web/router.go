// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

// Package web serves the account operations over HTTP with chi.
//
// Routes:
//
//	POST   /accounts  register
//	GET    /accounts  look up by id, username or email; the caller's own account without a filter
//	DELETE /accounts  delete by id (query or body)
//	POST   /sessions  log in
//	DELETE /sessions  log out
//
// The session token travels in the session_id cookie or an
// "Authorization: Bearer" header.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fittrack/accounts/internal/account"
	"github.com/fittrack/accounts/internal/auth"
	"github.com/fittrack/accounts/internal/observability"
	"github.com/fittrack/accounts/internal/validation"
)

// DefaultMaxBodyBytes caps request bodies when RouterDeps leaves it unset.
const DefaultMaxBodyBytes int64 = 1 << 20

// AccountService is what the handlers need from the account layer.
type AccountService interface {
	CreateAccount(ctx context.Context, p validation.Payload) (*auth.Account, error)
	Login(ctx context.Context, p validation.Payload) (*account.LoginResult, error)
	Logout(ctx context.Context, token string) error
	GetAccount(ctx context.Context, token string, filter validation.Payload) (*auth.Account, error)
	DeleteAccount(ctx context.Context, p validation.Payload) (*auth.Account, error)
}

// RouterDeps holds NewRouter's dependencies.
type RouterDeps struct {
	Accounts AccountService
	Logger   *slog.Logger
	// Metrics may be nil.
	Metrics      *observability.Metrics
	MaxBodyBytes int64
	CookieSecure bool
}

// NewRouter builds the HTTP handler.
//
// Middleware order: RequestID, Recovery, Logging, Metrics, BodyLimit.
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := deps.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	h := &handler{
		accounts:     deps.Accounts,
		logger:       logger,
		cookieSecure: deps.CookieSecure,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(NewRecoveryMiddleware(logger))
	r.Use(NewLoggingMiddleware(logger))
	r.Use(NewMetricsMiddleware(deps.Metrics))
	r.Use(BodyLimit(limit))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found", Code: "ROUTE_NOT_FOUND"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed", Code: "METHOD_NOT_ALLOWED"})
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.createAccount)
		r.Get("/", h.getAccount)
		r.Delete("/", h.deleteAccount)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.login)
		r.Delete("/", h.logout)
	})

	return r
}
