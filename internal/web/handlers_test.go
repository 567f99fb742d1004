// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fittrack/accounts/internal/account"
	"github.com/fittrack/accounts/internal/auth"
	"github.com/fittrack/accounts/internal/auth/memory"
	"github.com/fittrack/accounts/internal/observability"
	"github.com/fittrack/accounts/internal/validation"
	"github.com/fittrack/accounts/internal/web"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, maxBody int64) (http.Handler, *prometheus.Registry) {
	t.Helper()
	accounts := memory.NewAccountRepository()
	sessions := memory.NewSessionRepository()
	accounts.CascadeTo(sessions)

	hasher := auth.NewArgon2idHasherWithParams(1024, 1, 1)
	clock := func() time.Time { return fixedNow }
	logger := slog.New(slog.DiscardHandler)

	manager, err := auth.NewSessionManager(accounts, sessions, hasher, auth.WithClock(clock), auth.WithLogger(logger))
	require.NoError(t, err)
	svc, err := account.NewService(accounts, manager, hasher, account.WithClock(clock), account.WithLogger(logger))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return web.NewRouter(&web.RouterDeps{
		Accounts:     svc,
		Logger:       logger,
		Metrics:      observability.NewMetrics(reg),
		MaxBodyBytes: maxBody,
	}), reg
}

func createBody() map[string]any {
	return map[string]any{
		"username":      "testuser",
		"password":      "ValidPass123*",
		"first_name":    "Test",
		"last_name":     "User",
		"email":         "testuser@email.com",
		"date_of_birth": "1990-01-15",
		"phone_number":  "+447700900123",
		"weight":        70.5,
		"height":        180,
	}
}

type request struct {
	method string
	target string
	body   any
	raw    string
	token  string
	cookie *http.Cookie
}

func do(t *testing.T, h http.Handler, req request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var body *bytes.Reader
	switch {
	case req.raw != "":
		body = bytes.NewReader([]byte(req.raw))
	case req.body != nil:
		b, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	default:
		body = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(req.method, req.target, body)
	r.Header.Set("Content-Type", "application/json")
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.cookie != nil {
		r.AddCookie(req.cookie)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), "body: %s", w.Body.String())
	}
	return w, decoded
}

func register(t *testing.T, h http.Handler) float64 {
	t.Helper()
	w, body := do(t, h, request{method: http.MethodPost, target: "/accounts", body: createBody()})
	require.Equal(t, http.StatusCreated, w.Code, "body: %v", body)
	return body["id"].(float64)
}

func login(t *testing.T, h http.Handler) (*http.Cookie, string) {
	t.Helper()
	w, body := do(t, h, request{method: http.MethodPost, target: "/sessions",
		body: map[string]any{"username": "testuser", "password": "ValidPass123*"}})
	require.Equal(t, http.StatusOK, w.Code, "body: %v", body)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == web.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	return cookie, body["token"].(string)
}

func TestCreateAccount(t *testing.T) {
	h, _ := newTestRouter(t, 0)

	w, body := do(t, h, request{method: http.MethodPost, target: "/accounts", body: createBody()})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, body["ok"])
	assert.InDelta(t, 1, body["id"], 0)
	assert.Equal(t, "Test", body["name"])
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestCreateAccount_Failures(t *testing.T) {
	h, _ := newTestRouter(t, 0)
	register(t, h)

	shortPassword := createBody()
	shortPassword["username"] = "another"
	shortPassword["password"] = "Short1*"

	wrongType := createBody()
	wrongType["username"] = 12345

	tests := []struct {
		name   string
		req    request
		status int
		code   string
		field  string
	}{
		{"invalid json", request{method: http.MethodPost, target: "/accounts", raw: "not json"}, http.StatusBadRequest, "MALFORMED_PAYLOAD", "payload"},
		{"json array", request{method: http.MethodPost, target: "/accounts", raw: "[1,2]"}, http.StatusBadRequest, "MALFORMED_PAYLOAD", "payload"},
		{"empty body", request{method: http.MethodPost, target: "/accounts"}, http.StatusBadRequest, "MISSING_USERNAME", "username"},
		{"wrong type", request{method: http.MethodPost, target: "/accounts", body: wrongType}, http.StatusBadRequest, "INVALID_USERNAME_TYPE", "username"},
		{"duplicate", request{method: http.MethodPost, target: "/accounts", body: createBody()}, http.StatusBadRequest, "TAKEN_USERNAME", "username"},
		{"short password", request{method: http.MethodPost, target: "/accounts", body: shortPassword}, http.StatusBadRequest, "INVALID_PASSWORD", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, h, tt.req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.field, body["field"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestLogin(t *testing.T) {
	h, _ := newTestRouter(t, 0)
	register(t, h)

	t.Run("success sets cookie", func(t *testing.T) {
		w, body := do(t, h, request{method: http.MethodPost, target: "/sessions",
			body: map[string]any{"username": "testuser", "password": "ValidPass123*"}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "testuser", body["username"])
		assert.Contains(t, body, "message")
		assert.NotEmpty(t, body["token"])

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, web.SessionCookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, body["token"], cookies[0].Value)
	})

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"missing username", map[string]any{"password": "ValidPass123*"}, http.StatusBadRequest, "MISSING_USERNAME"},
		{"empty username", map[string]any{"username": " ", "password": "ValidPass123*"}, http.StatusBadRequest, "EMPTY_USERNAME"},
		{"password type", map[string]any{"username": "testuser", "password": 123456}, http.StatusBadRequest, "INVALID_PASSWORD_TYPE"},
		{"wrong username", map[string]any{"username": "wrongusername", "password": "ValidPass123*"}, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"wrong password", map[string]any{"username": "testuser", "password": "wrongpassword*"}, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, h, request{method: http.MethodPost, target: "/sessions", body: tt.body})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, body["code"])
		})
	}

	t.Run("wrong credentials share one message", func(t *testing.T) {
		_, a := do(t, h, request{method: http.MethodPost, target: "/sessions",
			body: map[string]any{"username": "wrongusername", "password": "ValidPass123*"}})
		_, b := do(t, h, request{method: http.MethodPost, target: "/sessions",
			body: map[string]any{"username": "testuser", "password": "wrongpassword*"}})
		assert.Equal(t, "Invalid credentials", a["error"])
		assert.Equal(t, a, b)
	})
}

func TestLogout(t *testing.T) {
	h, _ := newTestRouter(t, 0)
	register(t, h)
	cookie, _ := login(t, h)

	w, body := do(t, h, request{method: http.MethodDelete, target: "/sessions", cookie: cookie})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User logged out successfully", body["message"])

	w, body = do(t, h, request{method: http.MethodDelete, target: "/sessions", cookie: cookie})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User not logged in", body["error"])

	w, body = do(t, h, request{method: http.MethodDelete, target: "/sessions"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User not logged in", body["error"])
}

func TestGetAccount(t *testing.T) {
	h, _ := newTestRouter(t, 0)
	id := register(t, h)
	cookie, token := login(t, h)

	t.Run("self by cookie", func(t *testing.T) {
		w, body := do(t, h, request{method: http.MethodGet, target: "/accounts", cookie: cookie})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "testuser", body["username"])
		assert.Equal(t, "testuser@email.com", body["email"])
		assert.Equal(t, "+447700900123", body["phone_number"])
		assert.Equal(t, "70.50", body["weight"])
		assert.InDelta(t, 180, body["height"], 0)
		assert.Equal(t, "1990-01-15", body["date_of_birth"])
		assert.NotContains(t, body, "password")
		assert.NotContains(t, body, "password_hash")
	})

	t.Run("self by bearer token", func(t *testing.T) {
		w, body := do(t, h, request{method: http.MethodGet, target: "/accounts", token: token})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "testuser", body["username"])
	})

	tests := []struct {
		name   string
		target string
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{"self without session", "/accounts", http.StatusUnauthorized, func(t *testing.T, body map[string]any) {
			assert.Equal(t, "User not logged in", body["error"])
		}},
		{"by id", "/accounts?id=1", http.StatusOK, func(t *testing.T, body map[string]any) {
			assert.InDelta(t, id, body["id"], 0)
		}},
		{"by username", "/accounts?username=testuser", http.StatusOK, func(t *testing.T, body map[string]any) {
			assert.Equal(t, "testuser", body["username"])
		}},
		{"by email ignoring case", "/accounts?email=TestUser@Email.com", http.StatusOK, func(t *testing.T, body map[string]any) {
			assert.Equal(t, "testuser@email.com", body["email"])
		}},
		{"id not an integer", "/accounts?id=abc", http.StatusBadRequest, func(t *testing.T, body map[string]any) {
			assert.Contains(t, body["error"], "User ID must be an integer.")
		}},
		{"id empty", "/accounts?id=", http.StatusBadRequest, func(t *testing.T, body map[string]any) {
			assert.Equal(t, "EMPTY_USER_ID", body["code"])
		}},
		{"id not found", "/accounts?id=999999", http.StatusNotFound, func(t *testing.T, body map[string]any) {
			assert.Equal(t, "ID_DOES_NOT_EXIST", body["code"])
		}},
		{"username empty", "/accounts?username=", http.StatusBadRequest, func(t *testing.T, body map[string]any) {
			assert.Equal(t, "EMPTY_USERNAME", body["code"])
		}},
		{"email not found", "/accounts?email=missing@email.com", http.StatusNotFound, func(t *testing.T, body map[string]any) {
			assert.Equal(t, "EMAIL_DOES_NOT_EXIST", body["code"])
		}},
		{"email invalid", "/accounts?email=not-an-email", http.StatusBadRequest, func(t *testing.T, body map[string]any) {
			assert.Equal(t, "INVALID_EMAIL", body["code"])
		}},
		{"id wins over username", "/accounts?id=1&username=nobody", http.StatusOK, func(t *testing.T, body map[string]any) {
			assert.Equal(t, "testuser", body["username"])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, h, request{method: http.MethodGet, target: tt.target})
			assert.Equal(t, tt.status, w.Code)
			tt.check(t, body)
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	h, _ := newTestRouter(t, 0)
	register(t, h)
	cookie, _ := login(t, h)

	w, body := do(t, h, request{method: http.MethodDelete, target: "/accounts"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_IDENTIFIER", body["code"])

	w, body = do(t, h, request{method: http.MethodDelete, target: "/accounts", body: map[string]any{"id": "abc"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_USER_ID", body["code"])

	w, body = do(t, h, request{method: http.MethodDelete, target: "/accounts", body: map[string]any{"id": 1}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 1, body["id"], 0)

	w, _ = do(t, h, request{method: http.MethodGet, target: "/accounts", cookie: cookie})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "sessions end with the account")

	w, body = do(t, h, request{method: http.MethodDelete, target: "/accounts?id=1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ID_DOES_NOT_EXIST", body["code"])
}

func TestRouter_Fallbacks(t *testing.T) {
	h, _ := newTestRouter(t, 0)

	w, body := do(t, h, request{method: http.MethodPut, target: "/accounts"})
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", body["code"])

	w, body = do(t, h, request{method: http.MethodGet, target: "/nowhere"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", body["code"])
}

func TestRouter_BodyLimit(t *testing.T) {
	h, _ := newTestRouter(t, 64)

	big := createBody()
	big["first_name"] = strings.Repeat("x", 128)
	w, body := do(t, h, request{method: http.MethodPost, target: "/accounts", body: big})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MALFORMED_PAYLOAD", body["code"])
}

func TestRouter_RecordsMetrics(t *testing.T) {
	h, reg := newTestRouter(t, 0)
	do(t, h, request{method: http.MethodGet, target: "/accounts?id=abc"})

	families, err := reg.Gather()
	require.NoError(t, err)
	var routes []string
	for _, mf := range families {
		if mf.GetName() != "accounts_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "route" {
					routes = append(routes, l.GetValue())
				}
				if l.GetName() == "status" {
					assert.Equal(t, "400", l.GetValue())
				}
			}
		}
	}
	require.Len(t, routes, 1)
	assert.True(t, strings.HasPrefix(routes[0], "/accounts"), routes[0])
}

// stubService answers every call with err, or panics when err is nil.
type stubService struct {
	err error
}

func (s stubService) fail() error {
	if s.err == nil {
		panic("stub has no answer")
	}
	return s.err
}

func (s stubService) CreateAccount(context.Context, validation.Payload) (*auth.Account, error) {
	return nil, s.fail()
}

func (s stubService) Login(context.Context, validation.Payload) (*account.LoginResult, error) {
	return nil, s.fail()
}

func (s stubService) Logout(context.Context, string) error { return s.fail() }

func (s stubService) GetAccount(context.Context, string, validation.Payload) (*auth.Account, error) {
	return nil, s.fail()
}

func (s stubService) DeleteAccount(context.Context, validation.Payload) (*auth.Account, error) {
	return nil, s.fail()
}

func TestRouter_InternalErrors(t *testing.T) {
	tests := []struct {
		name string
		svc  stubService
	}{
		{"store error", stubService{err: errors.New("connection refused")}},
		{"panic", stubService{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			h := web.NewRouter(&web.RouterDeps{
				Accounts: tt.svc,
				Logger:   slog.New(slog.NewJSONHandler(&logs, nil)),
			})

			w, body := do(t, h, request{method: http.MethodGet, target: "/accounts?id=1"})
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "INTERNAL_ERROR", body["code"])
			assert.NotContains(t, w.Body.String(), "connection refused")
			assert.NotEmpty(t, logs.String())
		})
	}
}
