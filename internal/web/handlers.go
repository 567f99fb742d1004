// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fittrack/accounts/internal/auth"
	"github.com/fittrack/accounts/internal/validation"
)

// Response messages.
const (
	msgLoggedIn  = "Login successful"
	msgLoggedOut = "User logged out successfully"
	msgDeleted   = "User deleted successfully"
)

type handler struct {
	accounts     AccountService
	logger       *slog.Logger
	cookieSecure bool
}

type createdBody struct {
	OK   bool   `json:"ok"`
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type loginBody struct {
	Message   string    `json:"message"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type messageBody struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

// accountBody is the public view of an account. The password hash never
// leaves the service.
type accountBody struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth *string   `json:"date_of_birth"`
	PhoneNumber *string   `json:"phone_number"`
	Weight      *string   `json:"weight"`
	Height      *int      `json:"height"`
	CreatedAt   time.Time `json:"created_at"`
}

func newAccountBody(a *auth.Account) accountBody {
	body := accountBody{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		PhoneNumber: a.PhoneNumber,
		Height:      a.Height,
		CreatedAt:   a.CreatedAt,
	}
	if a.DateOfBirth != nil {
		dob := a.DateOfBirth.Format(time.DateOnly)
		body.DateOfBirth = &dob
	}
	if a.Weight != nil {
		w := a.WeightString()
		body.Weight = &w
	}
	return body
}

// POST /accounts
func (h *handler) createAccount(w http.ResponseWriter, r *http.Request) {
	p, err := validation.DecodePayload(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.accounts.CreateAccount(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdBody{OK: true, ID: created.ID, Name: created.FirstName})
}

// GET /accounts
func (h *handler) getAccount(w http.ResponseWriter, r *http.Request) {
	filter := validation.PayloadFromQuery(r.URL.Query())

	found, err := h.accounts.GetAccount(r.Context(), sessionToken(r), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountBody(found))
}

// DELETE /accounts, with the id in the query string or the body.
func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	var p validation.Payload
	if r.URL.Query().Has(string(validation.FieldUserID)) {
		p = validation.PayloadFromQuery(r.URL.Query())
	} else {
		var err error
		if p, err = validation.DecodePayload(r.Body); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	deleted, err := h.accounts.DeleteAccount(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msgDeleted, ID: deleted.ID})
}

// POST /sessions
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	p, err := validation.DecodePayload(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	setSessionCookie(w, result.Token, result.ExpiresAt, h.cookieSecure)
	writeJSON(w, http.StatusOK, loginBody{
		Message:   msgLoggedIn,
		Username:  result.Username,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// DELETE /sessions
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context(), sessionToken(r)); err != nil {
		h.writeError(w, r, err)
		return
	}

	clearSessionCookie(w, h.cookieSecure)
	writeJSON(w, http.StatusOK, messageBody{Message: msgLoggedOut})
}
