// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package web

import (
	"encoding/json"
	"net/http"

	"github.com/fittrack/accounts/internal/validation"
	"github.com/fittrack/accounts/pkg/errutil"
)

// errorBody is the uniform error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

// statusForTier maps failure tiers to HTTP status codes.
var statusForTier = map[validation.Tier]int{
	validation.TierValidation:     http.StatusBadRequest,
	validation.TierNotFound:       http.StatusNotFound,
	validation.TierAuthentication: http.StatusUnauthorized,
	validation.TierMalformed:      http.StatusBadRequest,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client may disconnect
}

// writeError reports client failures with their tier's status. Anything else
// is logged and answered with a generic 500.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if f, ok := validation.AsFailure(err); ok {
		status, known := statusForTier[f.Tier()]
		if !known {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorBody{
			Error: f.Message,
			Code:  f.Code,
			Kind:  f.Kind.String(),
			Field: string(f.Field),
		})
		return
	}

	errutil.LogErrorContext(r.Context(), h.logger, "request failed", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error: "Internal server error",
		Code:  "INTERNAL_ERROR",
	})
}
