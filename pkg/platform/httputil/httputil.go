// Package httputil centralizes JSON encoding and domain-error translation for
// HTTP handlers so every endpoint returns the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "aurum/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope for rejected requests. Details carry the
// exact values a caller needs to retry correctly (remaining allowance,
// next-allowed timestamp, window bounds).
type ErrorResponse struct {
	Error       string         `json:"error"`
	Kind        string         `json:"error_kind,omitempty"`
	Description string         `json:"error_description,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the standard error envelope.
// Internal errors omit the description so store details never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{
		Error: string(code),
		Kind:  dErrors.KindOf(err),
	}
	if code != dErrors.CodeInternal {
		var e *dErrors.Error
		if errors.As(err, &e) {
			resp.Description = e.Message
			resp.Details = e.Details
		} else {
			resp.Description = err.Error()
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// DecodeAndPrepare decodes a JSON request body into T and writes a bad-request
// envelope on failure. The bool result tells the handler whether to proceed.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "failed to decode request body", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		var zero T
		return zero, false
	}
	return req, true
}
