package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"expensebuddy/internal/ledger"
	applog "expensebuddy/internal/log"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errBadJSON marks request bodies that could not be decoded.
var errBadJSON = errors.New("invalid JSON")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads one JSON object into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBadJSON)
	}
	return nil
}

// statusFor maps ledger errors to HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadJSON), errors.Is(err, errBadQuery):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrPersistence):
		return http.StatusServiceUnavailable, "persistence_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError logs err at a level matching its class and writes the JSON body.
// Internal details of 5xx errors are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFor(err)
	logger := applog.FromContext(r.Context())
	msg := err.Error()

	if status >= http.StatusInternalServerError {
		errType := applog.ErrorTypeInternal
		if status == http.StatusServiceUnavailable {
			errType = applog.ErrorTypeDatabase
		}
		logger.ErrorContext(r.Context(), "Ledger command failed",
			applog.NewFields().WithOperation(op).WithError(err, errType).ToSlice()...)
		msg = "internal error"
		if status == http.StatusServiceUnavailable {
			msg = "storage unavailable, change not applied"
		}
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			applog.NewFields().WithOperation(op).WithError(err, applog.ErrorTypeValidation).ToSlice()...)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
