package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agrifleet/agrifleet/internal/auth"
	"github.com/agrifleet/agrifleet/internal/export"
	"github.com/agrifleet/agrifleet/internal/logging"
	"github.com/agrifleet/agrifleet/internal/store"
)

var (
	errRateLimited = errors.New("too many requests")
	errBadBody     = errors.New("invalid request body")
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// respondError writes a JSON error response with the given status.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	logger := logging.FromContext(r.Context())
	if status >= 500 {
		logger.Error("request failed", "error", err, "status", status, "path", r.URL.Path)
	} else {
		logger.Warn("request rejected", "error", err, "status", status, "path", r.URL.Path)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    status,
	})
}

// respondServiceError maps known service errors to HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, r, err, http.StatusNotFound)
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		respondError(w, r, err, http.StatusUnauthorized)
	case errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, export.ErrUnknownDataset),
		errors.Is(err, export.ErrUnknownGrouping):
		respondError(w, r, err, http.StatusBadRequest)
	default:
		respondError(w, r, err, http.StatusInternalServerError)
	}
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decode reads the request body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	return nil
}
