package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, middleware.ErrorResponse{
		Error:         msg,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
	})
}

// writeFailure maps a domain error to its status code. Server-side failures are logged and hidden.
func writeFailure(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
		msg = http.StatusText(status)
	}
	writeError(w, r, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shop.ErrNotFound):
		return http.StatusNotFound
	case shop.IsValidationError(err):
		return http.StatusBadRequest
	case shop.IsAuthError(err):
		return http.StatusUnauthorized
	case shop.IsPersistenceError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return shop.NewValidationError("body", errors.New("invalid json"))
	}
	return nil
}
