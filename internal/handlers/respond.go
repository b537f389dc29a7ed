// Package handlers implements the HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/questlogger/questlogger/internal/logger"
	"github.com/questlogger/questlogger/internal/service"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// serviceError maps the service sentinels onto HTTP statuses. notFound
// is the detail used for missing resources, which varies per route.
func serviceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, notFound)
	case errors.Is(err, service.ErrNoSubscription):
		respondError(w, http.StatusNotFound, "No subscription found")
	case errors.Is(err, service.ErrFeatureDisabled):
		respondError(w, http.StatusBadRequest, "This feature is not enabled")
	case errors.Is(err, service.ErrQuotaExceeded):
		respondError(w, http.StatusForbidden, "Monthly recording limit reached")
	case errors.Is(err, service.ErrAlreadySubscribed):
		respondError(w, http.StatusBadRequest, "You already have an active subscription")
	case errors.Is(err, service.ErrInvalidPromoCode):
		respondError(w, http.StatusBadRequest, "Invalid or expired promotional code")
	default:
		logger.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
