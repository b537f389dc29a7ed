package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/questlogger/questlogger/internal/auth"
	"github.com/questlogger/questlogger/internal/logger"
	"github.com/questlogger/questlogger/internal/store"
)

// RecordingQuota rejects voice uploads from users whose monthly
// recording minutes are used up, before the audio body is read.
func RecordingQuota(subs *store.SubscriptionRepository) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := auth.GetUserIDFromContext(r.Context())
			if userID == 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Not authenticated"})
				return
			}

			sub, err := subs.GetByUserID(r.Context(), userID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				logger.FromRequest(r).Error().Err(err).Msg("quota check")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Failed to check subscription status"})
				return
			}

			if err == nil && sub.MinutesLimit > 0 && sub.MinutesUsed >= sub.MinutesLimit {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Monthly recording limit reached"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
