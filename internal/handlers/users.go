package handlers

import (
	"net/http"

	"github.com/questlogger/questlogger/internal/auth"
	"github.com/questlogger/questlogger/internal/gamification"
	"github.com/questlogger/questlogger/internal/store"
)

// MeHandler returns the authenticated user's profile with their
// gamification progress.
func MeHandler(users *store.UserRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.GetUserIDFromContext(r.Context())

		user, err := users.GetByID(r.Context(), userID)
		if err != nil {
			serviceError(w, r, err, "User not found")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"id":                  user.ID,
			"email":               user.Email,
			"username":            user.Username,
			"experience":          user.Experience,
			"level":               user.Level,
			"xp_for_next_level":   gamification.XPForNextLevel(user.Level),
			"created_at":          user.CreatedAt,
		})
	}
}
