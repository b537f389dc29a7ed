package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type key int

const UserIDKey key = 0

// JWTMiddleware authenticates requests by bearer token and stores the
// user ID in the request context.
func JWTMiddleware(jwtService *JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w)
				return
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")
			userID, err := jwtService.ValidateToken(tokenStr)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": "Not authenticated"})
}

// GetUserIDFromContext returns the authenticated user ID, or 0 when the
// request was not authenticated.
func GetUserIDFromContext(ctx context.Context) int {
	userID, ok := ctx.Value(UserIDKey).(int)
	if !ok {
		return 0
	}
	return userID
}
