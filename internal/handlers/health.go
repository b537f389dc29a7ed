package handlers

import (
	"database/sql"
	"net/http"
)

// HealthHandler reports liveness, including database reachability.
func HealthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"detail": "database unreachable",
			})
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
