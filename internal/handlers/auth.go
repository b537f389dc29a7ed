package handlers

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/questlogger/questlogger/internal/auth"
	"github.com/questlogger/questlogger/internal/store"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterHandler creates an account and returns a bearer token so the
// client is logged in straight away.
func RegisterHandler(users *store.UserRepository, jwtService *auth.JWTService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "Email and password are required")
			return
		}
		if len(req.Password) < 8 {
			respondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
			return
		}

		if _, err := users.GetByEmail(r.Context(), req.Email); err == nil {
			respondError(w, http.StatusBadRequest, "Email already registered")
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			serviceError(w, r, err, "")
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			serviceError(w, r, err, "")
			return
		}

		userID, err := users.Create(r.Context(), req.Email, req.Username, string(hashed))
		if err != nil {
			respondError(w, http.StatusBadRequest, "Email already registered")
			return
		}

		token, err := jwtService.GenerateToken(userID)
		if err != nil {
			serviceError(w, r, err, "")
			return
		}

		respondJSON(w, http.StatusCreated, tokenResponse{AccessToken: token, TokenType: "bearer"})
	}
}

// LoginHandler exchanges credentials for a bearer token.
func LoginHandler(users *store.UserRepository, jwtService *auth.JWTService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := users.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
			respondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		token, err := jwtService.GenerateToken(user.ID)
		if err != nil {
			serviceError(w, r, err, "")
			return
		}

		respondJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
	}
}
