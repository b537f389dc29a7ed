package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, err := svc.GenerateToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-one", time.Hour).GenerateToken(7)
	require.NoError(t, err)

	_, err = NewJWTService("secret-two", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	token, err := NewJWTService("test-secret", -time.Minute).GenerateToken(7)
	require.NoError(t, err)

	_, err = NewJWTService("test-secret", -time.Minute).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := NewJWTService("test-secret", time.Hour).ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := GetUserIDFromContext(r.Context())
		json.NewEncoder(w).Encode(map[string]int{"user_id": userID})
	})
	handler := JWTMiddleware(svc)(next)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"detail": "Not authenticated"}`, rec.Body.String())
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Basic abc123")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token reaches handler with user id", func(t *testing.T) {
		token, err := svc.GenerateToken(99)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id": 99}`, rec.Body.String())
	})
}

func TestGetUserIDFromContextDefault(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, 0, GetUserIDFromContext(req.Context()))
}
