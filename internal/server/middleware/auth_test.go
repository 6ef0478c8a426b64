package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClaims struct {
	userID uuid.UUID
}

func (c *testClaims) GetUserID() uuid.UUID {
	return c.userID
}

type testTokenValidator map[string]uuid.UUID

func (v testTokenValidator) ValidateToken(tokenString string) (UserIDGetter, error) {
	userID, ok := v[tokenString]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &testClaims{userID: userID}, nil
}

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := GetUserID(r)
		require.NoError(t, err)
		_, _ = w.Write([]byte(userID.String()))
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	handler := AuthMiddleware(testTokenValidator{"good": userID})(echoUser(t))

	for _, header := range []string{"Bearer good", "bearer good", "BEARER   good"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, header)
		assert.Equal(t, userID.String(), rec.Body.String())
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	handler := AuthMiddleware(testTokenValidator{"good": uuid.New()})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	tests := []struct {
		name, header, message string
	}{
		{"missing", "", "missing bearer token"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "missing bearer token"},
		{"no token", "Bearer", "missing bearer token"},
		{"extra parts", "Bearer good extra", "missing bearer token"},
		{"unknown token", "Bearer bad", "invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestGetUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetUserID(req)
	assert.ErrorIs(t, err, ErrNoUser)

	userID := uuid.New()
	req = req.WithContext(WithUserID(context.Background(), userID))
	got, err := GetUserID(req)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}
