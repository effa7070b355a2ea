package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasteroute-backend/internal/models"
)

const testSecret = "test-secret"

func okHandler(t *testing.T, wantRole models.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetUserFromContext(r)
		require.True(t, ok)
		assert.Equal(t, wantRole, claims.Role)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuth(t *testing.T) {
	user := &models.User{ID: "u1", Email: "c@example.com", Role: models.RoleCollector}
	valid, err := IssueToken(testSecret, user, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, user, -time.Hour)
	require.NoError(t, err)
	otherSecret, err := IssueToken("other", user, time.Hour)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "Valid token", header: "Bearer " + valid, want: http.StatusNoContent},
		{name: "Missing header", header: "", want: http.StatusUnauthorized},
		{name: "Wrong scheme", header: "Token " + valid, want: http.StatusUnauthorized},
		{name: "Expired token", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "Wrong secret", header: "Bearer " + otherSecret, want: http.StatusUnauthorized},
	}

	handler := Auth(testSecret)(okHandler(t, models.RoleCollector))
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/collectors/u1/route", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(models.RoleAdmin, models.RoleCollector)(okHandler(t, models.RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), UserClaims{UserID: "a", Role: models.RoleAdmin}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), UserClaims{UserID: "c", Role: models.RoleCitizen}))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	user := &models.User{ID: "u1", Email: "x@example.com", Role: models.Role("driver")}
	token, err := IssueToken(testSecret, user, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, token)
	assert.Error(t, err)
}
