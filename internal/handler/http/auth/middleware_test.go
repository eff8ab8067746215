package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

func okHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(SubjectFromContext(r.Context())))
	})
}

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestNewAuthenticator_EmptySecretDisablesAuth(t *testing.T) {
	a := NewAuthenticator("")
	require.Nil(t, a)

	rec := httptest.NewRecorder()
	a.Middleware(okHandler(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewAuthenticator(testSecret)
	a.now = func() time.Time { return now }

	valid, err := IssueToken(testSecret, "alice", time.Hour, now)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, "alice", time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	otherSecret, err := IssueToken("another-secret", "alice", time.Hour, now)
	require.NoError(t, err)

	tests := []struct {
		name     string
		method   string
		path     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "missing header", method: http.MethodPost, path: "/scan", wantCode: http.StatusUnauthorized},
		{name: "not bearer", method: http.MethodPost, path: "/scan", header: "Basic abc", wantCode: http.StatusUnauthorized},
		{name: "valid token", method: http.MethodPost, path: "/scan", header: "Bearer " + valid, wantCode: http.StatusOK, wantBody: "alice"},
		{name: "check requires token", method: http.MethodPost, path: "/check", wantCode: http.StatusUnauthorized},
		{name: "expired token", method: http.MethodPost, path: "/candidates", header: "Bearer " + expired, wantCode: http.StatusUnauthorized},
		{name: "wrong secret", method: http.MethodPost, path: "/candidates", header: "Bearer " + otherSecret, wantCode: http.StatusUnauthorized},
		{
			name: "wrong role", method: http.MethodPost, path: "/scan",
			header: "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
				"sub": "bob", "role": "viewer", "exp": now.Add(time.Hour).Unix(),
			}),
			wantCode: http.StatusForbidden,
		},
		{
			name: "no exp claim", method: http.MethodPost, path: "/scan",
			header: "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
				"sub": "bob", "role": RoleOperator,
			}),
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "HS512 rejected", method: http.MethodPost, path: "/scan",
			header: "Bearer " + signed(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{
				"sub": "bob", "role": RoleOperator, "exp": now.Add(time.Hour).Unix(),
			}),
			wantCode: http.StatusUnauthorized,
		},
	}

	h := a.Middleware(okHandler(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewAuthenticator(testSecret)
	a.now = func() time.Time { return now }

	_, _, err := a.Validate("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, _, err = a.Validate("Bearer not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := IssueToken(testSecret, "alice", time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	_, _, err = a.Validate("Bearer " + expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	noSub := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"role": RoleOperator, "exp": now.Add(time.Hour).Unix(),
	})
	_, _, err = a.Validate("Bearer " + noSub)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := IssueToken("", "alice", time.Hour, now)
	assert.Error(t, err)
	_, err = IssueToken(testSecret, "", time.Hour, now)
	assert.Error(t, err)

	tok, err := IssueToken(testSecret, "alice", 0, now)
	require.NoError(t, err)

	a := NewAuthenticator(testSecret)
	a.now = func() time.Time { return now.Add(DefaultTokenTTL - time.Second) }
	sub, role, err := a.Validate("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
	assert.Equal(t, RoleOperator, role)
}
