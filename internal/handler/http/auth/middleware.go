// Package auth protects the control API with HS256 bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"groupwatch/internal/handler/http/requestid"
	"groupwatch/internal/handler/http/respond"
)

// RoleOperator is the only role allowed to use the control API.
const RoleOperator = "operator"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrForbidden    = errors.New("forbidden")
)

type ctxKey struct{}

// Authenticator validates bearer tokens signed with a shared secret.
// A nil *Authenticator lets every request through.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// NewAuthenticator returns nil when secret is empty, which disables auth.
func NewAuthenticator(secret string) *Authenticator {
	if secret == "" {
		return nil
	}
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// SubjectFromContext returns the authenticated subject, or "".
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(ctxKey{}).(string)
	return sub
}

// Middleware rejects requests without a valid operator token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, role, err := a.Validate(r.Header.Get("Authorization"))
		if err != nil {
			recordAttempt("rejected")
			slog.Warn("control request rejected",
				slog.String("request_id", requestid.FromContext(r.Context())),
				slog.String("path", r.URL.Path),
				slog.Any("error", err))
			respond.SafeError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized: %w", err))
			return
		}
		if role != RoleOperator {
			recordAttempt("forbidden")
			respond.SafeError(w, http.StatusForbidden, ErrForbidden)
			return
		}

		recordAttempt("accepted")
		ctx := context.WithValue(r.Context(), ctxKey{}, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Validate parses an Authorization header value and returns the token's
// subject and role.
func (a *Authenticator) Validate(header string) (subject, role string, err error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", "", ErrMissingToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", "", ErrTokenExpired
	case err != nil:
		return "", "", ErrInvalidToken
	}

	subject, _ = claims["sub"].(string)
	role, _ = claims["role"].(string)
	if subject == "" {
		return "", "", ErrInvalidToken
	}
	return subject, role, nil
}
