// Package requestid assigns every control request an id that is echoed in
// the X-Request-ID response header and carried through to notification logs.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"groupwatch/internal/infra/notifier"
)

type contextKey struct{}

// Header is the HTTP header that carries the request id.
const Header = "X-Request-ID"

// maxLen bounds client-supplied ids; longer or non-printable ids are replaced.
const maxLen = 128

// FromContext returns the request id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// WithRequestID stores id in ctx for both this package and the notifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, contextKey{}, id)
	return notifier.WithRequestID(ctx, id)
}

// Middleware reuses a well-formed X-Request-ID from the client or generates
// a UUID v4.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !wellFormed(id) {
			id = uuid.New().String()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

func wellFormed(id string) bool {
	if id == "" || len(id) > maxLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
