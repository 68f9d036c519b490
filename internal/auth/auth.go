// Package auth provides the identity boundary: request authentication
// via an opaque token verifier. The identity provider itself is
// external; this package only asks "is there a signed-in identity".
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// ErrInvalidToken is returned for unknown or malformed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Identity is an authenticated caller.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Verifier resolves a bearer token to an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// StaticVerifier verifies against a fixed token map, for deployments
// without an external identity provider and for tests.
type StaticVerifier struct {
	tokens map[string]Identity
}

// NewStaticVerifier creates a StaticVerifier from token → identity.
func NewStaticVerifier(tokens map[string]Identity) *StaticVerifier {
	return &StaticVerifier{tokens: tokens}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	id, ok := v.tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &id, nil
}

type contextKey struct{}

// FromContext returns the authenticated identity stored by Middleware.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok
}

// WithIdentity returns a context carrying the identity. Exposed for
// handler tests.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Middleware authenticates requests via "Authorization: Bearer <token>"
// and stores the identity in the request context. Requests without a
// valid identity get 401.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
