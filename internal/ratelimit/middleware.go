package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// IdentityFunc extracts the rate-limited identity from a request. An
// empty identity skips the check (the request was already rejected or
// is anonymous and handled elsewhere).
type IdentityFunc func(r *http.Request) string

// Policy is one endpoint's rate-limit configuration.
type Policy struct {
	Endpoint    string
	MaxRequests int
	Window      time.Duration
}

// Middleware applies p to every request, sets the standard rate-limit
// headers on each response, and short-circuits with 429 and a
// Retry-After hint when the limit is exceeded.
func Middleware(limiter *Limiter, p Policy, identityFn IdentityFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := identityFn(r)
			if identity == "" {
				next.ServeHTTP(w, r)
				return
			}

			result := limiter.Allow(r.Context(), identity, p.Endpoint, p.MaxRequests, p.Window)

			resetSecs := int(result.ResetIn.Seconds())
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSecs))

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(resetSecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error":       "too many requests",
					"retry_after": resetSecs,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
