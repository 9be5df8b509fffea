package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/davidbz/medimentor/internal/domain"
	"github.com/davidbz/medimentor/internal/observability"
)

// RateLimit rejects API requests over the limiter's budget with 429.
// Limiter errors let the request through. A nil limiter disables the check.
func RateLimit(limiter domain.RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			logger := observability.FromContext(ctx)

			allowed, err := limiter.Allow(ctx, clientKey(r))
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", observability.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				logger.Warn("request rate limited",
					observability.String("stage", string(domain.StageRejected)),
					observability.String("path", r.URL.Path),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(domain.NewErrorResponse(
					domain.NewError(domain.KindRateLimited, "Too many requests, please retry later."),
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller by remote IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
