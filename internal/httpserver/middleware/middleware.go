// Package middleware holds the http.Handler wrappers applied in front of the
// relay routes.
package middleware

import (
	"net/http"
	"slices"

	"github.com/davidbz/medimentor/internal/config"
	"github.com/davidbz/medimentor/internal/domain"
)

// Middleware decorates an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain folds mws into one Middleware. The first element sees the request
// first.
func Chain(mws ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for _, mw := range slices.Backward(mws) {
			next = mw(next)
		}
		return next
	}
}

// BuildMiddlewareChain returns the production chain. CORS runs outermost so
// preflights never reach the limiter, and Trace runs before RateLimit so a
// 429 still carries a request ID.
func BuildMiddlewareChain(corsConfig *config.CORSConfig, limiter domain.RateLimiter) Middleware {
	return Chain(CORS(corsConfig), Trace(), RateLimit(limiter))
}
