package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/davidbz/medimentor/internal/config"
)

// CORS answers preflights for browser front-ends that call the relay routes
// directly. A nil config disables it.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	//nolint:exhaustruct // remaining options use rs/cors defaults
	policy := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   []string{headerRequestID, headerTraceID},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return policy.Handler
}
