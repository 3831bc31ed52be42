package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS returns a middleware that answers preflight requests and sets the
// Access-Control headers for the given origins. "*" allows any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Content-Length", "X-Thumbnail-Cache"},
		// Credentials cannot be combined with a wildcard origin.
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           600,
	})
	return c.Handler
}
