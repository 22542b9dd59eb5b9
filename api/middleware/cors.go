package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/swiftcart-backend/pkg/config"
	"github.com/go-chi/cors"
)

// CORS admits the app origins. Order placement sends Idempotency-Key, and
// clients read back X-Request-Id and the Retry-After of a throttled call.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Retry-After"},
		// bearer tokens, no cookies
		AllowCredentials: false,
		MaxAge:           int(cfg.MaxAge.Seconds()),
	})
}
