package security

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS answers preflight requests and adds CORS headers. allowedOrigin is
// "*" or a comma-separated list of exact origins; an empty value disables
// CORS entirely.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	var origins []string
	for _, o := range strings.Split(allowedOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         600,
	})
	return c.Handler
}
