package api

import (
	"net/http"

	"github.com/rs/cors"
)

// WithCORS lets pages served from origins call the API. With no origins the
// handler is returned unchanged.
func WithCORS(next http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return next
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(next)
}
