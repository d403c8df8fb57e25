package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"lending-service/configs"
)

// NewCORS allows the configured browser origins to call the API
func NewCORS(cfg *configs.Config) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return c.Handler
}
