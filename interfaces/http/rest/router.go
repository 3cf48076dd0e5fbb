package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter assembles the HTTP surface: REST endpoints, the WebSocket
// upgrade endpoint and the prometheus metrics handler.
func NewRouter(handler *Handler, wsHandler http.HandlerFunc, metricsHandler http.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/shopping-list", handler.GetShoppingList)
		r.Get("/history", handler.GetHistory)
		r.Post("/voice-update", handler.VoiceUpdate)
	})

	r.Get("/ws", wsHandler)
	r.Get("/healthz", handler.Health)
	r.Handle("/metrics", metricsHandler)

	return r
}
