package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ramonehamilton/commander-craft/internal/api/response"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	// WebSocket endpoint for generation progress
	s.router.Get("/ws", s.wsHub.ServeWs)

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}

		r.Route("/decks", func(r chi.Router) {
			r.Get("/", s.deckHandler.ListDecks)
			r.Post("/generate", s.deckHandler.GenerateDeck)
			r.Get("/{deckID}", s.deckHandler.GetDeck)
			r.Delete("/{deckID}", s.deckHandler.DeleteDeck)
			r.Get("/{deckID}/export", s.deckHandler.ExportDeck)
		})

		r.Route("/commanders", func(r chi.Router) {
			r.Get("/random", s.commanderHandler.RandomCommander)
			r.Get("/search", s.commanderHandler.SearchCommanders)
		})

		r.Get("/lands/plan", s.commanderHandler.PlanLands)
		r.Get("/mechanics", s.commanderHandler.Mechanics)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandler.GetStatus)
			r.Get("/metrics", s.systemHandler.GetMetrics)
		})
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "commander-craft-api",
	})
}
