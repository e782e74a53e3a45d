package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-sorter/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	embeddingsHandler := handlers.NewEmbeddingsHandler(s.extractor)
	matchHandler := handlers.NewMatchHandler(s.extractor, s.index, s.registry)
	facesHandler := handlers.NewFacesHandler(s.faces, s.index)
	peopleHandler := handlers.NewPeopleHandler(s.registry)
	statsHandler := handlers.NewStatsHandler(s.faces, s.index, s.registry)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Embeddings
		r.Post("/embeddings", embeddingsHandler.Create)
		r.Post("/similarity", embeddingsHandler.Similarity)

		// Matching
		r.Post("/match", matchHandler.Match)

		// Stored faces
		r.Get("/faces", facesHandler.List)
		r.Get("/faces/{id}", facesHandler.Get)
		r.Put("/faces/{id}/label", facesHandler.AssignLabel)
		r.Delete("/faces/{id}", facesHandler.Delete)

		// People
		r.Get("/people", peopleHandler.List)
		r.Post("/people", peopleHandler.Enroll)
		r.Get("/people/{id}", peopleHandler.Get)
		r.Post("/people/identify", peopleHandler.Identify)
		r.Post("/people/{id}/samples", peopleHandler.AddSample)

		// Groups
		r.Post("/groups", peopleHandler.Group)

		// Stats
		r.Get("/stats", statsHandler.Get)
	})
}
