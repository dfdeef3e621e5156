package server

import (
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qamod/internal/handlers/api"
	"qamod/internal/middleware"
	"qamod/internal/moderation"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Service *moderation.Service
	Auth    *middleware.AuthMiddleware
	Config  api.ConfigStore
	Health  api.Pinger
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(d Deps) {
	questionHandler := api.NewQuestionHandler(d.Service)
	reviewHandler := api.NewReviewHandler(d.Service)
	userHandler := api.NewUserHandler(d.Service)
	configHandler := api.NewConfigHandler(d.Config)
	healthHandler := api.NewHealthHandler(d.Health)

	// Operational routes
	s.App.Get("/healthz", healthHandler.Check)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	apiGroup := s.App.Group("/api", d.Auth.RequireAuth)

	// Close and reopen voting
	apiGroup.Post("/questions/:id/close-votes", questionHandler.CastCloseVote)
	apiGroup.Get("/questions/:id/close-votes", questionHandler.CloseVotes)
	apiGroup.Delete("/questions/:id/close-votes/:reason", questionHandler.RetractCloseVote)
	apiGroup.Post("/questions/:id/hammer", questionHandler.Hammer)
	apiGroup.Post("/questions/:id/reopen-votes", questionHandler.CastReopenVote)
	apiGroup.Get("/questions/:id/reopen-votes", questionHandler.ReopenVotes)
	apiGroup.Get("/close-reasons", configHandler.CloseReasons)

	// Review queue
	apiGroup.Post("/reviews/flags", reviewHandler.Flag)
	apiGroup.Get("/reviews", reviewHandler.List)
	apiGroup.Get("/reviews/:id", reviewHandler.Get)
	apiGroup.Post("/reviews/:id/votes", reviewHandler.Vote)

	// Reputation and privileges
	apiGroup.Get("/users/:id/reputation", userHandler.Reputation)
	apiGroup.Get("/privileges/retag", userHandler.CanRetag)

	// Admin routes (admin only)
	apiGroup.Get("/admin/closure-config", d.Auth.RequireAdmin, configHandler.ClosureConfig)
	apiGroup.Patch("/admin/closure-config", d.Auth.RequireAdmin, configHandler.UpdateClosureConfig)
}
