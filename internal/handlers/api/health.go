package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service health.
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a new API health handler.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check pings the store and reports 503 when it is unreachable.
func (h *HealthHandler) Check(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return jsonErrorCode(c, fiber.StatusServiceUnavailable, CodeUnavailable, "database unreachable", nil)
	}
	return jsonSuccess(c, fiber.Map{"database": "ok"})
}
