package api

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v3"

	"qamod/internal/models"
)

// ConfigStore reads and updates moderation settings.
type ConfigStore interface {
	GetClosureConfig(ctx context.Context) (*models.ClosureConfig, error)
	UpdateClosureConfig(ctx context.Context, patch models.ClosureConfigPatch) (*models.ClosureConfig, error)
	ListCloseReasons(ctx context.Context) ([]models.CloseReason, error)
}

// ConfigHandler exposes moderation settings via JSON API.
type ConfigHandler struct {
	store ConfigStore
}

// NewConfigHandler creates a new API config handler.
func NewConfigHandler(store ConfigStore) *ConfigHandler {
	return &ConfigHandler{store: store}
}

// CloseReasons lists the active close reasons.
func (h *ConfigHandler) CloseReasons(c fiber.Ctx) error {
	reasons, err := h.store.ListCloseReasons(c.Context())
	if err != nil {
		return moderationError(c, err)
	}
	if reasons == nil {
		reasons = []models.CloseReason{}
	}
	return jsonSuccess(c, reasons)
}

// ClosureConfig returns the close and reopen thresholds.
func (h *ConfigHandler) ClosureConfig(c fiber.Ctx) error {
	cfg, err := h.store.GetClosureConfig(c.Context())
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, cfg)
}

// UpdateClosureConfig applies a partial update to the thresholds.
func (h *ConfigHandler) UpdateClosureConfig(c fiber.Ctx) error {
	var patch models.ClosureConfigPatch
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := validatePatch(patch); msg != "" {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	cfg, err := h.store.UpdateClosureConfig(c.Context(), patch)
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, cfg)
}

func validatePatch(p models.ClosureConfigPatch) string {
	if p.CloseVotesNeeded != nil && *p.CloseVotesNeeded < 1 {
		return "close_votes_needed must be at least 1"
	}
	if p.ReopenVotesNeeded != nil && *p.ReopenVotesNeeded < 1 {
		return "reopen_votes_needed must be at least 1"
	}
	if p.MinReputationClose != nil && *p.MinReputationClose < 0 {
		return "min_reputation_close must not be negative"
	}
	if p.MinReputationReopen != nil && *p.MinReputationReopen < 0 {
		return "min_reputation_reopen must not be negative"
	}
	return ""
}
