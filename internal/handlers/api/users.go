package api

import (
	"github.com/gofiber/fiber/v3"

	"qamod/internal/moderation"
	"qamod/internal/validation"
)

// UserHandler serves reputation and privilege lookups via JSON API.
type UserHandler struct {
	svc *moderation.Service
}

// NewUserHandler creates a new API user handler.
func NewUserHandler(svc *moderation.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// Reputation returns a user's total and recent ledger entries.
func (h *UserHandler) Reputation(c fiber.Ctx) error {
	userID, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid user id")
	}
	summary, err := h.svc.ReputationHistory(c.Context(), userID, queryLimit(c))
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, summary)
}

// CanRetag reports whether the caller may apply tags to a question.
func (h *UserHandler) CanRetag(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	questionID, err := parseUUIDQuery(c, "question")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid question id")
	}
	tags, msg := validation.ParseTags(c.Query("tags", ""))
	if msg != "" {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	decision, err := h.svc.CanRetag(c.Context(), user.ID, questionID, tags)
	if err != nil {
		return moderationError(c, err)
	}
	if !decision.Allowed {
		return decisionError(c, decision)
	}
	return jsonSuccess(c, fiber.Map{"allowed": true})
}
