package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"qamod/internal/models"
	"qamod/internal/moderation"
)

// ReviewHandler handles the flag review queue via JSON API.
type ReviewHandler struct {
	svc *moderation.Service
}

// NewReviewHandler creates a new API review handler.
func NewReviewHandler(svc *moderation.Service) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

// Flag raises content for review and records the flagger's vote.
func (h *ReviewHandler) Flag(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body struct {
		ContentType string    `json:"content_type"`
		ContentID   uuid.UUID `json:"content_id"`
		ReviewType  string    `json:"review_type"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	contentType, err := models.ParseContentType(body.ContentType)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	reviewType, err := models.ParseReviewType(body.ReviewType)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	if body.ContentID == uuid.Nil {
		return jsonError(c, fiber.StatusBadRequest, "content_id is required")
	}

	result, err := h.svc.Flag(c.Context(), moderation.FlagRequest{
		Content:    models.ContentRef{Type: contentType, ID: body.ContentID},
		ReviewType: reviewType,
		ActorID:    user.ID,
	})
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, result)
}

// List returns pending items of a review type the caller can still act on.
func (h *ReviewHandler) List(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	reviewType, err := models.ParseReviewType(c.Query("type", ""))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	items, err := h.svc.PendingReviews(c.Context(), reviewType, user.ID, queryLimit(c))
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, items)
}

// Get returns a single review item.
func (h *ReviewHandler) Get(c fiber.Ctx) error {
	itemID, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid review item id")
	}
	item, err := h.svc.ReviewItem(c.Context(), itemID)
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, item)
}

// Vote records or changes the caller's vote on a review item.
func (h *ReviewHandler) Vote(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	itemID, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid review item id")
	}

	var body struct {
		Vote string `json:"vote"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil || body.Vote == "" {
		return jsonError(c, fiber.StatusBadRequest, "vote is required")
	}

	result, err := h.svc.Vote(c.Context(), itemID, user.ID, body.Vote)
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, result)
}
