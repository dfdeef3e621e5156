package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"qamod/internal/moderation"
	"qamod/internal/validation"
)

// QuestionHandler handles close and reopen voting via JSON API.
type QuestionHandler struct {
	svc *moderation.Service
}

// NewQuestionHandler creates a new API question handler.
func NewQuestionHandler(svc *moderation.Service) *QuestionHandler {
	return &QuestionHandler{svc: svc}
}

type closeVoteBody struct {
	ReasonCode    string     `json:"reason_code"`
	Details       string     `json:"details"`
	DuplicateOfID *uuid.UUID `json:"duplicate_of_id"`
}

func parseCloseVoteBody(c fiber.Ctx) (*closeVoteBody, string) {
	var body closeVoteBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return nil, "invalid request body"
	}
	if !validation.ValidateReasonCode(body.ReasonCode) {
		return nil, "invalid reason_code"
	}
	if ok, msg := validation.ValidateDetails(body.Details); !ok {
		return nil, msg
	}
	return &body, ""
}

// CastCloseVote records a close vote for one reason.
func (h *QuestionHandler) CastCloseVote(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	questionID, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid question id")
	}
	body, msg := parseCloseVoteBody(c)
	if body == nil {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	result, err := h.svc.CastCloseVote(c.Context(), moderation.CloseVoteRequest{
		QuestionID:    questionID,
		UserID:        user.ID,
		ReasonCode:    body.ReasonCode,
		Details:       body.Details,
		DuplicateOfID: body.DuplicateOfID,
	})
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, result)
}

// RetractCloseVote withdraws the caller's close vote for a reason.
func (h *QuestionHandler) RetractCloseVote(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	questionID, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid question id")
	}
	reason := c.Params("reason")
	if !validation.ValidateReasonCode(reason) {
		return jsonError(c, fiber.StatusBadRequest, "invalid reason code")
	}

	if err := h.svc.RetractCloseVote(c.Context(), questionID, user.ID, reason); err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, fiber.Map{"retracted": true})
}

// CloseVotes returns the active close tallies per reason.
func (h *QuestionHandler) CloseVotes(c fiber.Ctx) error {
	questionID, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid question id")
	}
	summary, err := h.svc.CloseVoteSummary(c.Context(), questionID)
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, summary)
}

// Hammer closes a question on the word of a gold badge holder.
func (h *QuestionHandler) Hammer(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	questionID, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid question id")
	}
	body, msg := parseCloseVoteBody(c)
	if body == nil {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	q, err := h.svc.HammerClose(c.Context(), moderation.HammerRequest{
		QuestionID:    questionID,
		ActorID:       user.ID,
		ReasonCode:    body.ReasonCode,
		Details:       body.Details,
		DuplicateOfID: body.DuplicateOfID,
	})
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, fiber.Map{"closed": true, "question": q})
}

// CastReopenVote records a reopen vote.
func (h *QuestionHandler) CastReopenVote(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	questionID, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid question id")
	}

	var body struct {
		Reason string `json:"reason"`
	}
	json.Unmarshal(c.Body(), &body) // Reason is optional
	if ok, msg := validation.ValidateDetails(body.Reason); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	result, err := h.svc.CastReopenVote(c.Context(), questionID, user.ID, body.Reason)
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, result)
}

// ReopenVotes returns the active reopen pool.
func (h *QuestionHandler) ReopenVotes(c fiber.Ctx) error {
	questionID, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid question id")
	}
	summary, err := h.svc.ReopenVoteSummary(c.Context(), questionID)
	if err != nil {
		return moderationError(c, err)
	}
	return jsonSuccess(c, summary)
}
