package api

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"qamod/internal/moderation"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// jsonErrorCode returns an error response carrying a machine-readable code
// and any extra fields.
func jsonErrorCode(c fiber.Ctx, status int, code, message string, extra fiber.Map) error {
	body := fiber.Map{
		"status": "error",
		"error":  message,
		"code":   code,
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// Error codes
const (
	CodeInsufficientReputation = "insufficient_reputation"
	CodeInsufficientBadge      = "insufficient_badge"
	CodeSelfContent            = "self_content"
	CodeAlreadyVoted           = "already_voted"
	CodeAlreadyResolved        = "already_resolved"
	CodeRateLimited            = "rate_limited"
	CodeNotFound               = "not_found"
	CodeInvalid                = "invalid_request"
	CodeUnavailable            = "unavailable"
	CodeInternal               = "internal"
)

// moderationError maps an engine error onto a status code and envelope.
func moderationError(c fiber.Ctx, err error) error {
	var repErr *moderation.ReputationError
	var badgeErr *moderation.BadgeError
	var rateErr *moderation.RateLimitError

	switch moderation.KindOf(err) {
	case moderation.KindAuthorization:
		switch {
		case errors.As(err, &repErr):
			return jsonErrorCode(c, fiber.StatusForbidden, CodeInsufficientReputation, err.Error(), fiber.Map{
				"required": repErr.Required,
			})
		case errors.As(err, &badgeErr):
			return jsonErrorCode(c, fiber.StatusForbidden, CodeInsufficientBadge, err.Error(), fiber.Map{
				"tier": badgeErr.Tier,
			})
		}
		return jsonErrorCode(c, fiber.StatusForbidden, CodeSelfContent, err.Error(), nil)

	case moderation.KindConflict:
		if errors.Is(err, moderation.ErrAlreadyVoted) {
			return jsonErrorCode(c, fiber.StatusConflict, CodeAlreadyVoted, err.Error(), nil)
		}
		return jsonErrorCode(c, fiber.StatusConflict, CodeAlreadyResolved, err.Error(), nil)

	case moderation.KindRateLimit:
		errors.As(err, &rateErr)
		retry := int(time.Until(rateErr.ResetAt).Seconds())
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(max(retry, 1)))
		return jsonErrorCode(c, fiber.StatusTooManyRequests, CodeRateLimited, err.Error(), fiber.Map{
			"limit":    rateErr.Limit,
			"reset_at": rateErr.ResetAt,
		})

	case moderation.KindNotFound:
		return jsonErrorCode(c, fiber.StatusNotFound, CodeNotFound, err.Error(), nil)

	case moderation.KindInvalid:
		return jsonErrorCode(c, fiber.StatusBadRequest, CodeInvalid, err.Error(), nil)

	case moderation.KindTransient:
		c.Set(fiber.HeaderRetryAfter, "1")
		return jsonErrorCode(c, fiber.StatusServiceUnavailable, CodeUnavailable, "please try again shortly", nil)
	}

	slog.Error("moderation request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return jsonErrorCode(c, fiber.StatusInternalServerError, CodeInternal, "internal error", nil)
}

// decisionError turns a privilege denial into the same envelope as an engine error.
func decisionError(c fiber.Ctx, d moderation.Decision) error {
	return moderationError(c, d.Reason)
}
