package api

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"qamod/internal/models"
)

// currentUser returns the authenticated user stored by the auth middleware.
func currentUser(c fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals("user").(*models.User)
	return user, ok && user != nil
}

func paramUUID(c fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

// queryLimit parses the limit query parameter; 0 lets the service pick its default.
func queryLimit(c fiber.Ctx) int {
	n, err := strconv.Atoi(c.Query("limit", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseUUIDQuery(c fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Query(name, ""))
}
