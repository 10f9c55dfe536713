package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// GetUserID extracts the user UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	return claimUUID(c, "sub")
}

// GetAdminID extracts the admin UUID from JWT claims in context.
func GetAdminID(c *fiber.Ctx) (uuid.UUID, error) {
	return claimUUID(c, "admin_id")
}

func claimUUID(c *fiber.Ctx, key string) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}

	val, ok := claims[key].(string)
	if !ok {
		return uuid.Nil, errors.New("missing " + key + " claim")
	}

	return uuid.Parse(val)
}
