package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/proconnect/messaging-service/internal/auth"
)

// JWTAuth requires a valid bearer token and stashes the caller's user id in
// locals. The identity is trusted downstream without re-validation; the
// auth service issued it.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ParseBearer(c.Get("Authorization"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized - no token provided"})
		}
		userID, err := auth.Validate(secret, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized - invalid token"})
		}
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func callerID(c *fiber.Ctx) string {
	if v, ok := c.Locals("user_id").(string); ok {
		return v
	}
	return ""
}
