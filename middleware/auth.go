// middleware/auth.go
package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the authenticated user identity set by the
// Gateway. The Gateway verifies the session before forwarding, so a missing
// X-User-ID on a secured route is always a misrouted request.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		username := c.Get("X-User-Name")
		if username == "" {
			username = userID
		}

		// Attach to ctx for handlers (websocket handlers read these via conn.Locals)
		c.Locals("user_id", userID)
		c.Locals("username", username)

		return c.Next()
	}
}
