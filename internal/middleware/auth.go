package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/puzzle-rooms/internal/config"
	"github.com/localnerve/puzzle-rooms/internal/services"
	"github.com/localnerve/puzzle-rooms/internal/types"
)

// AuthUser validates that the request carries an authenticated user session.
// The Authorizer client is initialized lazily on the first authenticated
// request, using the request's protocol and host for the redirect URL.
func AuthUser(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !services.IsAuthorizerInitialized() {
			if err := services.InitAuthorizer(cfg, c.Protocol(), string(c.Request().Host())); err != nil {
				return types.Unauthorized(fmt.Sprintf("Auth provider unavailable: %v", err))
			}
		}

		// Get session cookie
		session := c.Cookies("cookie_session")
		if session == "" {
			return types.Unauthorized("Authorizer cookie \"cookie_session\" not found")
		}

		// Validate session
		user, err := services.ValidateSession(session, []string{"user"})
		if err != nil {
			return types.Unauthorized(fmt.Sprintf("Invalid session: %v", err))
		}

		// Set user identity in context for handlers
		c.Locals("user", user)
		c.Locals("userId", user.ID)
		c.Locals("userEmail", user.Email)

		return c.Next()
	}
}

// UserID extracts the authenticated user's identifier from the context.
// Empty when the request did not pass AuthUser.
func UserID(c *fiber.Ctx) string {
	if id, ok := c.Locals("userId").(string); ok {
		return id
	}
	return ""
}
