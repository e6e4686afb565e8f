package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"formcraft/internal/engine"
	"formcraft/internal/instrument"
)

// AuthMiddleware validates the bearer token and stores a *Principal in
// c.Locals("user").
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return engine.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], secret)
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}

		p := &Principal{ID: claims.Subject, Roles: claims.Roles}
		c.Locals("user", p)
		c.SetUserContext(instrument.WithUser(c.UserContext(), p.ID))
		return c.Next()
	}
}

// RequireRole rejects authenticated callers without role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil {
			return engine.UnauthorizedError("Missing auth token")
		}
		if !p.HasRole(role) {
			return engine.ForbiddenError(role + " role required")
		}
		return c.Next()
	}
}

// GetPrincipal extracts the caller from a Fiber context.
func GetPrincipal(c *fiber.Ctx) *Principal {
	p, _ := c.Locals("user").(*Principal)
	return p
}
