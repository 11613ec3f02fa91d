package auth

import (
	"strings"

	"mareero-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserRoleKey = "user_role"
	CtxSessionKey  = "session_id"
)

// JWTMiddleware puts the session role into request locals. Nothing about
// the session is kept outside the request.
func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
		}

		claims, err := parseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxSessionKey, claims.ID)
		return c.Next()
	}
}

func RequireManager() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(string)
		if !ok || role != RoleManager {
			return fiber.NewError(fiber.StatusForbidden, "manager access required")
		}
		return c.Next()
	}
}

// Actor names who performed a write, for the audit log.
func Actor(c *fiber.Ctx) string {
	if role, ok := c.Locals(CtxUserRoleKey).(string); ok && role != "" {
		return role
	}
	return "anonymous"
}
