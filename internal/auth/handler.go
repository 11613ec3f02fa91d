package auth

import (
	"time"

	"mareero-backend/internal/config"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Password string `json:"password"`
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "password is required")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(cfg.ManagerPasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "incorrect password")
		}

		token, expires, err := GenerateToken(cfg.JWTSecret, now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "token could not be created")
		}

		return c.JSON(fiber.Map{
			"token":      token,
			"role":       RoleManager,
			"expires_at": expires.UTC().Format(time.RFC3339),
		})
	}
}
