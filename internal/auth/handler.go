package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"formcraft/internal/config"
	"formcraft/internal/engine"
)

// DefaultAdminPassword is accepted when no password hash is configured.
const DefaultAdminPassword = "changeme"

// AuthHandler logs in the single configured editor account.
type AuthHandler struct {
	user         string
	passwordHash string
	jwtSecret    string
}

// NewAuthHandler builds a handler from cfg. Without a configured hash the
// default password is hashed once and a warning is logged.
func NewAuthHandler(cfg config.AuthConfig) (*AuthHandler, error) {
	hash := cfg.AdminPassword
	if hash == "" {
		var err error
		hash, err = HashPassword(DefaultAdminPassword)
		if err != nil {
			return nil, err
		}
		log.Warn().Str("user", cfg.AdminUser).Msg("no admin password hash configured, using the default password")
	}
	return &AuthHandler{user: cfg.AdminUser, passwordHash: hash, jwtSecret: cfg.JWTSecret}, nil
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}
	if body.Username == "" || body.Password == "" {
		return engine.UnauthorizedError("Username and password are required")
	}

	userOK := subtle.ConstantTimeCompare([]byte(body.Username), []byte(h.user)) == 1
	if !CheckPassword(body.Password, h.passwordHash) || !userOK {
		log.Info().Str("user", body.Username).Msg("rejected login")
		return engine.UnauthorizedError("Invalid username or password")
	}

	token, err := GenerateAccessToken(h.user, []string{RoleEditor}, h.jwtSecret)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(AccessTokenTTL.Seconds()),
	}})
}

func RegisterAuthRoutes(app *fiber.App, h *AuthHandler) {
	app.Post("/api/auth/login", h.Login)
}
