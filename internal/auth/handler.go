package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Bellian/Godot-Translation-Tool/internal/api"
	"github.com/Bellian/Godot-Translation-Tool/internal/instrument"
)

// TokenResponse is returned after a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	account   *Account
	jwtSecret string
	ttl       time.Duration
}

func NewAuthHandler(account *Account, jwtSecret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{account: account, jwtSecret: jwtSecret, ttl: ttl}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.BadRequestError("Invalid request body")
	}
	if body.Username == "" || body.Password == "" {
		return api.UnauthorizedError("Username and password are required")
	}
	if !h.account.Verify(body.Username, body.Password) {
		instrument.LoggerFromContext(c.UserContext()).Warn("login rejected", "username", body.Username)
		return api.UnauthorizedError("Invalid username or password")
	}

	token, expires, err := GenerateAccessToken(h.account.Username, h.jwtSecret, h.ttl)
	if err != nil {
		return api.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}
	return c.JSON(fiber.Map{"data": TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expires).Seconds()),
	}})
}

// RegisterAuthRoutes registers auth routes on the given Fiber app.
func RegisterAuthRoutes(app *fiber.App, h *AuthHandler) {
	auth := app.Group("/api/auth")
	auth.Post("/login", h.Login)
}
