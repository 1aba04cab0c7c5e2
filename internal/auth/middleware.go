package auth

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Bellian/Godot-Translation-Tool/internal/api"
)

// AuthMiddleware accepts a Bearer JWT or HTTP Basic credentials for the
// account and stores the username on the request.
func AuthMiddleware(account *Account, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			c.Set("WWW-Authenticate", `Basic realm="dialogtool"`)
			return api.UnauthorizedError("Missing credentials")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 {
			return api.UnauthorizedError("Invalid auth header format")
		}

		switch {
		case strings.EqualFold(parts[0], "Bearer"):
			claims, err := ParseAccessToken(parts[1], secret)
			if err != nil || claims.Subject != account.Username {
				return api.UnauthorizedError("Invalid or expired token")
			}
			c.Locals("user", claims.Subject)
		case strings.EqualFold(parts[0], "Basic"):
			raw, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				return api.UnauthorizedError("Invalid basic credentials")
			}
			username, password, ok := strings.Cut(string(raw), ":")
			if !ok || !account.Verify(username, password) {
				c.Set("WWW-Authenticate", `Basic realm="dialogtool"`)
				return api.UnauthorizedError("Invalid username or password")
			}
			c.Locals("user", username)
		default:
			return api.UnauthorizedError("Invalid auth header format")
		}

		return c.Next()
	}
}

// GetUser returns the authenticated username.
func GetUser(c *fiber.Ctx) string {
	user, _ := c.Locals("user").(string)
	return user
}
