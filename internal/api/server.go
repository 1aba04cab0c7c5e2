package api

import (
	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Bellian/Godot-Translation-Tool/internal/instrument"
)

// NewApp creates the Fiber app with the shared middleware stack and the
// health route. Routes are registered by the caller.
func NewApp(l *log.Logger, accessLog bool) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	if accessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
			Output: l.StandardLog().Writer(),
		}))
	}
	app.Use(instrument.Middleware(l, instrument.NewLogInstrumenter()))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	return app
}
