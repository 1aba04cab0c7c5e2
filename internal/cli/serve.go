package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/Bellian/Godot-Translation-Tool/internal/api"
	"github.com/Bellian/Godot-Translation-Tool/internal/auth"
)

const shutdownTimeout = 5 * time.Second

func (c *CLI) serveCommand() *cobra.Command {
	var (
		port      int
		accessLog bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if cmd.Flags().Changed("port") {
				e.cfg.Server.Port = port
			}
			app, err := c.newServer(e, accessLog)
			if err != nil {
				return err
			}
			return c.listen(ctx, app, fmt.Sprintf(":%d", e.cfg.Server.Port))
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().BoolVar(&accessLog, "access-log", true, "log every request")
	return cmd
}

// newServer wires the API. Login is registered before the protected group
// so the group middleware never sees it.
func (c *CLI) newServer(e *env, accessLog bool) (*fiber.App, error) {
	catalogue, err := e.catalogue()
	if err != nil {
		return nil, err
	}
	app := api.NewApp(c.Logger, accessLog)

	var middleware []fiber.Handler
	if e.cfg.Auth.Disabled {
		c.Logger.Warn("Authentication is disabled")
	} else {
		account, err := auth.NewAccount(e.cfg.Auth.Username, e.cfg.Auth.Password)
		if err != nil {
			return nil, fmt.Errorf("auth account: %w", err)
		}
		auth.RegisterAuthRoutes(app, auth.NewAuthHandler(account, e.cfg.Auth.JWTSecret, e.cfg.Auth.TokenTTL))
		middleware = append(middleware, auth.AuthMiddleware(account, e.cfg.Auth.JWTSecret))
	}

	h := api.NewHandler(e.repo, catalogue, e.cfg.Layout)
	api.RegisterRoutes(app, h, middleware...)
	return app, nil
}

// listen serves until the listener fails or ctx is cancelled, then shuts
// down gracefully.
func (c *CLI) listen(ctx context.Context, app *fiber.App, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(addr)
	}()
	c.Logger.Info("Listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		c.Logger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errc
	}
}
