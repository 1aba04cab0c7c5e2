// Package api exposes projects, translation tables and dialogs over HTTP,
// along with their exports, graph views and lint reports.
package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Bellian/Godot-Translation-Tool/internal/config"
	"github.com/Bellian/Godot-Translation-Tool/internal/layout"
	"github.com/Bellian/Godot-Translation-Tool/internal/lint"
	"github.com/Bellian/Godot-Translation-Tool/internal/repo"
)

type Handler struct {
	repo      *repo.Repo
	catalogue *lint.Catalogue
	layout    config.LayoutConfig

	// FrameInterval paces the graph stream.
	FrameInterval time.Duration
}

func NewHandler(r *repo.Repo, catalogue *lint.Catalogue, layoutCfg config.LayoutConfig) *Handler {
	if catalogue == nil {
		catalogue = lint.DefaultCatalogue()
	}
	return &Handler{repo: r, catalogue: catalogue, layout: layoutCfg, FrameInterval: 16 * time.Millisecond}
}

func (h *Handler) layoutOptions() layout.Options {
	opts := layout.DefaultOptions()
	if h.layout.Width > 0 {
		opts.Width = h.layout.Width
	}
	if h.layout.Height > 0 {
		opts.Height = h.layout.Height
	}
	if h.layout.Ticks > 0 {
		opts.Ticks = h.layout.Ticks
	}
	return opts
}

// --- helpers ---

func paramID(c *fiber.Ctx, name string) (int64, error) {
	raw := c.Params(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, BadRequestError(fmt.Sprintf("Invalid %s: %q", name, raw))
	}
	return id, nil
}

func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return BadRequestError("Invalid request body")
	}
	return nil
}

func download(c *fiber.Ctx, filename, contentType string, body []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(body)
}

func created(c *fiber.Ctx, v any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": v})
}

func ok(c *fiber.Ctx, v any) error {
	return c.JSON(fiber.Map{"data": v})
}

// textBody is the payload of the translation and text endpoints.
type textBody struct {
	LanguageID int64  `json:"languageId"`
	Text       string `json:"text"`
}

func (b textBody) validate() error {
	if b.LanguageID <= 0 {
		return ValidationError([]ErrorDetail{{Field: "languageId", Message: "is required"}})
	}
	return nil
}
