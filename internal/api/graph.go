package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/Bellian/Godot-Translation-Tool/internal/graph"
	"github.com/Bellian/Godot-Translation-Tool/internal/instrument"
	"github.com/Bellian/Godot-Translation-Tool/internal/layout"
)

func (h *Handler) dialogGraph(c *fiber.Ctx) (graph.Graph, error) {
	projectID, dialogID, err := dialogParams(c)
	if err != nil {
		return graph.Graph{}, err
	}
	d, err := h.repo.GetDialog(c.UserContext(), projectID, dialogID)
	if err != nil {
		return graph.Graph{}, err
	}
	return graph.Extract(d.Sections, d.StartSection), nil
}

// Graph handles GET .../dialogs/:dialogId/graph
func (h *Handler) Graph(c *fiber.Ctx) error {
	g, err := h.dialogGraph(c)
	if err != nil {
		return err
	}
	return ok(c, layout.Compute(g, h.layoutOptions()))
}

// GraphSVG handles GET .../dialogs/:dialogId/graph.svg
// Query: engine=fdp|neato, pinned=true keeps the simulated positions.
func (h *Handler) GraphSVG(c *fiber.Ctx) error {
	g, err := h.dialogGraph(c)
	if err != nil {
		return err
	}
	engine := c.Query("engine", h.layout.Engine)
	if engine != layout.EngineFDP && engine != layout.EngineNeato {
		return BadRequestError(fmt.Sprintf("Unsupported engine %q", engine))
	}

	ctx := c.UserContext()
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "layout", "graphviz", "render")
	defer span.End()
	span.SetMetadata("engine", engine)

	dot := layout.ToDOT(layout.Compute(g, h.layoutOptions()), c.QueryBool("pinned"))
	svg, err := layout.RenderSVG(ctx, dot, engine)
	if err != nil {
		span.SetStatus("error")
		return err
	}
	c.Set(fiber.HeaderContentType, "image/svg+xml")
	return c.Send(svg)
}

// GraphStream handles GET .../dialogs/:dialogId/graph/stream as server-sent
// events, one "frame" event per simulation tick. The simulation stops when
// it cools down or when the client goes away.
func (h *Handler) GraphStream(c *fiber.Ctx) error {
	g, err := h.dialogGraph(c)
	if err != nil {
		return err
	}
	logger := instrument.LoggerFromContext(c.UserContext())
	runner := layout.NewRunner(g, h.layoutOptions(), h.FrameInterval)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		frames := 0
		runner.Start(ctx, func(f layout.Frame) bool {
			data, err := json.Marshal(f)
			if err != nil {
				logger.Error("encode frame", "err", err)
				return false
			}
			fmt.Fprintf(w, "event: frame\ndata: %s\n\n", data)
			if err := w.Flush(); err != nil {
				return false
			}
			frames++
			return true
		})
		runner.Wait()
		logger.Debug("graph stream closed", "frames", frames)
	})
	return nil
}
