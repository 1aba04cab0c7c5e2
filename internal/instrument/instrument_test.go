package instrument

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

func TestLoggerFromContextDefaults(t *testing.T) {
	if LoggerFromContext(context.Background()) != log.Default() {
		t.Fatal("expected the default logger")
	}
	l := log.New(&bytes.Buffer{})
	if LoggerFromContext(WithLogger(context.Background(), l)) != l {
		t.Fatal("expected the stored logger")
	}
}

func TestSpansShareTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	ctx := WithLogger(context.Background(), logger)
	inst := NewLogInstrumenter()

	ctx, root := inst.StartSpan(WithTraceID(ctx, "trace-1"), "http", "handler", "GET /")
	_, child := inst.StartSpan(ctx, "repo", "dialogs", "load")
	if root.TraceID() != "trace-1" || child.TraceID() != "trace-1" {
		t.Fatalf("expected both spans in trace-1, got %q and %q", root.TraceID(), child.TraceID())
	}
	child.SetMetadata("dialog", "d1")
	child.End()
	child.End()
	root.End()

	out := buf.String()
	if strings.Count(out, "span") < 2 {
		t.Fatalf("expected two span records, got:\n%s", out)
	}
	if !strings.Contains(out, "parent="+root.SpanID()) || !strings.Contains(out, "dialog=d1") {
		t.Fatalf("child span record incomplete:\n%s", out)
	}
}

func TestNoopKeepsTrace(t *testing.T) {
	_, span := GetInstrumenter(context.Background()).StartSpan(WithTraceID(context.Background(), "abc"), "a", "b", "c")
	if span.TraceID() != "abc" {
		t.Fatalf("expected trace abc, got %q", span.TraceID())
	}
}

func TestMiddlewareSetsTraceHeader(t *testing.T) {
	logger := log.New(&bytes.Buffer{})
	app := fiber.New()
	app.Use(Middleware(logger, NewLogInstrumenter()))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(TraceIDFromContext(c.UserContext()))
	})

	req, _ := http.NewRequest("GET", "/", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	header := resp.Header.Get(TraceHeader)
	if header == "" {
		t.Fatal("expected a trace header")
	}
	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	if body.String() != header {
		t.Fatalf("handler saw trace %q, header says %q", body.String(), header)
	}

	const given = "7f0c3a9e-2b1d-4c55-9a8e-0d6f1b2c3d4e"
	req, _ = http.NewRequest("GET", "/", nil)
	req.Header.Set(TraceHeader, given)
	resp, _ = app.Test(req, -1)
	if got := resp.Header.Get(TraceHeader); got != given {
		t.Fatalf("expected incoming trace id to be kept, got %q", got)
	}
}
