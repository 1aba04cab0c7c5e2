package instrument

import (
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// TraceHeader carries the trace id in both directions.
const TraceHeader = "X-Trace-Id"

// Middleware starts a trace per request. The request's user context carries
// the logger, the instrumenter and the root span.
func Middleware(logger *log.Logger, inst Instrumenter) fiber.Handler {
	if inst == nil {
		inst = &NoopInstrumenter{}
	}
	return func(c *fiber.Ctx) error {
		traceID := c.Get(TraceHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}
		c.Set(TraceHeader, traceID)

		ctx := WithLogger(c.UserContext(), logger.With("trace", traceID))
		ctx = WithInstrumenter(ctx, inst)
		ctx = WithTraceID(ctx, traceID)
		ctx, span := inst.StartSpan(ctx, "http", "handler", c.Method()+" "+c.Path())
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		span.SetMetadata("http_status", strconv.Itoa(status))
		if err != nil || status >= 500 {
			span.SetStatus("error")
		}
		return err
	}
}
