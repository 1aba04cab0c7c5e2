package instrument

import "context"

// NoopInstrumenter discards all spans. Used when instrumentation is disabled.
type NoopInstrumenter struct{}

func (n *NoopInstrumenter) StartSpan(ctx context.Context, source, component, action string) (context.Context, Span) {
	return ctx, &NoopSpan{traceID: TraceIDFromContext(ctx)}
}

// NoopSpan discards all data but keeps the trace id it was started under.
type NoopSpan struct {
	traceID string
}

func (n *NoopSpan) End()                              {}
func (n *NoopSpan) SetStatus(status string)           {}
func (n *NoopSpan) SetMetadata(key string, value any) {}
func (n *NoopSpan) TraceID() string                   { return n.traceID }
func (n *NoopSpan) SpanID() string                    { return "" }
