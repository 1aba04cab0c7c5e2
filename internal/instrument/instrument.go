// Package instrument gives every request a trace id and times spans of work,
// writing them through the request's logger.
package instrument

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Span is a timed unit of work inside a trace.
type Span interface {
	End()
	SetStatus(status string)
	SetMetadata(key string, value any)
	TraceID() string
	SpanID() string
}

type Instrumenter interface {
	StartSpan(ctx context.Context, source, component, action string) (context.Context, Span)
}

type ctxKey int

const (
	loggerKey ctxKey = iota
	instrumenterKey
	spanKey
	traceKey
)

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the logger stored in ctx, or the default logger.
func LoggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok && l != nil {
		return l
	}
	return log.Default()
}

func WithInstrumenter(ctx context.Context, inst Instrumenter) context.Context {
	return context.WithValue(ctx, instrumenterKey, inst)
}

// GetInstrumenter returns the instrumenter stored in ctx, or a no-op one.
func GetInstrumenter(ctx context.Context) Instrumenter {
	if inst, ok := ctx.Value(instrumenterKey).(Instrumenter); ok && inst != nil {
		return inst
	}
	return &NoopInstrumenter{}
}

// WithTraceID starts a new trace in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey, traceID)
}

// TraceIDFromContext returns the current trace id, if any.
func TraceIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(spanKey).(Span); ok {
		return s.TraceID()
	}
	id, _ := ctx.Value(traceKey).(string)
	return id
}

// LogInstrumenter writes finished spans to the context logger at debug level,
// and at warn level when the span did not end with status "ok".
type LogInstrumenter struct{}

func NewLogInstrumenter() *LogInstrumenter { return &LogInstrumenter{} }

func (i *LogInstrumenter) StartSpan(ctx context.Context, source, component, action string) (context.Context, Span) {
	s := &logSpan{
		logger:    LoggerFromContext(ctx),
		source:    source,
		component: component,
		action:    action,
		spanID:    uuid.NewString(),
		status:    "ok",
		start:     time.Now(),
	}
	if parent, ok := ctx.Value(spanKey).(Span); ok {
		s.traceID = parent.TraceID()
		s.parentID = parent.SpanID()
	} else if id, ok := ctx.Value(traceKey).(string); ok && id != "" {
		s.traceID = id
	} else {
		s.traceID = uuid.NewString()
	}
	return context.WithValue(ctx, spanKey, Span(s)), s
}

type logSpan struct {
	logger                    *log.Logger
	source, component, action string
	traceID, spanID, parentID string
	status                    string
	metadata                  []any
	start                     time.Time
	ended                     bool
}

func (s *logSpan) End() {
	if s.ended {
		return
	}
	s.ended = true
	kv := []any{
		"trace", s.traceID,
		"span", s.spanID,
		"source", s.source,
		"component", s.component,
		"action", s.action,
		"duration_ms", float64(time.Since(s.start).Microseconds()) / 1000,
		"status", s.status,
	}
	if s.parentID != "" {
		kv = append(kv, "parent", s.parentID)
	}
	kv = append(kv, s.metadata...)
	if s.status != "ok" {
		s.logger.Warn("span", kv...)
		return
	}
	s.logger.Debug("span", kv...)
}

func (s *logSpan) SetStatus(status string)           { s.status = status }
func (s *logSpan) SetMetadata(key string, value any) { s.metadata = append(s.metadata, key, value) }
func (s *logSpan) TraceID() string                   { return s.traceID }
func (s *logSpan) SpanID() string                    { return s.spanID }
