package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// ActorIDKey is the context key for the participant issuing a command
	ActorIDKey ContextKey = "actor_id"
	// QueueKey is the context key for the normalized queue name a command targets
	QueueKey ContextKey = "queue"
	// TransportKey is the context key for the transport that delivered a command
	TransportKey ContextKey = "transport"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID   string
	ActorID   string
	Queue     string
	Transport string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}

func WithQueue(ctx context.Context, queue string) context.Context {
	return context.WithValue(ctx, QueueKey, queue)
}

func WithTransport(ctx context.Context, transport string) context.Context {
	return context.WithValue(ctx, TransportKey, transport)
}

func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

func GetActorID(ctx context.Context) string {
	return stringValue(ctx, ActorIDKey)
}

func GetQueue(ctx context.Context) string {
	return stringValue(ctx, QueueKey)
}

func GetTransport(ctx context.Context) string {
	return stringValue(ctx, TransportKey)
}

func stringValue(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:   GetTraceID(ctx),
		ActorID:   GetActorID(ctx),
		Queue:     GetQueue(ctx),
		Transport: GetTransport(ctx),
	}
}

// NewCommandContext starts the trace of one inbound command.
func NewCommandContext(ctx context.Context, transport, actorID string) context.Context {
	ctx = WithTraceID(ctx, NewTraceID())
	ctx = WithTransport(ctx, transport)
	return WithActorID(ctx, actorID)
}

// LoggerFromContext returns baseLogger enriched with the tracing fields present in ctx.
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)
	logCtx := baseLogger.With()

	if tc.TraceID != "" {
		logCtx = logCtx.Str("trace_id", tc.TraceID)
	}
	if tc.ActorID != "" {
		logCtx = logCtx.Str("actor_id", tc.ActorID)
	}
	if tc.Queue != "" {
		logCtx = logCtx.Str("queue", tc.Queue)
	}
	if tc.Transport != "" {
		logCtx = logCtx.Str("transport", tc.Transport)
	}

	return logCtx.Logger()
}
