package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

type contextKey string

const (
	traceIDBytes = 16 // OpenTelemetry trace ID size in bytes
	spanIDBytes  = 8  // OpenTelemetry span ID size in bytes
)

// Context keys. Each value is a string and is added to every log line
// under the key's name.
const (
	TraceIDKey   contextKey = "trace_id"
	SpanIDKey    contextKey = "span_id"
	RequestIDKey contextKey = "request_id"
	FeatureKey   contextKey = "feature"
	ProviderKey  contextKey = "provider"
	ModelKey     contextKey = "model"
)

// loggedKeys lists the context values FromContext attaches, in output order.
//
//nolint:gochecknoglobals // read-only
var loggedKeys = []contextKey{TraceIDKey, SpanIDKey, RequestIDKey, FeatureKey, ProviderKey, ModelKey}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key contextKey) string {
	if value, ok := ctx.Value(key).(string); ok {
		return value
	}
	return ""
}

// WithTraceID injects trace ID into context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withString(ctx, TraceIDKey, traceID)
}

// WithSpanID injects span ID into context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return withString(ctx, SpanIDKey, spanID)
}

// WithRequestID injects request ID into context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, RequestIDKey, requestID)
}

// WithFeature records which relay feature is serving the request.
func WithFeature(ctx context.Context, feature string) context.Context {
	return withString(ctx, FeatureKey, feature)
}

// WithProvider records the completion provider handling the request.
func WithProvider(ctx context.Context, provider string) context.Context {
	return withString(ctx, ProviderKey, provider)
}

// WithModel records the model the request is sent to.
func WithModel(ctx context.Context, model string) context.Context {
	return withString(ctx, ModelKey, model)
}

// GetTraceID extracts trace ID from context.
func GetTraceID(ctx context.Context) string { return stringValue(ctx, TraceIDKey) }

// GetSpanID extracts span ID from context.
func GetSpanID(ctx context.Context) string { return stringValue(ctx, SpanIDKey) }

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string { return stringValue(ctx, RequestIDKey) }

// GetFeature extracts the relay feature from context.
func GetFeature(ctx context.Context) string { return stringValue(ctx, FeatureKey) }

// GetProvider extracts provider name from context.
func GetProvider(ctx context.Context) string { return stringValue(ctx, ProviderKey) }

// GetModel extracts model name from context.
func GetModel(ctx context.Context) string { return stringValue(ctx, ModelKey) }

// GenerateTraceID generates an OpenTelemetry-compatible trace ID (32 hex chars).
func GenerateTraceID() string {
	return randomHex(traceIDBytes)
}

// GenerateSpanID generates an OpenTelemetry-compatible span ID (16 hex chars).
func GenerateSpanID() string {
	return randomHex(spanIDBytes)
}

// GenerateRequestID generates a unique request identifier (UUID).
func GenerateRequestID() string {
	return uuid.NewString()
}

// randomHex falls back to a UUID-derived value if the system RNG fails.
func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		id := uuid.New()
		return hex.EncodeToString(id[:])[:2*n]
	}
	return hex.EncodeToString(buf)
}
