package domain

import "context"

// Prompt is a validated feature input that knows how to render itself
// into a message sequence.
type Prompt interface {
	// Feature returns the feature identifier used for logging.
	Feature() string

	// Build renders the message sequence. It performs no I/O.
	Build() ([]ChatMessage, error)
}

// Provider represents any chat-completion provider.
type Provider interface {
	// Complete performs a single completion exchange.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)

	// Name returns the provider identifier.
	Name() string
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (Provider, error)

	// List returns all available providers.
	List(ctx context.Context) ([]string, error)
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}

// RateLimiter decides whether a caller may issue another request.
type RateLimiter interface {
	// Allow records one request for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}
