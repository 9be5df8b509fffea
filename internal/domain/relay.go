package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davidbz/medimentor/internal/observability"
)

// Event types published by the relay service.
const (
	EventCompletionSucceeded = "completion.succeeded"
	EventCompletionFailed    = "completion.failed"
)

// RelayConfig selects the provider and model every feature is relayed to.
type RelayConfig struct {
	Provider string `env:"RELAY_PROVIDER" envDefault:"openai"`
	Model    string `env:"RELAY_MODEL"    envDefault:"gpt-4o-mini"`
}

// RelayService builds prompts and forwards them to the configured provider.
// It holds no per-request state.
type RelayService struct {
	registry       ProviderRegistry
	costCalculator CostCalculator
	events         EventPublisher
	config         RelayConfig
}

// NewRelayService creates a new relay service (DI constructor).
func NewRelayService(
	registry ProviderRegistry,
	costCalculator CostCalculator,
	events EventPublisher,
	config *RelayConfig,
) *RelayService {
	return &RelayService{
		registry:       registry,
		costCalculator: costCalculator,
		events:         events,
		config:         *config,
	}
}

// Model returns the model identifier sent with every request.
func (s *RelayService) Model() string {
	return s.config.Model
}

// Relay builds the prompt and performs exactly one completion call.
func (s *RelayService) Relay(ctx context.Context, prompt Prompt) (*CompletionResult, error) {
	if prompt == nil {
		return nil, InvalidInput("prompt cannot be nil")
	}

	messages, err := prompt.Build()
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, InvalidInput("prompt produced no messages")
	}

	observability.FromContext(ctx).Debug("prompt built",
		observability.String("stage", string(StageBuilt)),
		observability.Int("messages", len(messages)),
	)

	req := &CompletionRequest{
		Feature:  prompt.Feature(),
		Model:    s.config.Model,
		Messages: messages,
	}

	return s.Complete(ctx, req)
}

// Complete routes an already built request to the configured provider.
func (s *RelayService) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	if req == nil {
		return nil, InvalidInput("request cannot be nil")
	}

	if len(req.Messages) == 0 {
		return nil, InvalidInput("request has no messages")
	}

	provider, err := s.registry.Get(ctx, s.config.Provider)
	if err != nil {
		return nil, &Error{
			Kind:       KindConfigurationMissing,
			Message:    fmt.Sprintf("completion provider %q is not configured", s.config.Provider),
			Diagnostic: nil,
			Err:        err,
		}
	}

	ctx = observability.WithProvider(ctx, provider.Name())
	ctx = observability.WithModel(ctx, req.Model)

	observability.FromContext(ctx).Debug("calling completion provider",
		observability.String("stage", string(StageCompleting)),
	)

	started := time.Now()
	result, err := provider.Complete(ctx, req)
	if err != nil {
		s.publish(ctx, EventCompletionFailed, map[string]interface{}{
			"feature":     req.Feature,
			"kind":        string(KindOf(err)),
			"duration_ms": time.Since(started).Milliseconds(),
		})

		var domainErr *Error
		if errors.As(err, &domainErr) {
			return nil, fmt.Errorf("completion failed: %w", err)
		}
		return nil, UpstreamFailure(err, nil, err.Error())
	}

	if s.costCalculator != nil {
		cost, _ := s.costCalculator.Calculate(ctx, result.Model, result.Usage)
		result.Usage.Cost = cost
	}

	s.publish(ctx, EventCompletionSucceeded, map[string]interface{}{
		"feature":     req.Feature,
		"tokens":      result.Usage.TotalTokens,
		"cost":        result.Usage.Cost,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	return result, nil
}

func (s *RelayService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventType, data)
}
