package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrPricingNotFound is returned for models without registered prices.
var ErrPricingNotFound = errors.New("pricing not found")

// PricingConfig holds list prices in USD per million tokens.
type PricingConfig struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// CostCalculator estimates the cost of a completion.
type CostCalculator interface {
	// Calculate returns the cost in USD of usage on model.
	Calculate(ctx context.Context, model string, usage Usage) (float64, error)
}

// PricingRegistry maps model names to prices.
type PricingRegistry interface {
	// GetPricing returns prices for a model or one of its dated snapshots.
	GetPricing(ctx context.Context, model string) (PricingConfig, error)

	// RegisterPricing sets prices for a model, replacing any previous entry.
	RegisterPricing(ctx context.Context, model string, config PricingConfig) error
}

// InMemoryPricingRegistry is a PricingRegistry safe for concurrent use.
type InMemoryPricingRegistry struct {
	mu     sync.RWMutex
	prices map[string]PricingConfig
}

// NewInMemoryPricingRegistry creates an empty registry.
func NewInMemoryPricingRegistry() *InMemoryPricingRegistry {
	return &InMemoryPricingRegistry{
		mu:     sync.RWMutex{},
		prices: make(map[string]PricingConfig),
	}
}

// GetPricing looks up model. Providers answer with dated snapshots such as
// "gpt-4o-mini-2024-07-18"; those resolve to the longest registered name
// followed by a dash.
func (r *InMemoryPricingRegistry) GetPricing(_ context.Context, model string) (PricingConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if config, ok := r.prices[model]; ok {
		return config, nil
	}

	base := ""
	for name := range r.prices {
		if len(name) > len(base) && strings.HasPrefix(model, name+"-") {
			base = name
		}
	}

	if base == "" {
		return PricingConfig{}, fmt.Errorf("%w: %s", ErrPricingNotFound, model)
	}

	return r.prices[base], nil
}

// RegisterPricing sets prices for model.
func (r *InMemoryPricingRegistry) RegisterPricing(_ context.Context, model string, config PricingConfig) error {
	if model == "" {
		return errors.New("model cannot be empty")
	}
	if config.InputPerMillion < 0 || config.OutputPerMillion < 0 {
		return fmt.Errorf("negative price for model %s", model)
	}

	r.mu.Lock()
	r.prices[model] = config
	r.mu.Unlock()

	return nil
}
