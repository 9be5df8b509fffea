package openai

import (
	"context"
	"fmt"

	"github.com/davidbz/medimentor/internal/domain"
)

// listPrices are OpenAI list prices in USD per million tokens for the models
// the relay is expected to run against.
//
//nolint:gochecknoglobals // read-only price table
var listPrices = map[string]domain.PricingConfig{
	"gpt-4o-mini":  {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4o":       {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4.1-mini": {InputPerMillion: 0.40, OutputPerMillion: 1.60},
	"gpt-4.1":      {InputPerMillion: 2.00, OutputPerMillion: 8.00},
}

// RegisterPricing loads the OpenAI price table into registry.
func RegisterPricing(ctx context.Context, registry domain.PricingRegistry) error {
	for model, prices := range listPrices {
		if err := registry.RegisterPricing(ctx, model, prices); err != nil {
			return fmt.Errorf("failed to register pricing for model %s: %w", model, err)
		}
	}

	return nil
}
