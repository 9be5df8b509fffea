package domain

import (
	"context"
	"errors"
	"math"
)

const (
	tokensPerMillion = 1_000_000.0

	// Costs are reported in whole micro-dollars.
	costPrecision = 1e6
)

// StandardCostCalculator prices token usage from a PricingRegistry.
type StandardCostCalculator struct {
	pricing PricingRegistry
}

// NewStandardCostCalculator creates a new cost calculator.
func NewStandardCostCalculator(pricing PricingRegistry) *StandardCostCalculator {
	return &StandardCostCalculator{
		pricing: pricing,
	}
}

// Calculate returns the cost of usage on model. Models without registered
// pricing cost nothing so that a missing price never fails a request.
func (c *StandardCostCalculator) Calculate(ctx context.Context, model string, usage Usage) (float64, error) {
	if model == "" {
		return 0, errors.New("model cannot be empty")
	}

	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return 0, nil
	}

	prices, err := c.pricing.GetPricing(ctx, model)
	if errors.Is(err, ErrPricingNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cost := (float64(usage.PromptTokens)*prices.InputPerMillion +
		float64(usage.CompletionTokens)*prices.OutputPerMillion) / tokensPerMillion

	return math.Round(cost*costPrecision) / costPrecision, nil
}
