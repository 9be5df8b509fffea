package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/medimentor/internal/config"
	"github.com/davidbz/medimentor/internal/domain"
	"github.com/davidbz/medimentor/internal/httpserver"
	"github.com/davidbz/medimentor/internal/httpserver/middleware"
	"github.com/davidbz/medimentor/internal/observability"
	"github.com/davidbz/medimentor/internal/provider/echo"
	"github.com/davidbz/medimentor/internal/provider/openai"
	"github.com/davidbz/medimentor/internal/provider/registry"
	"github.com/davidbz/medimentor/internal/ratelimit/redis"
)

func main() {
	container := buildContainer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := container.Invoke(func(server *httpserver.Server, cfg *config.ServerConfig, logger *zap.Logger) error {
		defer func() { _ = logger.Sync() }()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})
	if err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func() domain.EventPublisher {
		return observability.NewEventBus()
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Pricing
	if err := container.Provide(func() (domain.PricingRegistry, error) {
		pricing := domain.NewInMemoryPricingRegistry()
		if err := openai.RegisterPricing(context.Background(), pricing); err != nil {
			return nil, fmt.Errorf("failed to register OpenAI pricing: %w", err)
		}
		return pricing, nil
	}); err != nil {
		log.Fatalf("Failed to provide pricing registry: %v", err)
	}
	if err := container.Provide(func(pricing domain.PricingRegistry) domain.CostCalculator {
		return domain.NewStandardCostCalculator(pricing)
	}); err != nil {
		log.Fatalf("Failed to provide cost calculator: %v", err)
	}

	// Provider Registry
	if err := container.Provide(newProviderRegistry); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	// Rate limiting
	if err := container.Provide(newRateLimiter); err != nil {
		log.Fatalf("Failed to provide rate limiter: %v", err)
	}

	// Domain Services
	if err := container.Provide(domain.NewRelayService); err != nil {
		log.Fatalf("Failed to provide relay service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(httpserver.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(httpserver.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

// newProviderRegistry registers the echo provider and, when credentials are
// present, the OpenAI provider.
func newProviderRegistry(openaiConfig *openai.Config, logger *zap.Logger) (domain.ProviderRegistry, error) {
	ctx := context.Background()
	reg, err := registry.NewRegistry(echo.NewProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to register echo provider: %w", err)
	}

	openaiProvider, err := openai.NewProvider(*openaiConfig)
	switch {
	case err == nil:
		if err := reg.Register(ctx, openaiProvider); err != nil {
			return nil, fmt.Errorf("failed to register OpenAI provider: %w", err)
		}
	case domain.KindOf(err) == domain.KindConfigurationMissing:
		logger.Warn("OpenAI provider not configured", zap.Error(err))
	default:
		return nil, fmt.Errorf("failed to create OpenAI provider: %w", err)
	}

	providers, _ := reg.List(ctx)
	logger.Info("providers registered", zap.Strings("providers", providers))

	return reg, nil
}

// newRateLimiter returns nil when no Redis address is configured.
func newRateLimiter(cfg *redis.Config, logger *zap.Logger) (domain.RateLimiter, error) {
	if !cfg.Enabled() {
		logger.Info("rate limiting disabled")
		return nil, nil //nolint:nilnil // a nil limiter disables the middleware
	}

	limiter, err := redis.NewLimiter(redis.NewClient(*cfg), cfg.PerMinute)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	logger.Info("rate limiting enabled",
		zap.String("addr", cfg.Addr),
		zap.Int("per_minute", cfg.PerMinute),
	)

	return limiter, nil
}
