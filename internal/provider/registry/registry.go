// Package registry holds the completion providers known to the relay,
// keyed by provider name.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/davidbz/medimentor/internal/domain"
)

var (
	// ErrProviderNotFound is returned when no provider is registered under a name.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrDuplicateProvider is returned when a name is registered twice.
	ErrDuplicateProvider = errors.New("provider already registered")

	errNilProvider = errors.New("provider cannot be nil")
	errEmptyName   = errors.New("provider name cannot be empty")
)

var _ domain.ProviderRegistry = (*Registry)(nil)

// Registry is a name-keyed set of providers safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]domain.Provider
}

// NewRegistry creates a registry pre-loaded with providers.
func NewRegistry(providers ...domain.Provider) (*Registry, error) {
	r := &Registry{
		mu:        sync.RWMutex{},
		providers: make(map[string]domain.Provider, len(providers)),
	}

	for _, p := range providers {
		if err := r.Register(context.Background(), p); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds provider under its own name.
func (r *Registry) Register(_ context.Context, provider domain.Provider) error {
	if provider == nil {
		return errNilProvider
	}

	name := provider.Name()
	if name == "" {
		return errEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.providers[name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
	}
	r.providers[name] = provider

	return nil
}

// Get returns the provider registered as name. The error for an unknown
// name lists what is available so misconfiguration is easy to spot in logs.
func (r *Registry) Get(_ context.Context, name string) (domain.Provider, error) {
	if name == "" {
		return nil, errEmptyName
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, ok := r.providers[name]; ok {
		return provider, nil
	}

	return nil, fmt.Errorf("%w: %s (available: %s)",
		ErrProviderNotFound, name, strings.Join(r.namesLocked(), ", "))
}

// List returns the registered provider names in sorted order.
func (r *Registry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.namesLocked(), nil
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
