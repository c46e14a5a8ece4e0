package content

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/internal/models"
)

// Provider supplies the per-round question payload. The match core treats
// everything but the answer key as opaque, so providers are free to serve
// any catalog shape behind this interface.
type Provider interface {
	Init() error
	NextQuestion(ctx context.Context, matchID uuid.UUID, round int) (models.Question, error)
}

var (
	registry   = make(map[string]Provider)
	registryMu sync.RWMutex
)

// RegisterProvider adds a provider implementation under a key.
// It should be called in each provider's init() function.
// The provider is initialized later when retrieved.
func RegisterProvider(key string, provider Provider) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if key == "" {
		return fmt.Errorf("provider key cannot be empty")
	}
	if _, exists := registry[key]; exists {
		return fmt.Errorf("provider already registered for key %q", key)
	}
	registry[key] = provider
	return nil
}

// GetProvider retrieves a provider by key or returns an error if not found.
func GetProvider(key string) (Provider, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	provider, exists := registry[key]
	if !exists {
		return nil, fmt.Errorf("no content provider registered for key %q", key)
	}
	return provider, nil
}

// InitializeProvider initializes a specific provider.
func InitializeProvider(key string) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	provider, exists := registry[key]
	if !exists {
		return fmt.Errorf("no content provider registered for key %q", key)
	}
	if err := provider.Init(); err != nil {
		return fmt.Errorf("failed to init provider %q: %w", key, err)
	}
	return nil
}
