package subscription

import (
	"context"
	"sync"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// SettingsSubscriptionRepository serves the plan configured in the settings file and lets callers
// replace it at runtime.
type SettingsSubscriptionRepository struct {
	mu      sync.RWMutex
	current entities.Subscription
}

// NewSettingsSubscriptionRepository creates the repository from the loaded settings.
func NewSettingsSubscriptionRepository(settings *entities.Settings) *SettingsSubscriptionRepository {
	return &SettingsSubscriptionRepository{current: settings.Subscription}
}

func (r *SettingsSubscriptionRepository) Current(_ context.Context) (entities.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, nil
}

// Set replaces the current plan and reports whether it actually changed.
func (r *SettingsSubscriptionRepository) Set(subscription entities.Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == subscription {
		return false
	}
	r.current = subscription
	return true
}
