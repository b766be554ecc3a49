//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"sync"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

// StubSubscriptionRepository implements repositories.MutableSubscriptionRepository.
type StubSubscriptionRepository struct {
	mu           sync.Mutex
	Subscription entities.Subscription
	CurrentErr   error
	CurrentCalls int
}

var _ repositories.MutableSubscriptionRepository = (*StubSubscriptionRepository)(nil)

func (s *StubSubscriptionRepository) Current(_ context.Context) (entities.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentCalls++
	return s.Subscription, s.CurrentErr
}

func (s *StubSubscriptionRepository) Set(subscription entities.Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Subscription == subscription {
		return false
	}
	s.Subscription = subscription
	return true
}
