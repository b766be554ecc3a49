package repositories

import (
	"context"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// SubscriptionRepository returns the user's current plan.
type SubscriptionRepository interface {
	Current(ctx context.Context) (entities.Subscription, error)
}

// MutableSubscriptionRepository lets the plan change at runtime. Set reports whether it changed.
type MutableSubscriptionRepository interface {
	SubscriptionRepository
	Set(subscription entities.Subscription) bool
}
