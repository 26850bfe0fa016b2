package testutil

import (
	"context"

	"github.com/vendaflow/vendaflow/internal/domain/subscription"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
)

// InMemorySubscriptionStore implements subscription.Repository with the
// same uniqueness semantics as the postgres repo: one row per
// originating charge.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

// NewInMemorySubscriptionStore creates a new in-memory subscription repository
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func (m *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil || sub.ID == "" {
		return ierr.NewError("subscription and subscription ID are required").
			WithHint("Subscription and subscription ID are required").
			Mark(ierr.ErrValidation)
	}

	if existing, err := m.GetByOriginChargeID(ctx, sub.OriginChargeID); err == nil && existing != nil {
		return ierr.NewError("subscription already exists").
			WithHint("Subscription already exists for this charge").
			Mark(ierr.ErrAlreadyExists)
	}

	if err := m.InMemoryStore.Create(ctx, sub.ID, sub); err != nil {
		return ierr.NewError("subscription already exists").
			WithHint("Subscription already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (m *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return sub, nil
}

func (m *InMemorySubscriptionStore) GetByOriginChargeID(ctx context.Context, chargeID string) (*subscription.Subscription, error) {
	return m.findOne(ctx, func(s *subscription.Subscription) bool { return s.OriginChargeID == chargeID })
}

func (m *InMemorySubscriptionStore) GetByGatewaySubscriptionID(ctx context.Context, gatewaySubscriptionID string) (*subscription.Subscription, error) {
	return m.findOne(ctx, func(s *subscription.Subscription) bool {
		return s.GatewaySubscriptionID != nil && *s.GatewaySubscriptionID == gatewaySubscriptionID
	})
}

// Update mirrors the postgres repo's update-if-unset semantics for
// started_at and gateway_subscription_id
func (m *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	current, err := m.Get(ctx, sub.ID)
	if err != nil {
		return err
	}
	if current.StartedAt != nil {
		sub.StartedAt = current.StartedAt
	}
	if current.GatewaySubscriptionID != nil {
		sub.GatewaySubscriptionID = current.GatewaySubscriptionID
	}
	return m.InMemoryStore.Update(ctx, sub.ID, sub)
}

func (m *InMemorySubscriptionStore) findOne(ctx context.Context, match func(*subscription.Subscription) bool) (*subscription.Subscription, error) {
	subs, _ := m.List(ctx, nil, func(ctx context.Context, s *subscription.Subscription, _ interface{}) bool {
		return match(s)
	}, nil)
	if len(subs) == 0 {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return subs[0], nil
}
