package subscription

import "context"

// Repository defines the interface for subscription persistence.
// Create must be guarded by the origin_charge_id uniqueness constraint
// and return ErrAlreadyExists when another writer won the race.
type Repository interface {
	Create(ctx context.Context, subscription *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByOriginChargeID(ctx context.Context, chargeID string) (*Subscription, error)
	GetByGatewaySubscriptionID(ctx context.Context, gatewaySubscriptionID string) (*Subscription, error)
	Update(ctx context.Context, subscription *Subscription) error
}
