package commission

import "context"

// Repository defines the interface for commission persistence
type Repository interface {
	Create(ctx context.Context, commission *Commission) error
	Get(ctx context.Context, id string) (*Commission, error)
	ListByPayment(ctx context.Context, paymentID string) ([]*Commission, error)
	GetByTransferID(ctx context.Context, gatewayTransferID string) (*Commission, error)
	Update(ctx context.Context, commission *Commission) error
}
