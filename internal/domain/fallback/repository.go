package fallback

import "context"

// Repository defines the interface for fallback record persistence.
// This service only creates records, the external retry sweep updates them.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	GetByChargeID(ctx context.Context, chargeID string) (*Record, error)
	Update(ctx context.Context, record *Record) error
	ListPending(ctx context.Context, limit int) ([]*Record, error)
}
