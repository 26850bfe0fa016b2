package webhookevent

import "context"

// Repository defines the interface for webhook event persistence.
// Create is insert-if-absent on event_id and returns ErrAlreadyExists
// when a row with the same event id is already stored.
type Repository interface {
	Create(ctx context.Context, event *WebhookEvent) error
	GetByEventID(ctx context.Context, eventID string) (*WebhookEvent, error)
	Update(ctx context.Context, event *WebhookEvent) error
	ListUnprocessed(ctx context.Context, limit int) ([]*WebhookEvent, error)
}
