package testutil

import (
	"context"

	"github.com/vendaflow/vendaflow/internal/domain/webhookevent"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
)

// InMemoryWebhookEventStore implements webhookevent.Repository keyed by
// the gateway event id, matching the postgres unique constraint
type InMemoryWebhookEventStore struct {
	*InMemoryStore[*webhookevent.WebhookEvent]
}

// NewInMemoryWebhookEventStore creates a new in-memory webhook event repository
func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{
		InMemoryStore: NewInMemoryStore[*webhookevent.WebhookEvent](),
	}
}

func (m *InMemoryWebhookEventStore) Create(ctx context.Context, event *webhookevent.WebhookEvent) error {
	if event == nil || event.EventID == "" {
		return ierr.NewError("event and event ID are required").
			WithHint("Event and event ID are required").
			Mark(ierr.ErrValidation)
	}

	if err := m.InMemoryStore.Create(ctx, event.EventID, event); err != nil {
		return ierr.NewError("webhook event already stored").
			WithHint("Webhook event already stored").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (m *InMemoryWebhookEventStore) GetByEventID(ctx context.Context, eventID string) (*webhookevent.WebhookEvent, error) {
	event, err := m.InMemoryStore.Get(ctx, eventID)
	if err != nil {
		return nil, ierr.NewError("webhook event not found").
			WithHintf("Webhook event not found for event id: %s", eventID).
			Mark(ierr.ErrNotFound)
	}
	return event, nil
}

// Update keeps the processed flag one-way like the postgres repo
func (m *InMemoryWebhookEventStore) Update(ctx context.Context, event *webhookevent.WebhookEvent) error {
	current, err := m.GetByEventID(ctx, event.EventID)
	if err != nil {
		return err
	}
	if current.Processed {
		event.Processed = true
		event.ProcessedAt = current.ProcessedAt
	}
	return m.InMemoryStore.Update(ctx, event.EventID, event)
}

func (m *InMemoryWebhookEventStore) ListUnprocessed(ctx context.Context, limit int) ([]*webhookevent.WebhookEvent, error) {
	events, _ := m.List(ctx, nil,
		func(ctx context.Context, e *webhookevent.WebhookEvent, _ interface{}) bool {
			return !e.Processed
		},
		func(i, j *webhookevent.WebhookEvent) bool {
			return i.CreatedAt.Before(j.CreatedAt)
		},
	)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
