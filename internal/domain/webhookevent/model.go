package webhookevent

import (
	"encoding/json"
	"time"

	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/types"
)

// WebhookEvent is the durable record of one inbound gateway event.
// EventID is the idempotency key: at most one row ever exists per
// EventID, and processed=true is a terminal one-way transition.
type WebhookEvent struct {
	// Unique identifier for this stored event row
	ID string `json:"id"`
	// The event_id is the gateway-assigned event id, or a deterministic
	// composite when the gateway omits one. Unique.
	EventID string `json:"event_id"`
	// Gateway event type, kept even when unrecognized
	EventType types.WebhookEventType `json:"event_type"`
	// Raw payload exactly as received
	Payload json.RawMessage `json:"payload"`
	// Processed is flipped to true exactly once, after the handler succeeds
	Processed bool `json:"processed"`
	// When processing succeeded (optional)
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	// Number of failed processing attempts so far
	RetryCount int `json:"retry_count"`
	// Last handler error message (optional)
	LastError *string `json:"last_error,omitempty"`

	types.BaseModel
}

// Validate validates the webhook event
func (e *WebhookEvent) Validate() error {
	if e.EventID == "" {
		return ierr.NewError("invalid event id").
			WithHint("Event id is required").
			Mark(ierr.ErrValidation)
	}
	if e.EventType == "" {
		return ierr.NewError("invalid event type").
			WithHint("Event type is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// MarkProcessed records successful processing. Calling it twice is a no-op.
func (e *WebhookEvent) MarkProcessed() {
	if e.Processed {
		return
	}
	now := time.Now().UTC()
	e.Processed = true
	e.ProcessedAt = &now
	e.LastError = nil
}

// RecordFailure increments the retry counter and stores the handler error
func (e *WebhookEvent) RecordFailure(err error) {
	e.RetryCount++
	msg := err.Error()
	e.LastError = &msg
}

// TableName returns the table name for the webhook event
func (e *WebhookEvent) TableName() string {
	return "webhook_events"
}
