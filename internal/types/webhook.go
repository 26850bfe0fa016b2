package types

import "github.com/samber/lo"

// WebhookEventType is the tagged set of gateway event types this service
// understands. Unknown event types are still accepted and stored, they
// simply dispatch to no handler.
type WebhookEventType string

const (
	WebhookEventPaymentConfirmed  WebhookEventType = "PAYMENT_CONFIRMED"
	WebhookEventPaymentReceived   WebhookEventType = "PAYMENT_RECEIVED"
	WebhookEventPaymentOverdue    WebhookEventType = "PAYMENT_OVERDUE"
	WebhookEventPaymentDeleted    WebhookEventType = "PAYMENT_DELETED"
	WebhookEventPaymentRefunded   WebhookEventType = "PAYMENT_REFUNDED"
	WebhookEventSubscriptionSync  WebhookEventType = "SUBSCRIPTION_UPDATED"
	WebhookEventTransferDone      WebhookEventType = "TRANSFER_DONE"
	WebhookEventTransferFailed    WebhookEventType = "TRANSFER_FAILED"
	WebhookEventTransferCancelled WebhookEventType = "TRANSFER_CANCELLED"
)

func (t WebhookEventType) String() string {
	return string(t)
}

// IsKnown reports whether the event type has a registered handler
func (t WebhookEventType) IsKnown() bool {
	known := []WebhookEventType{
		WebhookEventPaymentConfirmed,
		WebhookEventPaymentReceived,
		WebhookEventPaymentOverdue,
		WebhookEventPaymentDeleted,
		WebhookEventPaymentRefunded,
		WebhookEventSubscriptionSync,
		WebhookEventTransferDone,
		WebhookEventTransferFailed,
		WebhookEventTransferCancelled,
	}
	return lo.Contains(known, t)
}

// IsPaymentPaid reports whether the event signals money received
func (t WebhookEventType) IsPaymentPaid() bool {
	return t == WebhookEventPaymentConfirmed || t == WebhookEventPaymentReceived
}
