package dto

import (
	"github.com/shopspring/decimal"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/gateway"
	"github.com/vendaflow/vendaflow/internal/types"
)

// WebhookRequest is the gateway's event envelope. Field names follow the
// gateway's JSON shape. Only Event is mandatory, the object payloads vary
// by event type.
type WebhookRequest struct {
	Event       types.WebhookEventType `json:"event"`
	ID          string                 `json:"id,omitempty"`
	DateCreated string                 `json:"dateCreated,omitempty"`

	Payment      *WebhookPayment      `json:"payment,omitempty"`
	Subscription *WebhookSubscription `json:"subscription,omitempty"`
	Transfer     *WebhookTransfer     `json:"transfer,omitempty"`
}

// WebhookPayment is the charge object inside payment events
type WebhookPayment struct {
	ID           string             `json:"id"`
	Customer     string             `json:"customer"`
	Subscription string             `json:"subscription,omitempty"`
	Status       types.ChargeStatus `json:"status"`
	Value        decimal.Decimal    `json:"value"`
	BillingType  types.BillingType  `json:"billingType"`
	DueDate      string             `json:"dueDate,omitempty"`
	PaymentDate  string             `json:"paymentDate,omitempty"`
}

// WebhookSubscription is the schedule object inside subscription events
type WebhookSubscription struct {
	ID          string          `json:"id"`
	Customer    string          `json:"customer"`
	Status      string          `json:"status"`
	Value       decimal.Decimal `json:"value"`
	NextDueDate string          `json:"nextDueDate,omitempty"`
}

// ToGateway converts the webhook object to the gateway client's shape
func (w *WebhookSubscription) ToGateway() *gateway.Subscription {
	return &gateway.Subscription{
		ID:          w.ID,
		Customer:    w.Customer,
		Status:      w.Status,
		Value:       w.Value,
		NextDueDate: w.NextDueDate,
	}
}

// WebhookTransfer is the payout object inside transfer events
type WebhookTransfer struct {
	ID     string          `json:"id"`
	Value  decimal.Decimal `json:"value"`
	Status string          `json:"status"`
}

// Validate checks the envelope invariants. A missing event field is the
// only malformation the endpoint rejects with an error status.
func (r *WebhookRequest) Validate() error {
	if r.Event == "" {
		return ierr.NewError("missing event field").
			WithHint("Webhook payload must carry an event field").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// WebhookResponse is the acknowledgement body. The endpoint returns 200
// for every authenticated, well-formed delivery regardless of handler
// outcome so the gateway never retries storms at us.
type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	EventID string `json:"eventId,omitempty"`
}
