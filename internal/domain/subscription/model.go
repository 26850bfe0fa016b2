package subscription

import (
	"time"

	"github.com/shopspring/decimal"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/types"
)

// Subscription links a provisioned account to a recurring charge
// schedule. It is created by whichever path finishes first, the
// registration orchestrator or the webhook reconciler, and from then on
// is mutated only by webhook-driven status transitions. Identity is
// first-write-wins: the origin_charge_id carries a uniqueness constraint
// so concurrent creation attempts collapse to a single row.
type Subscription struct {
	// Unique identifier for this subscription
	ID string `json:"id"`
	// Account this subscription bills
	AccountID string `json:"account_id"`
	// Plan the account subscribed to
	PlanID string `json:"plan_id"`
	// Current lifecycle status (active, overdue, cancelled)
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`
	// Recurring amount billed each cycle
	Amount decimal.Decimal `json:"amount"`
	// Billing method used for the recurring charge
	BillingType types.BillingType `json:"billing_type"`
	// Recurrence cycle
	Cycle types.BillingCycle `json:"cycle"`
	// The gateway_subscription_id is the recurring schedule id at the gateway (optional,
	// set once the gateway subscription exists)
	GatewaySubscriptionID *string `json:"gateway_subscription_id,omitempty"`
	// The origin_charge_id is the gateway charge id of the first payment.
	// Unique, this is the identity key for concurrent creation collapse.
	OriginChargeID string `json:"origin_charge_id"`
	// Gateway customer the schedule bills
	GatewayCustomerID string `json:"gateway_customer_id"`
	// Next due date reported by the gateway
	NextDueDate *time.Time `json:"next_due_date,omitempty"`
	// The started_at timestamp is set on first activation only, renewals
	// never overwrite it
	StartedAt *time.Time `json:"started_at,omitempty"`
	// Service type keyed off the originating plan, drives post-payment actions
	ServiceType string `json:"service_type,omitempty"`

	types.BaseModel
}

// Validate validates the subscription
func (s *Subscription) Validate() error {
	if s.AccountID == "" {
		return ierr.NewError("invalid account id").
			WithHint("Account id is required").
			Mark(ierr.ErrValidation)
	}
	if s.OriginChargeID == "" {
		return ierr.NewError("invalid origin charge id").
			WithHint("Origin charge id is required").
			Mark(ierr.ErrValidation)
	}
	if s.Amount.IsZero() || s.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return ierr.NewError("invalid subscription status").
			WithHint("Subscription status is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the subscription
func (s *Subscription) TableName() string {
	return "subscriptions"
}
