package commission

import (
	"time"

	"github.com/shopspring/decimal"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/types"
)

// Commission is one append-only payout row, one per
// (payment, beneficiary, level). Rows are never mutated after creation
// except for the paid/failed transition driven by transfer webhooks or
// an administrative action.
type Commission struct {
	// Unique identifier for this commission row
	ID string `json:"id"`
	// Gateway charge id of the confirmed payment that generated this row
	PaymentID string `json:"payment_id"`
	// Account receiving the payout, empty for platform rows
	BeneficiaryID string `json:"beneficiary_id,omitempty"`
	// Up-line level or platform
	Level types.CommissionLevel `json:"level"`
	// Platform bucket for platform-side rows (optional)
	Bucket *types.PlatformBucket `json:"bucket,omitempty"`
	// Percentage of the payment value this row represents
	Percentage decimal.Decimal `json:"percentage"`
	// Payout amount
	Amount decimal.Decimal `json:"amount"`
	// Payout status
	CommissionStatus types.CommissionStatus `json:"commission_status"`
	// The gateway_transfer_id links the row to the gateway payout transfer (optional)
	GatewayTransferID *string `json:"gateway_transfer_id,omitempty"`
	// When the payout settled (optional)
	PaidAt *time.Time `json:"paid_at,omitempty"`

	types.BaseModel
}

// Validate validates the commission
func (c *Commission) Validate() error {
	if c.PaymentID == "" {
		return ierr.NewError("invalid payment id").
			WithHint("Payment id is required").
			Mark(ierr.ErrValidation)
	}
	if err := c.Level.Validate(); err != nil {
		return ierr.NewError("invalid commission level").
			WithHint("Commission level is invalid").
			Mark(ierr.ErrValidation)
	}
	if c.Level != types.CommissionLevelPlatform && c.BeneficiaryID == "" {
		return ierr.NewError("invalid beneficiary").
			WithHint("Beneficiary is required for up-line commissions").
			Mark(ierr.ErrValidation)
	}
	if c.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the commission
func (c *Commission) TableName() string {
	return "commissions"
}
