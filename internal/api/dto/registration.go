package dto

import (
	"github.com/shopspring/decimal"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/types"
	"github.com/vendaflow/vendaflow/internal/validator"
)

// CardRequest carries raw card data for credit card registrations.
// It is forwarded to the gateway and never persisted.
type CardRequest struct {
	HolderName  string `json:"holder_name" validate:"required"`
	Number      string `json:"number" validate:"required,min=13,max=19"`
	ExpiryMonth string `json:"expiry_month" validate:"required,len=2"`
	ExpiryYear  string `json:"expiry_year" validate:"required,len=4"`
	Ccv         string `json:"ccv" validate:"required,min=3,max=4"`
}

// RegistrationRequest is the inbound payload of the payment-first
// registration flow
type RegistrationRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Document string `json:"document" validate:"required,min=11,max=14"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password" validate:"required,min=8"`

	PlanID      string             `json:"plan_id" validate:"required"`
	ServiceType string             `json:"service_type,omitempty"`
	Amount      decimal.Decimal    `json:"amount" validate:"required"`
	BillingType types.BillingType  `json:"billing_type" validate:"required"`
	Cycle       types.BillingCycle `json:"cycle,omitempty"`

	// Card data, required for credit card registrations only
	Card *CardRequest `json:"card,omitempty" validate:"required_if=BillingType CREDIT_CARD"`

	// Referral code of the affiliate who referred this customer (optional)
	ReferralCode string `json:"referral_code,omitempty"`

	PostalCode    string `json:"postal_code,omitempty"`
	AddressNumber string `json:"address_number,omitempty"`
}

// Validate validates the registration request, reporting every violated
// field at once
func (r *RegistrationRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.BillingType.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Billing type must be CREDIT_CARD or PIX").
			Mark(ierr.ErrValidation)
	}
	if r.Amount.IsZero() || r.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			WithReportableDetails(map[string]any{
				"amount": r.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RegistrationResponse reports the outcome of one registration flow
// execution, including the full step trail
type RegistrationResponse struct {
	Success bool `json:"success"`

	AccountID      string `json:"account_id,omitempty"`
	CustomerID     string `json:"customer_id,omitempty"`
	ChargeID       string `json:"charge_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`

	// Payment artifacts handed back to the caller
	InvoiceURL string `json:"invoice_url,omitempty"`
	PixQrCode  string `json:"pix_qr_code,omitempty"`

	// Ordered audit trail of executed steps
	Steps []types.ProcessingStep `json:"steps"`

	Error string `json:"error,omitempty"`

	// FallbackStored is true when a durable recovery record was written
	FallbackStored bool `json:"fallback_stored,omitempty"`
	// RequiresManualIntervention is true when money was captured but
	// provisioning did not finish
	RequiresManualIntervention bool `json:"requires_manual_intervention,omitempty"`

	// PollAttempts is how many confirmation polls were made
	PollAttempts int `json:"poll_attempts,omitempty"`
}
