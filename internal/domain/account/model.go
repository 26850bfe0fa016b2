package account

import (
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/types"
)

// Account is the provisioned identity record created after a confirmed
// payment. It doubles as the affiliate node: ReferrerID links an account
// to the affiliate who referred it, forming the up-line chain the
// commission engine walks.
type Account struct {
	// Unique identifier for this account
	ID string `json:"id"`
	// Full name of the account holder
	Name string `json:"name"`
	// Email, unique across accounts
	Email string `json:"email"`
	// CPF/CNPJ document number
	Document string `json:"document"`
	// Contact phone (optional)
	Phone string `json:"phone,omitempty"`
	// Bcrypt hash of the account password, never the plaintext
	PasswordHash string `json:"-"`
	// Short code other customers can use to register under this account
	ReferralCode string `json:"referral_code"`
	// Account that referred this one (optional)
	ReferrerID *string `json:"referrer_id,omitempty"`
	// The gateway_customer_id links the account to the payment gateway customer
	GatewayCustomerID string `json:"gateway_customer_id"`
	// Adherent marks active member standing, set on first confirmed payment.
	// Only adherent accounts are commission-eligible.
	Adherent bool `json:"adherent"`

	types.BaseModel
}

// Validate validates the account
func (a *Account) Validate() error {
	if a.Name == "" {
		return ierr.NewError("invalid name").
			WithHint("Name is required").
			Mark(ierr.ErrValidation)
	}
	if a.Email == "" {
		return ierr.NewError("invalid email").
			WithHint("Email is required").
			Mark(ierr.ErrValidation)
	}
	if a.Document == "" {
		return ierr.NewError("invalid document").
			WithHint("Document is required").
			Mark(ierr.ErrValidation)
	}
	if a.PasswordHash == "" {
		return ierr.NewError("invalid password hash").
			WithHint("Password hash is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsActive reports whether the account is in active standing for
// commission eligibility
func (a *Account) IsActive() bool {
	return a.Adherent && a.Status == types.StatusPublished
}

// TableName returns the table name for the account
func (a *Account) TableName() string {
	return "accounts"
}
