package types

import (
	"fmt"

	"github.com/samber/lo"
)

// ChargeStatus represents the status of a gateway charge
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "PENDING"
	ChargeStatusConfirmed ChargeStatus = "CONFIRMED"
	ChargeStatusReceived  ChargeStatus = "RECEIVED"
	ChargeStatusOverdue   ChargeStatus = "OVERDUE"
	ChargeStatusRefused   ChargeStatus = "REFUSED"
	ChargeStatusCancelled ChargeStatus = "CANCELLED"
	ChargeStatusRefunded  ChargeStatus = "REFUNDED"
)

func (s ChargeStatus) String() string {
	return string(s)
}

// IsPaid reports whether the gateway considers the money received
func (s ChargeStatus) IsPaid() bool {
	return s == ChargeStatusConfirmed || s == ChargeStatusReceived
}

// IsDeclined reports whether the charge reached a dead terminal state
func (s ChargeStatus) IsDeclined() bool {
	return s == ChargeStatusRefused || s == ChargeStatusCancelled || s == ChargeStatusRefunded
}

// IsTerminal reports whether no further status transitions are expected
func (s ChargeStatus) IsTerminal() bool {
	return s.IsPaid() || s.IsDeclined()
}

// BillingType represents the payment method of a charge
type BillingType string

const (
	BillingTypeCard BillingType = "CREDIT_CARD"
	BillingTypePix  BillingType = "PIX"
)

func (b BillingType) String() string {
	return string(b)
}

func (b BillingType) Validate() error {
	allowed := []BillingType{
		BillingTypeCard,
		BillingTypePix,
	}
	if !lo.Contains(allowed, b) {
		return fmt.Errorf("invalid billing type: %s", b)
	}
	return nil
}
