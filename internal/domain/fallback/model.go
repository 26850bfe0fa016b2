package fallback

import (
	"encoding/json"

	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/types"
)

// Record is the durable marker for a registration stuck between payment
// capture and full provisioning. It is written by the registration
// orchestrator and consumed by the external retry sweep, which owns all
// mutations after creation.
type Record struct {
	// Unique identifier for this fallback record
	ID string `json:"id"`
	// How far the registration got before stalling
	Kind types.FallbackKind `json:"kind"`
	// Gateway charge id of the captured or pending payment
	ChargeID string `json:"charge_id"`
	// Gateway customer created for the registration
	GatewayCustomerID string `json:"gateway_customer_id"`
	// Account id, set when the account was provisioned before the stall (optional)
	AccountID *string `json:"account_id,omitempty"`
	// Captured registration input with credentials already hashed,
	// everything the sweep needs to finish provisioning
	Input json.RawMessage `json:"input"`
	// Number of sweep attempts so far
	Attempts int `json:"attempts"`
	// Retry status, terminal states are completed/failed
	FallbackStatus types.FallbackStatus `json:"fallback_status"`
	// RequiresManualIntervention flags money captured with no matching
	// account or billing bookkeeping
	RequiresManualIntervention bool `json:"requires_manual_intervention"`
	// Last sweep error (optional)
	LastError *string `json:"last_error,omitempty"`

	types.BaseModel
}

// Validate validates the fallback record
func (r *Record) Validate() error {
	if r.ChargeID == "" {
		return ierr.NewError("invalid charge id").
			WithHint("Charge id is required").
			Mark(ierr.ErrValidation)
	}
	if r.GatewayCustomerID == "" {
		return ierr.NewError("invalid gateway customer id").
			WithHint("Gateway customer id is required").
			Mark(ierr.ErrValidation)
	}
	if err := r.FallbackStatus.Validate(); err != nil {
		return ierr.NewError("invalid fallback status").
			WithHint("Fallback status is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the fallback record
func (r *Record) TableName() string {
	return "fallback_records"
}
