package types

import "time"

// StepStatus is the status of one orchestration step
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusProcessing StepStatus = "processing"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// Registration flow step names, in canonical execution order.
const (
	StepValidateInput     = "validate_input"
	StepCreateCustomer    = "create_gateway_customer"
	StepCreateCharge      = "create_charge"
	StepAwaitConfirmation = "await_confirmation"
	StepProvisionAccount  = "provision_account"
	StepSetupBilling      = "setup_billing"
)

// ProcessingStep is one entry in the registration flow audit trail.
// Steps are strictly ordered, a step is never retried within one flow
// execution.
type ProcessingStep struct {
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	Message   string     `json:"message,omitempty"`
	Error     *string    `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
