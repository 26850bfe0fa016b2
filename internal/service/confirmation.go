package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/types"
)

// ConfirmationResult is the outcome of one synchronous polling window
type ConfirmationResult struct {
	// Confirmed is true when the gateway reported the charge paid
	Confirmed bool
	// TimedOut is true when the polling budget ran out with the charge
	// still pending
	TimedOut bool
	// TerminalStatus is set when the charge reached a terminal state,
	// paid or declined
	TerminalStatus types.ChargeStatus
	// DeclineReason carries the gateway's human-readable reason when the
	// charge was declined
	DeclineReason string
	// Attempts is how many status polls were made
	Attempts int
	// Elapsed is wall time spent polling
	Elapsed time.Duration
}

// ConfirmationService polls the gateway for a charge to settle within a
// fixed budget. Card charges usually settle within a couple of polls,
// PIX depends on how fast the customer scans the code.
type ConfirmationService interface {
	AwaitConfirmation(ctx context.Context, chargeID string, timeout, interval time.Duration) (*ConfirmationResult, error)
}

type confirmationService struct {
	ServiceParams
}

// NewConfirmationService creates a new confirmation service
func NewConfirmationService(params ServiceParams) ConfirmationService {
	return &confirmationService{ServiceParams: params}
}

// errChargeDeclined carries the declined status out of the retry loop
type errChargeDeclined struct {
	status types.ChargeStatus
	reason string
}

func (e *errChargeDeclined) Error() string {
	return "charge declined with status " + e.status.String()
}

// AwaitConfirmation polls charge status at a fixed cadence until the
// charge settles, the budget runs out, or ctx is cancelled. Transient
// gateway errors count as attempts but never abort the window.
func (c *confirmationService) AwaitConfirmation(ctx context.Context, chargeID string, timeout, interval time.Duration) (*ConfirmationResult, error) {
	if timeout <= 0 {
		timeout = c.Config.Gateway.ConfirmationTimeout
	}
	if interval <= 0 {
		interval = c.Config.Gateway.ConfirmationInterval
	}
	maxAttempts := int(timeout / interval)
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	result := &ConfirmationResult{}
	start := time.Now()

	plan := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxAttempts-1)),
		ctx,
	)

	poll := func() error {
		result.Attempts++

		charge, err := c.Gateway.GetChargeStatus(ctx, chargeID)
		if err != nil {
			// Transient failure, keep polling within the budget
			c.Logger.Warnw("charge status poll failed",
				"charge_id", chargeID,
				"attempt", result.Attempts,
				"error", err,
			)
			return err
		}

		c.Logger.Debugw("charge status poll",
			"charge_id", chargeID,
			"attempt", result.Attempts,
			"status", charge.Status,
		)

		if charge.Status.IsPaid() {
			result.Confirmed = true
			result.TerminalStatus = charge.Status
			return nil
		}
		if charge.Status.IsDeclined() {
			return backoff.Permanent(&errChargeDeclined{
				status: charge.Status,
				reason: declineReason(charge.Status),
			})
		}
		return ierr.NewError("charge still pending").
			WithHintf("Charge %s has not settled yet", chargeID).
			Mark(ierr.ErrInvalidOperation)
	}

	err := backoff.Retry(poll, plan)
	result.Elapsed = time.Since(start)

	if err != nil {
		var declined *errChargeDeclined
		if errors.As(err, &declined) {
			result.TerminalStatus = declined.status
			result.DeclineReason = declined.reason
			return result, nil
		}
		if ctx.Err() != nil {
			return result, ierr.WithError(ctx.Err()).
				WithHint("Confirmation polling aborted").
				Mark(ierr.ErrSystem)
		}
		// Retries exhausted with the charge still pending
		result.TimedOut = true
		return result, nil
	}

	return result, nil
}

func declineReason(status types.ChargeStatus) string {
	switch status {
	case types.ChargeStatusRefused:
		return "payment was refused by the card issuer"
	case types.ChargeStatusCancelled:
		return "charge was cancelled at the gateway"
	case types.ChargeStatusRefunded:
		return "payment was refunded"
	default:
		return "charge reached terminal status " + status.String()
	}
}
