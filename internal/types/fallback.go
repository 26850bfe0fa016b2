package types

import (
	"fmt"

	"github.com/samber/lo"
)

// FallbackStatus is the retry status of a fallback record.
// Only the external retry sweep moves records out of pending.
type FallbackStatus string

const (
	FallbackStatusPending   FallbackStatus = "pending"
	FallbackStatusRetrying  FallbackStatus = "retrying"
	FallbackStatusCompleted FallbackStatus = "completed"
	FallbackStatusFailed    FallbackStatus = "failed"
)

func (s FallbackStatus) String() string {
	return string(s)
}

func (s FallbackStatus) Validate() error {
	allowed := []FallbackStatus{
		FallbackStatusPending,
		FallbackStatusRetrying,
		FallbackStatusCompleted,
		FallbackStatusFailed,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid fallback status: %s", s)
	}
	return nil
}

// FallbackKind distinguishes how far the registration got before stalling
type FallbackKind string

const (
	// Charge created but confirmation never observed within the polling budget
	FallbackKindPendingSubscription FallbackKind = "pending_subscription"
	// Payment confirmed but account/billing provisioning did not finish
	FallbackKindPendingCompletion FallbackKind = "pending_completion"
)

func (k FallbackKind) String() string {
	return string(k)
}
