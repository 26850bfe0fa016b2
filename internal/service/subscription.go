package service

import (
	"context"
	"time"

	"github.com/vendaflow/vendaflow/internal/domain/subscription"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/gateway"
	"github.com/vendaflow/vendaflow/internal/types"
)

// SubscriptionService owns the subscription lifecycle. A subscription is
// created by whichever path finishes first (registration orchestrator or
// webhook reconciler) and afterwards only moves between active, overdue
// and cancelled.
type SubscriptionService interface {
	// Create persists a subscription for a confirmed first charge.
	// Concurrent creation attempts for the same charge collapse to a
	// single row; the loser receives the already-stored subscription.
	Create(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error)

	// ActivateForCharge applies a paid charge: the subscription moves to
	// active, started_at is stamped on first activation only, the account
	// is marked adherent and commissions fan out. Runs for renewal
	// payments too, each confirmed charge earns its own commission rows.
	ActivateForCharge(ctx context.Context, paid *PaidCharge) error

	// MarkOverdue transitions the subscription for an overdue charge
	MarkOverdue(ctx context.Context, chargeID string, gatewaySubscriptionID string) error

	// Cancel transitions the subscription for a cancelled or refunded charge
	Cancel(ctx context.Context, chargeID string, gatewaySubscriptionID string) error

	// SyncFromGateway applies gateway-reported schedule fields
	SyncFromGateway(ctx context.Context, gatewaySub *gateway.Subscription) error
}

// PaidCharge carries the facts of a paid charge into activation
type PaidCharge struct {
	ChargeID              string
	GatewaySubscriptionID string
}

type subscriptionService struct {
	ServiceParams
	commissionSvc CommissionService
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(params ServiceParams, commissionSvc CommissionService) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
		commissionSvc: commissionSvc,
	}
}

func (s *subscriptionService) Create(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	if sub.ID == "" {
		sub.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION)
	}
	if sub.SubscriptionStatus == "" {
		sub.SubscriptionStatus = types.SubscriptionStatusActive
	}
	sub.BaseModel = types.GetDefaultBaseModel(ctx)

	if err := sub.Validate(); err != nil {
		return nil, err
	}

	if err := s.SubscriptionRepo.Create(ctx, sub); err != nil {
		if ierr.IsAlreadyExists(err) {
			existing, getErr := s.SubscriptionRepo.GetByOriginChargeID(ctx, sub.OriginChargeID)
			if getErr != nil {
				return nil, getErr
			}
			s.Logger.Infow("subscription already created by concurrent path",
				"subscription_id", existing.ID,
				"origin_charge_id", sub.OriginChargeID,
			)
			return existing, nil
		}
		return nil, err
	}

	s.Logger.Infow("subscription created",
		"subscription_id", sub.ID,
		"account_id", sub.AccountID,
		"origin_charge_id", sub.OriginChargeID,
	)
	return sub, nil
}

func (s *subscriptionService) ActivateForCharge(ctx context.Context, paid *PaidCharge) error {
	sub, err := s.find(ctx, paid.ChargeID, paid.GatewaySubscriptionID)
	if err != nil {
		return err
	}

	// Renewal payments flow through the same path: the status update is a
	// no-op for an already-active subscription, started_at never moves, and
	// commission rows collapse on the per-payment unique key. Only the
	// fan-out below must run for every paid charge.
	now := time.Now().UTC()
	sub.SubscriptionStatus = types.SubscriptionStatusActive
	if sub.StartedAt == nil {
		sub.StartedAt = &now
	}
	if sub.GatewaySubscriptionID == nil && paid.GatewaySubscriptionID != "" {
		gwID := paid.GatewaySubscriptionID
		sub.GatewaySubscriptionID = &gwID
	}
	if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return err
	}

	if err := s.markAdherent(ctx, sub.AccountID); err != nil {
		// Standing is recoverable on the next paid event, do not fail
		// the activation over it
		s.Logger.Errorw("failed to mark account adherent",
			"account_id", sub.AccountID,
			"error", err,
		)
	}

	// Commission fan-out is best-effort and never blocks activation
	s.commissionSvc.ProcessPayment(ctx, paid.ChargeID, sub.AccountID, sub.Amount)

	s.Logger.Infow("subscription activated",
		"subscription_id", sub.ID,
		"charge_id", paid.ChargeID,
	)
	return nil
}

func (s *subscriptionService) MarkOverdue(ctx context.Context, chargeID string, gatewaySubscriptionID string) error {
	return s.transition(ctx, chargeID, gatewaySubscriptionID, types.SubscriptionStatusOverdue)
}

func (s *subscriptionService) Cancel(ctx context.Context, chargeID string, gatewaySubscriptionID string) error {
	return s.transition(ctx, chargeID, gatewaySubscriptionID, types.SubscriptionStatusCancelled)
}

func (s *subscriptionService) transition(ctx context.Context, chargeID, gatewaySubscriptionID string, to types.SubscriptionStatus) error {
	sub, err := s.find(ctx, chargeID, gatewaySubscriptionID)
	if err != nil {
		return err
	}

	if sub.SubscriptionStatus == to {
		return nil
	}

	sub.SubscriptionStatus = to
	if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return err
	}

	s.Logger.Infow("subscription status changed",
		"subscription_id", sub.ID,
		"status", to,
	)
	return nil
}

func (s *subscriptionService) SyncFromGateway(ctx context.Context, gatewaySub *gateway.Subscription) error {
	sub, err := s.SubscriptionRepo.GetByGatewaySubscriptionID(ctx, gatewaySub.ID)
	if err != nil {
		return err
	}

	if gatewaySub.NextDueDate != "" {
		due, parseErr := time.Parse("2006-01-02", gatewaySub.NextDueDate)
		if parseErr != nil {
			return ierr.WithError(parseErr).
				WithHintf("Gateway sent an unparseable due date: %s", gatewaySub.NextDueDate).
				Mark(ierr.ErrValidation)
		}
		sub.NextDueDate = &due
	}
	if !gatewaySub.Value.IsZero() {
		sub.Amount = gatewaySub.Value
	}

	return s.SubscriptionRepo.Update(ctx, sub)
}

// find resolves the subscription a gateway event refers to, preferring
// the recurring schedule id and falling back to the originating charge
func (s *subscriptionService) find(ctx context.Context, chargeID, gatewaySubscriptionID string) (*subscription.Subscription, error) {
	if gatewaySubscriptionID != "" {
		sub, err := s.SubscriptionRepo.GetByGatewaySubscriptionID(ctx, gatewaySubscriptionID)
		if err == nil {
			return sub, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}
	return s.SubscriptionRepo.GetByOriginChargeID(ctx, chargeID)
}

func (s *subscriptionService) markAdherent(ctx context.Context, accountID string) error {
	acc, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if acc.Adherent {
		return nil
	}
	acc.Adherent = true
	return s.AccountRepo.Update(ctx, acc)
}
