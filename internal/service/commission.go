package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"github.com/vendaflow/vendaflow/internal/domain/account"
	"github.com/vendaflow/vendaflow/internal/domain/commission"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/types"
)

var (
	percentHundred = decimal.NewFromInt(100)
	percentTotal   = decimal.NewFromInt(30)
	two            = decimal.NewFromInt(2)
)

// CommissionService computes and records affiliate commissions for a
// confirmed payment. Payouts per payment always total exactly 30% of the
// payment value: a 20% up-line pool (15/3/2 across referral levels 1-3)
// plus a 10% platform base. Shares of missing or inactive up-line levels
// are split 50/50 into the two platform buckets.
type CommissionService interface {
	// ProcessPayment calculates and records all commission rows for one
	// confirmed payment. Row inserts are independent, a failed insert
	// never rolls back its siblings and errors never propagate to the
	// caller's payment flow.
	ProcessPayment(ctx context.Context, paymentID, payerAccountID string, amount decimal.Decimal) []*commission.Commission

	// Calculate builds the commission rows for a payment without
	// persisting them
	Calculate(ctx context.Context, paymentID, payerAccountID string, amount decimal.Decimal) ([]*commission.Commission, error)

	// ApplyTransferStatus transitions the commission row linked to a
	// gateway payout transfer
	ApplyTransferStatus(ctx context.Context, gatewayTransferID string, eventType types.WebhookEventType) error
}

type commissionService struct {
	ServiceParams
}

// NewCommissionService creates a new commission service
func NewCommissionService(params ServiceParams) CommissionService {
	return &commissionService{ServiceParams: params}
}

func (s *commissionService) ProcessPayment(ctx context.Context, paymentID, payerAccountID string, amount decimal.Decimal) []*commission.Commission {
	rows, err := s.Calculate(ctx, paymentID, payerAccountID, amount)
	if err != nil {
		s.Logger.Errorw("commission calculation failed",
			"payment_id", paymentID,
			"account_id", payerAccountID,
			"error", err,
		)
		return nil
	}

	s.record(ctx, rows)
	return rows
}

func (s *commissionService) Calculate(ctx context.Context, paymentID, payerAccountID string, amount decimal.Decimal) ([]*commission.Commission, error) {
	if paymentID == "" || amount.IsZero() || amount.IsNegative() {
		return nil, ierr.NewError("invalid commission input").
			WithHint("Payment id and a positive amount are required").
			Mark(ierr.ErrValidation)
	}

	chain, err := s.uplineChain(ctx, payerAccountID)
	if err != nil {
		return nil, err
	}

	// The payout pool is cent-exact: every row below is rounded to two
	// decimal places and the reserve bucket absorbs the remainder, so the
	// rows always sum to exactly the rounded pool.
	pool := amount.Mul(percentTotal).Div(percentHundred).Round(2)

	rows := make([]*commission.Commission, 0, 6)
	assigned := decimal.Zero
	redistributedPercent := decimal.Zero

	levels := types.UplineLevels()
	percents := types.UplineLevelPercents()
	for i, level := range levels {
		percent := percents[i]
		var beneficiary *account.Account
		if i < len(chain) {
			beneficiary = chain[i]
		}

		if beneficiary == nil || !beneficiary.IsActive() {
			redistributedPercent = redistributedPercent.Add(percent)
			continue
		}

		rowAmount := amount.Mul(percent).Div(percentHundred).Round(2)
		assigned = assigned.Add(rowAmount)
		rows = append(rows, &commission.Commission{
			ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COMMISSION),
			PaymentID:        paymentID,
			BeneficiaryID:    beneficiary.ID,
			Level:            level,
			Percentage:       percent,
			Amount:           rowAmount,
			CommissionStatus: types.CommissionStatusPending,
			BaseModel:        types.GetDefaultBaseModel(ctx),
		})
	}

	baseAmount := amount.Mul(types.CommissionPercentPlatform).Div(percentHundred).Round(2)
	assigned = assigned.Add(baseAmount)
	rows = append(rows, &commission.Commission{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COMMISSION),
		PaymentID:        paymentID,
		Level:            types.CommissionLevelPlatform,
		Percentage:       types.CommissionPercentPlatform,
		Amount:           baseAmount,
		CommissionStatus: types.CommissionStatusPending,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	})

	// Whatever the up-line chain did not absorb goes to the platform
	// buckets, half each, reserve taking the rounding remainder
	remainder := pool.Sub(assigned)
	if remainder.IsPositive() {
		growthBucket := types.PlatformBucketGrowth
		reserveBucket := types.PlatformBucketReserve
		halfPercent := redistributedPercent.Div(two)

		growthAmount := remainder.Div(two).Round(2)
		reserveAmount := remainder.Sub(growthAmount)

		rows = append(rows,
			&commission.Commission{
				ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COMMISSION),
				PaymentID:        paymentID,
				Level:            types.CommissionLevelPlatform,
				Bucket:           &growthBucket,
				Percentage:       halfPercent,
				Amount:           growthAmount,
				CommissionStatus: types.CommissionStatusPending,
				BaseModel:        types.GetDefaultBaseModel(ctx),
			},
			&commission.Commission{
				ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COMMISSION),
				PaymentID:        paymentID,
				Level:            types.CommissionLevelPlatform,
				Bucket:           &reserveBucket,
				Percentage:       halfPercent,
				Amount:           reserveAmount,
				CommissionStatus: types.CommissionStatusPending,
				BaseModel:        types.GetDefaultBaseModel(ctx),
			},
		)
	}

	return rows, nil
}

// uplineChain resolves up to three referrer accounts starting from the
// payer. A broken link ends the chain early, the remaining levels are
// treated as missing.
func (s *commissionService) uplineChain(ctx context.Context, payerAccountID string) ([]*account.Account, error) {
	chain := make([]*account.Account, 0, 3)
	if payerAccountID == "" {
		return chain, nil
	}

	payer, err := s.AccountRepo.Get(ctx, payerAccountID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return chain, nil
		}
		return nil, err
	}

	current := payer
	for range types.UplineLevels() {
		if current.ReferrerID == nil || *current.ReferrerID == "" {
			break
		}
		referrer, err := s.AccountRepo.Get(ctx, *current.ReferrerID)
		if err != nil {
			if ierr.IsNotFound(err) {
				break
			}
			return nil, err
		}
		chain = append(chain, referrer)
		current = referrer
	}
	return chain, nil
}

// record persists rows concurrently. Each insert stands alone, duplicate
// rows from a reprocessed confirmation are treated as success.
func (s *commissionService) record(ctx context.Context, rows []*commission.Commission) {
	var wg conc.WaitGroup
	for _, row := range rows {
		row := row
		wg.Go(func() {
			if err := s.CommissionRepo.Create(ctx, row); err != nil {
				if ierr.IsAlreadyExists(err) {
					s.Logger.Debugw("commission row already recorded",
						"payment_id", row.PaymentID,
						"level", row.Level,
					)
					return
				}
				s.Logger.Errorw("failed to record commission row",
					"payment_id", row.PaymentID,
					"beneficiary_id", row.BeneficiaryID,
					"level", row.Level,
					"error", err,
				)
			}
		})
	}
	wg.Wait()
}

func (s *commissionService) ApplyTransferStatus(ctx context.Context, gatewayTransferID string, eventType types.WebhookEventType) error {
	row, err := s.CommissionRepo.GetByTransferID(ctx, gatewayTransferID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// Transfer does not belong to a tracked commission, nothing to do
			s.Logger.Infow("transfer event without matching commission",
				"gateway_transfer_id", gatewayTransferID,
				"event_type", eventType,
			)
			return nil
		}
		return err
	}

	switch eventType {
	case types.WebhookEventTransferDone:
		row.CommissionStatus = types.CommissionStatusPaid
		now := time.Now().UTC()
		row.PaidAt = &now
	case types.WebhookEventTransferFailed:
		row.CommissionStatus = types.CommissionStatusFailed
	case types.WebhookEventTransferCancelled:
		row.CommissionStatus = types.CommissionStatusPending
		row.PaidAt = nil
	default:
		return ierr.NewError("unsupported transfer event").
			WithHintf("Event type %s is not a transfer event", eventType).
			Mark(ierr.ErrInvalidOperation)
	}

	return s.CommissionRepo.Update(ctx, row)
}
