package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/vendaflow/vendaflow/internal/domain/subscription"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/postgres"
	"github.com/vendaflow/vendaflow/internal/types"
)

type subscriptionRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db postgres.IClient, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

type subscriptionRow struct {
	ID                    string          `db:"id"`
	AccountID             string          `db:"account_id"`
	PlanID                string          `db:"plan_id"`
	SubscriptionStatus    string          `db:"subscription_status"`
	Amount                decimal.Decimal `db:"amount"`
	BillingType           string          `db:"billing_type"`
	Cycle                 string          `db:"cycle"`
	GatewaySubscriptionID *string         `db:"gateway_subscription_id"`
	OriginChargeID        string          `db:"origin_charge_id"`
	GatewayCustomerID     string          `db:"gateway_customer_id"`
	NextDueDate           *time.Time      `db:"next_due_date"`
	StartedAt             *time.Time      `db:"started_at"`
	ServiceType           string          `db:"service_type"`
	Status                string          `db:"status"`
	CreatedAt             time.Time       `db:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at"`
	CreatedBy             string          `db:"created_by"`
	UpdatedBy             string          `db:"updated_by"`
}

func (r subscriptionRow) toDomain() *subscription.Subscription {
	return &subscription.Subscription{
		ID:                    r.ID,
		AccountID:             r.AccountID,
		PlanID:                r.PlanID,
		SubscriptionStatus:    types.SubscriptionStatus(r.SubscriptionStatus),
		Amount:                r.Amount,
		BillingType:           types.BillingType(r.BillingType),
		Cycle:                 types.BillingCycle(r.Cycle),
		GatewaySubscriptionID: r.GatewaySubscriptionID,
		OriginChargeID:        r.OriginChargeID,
		GatewayCustomerID:     r.GatewayCustomerID,
		NextDueDate:           r.NextDueDate,
		StartedAt:             r.StartedAt,
		ServiceType:           r.ServiceType,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

func fromSubscription(s *subscription.Subscription) subscriptionRow {
	return subscriptionRow{
		ID:                    s.ID,
		AccountID:             s.AccountID,
		PlanID:                s.PlanID,
		SubscriptionStatus:    string(s.SubscriptionStatus),
		Amount:                s.Amount,
		BillingType:           string(s.BillingType),
		Cycle:                 string(s.Cycle),
		GatewaySubscriptionID: s.GatewaySubscriptionID,
		OriginChargeID:        s.OriginChargeID,
		GatewayCustomerID:     s.GatewayCustomerID,
		NextDueDate:           s.NextDueDate,
		StartedAt:             s.StartedAt,
		ServiceType:           s.ServiceType,
		Status:                string(s.Status),
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
		CreatedBy:             s.CreatedBy,
		UpdatedBy:             s.UpdatedBy,
	}
}

// Create inserts a subscription. The unique constraint on
// origin_charge_id makes concurrent creation attempts collapse to a
// single row, the losing writer gets ErrAlreadyExists.
func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	const query = `
		INSERT INTO subscriptions (
			id, account_id, plan_id, subscription_status, amount, billing_type, cycle,
			gateway_subscription_id, origin_charge_id, gateway_customer_id,
			next_due_date, started_at, service_type,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :account_id, :plan_id, :subscription_status, :amount, :billing_type, :cycle,
			:gateway_subscription_id, :origin_charge_id, :gateway_customer_id,
			:next_due_date, :started_at, :service_type,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := sqlx.NamedExecContext(ctx, r.db.Conn(ctx), query, fromSubscription(sub))
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Subscription already exists for this charge").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	return r.getBy(ctx, `SELECT * FROM subscriptions WHERE id = $1`, id)
}

func (r *subscriptionRepository) GetByOriginChargeID(ctx context.Context, chargeID string) (*subscription.Subscription, error) {
	return r.getBy(ctx, `SELECT * FROM subscriptions WHERE origin_charge_id = $1`, chargeID)
}

func (r *subscriptionRepository) GetByGatewaySubscriptionID(ctx context.Context, gatewaySubscriptionID string) (*subscription.Subscription, error) {
	return r.getBy(ctx, `SELECT * FROM subscriptions WHERE gateway_subscription_id = $1`, gatewaySubscriptionID)
}

func (r *subscriptionRepository) getBy(ctx context.Context, query string, arg string) (*subscription.Subscription, error) {
	var row subscriptionRow
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription not found").
				WithHint("Subscription not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch subscription").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

// Update persists mutable subscription fields. started_at is
// update-if-unset so renewals never overwrite the first activation time.
func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	const query = `
		UPDATE subscriptions SET
			subscription_status = :subscription_status,
			amount = :amount,
			cycle = :cycle,
			gateway_subscription_id = COALESCE(gateway_subscription_id, :gateway_subscription_id),
			next_due_date = :next_due_date,
			started_at = COALESCE(started_at, :started_at),
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	sub.UpdatedAt = time.Now().UTC()
	_, err := sqlx.NamedExecContext(ctx, r.db.Conn(ctx), query, fromSubscription(sub))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
