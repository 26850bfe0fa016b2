package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/vendaflow/vendaflow/internal/domain/commission"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/postgres"
	"github.com/vendaflow/vendaflow/internal/types"
)

type commissionRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewCommissionRepository creates a new commission repository
func NewCommissionRepository(db postgres.IClient, logger *logger.Logger) commission.Repository {
	return &commissionRepository{db: db, logger: logger}
}

type commissionRow struct {
	ID                string          `db:"id"`
	PaymentID         string          `db:"payment_id"`
	BeneficiaryID     string          `db:"beneficiary_id"`
	Level             string          `db:"level"`
	Bucket            *string         `db:"bucket"`
	Percentage        decimal.Decimal `db:"percentage"`
	Amount            decimal.Decimal `db:"amount"`
	CommissionStatus  string          `db:"commission_status"`
	GatewayTransferID *string         `db:"gateway_transfer_id"`
	PaidAt            *time.Time      `db:"paid_at"`
	Status            string          `db:"status"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
	CreatedBy         string          `db:"created_by"`
	UpdatedBy         string          `db:"updated_by"`
}

func (r commissionRow) toDomain() *commission.Commission {
	var bucket *types.PlatformBucket
	if r.Bucket != nil {
		b := types.PlatformBucket(*r.Bucket)
		bucket = &b
	}
	return &commission.Commission{
		ID:                r.ID,
		PaymentID:         r.PaymentID,
		BeneficiaryID:     r.BeneficiaryID,
		Level:             types.CommissionLevel(r.Level),
		Bucket:            bucket,
		Percentage:        r.Percentage,
		Amount:            r.Amount,
		CommissionStatus:  types.CommissionStatus(r.CommissionStatus),
		GatewayTransferID: r.GatewayTransferID,
		PaidAt:            r.PaidAt,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

func fromCommission(c *commission.Commission) commissionRow {
	var bucket *string
	if c.Bucket != nil {
		b := string(*c.Bucket)
		bucket = &b
	}
	return commissionRow{
		ID:                c.ID,
		PaymentID:         c.PaymentID,
		BeneficiaryID:     c.BeneficiaryID,
		Level:             string(c.Level),
		Bucket:            bucket,
		Percentage:        c.Percentage,
		Amount:            c.Amount,
		CommissionStatus:  string(c.CommissionStatus),
		GatewayTransferID: c.GatewayTransferID,
		PaidAt:            c.PaidAt,
		Status:            string(c.Status),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		CreatedBy:         c.CreatedBy,
		UpdatedBy:         c.UpdatedBy,
	}
}

// Create inserts a commission row. The unique constraint on
// (payment_id, beneficiary_id, level, bucket) keeps the table append-once
// per beneficiary even when a confirmation is reprocessed.
func (r *commissionRepository) Create(ctx context.Context, c *commission.Commission) error {
	const query = `
		INSERT INTO commissions (
			id, payment_id, beneficiary_id, level, bucket, percentage, amount,
			commission_status, gateway_transfer_id, paid_at,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :payment_id, :beneficiary_id, :level, :bucket, :percentage, :amount,
			:commission_status, :gateway_transfer_id, :paid_at,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := sqlx.NamedExecContext(ctx, r.db.Conn(ctx), query, fromCommission(c))
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Commission already recorded for this payment and beneficiary").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create commission").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *commissionRepository) Get(ctx context.Context, id string) (*commission.Commission, error) {
	const query = `SELECT * FROM commissions WHERE id = $1`

	var row commissionRow
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("commission not found").
				WithHint("Commission not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch commission").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *commissionRepository) ListByPayment(ctx context.Context, paymentID string) ([]*commission.Commission, error) {
	const query = `SELECT * FROM commissions WHERE payment_id = $1 ORDER BY created_at`

	var rows []commissionRow
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &rows, query, paymentID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list commissions").
			Mark(ierr.ErrDatabase)
	}

	commissions := make([]*commission.Commission, len(rows))
	for i, row := range rows {
		commissions[i] = row.toDomain()
	}
	return commissions, nil
}

func (r *commissionRepository) GetByTransferID(ctx context.Context, gatewayTransferID string) (*commission.Commission, error) {
	const query = `SELECT * FROM commissions WHERE gateway_transfer_id = $1`

	var row commissionRow
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &row, query, gatewayTransferID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("commission not found").
				WithHintf("No commission for transfer: %s", gatewayTransferID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch commission").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *commissionRepository) Update(ctx context.Context, c *commission.Commission) error {
	const query = `
		UPDATE commissions SET
			commission_status = :commission_status,
			gateway_transfer_id = :gateway_transfer_id,
			paid_at = :paid_at,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	c.UpdatedAt = time.Now().UTC()
	_, err := sqlx.NamedExecContext(ctx, r.db.Conn(ctx), query, fromCommission(c))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update commission").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
