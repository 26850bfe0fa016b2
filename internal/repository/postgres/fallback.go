package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vendaflow/vendaflow/internal/domain/fallback"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/postgres"
	"github.com/vendaflow/vendaflow/internal/types"
)

type fallbackRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewFallbackRepository creates a new fallback record repository
func NewFallbackRepository(db postgres.IClient, logger *logger.Logger) fallback.Repository {
	return &fallbackRepository{db: db, logger: logger}
}

type fallbackRow struct {
	ID                         string          `db:"id"`
	Kind                       string          `db:"kind"`
	ChargeID                   string          `db:"charge_id"`
	GatewayCustomerID          string          `db:"gateway_customer_id"`
	AccountID                  *string         `db:"account_id"`
	Input                      json.RawMessage `db:"input"`
	Attempts                   int             `db:"attempts"`
	FallbackStatus             string          `db:"fallback_status"`
	RequiresManualIntervention bool            `db:"requires_manual_intervention"`
	LastError                  *string         `db:"last_error"`
	Status                     string          `db:"status"`
	CreatedAt                  time.Time       `db:"created_at"`
	UpdatedAt                  time.Time       `db:"updated_at"`
	CreatedBy                  string          `db:"created_by"`
	UpdatedBy                  string          `db:"updated_by"`
}

func (r fallbackRow) toDomain() *fallback.Record {
	return &fallback.Record{
		ID:                         r.ID,
		Kind:                       types.FallbackKind(r.Kind),
		ChargeID:                   r.ChargeID,
		GatewayCustomerID:          r.GatewayCustomerID,
		AccountID:                  r.AccountID,
		Input:                      r.Input,
		Attempts:                   r.Attempts,
		FallbackStatus:             types.FallbackStatus(r.FallbackStatus),
		RequiresManualIntervention: r.RequiresManualIntervention,
		LastError:                  r.LastError,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

func fromFallback(rec *fallback.Record) fallbackRow {
	return fallbackRow{
		ID:                         rec.ID,
		Kind:                       string(rec.Kind),
		ChargeID:                   rec.ChargeID,
		GatewayCustomerID:          rec.GatewayCustomerID,
		AccountID:                  rec.AccountID,
		Input:                      rec.Input,
		Attempts:                   rec.Attempts,
		FallbackStatus:             string(rec.FallbackStatus),
		RequiresManualIntervention: rec.RequiresManualIntervention,
		LastError:                  rec.LastError,
		Status:                     string(rec.Status),
		CreatedAt:                  rec.CreatedAt,
		UpdatedAt:                  rec.UpdatedAt,
		CreatedBy:                  rec.CreatedBy,
		UpdatedBy:                  rec.UpdatedBy,
	}
}

// Create inserts a fallback record. charge_id is unique so a retried
// registration that stalls twice keeps a single record.
func (r *fallbackRepository) Create(ctx context.Context, rec *fallback.Record) error {
	const query = `
		INSERT INTO fallback_records (
			id, kind, charge_id, gateway_customer_id, account_id, input,
			attempts, fallback_status, requires_manual_intervention, last_error,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :kind, :charge_id, :gateway_customer_id, :account_id, :input,
			:attempts, :fallback_status, :requires_manual_intervention, :last_error,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := sqlx.NamedExecContext(ctx, r.db.Conn(ctx), query, fromFallback(rec))
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Fallback record already stored for this charge").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to store fallback record").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *fallbackRepository) Get(ctx context.Context, id string) (*fallback.Record, error) {
	return r.getBy(ctx, `SELECT * FROM fallback_records WHERE id = $1`, id)
}

func (r *fallbackRepository) GetByChargeID(ctx context.Context, chargeID string) (*fallback.Record, error) {
	return r.getBy(ctx, `SELECT * FROM fallback_records WHERE charge_id = $1`, chargeID)
}

func (r *fallbackRepository) getBy(ctx context.Context, query string, arg string) (*fallback.Record, error) {
	var row fallbackRow
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("fallback record not found").
				WithHint("Fallback record not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch fallback record").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *fallbackRepository) Update(ctx context.Context, rec *fallback.Record) error {
	const query = `
		UPDATE fallback_records SET
			account_id = :account_id,
			attempts = :attempts,
			fallback_status = :fallback_status,
			requires_manual_intervention = :requires_manual_intervention,
			last_error = :last_error,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	rec.UpdatedAt = time.Now().UTC()
	_, err := sqlx.NamedExecContext(ctx, r.db.Conn(ctx), query, fromFallback(rec))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update fallback record").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *fallbackRepository) ListPending(ctx context.Context, limit int) ([]*fallback.Record, error) {
	const query = `
		SELECT * FROM fallback_records
		WHERE fallback_status = $1
		ORDER BY created_at
		LIMIT $2`

	var rows []fallbackRow
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &rows, query, string(types.FallbackStatusPending), limit); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list pending fallback records").
			Mark(ierr.ErrDatabase)
	}

	records := make([]*fallback.Record, len(rows))
	for i, row := range rows {
		records[i] = row.toDomain()
	}
	return records, nil
}
