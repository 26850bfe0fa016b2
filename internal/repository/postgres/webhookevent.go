package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/vendaflow/vendaflow/internal/domain/webhookevent"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/postgres"
	"github.com/vendaflow/vendaflow/internal/types"
)

type webhookEventRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db postgres.IClient, logger *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{db: db, logger: logger}
}

type webhookEventRow struct {
	ID          string          `db:"id"`
	EventID     string          `db:"event_id"`
	EventType   string          `db:"event_type"`
	Payload     json.RawMessage `db:"payload"`
	Processed   bool            `db:"processed"`
	ProcessedAt *time.Time      `db:"processed_at"`
	RetryCount  int             `db:"retry_count"`
	LastError   *string         `db:"last_error"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	CreatedBy   string          `db:"created_by"`
	UpdatedBy   string          `db:"updated_by"`
}

func (r webhookEventRow) toDomain() *webhookevent.WebhookEvent {
	return &webhookevent.WebhookEvent{
		ID:          r.ID,
		EventID:     r.EventID,
		EventType:   types.WebhookEventType(r.EventType),
		Payload:     r.Payload,
		Processed:   r.Processed,
		ProcessedAt: r.ProcessedAt,
		RetryCount:  r.RetryCount,
		LastError:   r.LastError,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

func fromWebhookEvent(e *webhookevent.WebhookEvent) webhookEventRow {
	return webhookEventRow{
		ID:          e.ID,
		EventID:     e.EventID,
		EventType:   string(e.EventType),
		Payload:     e.Payload,
		Processed:   e.Processed,
		ProcessedAt: e.ProcessedAt,
		RetryCount:  e.RetryCount,
		LastError:   e.LastError,
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		CreatedBy:   e.CreatedBy,
		UpdatedBy:   e.UpdatedBy,
	}
}

// Create inserts a new event row. The unique constraint on event_id is
// the webhook idempotency guard, conflicts surface as ErrAlreadyExists.
func (r *webhookEventRepository) Create(ctx context.Context, event *webhookevent.WebhookEvent) error {
	const query = `
		INSERT INTO webhook_events (
			id, event_id, event_type, payload, processed, processed_at,
			retry_count, last_error, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :event_id, :event_type, :payload, :processed, :processed_at,
			:retry_count, :last_error, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := sqlx.NamedExecContext(ctx, r.db.Conn(ctx), query, fromWebhookEvent(event))
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Webhook event already stored").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to store webhook event").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *webhookEventRepository) GetByEventID(ctx context.Context, eventID string) (*webhookevent.WebhookEvent, error) {
	const query = `SELECT * FROM webhook_events WHERE event_id = $1`

	var row webhookEventRow
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &row, query, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("webhook event not found").
				WithHintf("Webhook event not found for event id: %s", eventID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch webhook event").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

// Update persists processing outcome. The processed flag is one-way at
// the SQL level as well: a processed row is never flipped back.
func (r *webhookEventRepository) Update(ctx context.Context, event *webhookevent.WebhookEvent) error {
	const query = `
		UPDATE webhook_events SET
			processed = CASE WHEN processed THEN processed ELSE :processed END,
			processed_at = COALESCE(processed_at, :processed_at),
			retry_count = :retry_count,
			last_error = :last_error,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE event_id = :event_id`

	event.UpdatedAt = time.Now().UTC()
	_, err := sqlx.NamedExecContext(ctx, r.db.Conn(ctx), query, fromWebhookEvent(event))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update webhook event").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *webhookEventRepository) ListUnprocessed(ctx context.Context, limit int) ([]*webhookevent.WebhookEvent, error) {
	const query = `SELECT * FROM webhook_events WHERE processed = false ORDER BY created_at LIMIT $1`

	var rows []webhookEventRow
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &rows, query, limit); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list unprocessed webhook events").
			Mark(ierr.ErrDatabase)
	}

	events := make([]*webhookevent.WebhookEvent, len(rows))
	for i, row := range rows {
		events[i] = row.toDomain()
	}
	return events, nil
}

// isUniqueViolation reports whether err is a postgres unique constraint violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
