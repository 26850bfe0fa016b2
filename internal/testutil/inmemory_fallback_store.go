package testutil

import (
	"context"

	"github.com/vendaflow/vendaflow/internal/domain/fallback"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/types"
)

// InMemoryFallbackStore implements fallback.Repository with one record
// per charge, like the postgres unique constraint
type InMemoryFallbackStore struct {
	*InMemoryStore[*fallback.Record]
}

// NewInMemoryFallbackStore creates a new in-memory fallback repository
func NewInMemoryFallbackStore() *InMemoryFallbackStore {
	return &InMemoryFallbackStore{
		InMemoryStore: NewInMemoryStore[*fallback.Record](),
	}
}

func (m *InMemoryFallbackStore) Create(ctx context.Context, rec *fallback.Record) error {
	if rec == nil || rec.ID == "" {
		return ierr.NewError("record and record ID are required").
			WithHint("Record and record ID are required").
			Mark(ierr.ErrValidation)
	}

	if existing, err := m.GetByChargeID(ctx, rec.ChargeID); err == nil && existing != nil {
		return ierr.NewError("fallback record already stored").
			WithHint("Fallback record already stored for this charge").
			Mark(ierr.ErrAlreadyExists)
	}

	if err := m.InMemoryStore.Create(ctx, rec.ID, rec); err != nil {
		return ierr.NewError("fallback record already stored").
			WithHint("Fallback record already stored").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (m *InMemoryFallbackStore) Get(ctx context.Context, id string) (*fallback.Record, error) {
	rec, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("fallback record not found").
			WithHint("Fallback record not found").
			Mark(ierr.ErrNotFound)
	}
	return rec, nil
}

func (m *InMemoryFallbackStore) GetByChargeID(ctx context.Context, chargeID string) (*fallback.Record, error) {
	records, _ := m.List(ctx, nil, func(ctx context.Context, r *fallback.Record, _ interface{}) bool {
		return r.ChargeID == chargeID
	}, nil)
	if len(records) == 0 {
		return nil, ierr.NewError("fallback record not found").
			WithHint("Fallback record not found").
			Mark(ierr.ErrNotFound)
	}
	return records[0], nil
}

func (m *InMemoryFallbackStore) Update(ctx context.Context, rec *fallback.Record) error {
	if err := m.InMemoryStore.Update(ctx, rec.ID, rec); err != nil {
		return ierr.NewError("fallback record not found").
			WithHint("Fallback record not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (m *InMemoryFallbackStore) ListPending(ctx context.Context, limit int) ([]*fallback.Record, error) {
	records, _ := m.List(ctx, nil,
		func(ctx context.Context, r *fallback.Record, _ interface{}) bool {
			return r.FallbackStatus == types.FallbackStatusPending
		},
		func(i, j *fallback.Record) bool {
			return i.CreatedAt.Before(j.CreatedAt)
		},
	)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
