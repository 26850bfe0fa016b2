package testutil

import (
	"context"

	"github.com/vendaflow/vendaflow/internal/domain/commission"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
)

// InMemoryCommissionStore implements commission.Repository. CreateErrFn
// lets tests inject per-row insert failures to exercise the engine's
// independent-insert behavior.
type InMemoryCommissionStore struct {
	*InMemoryStore[*commission.Commission]

	// CreateErrFn, when set, is consulted before every insert
	CreateErrFn func(c *commission.Commission) error
}

// NewInMemoryCommissionStore creates a new in-memory commission repository
func NewInMemoryCommissionStore() *InMemoryCommissionStore {
	return &InMemoryCommissionStore{
		InMemoryStore: NewInMemoryStore[*commission.Commission](),
	}
}

func (m *InMemoryCommissionStore) Create(ctx context.Context, c *commission.Commission) error {
	if c == nil || c.ID == "" {
		return ierr.NewError("commission and commission ID are required").
			WithHint("Commission and commission ID are required").
			Mark(ierr.ErrValidation)
	}

	if m.CreateErrFn != nil {
		if err := m.CreateErrFn(c); err != nil {
			return err
		}
	}

	if err := m.InMemoryStore.Create(ctx, c.ID, c); err != nil {
		return ierr.NewError("commission already recorded").
			WithHint("Commission already recorded").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (m *InMemoryCommissionStore) Get(ctx context.Context, id string) (*commission.Commission, error) {
	c, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("commission not found").
			WithHint("Commission not found").
			Mark(ierr.ErrNotFound)
	}
	return c, nil
}

func (m *InMemoryCommissionStore) ListByPayment(ctx context.Context, paymentID string) ([]*commission.Commission, error) {
	return m.List(ctx, nil,
		func(ctx context.Context, c *commission.Commission, _ interface{}) bool {
			return c.PaymentID == paymentID
		},
		func(i, j *commission.Commission) bool {
			return i.CreatedAt.Before(j.CreatedAt)
		},
	)
}

func (m *InMemoryCommissionStore) GetByTransferID(ctx context.Context, gatewayTransferID string) (*commission.Commission, error) {
	rows, _ := m.List(ctx, nil, func(ctx context.Context, c *commission.Commission, _ interface{}) bool {
		return c.GatewayTransferID != nil && *c.GatewayTransferID == gatewayTransferID
	}, nil)
	if len(rows) == 0 {
		return nil, ierr.NewError("commission not found").
			WithHintf("No commission for transfer: %s", gatewayTransferID).
			Mark(ierr.ErrNotFound)
	}
	return rows[0], nil
}

func (m *InMemoryCommissionStore) Update(ctx context.Context, c *commission.Commission) error {
	if err := m.InMemoryStore.Update(ctx, c.ID, c); err != nil {
		return ierr.NewError("commission not found").
			WithHint("Commission not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}
