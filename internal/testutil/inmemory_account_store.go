package testutil

import (
	"context"

	"github.com/vendaflow/vendaflow/internal/domain/account"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
)

// InMemoryAccountStore implements account.Repository
type InMemoryAccountStore struct {
	*InMemoryStore[*account.Account]
}

// NewInMemoryAccountStore creates a new in-memory account repository
func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		InMemoryStore: NewInMemoryStore[*account.Account](),
	}
}

func (m *InMemoryAccountStore) Create(ctx context.Context, a *account.Account) error {
	if a == nil || a.ID == "" {
		return ierr.NewError("account and account ID are required").
			WithHint("Account and account ID are required").
			Mark(ierr.ErrValidation)
	}

	if existing, err := m.GetByEmail(ctx, a.Email); err == nil && existing != nil {
		return ierr.NewError("account already exists").
			WithHint("An account with this email already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	if err := m.InMemoryStore.Create(ctx, a.ID, a); err != nil {
		return ierr.NewError("account already exists").
			WithHint("An account with this id already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (m *InMemoryAccountStore) Get(ctx context.Context, id string) (*account.Account, error) {
	a, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("account not found").
			WithHint("Account not found").
			Mark(ierr.ErrNotFound)
	}
	return a, nil
}

func (m *InMemoryAccountStore) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	return m.findOne(ctx, func(a *account.Account) bool { return a.Email == email })
}

func (m *InMemoryAccountStore) GetByReferralCode(ctx context.Context, code string) (*account.Account, error) {
	return m.findOne(ctx, func(a *account.Account) bool { return a.ReferralCode == code })
}

func (m *InMemoryAccountStore) GetByGatewayCustomerID(ctx context.Context, gatewayCustomerID string) (*account.Account, error) {
	return m.findOne(ctx, func(a *account.Account) bool { return a.GatewayCustomerID == gatewayCustomerID })
}

func (m *InMemoryAccountStore) Update(ctx context.Context, a *account.Account) error {
	if err := m.InMemoryStore.Update(ctx, a.ID, a); err != nil {
		return ierr.NewError("account not found").
			WithHint("Account not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (m *InMemoryAccountStore) findOne(ctx context.Context, match func(*account.Account) bool) (*account.Account, error) {
	accounts, _ := m.List(ctx, nil, func(ctx context.Context, a *account.Account, _ interface{}) bool {
		return match(a)
	}, nil)
	if len(accounts) == 0 {
		return nil, ierr.NewError("account not found").
			WithHint("Account not found").
			Mark(ierr.ErrNotFound)
	}
	return accounts[0], nil
}
