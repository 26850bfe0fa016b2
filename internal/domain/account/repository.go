package account

import "context"

// Repository defines the interface for account persistence
type Repository interface {
	Create(ctx context.Context, account *Account) error
	Get(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByReferralCode(ctx context.Context, code string) (*Account, error)
	GetByGatewayCustomerID(ctx context.Context, gatewayCustomerID string) (*Account, error)
	Update(ctx context.Context, account *Account) error
}
