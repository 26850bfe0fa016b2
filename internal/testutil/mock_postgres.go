package testutil

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/postgres"
)

// MockPostgresClient satisfies postgres.IClient for service tests. The
// in-memory stores never touch SQL, so Conn is never used and WithTx
// simply runs the function.
type MockPostgresClient struct {
	logger *logger.Logger
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) postgres.IClient {
	return &MockPostgresClient{logger: logger}
}

func (m *MockPostgresClient) Conn(ctx context.Context) sqlx.ExtContext {
	return nil
}

func (m *MockPostgresClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
