package service

import (
	"github.com/vendaflow/vendaflow/internal/config"
	"github.com/vendaflow/vendaflow/internal/domain/account"
	"github.com/vendaflow/vendaflow/internal/domain/commission"
	"github.com/vendaflow/vendaflow/internal/domain/fallback"
	"github.com/vendaflow/vendaflow/internal/domain/subscription"
	"github.com/vendaflow/vendaflow/internal/domain/webhookevent"
	"github.com/vendaflow/vendaflow/internal/gateway"
	"github.com/vendaflow/vendaflow/internal/idempotency"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	AccountRepo      account.Repository
	SubscriptionRepo subscription.Repository
	WebhookEventRepo webhookevent.Repository
	CommissionRepo   commission.Repository
	FallbackRepo     fallback.Repository

	// Gateway client
	Gateway gateway.Client

	// Idempotency key generator
	IdempotencyGen *idempotency.Generator
}

// NewServiceParams assembles the common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	accountRepo account.Repository,
	subscriptionRepo subscription.Repository,
	webhookEventRepo webhookevent.Repository,
	commissionRepo commission.Repository,
	fallbackRepo fallback.Repository,
	gatewayClient gateway.Client,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		AccountRepo:      accountRepo,
		SubscriptionRepo: subscriptionRepo,
		WebhookEventRepo: webhookEventRepo,
		CommissionRepo:   commissionRepo,
		FallbackRepo:     fallbackRepo,
		Gateway:          gatewayClient,
		IdempotencyGen:   idempotency.NewGenerator(),
	}
}
