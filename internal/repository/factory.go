package repository

import (
	"github.com/vendaflow/vendaflow/internal/domain/account"
	"github.com/vendaflow/vendaflow/internal/domain/commission"
	"github.com/vendaflow/vendaflow/internal/domain/fallback"
	"github.com/vendaflow/vendaflow/internal/domain/subscription"
	"github.com/vendaflow/vendaflow/internal/domain/webhookevent"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/postgres"
	postgresRepo "github.com/vendaflow/vendaflow/internal/repository/postgres"
)

func NewAccountRepository(db postgres.IClient, logger *logger.Logger) account.Repository {
	return postgresRepo.NewAccountRepository(db, logger)
}

func NewSubscriptionRepository(db postgres.IClient, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewWebhookEventRepository(db postgres.IClient, logger *logger.Logger) webhookevent.Repository {
	return postgresRepo.NewWebhookEventRepository(db, logger)
}

func NewCommissionRepository(db postgres.IClient, logger *logger.Logger) commission.Repository {
	return postgresRepo.NewCommissionRepository(db, logger)
}

func NewFallbackRepository(db postgres.IClient, logger *logger.Logger) fallback.Repository {
	return postgresRepo.NewFallbackRepository(db, logger)
}
