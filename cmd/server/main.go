package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vendaflow/vendaflow/internal/api"
	v1 "github.com/vendaflow/vendaflow/internal/api/v1"
	"github.com/vendaflow/vendaflow/internal/config"
	"github.com/vendaflow/vendaflow/internal/gateway"
	"github.com/vendaflow/vendaflow/internal/httpclient"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/postgres"
	"github.com/vendaflow/vendaflow/internal/repository"
	"github.com/vendaflow/vendaflow/internal/sentry"
	"github.com/vendaflow/vendaflow/internal/service"
	"github.com/vendaflow/vendaflow/internal/validator"
	"go.uber.org/fx"
)

// @title VendaFlow API
// @version 1.0
// @description Payment-first registration and webhook reconciliation service
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Postgres
			postgres.NewClient,

			// HTTP client + payment gateway
			httpclient.NewDefaultClient,
			gateway.NewClient,

			// Repositories
			repository.NewAccountRepository,
			repository.NewSubscriptionRepository,
			repository.NewWebhookEventRepository,
			repository.NewCommissionRepository,
			repository.NewFallbackRepository,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewConfirmationService,
			service.NewCommissionService,
			service.NewSubscriptionService,
			service.NewWebhookService,
			service.NewRegistrationService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			// Validator backs every request DTO, initialize it before the
			// server starts taking traffic
			validator.NewValidator,
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	registrationService service.RegistrationService,
	webhookService service.WebhookService,
) api.Handlers {
	return api.Handlers{
		Registration: v1.NewRegistrationHandler(registrationService, logger),
		Webhook:      v1.NewWebhookHandler(webhookService, logger),
		Health:       v1.NewHealthHandler(),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
