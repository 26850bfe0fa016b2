package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vendaflow/vendaflow/internal/config"
	"github.com/vendaflow/vendaflow/internal/domain/account"
	"github.com/vendaflow/vendaflow/internal/domain/commission"
	"github.com/vendaflow/vendaflow/internal/domain/fallback"
	"github.com/vendaflow/vendaflow/internal/domain/subscription"
	"github.com/vendaflow/vendaflow/internal/domain/webhookevent"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/postgres"
	"github.com/vendaflow/vendaflow/internal/types"
	"github.com/vendaflow/vendaflow/internal/validator"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	AccountRepo      account.Repository
	SubscriptionRepo subscription.Repository
	WebhookEventRepo webhookevent.Repository
	CommissionRepo   commission.Repository
	FallbackRepo     fallback.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	stores  Stores
	gateway *ScriptedGateway
	db      postgres.IClient
	logger  *logger.Logger
	config  *config.Configuration
	now     time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	// Initialize validator
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelError
	cfg.Webhook.AccessToken = "test-webhook-token"
	// Keep the polling window tight so timeout tests run fast
	cfg.Gateway.ConfirmationTimeout = 15 * time.Millisecond
	cfg.Gateway.ConfirmationInterval = 1 * time.Millisecond

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = context.Background()
	s.ctx = context.WithValue(s.ctx, types.CtxUserID, types.DefaultUserID)
	s.ctx = context.WithValue(s.ctx, types.CtxRequestID, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		AccountRepo:      NewInMemoryAccountStore(),
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		WebhookEventRepo: NewInMemoryWebhookEventStore(),
		CommissionRepo:   NewInMemoryCommissionStore(),
		FallbackRepo:     NewInMemoryFallbackStore(),
	}
	s.gateway = NewScriptedGateway()
	s.db = NewMockPostgresClient(s.logger)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.AccountRepo.(*InMemoryAccountStore).Clear()
	s.stores.SubscriptionRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.WebhookEventRepo.(*InMemoryWebhookEventStore).Clear()
	s.stores.CommissionRepo.(*InMemoryCommissionStore).Clear()
	s.stores.FallbackRepo.(*InMemoryFallbackStore).Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetGateway returns the scripted gateway client
func (s *BaseServiceTestSuite) GetGateway() *ScriptedGateway {
	return s.gateway
}

// GetDB returns the mock db client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetNow returns the current time at test setup
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
