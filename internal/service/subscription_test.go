package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/vendaflow/vendaflow/internal/domain/account"
	"github.com/vendaflow/vendaflow/internal/domain/subscription"
	"github.com/vendaflow/vendaflow/internal/gateway"
	"github.com/vendaflow/vendaflow/internal/testutil"
	"github.com/vendaflow/vendaflow/internal/types"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionService
	params  ServiceParams
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	s.params = ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		AccountRepo:      stores.AccountRepo,
		SubscriptionRepo: stores.SubscriptionRepo,
		WebhookEventRepo: stores.WebhookEventRepo,
		CommissionRepo:   stores.CommissionRepo,
		FallbackRepo:     stores.FallbackRepo,
		Gateway:          s.GetGateway(),
	}
	s.service = NewSubscriptionService(s.params, NewCommissionService(s.params))
}

func (s *SubscriptionServiceSuite) createAccount(adherent bool) *account.Account {
	acc := &account.Account{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		Name:              "Member",
		Email:             types.GenerateUUID() + "@test.com",
		Document:          "12345678901",
		PasswordHash:      "hashed",
		ReferralCode:      types.GenerateShortID(),
		GatewayCustomerID: "cus_" + types.GenerateUUID(),
		Adherent:          adherent,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.params.AccountRepo.Create(s.GetContext(), acc))
	return acc
}

func (s *SubscriptionServiceSuite) newSubscription(acc *account.Account, chargeID string) *subscription.Subscription {
	return &subscription.Subscription{
		AccountID:         acc.ID,
		PlanID:            "plan_basic",
		Amount:            decimal.NewFromInt(100),
		BillingType:       types.BillingTypePix,
		Cycle:             types.BillingCycleMonthly,
		OriginChargeID:    chargeID,
		GatewayCustomerID: acc.GatewayCustomerID,
	}
}

func (s *SubscriptionServiceSuite) TestCreateDefaultsIDAndStatus() {
	acc := s.createAccount(true)

	sub, err := s.service.Create(s.GetContext(), s.newSubscription(acc, "ch_001"))
	s.NoError(err)
	s.NotEmpty(sub.ID)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
}

func (s *SubscriptionServiceSuite) TestConcurrentCreateCollapsesToOneRow() {
	acc := s.createAccount(true)

	first, err := s.service.Create(s.GetContext(), s.newSubscription(acc, "ch_002"))
	s.NoError(err)

	// The losing path gets the winner's row back, not an error
	second, err := s.service.Create(s.GetContext(), s.newSubscription(acc, "ch_002"))
	s.NoError(err)
	s.Equal(first.ID, second.ID)
}

func (s *SubscriptionServiceSuite) TestActivateStampsStartedAtOnceAndMarksAdherent() {
	acc := s.createAccount(false)
	sub, err := s.service.Create(s.GetContext(), s.newSubscription(acc, "ch_003"))
	s.Require().NoError(err)
	s.Nil(sub.StartedAt)

	s.NoError(s.service.ActivateForCharge(s.GetContext(), &PaidCharge{
		ChargeID:              "ch_003",
		GatewaySubscriptionID: "gwsub_003",
	}))

	got, err := s.params.SubscriptionRepo.GetByOriginChargeID(s.GetContext(), "ch_003")
	s.NoError(err)
	s.Require().NotNil(got.StartedAt)
	firstStart := *got.StartedAt
	s.Require().NotNil(got.GatewaySubscriptionID)
	s.Equal("gwsub_003", *got.GatewaySubscriptionID)

	member, err := s.params.AccountRepo.Get(s.GetContext(), acc.ID)
	s.NoError(err)
	s.True(member.Adherent)

	// A renewal payment re-activates but never moves started_at
	time.Sleep(2 * time.Millisecond)
	s.NoError(s.service.ActivateForCharge(s.GetContext(), &PaidCharge{
		ChargeID:              "ch_003",
		GatewaySubscriptionID: "gwsub_003",
	}))
	got, err = s.params.SubscriptionRepo.GetByOriginChargeID(s.GetContext(), "ch_003")
	s.NoError(err)
	s.True(firstStart.Equal(*got.StartedAt))
}

func (s *SubscriptionServiceSuite) TestRenewalPaymentEarnsCommissions() {
	acc := s.createAccount(true)
	sub := s.newSubscription(acc, "ch_first")
	gwID := "gwsub_renew"
	now := time.Now().UTC()
	sub.GatewaySubscriptionID = &gwID
	sub.StartedAt = &now
	_, err := s.service.Create(s.GetContext(), sub)
	s.Require().NoError(err)

	// Each billing cycle pays through a fresh charge against the same
	// gateway subscription
	s.NoError(s.service.ActivateForCharge(s.GetContext(), &PaidCharge{
		ChargeID:              "ch_renewal",
		GatewaySubscriptionID: gwID,
	}))

	rows, err := s.params.CommissionRepo.ListByPayment(s.GetContext(), "ch_renewal")
	s.NoError(err)
	s.NotEmpty(rows)

	got, err := s.params.SubscriptionRepo.GetByGatewaySubscriptionID(s.GetContext(), gwID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, got.SubscriptionStatus)
	s.Require().NotNil(got.StartedAt)
	s.True(now.Equal(*got.StartedAt), "renewals must not move started_at")
}

func (s *SubscriptionServiceSuite) TestOverduePaidOverdueRoundTrip() {
	acc := s.createAccount(true)
	_, err := s.service.Create(s.GetContext(), s.newSubscription(acc, "ch_004"))
	s.Require().NoError(err)

	s.NoError(s.service.MarkOverdue(s.GetContext(), "ch_004", ""))
	got, err := s.params.SubscriptionRepo.GetByOriginChargeID(s.GetContext(), "ch_004")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusOverdue, got.SubscriptionStatus)

	s.NoError(s.service.ActivateForCharge(s.GetContext(), &PaidCharge{ChargeID: "ch_004"}))
	got, err = s.params.SubscriptionRepo.GetByOriginChargeID(s.GetContext(), "ch_004")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, got.SubscriptionStatus)
}

func (s *SubscriptionServiceSuite) TestCancelIsIdempotent() {
	acc := s.createAccount(true)
	_, err := s.service.Create(s.GetContext(), s.newSubscription(acc, "ch_005"))
	s.Require().NoError(err)

	s.NoError(s.service.Cancel(s.GetContext(), "ch_005", ""))
	s.NoError(s.service.Cancel(s.GetContext(), "ch_005", ""))

	got, err := s.params.SubscriptionRepo.GetByOriginChargeID(s.GetContext(), "ch_005")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, got.SubscriptionStatus)
}

func (s *SubscriptionServiceSuite) TestSyncFromGatewayUpdatesSchedule() {
	acc := s.createAccount(true)
	sub := s.newSubscription(acc, "ch_006")
	gwID := "gwsub_006"
	sub.GatewaySubscriptionID = &gwID
	_, err := s.service.Create(s.GetContext(), sub)
	s.Require().NoError(err)

	s.NoError(s.service.SyncFromGateway(s.GetContext(), &gateway.Subscription{
		ID:          gwID,
		Value:       decimal.NewFromInt(120),
		NextDueDate: "2026-09-28",
	}))

	got, err := s.params.SubscriptionRepo.GetByGatewaySubscriptionID(s.GetContext(), gwID)
	s.NoError(err)
	s.True(decimal.NewFromInt(120).Equal(got.Amount))
	s.Require().NotNil(got.NextDueDate)
	s.Equal("2026-09-28", got.NextDueDate.Format("2006-01-02"))
}

func (s *SubscriptionServiceSuite) TestSyncRejectsBadDueDate() {
	acc := s.createAccount(true)
	sub := s.newSubscription(acc, "ch_007")
	gwID := "gwsub_007"
	sub.GatewaySubscriptionID = &gwID
	_, err := s.service.Create(s.GetContext(), sub)
	s.Require().NoError(err)

	err = s.service.SyncFromGateway(s.GetContext(), &gateway.Subscription{
		ID:          gwID,
		NextDueDate: "28/09/2026",
	})
	s.Error(err)
}
