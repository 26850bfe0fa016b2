package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/vendaflow/vendaflow/internal/domain/account"
	"github.com/vendaflow/vendaflow/internal/domain/subscription"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/idempotency"
	"github.com/vendaflow/vendaflow/internal/testutil"
	"github.com/vendaflow/vendaflow/internal/types"
)

const testWebhookToken = "test-webhook-token"

type WebhookServiceSuite struct {
	testutil.BaseServiceTestSuite
	service       WebhookService
	commissionSvc CommissionService
	params        ServiceParams
}

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceSuite))
}

func (s *WebhookServiceSuite) SetupTest() {
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
		IdempotencyGen:   idempotency.NewGenerator(),
	}
	s.commissionSvc = NewCommissionService(s.params)
	subscriptionSvc := NewSubscriptionService(s.params, s.commissionSvc)
	s.service = NewWebhookService(s.params, subscriptionSvc, s.commissionSvc)
}

func (s *WebhookServiceSuite) createAccount(adherent bool) *account.Account {
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

func (s *WebhookServiceSuite) createSubscription(acc *account.Account, chargeID string) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		AccountID:          acc.ID,
		PlanID:             "plan_basic",
		SubscriptionStatus: types.SubscriptionStatusActive,
		Amount:             decimal.NewFromInt(100),
		BillingType:        types.BillingTypePix,
		Cycle:              types.BillingCycleMonthly,
		OriginChargeID:     chargeID,
		GatewayCustomerID:  acc.GatewayCustomerID,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.params.SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func paymentPayload(eventID string, eventType types.WebhookEventType, chargeID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"event":%q,"payment":{"id":%q,"customer":"cus_001","status":"CONFIRMED","value":100}}`,
		eventID, eventType, chargeID,
	))
}

func (s *WebhookServiceSuite) TestRejectsBadToken() {
	payload := paymentPayload("evt_001", types.WebhookEventPaymentConfirmed, "ch_001")

	resp, err := s.service.ProcessEvent(s.GetContext(), payload, "wrong-token")
	s.Error(err)
	s.Nil(resp)
	s.Equal(401, ierr.HTTPStatusFromErr(err))

	// Nothing stored for rejected deliveries
	_, err = s.params.WebhookEventRepo.GetByEventID(s.GetContext(), "evt_001")
	s.True(ierr.IsNotFound(err))
}

func (s *WebhookServiceSuite) TestRejectsMalformedPayload() {
	resp, err := s.service.ProcessEvent(s.GetContext(), []byte("{not json"), testWebhookToken)
	s.Error(err)
	s.Nil(resp)
	s.Equal(400, ierr.HTTPStatusFromErr(err))
}

func (s *WebhookServiceSuite) TestRejectsMissingEventField() {
	resp, err := s.service.ProcessEvent(s.GetContext(), []byte(`{"id":"evt_002"}`), testWebhookToken)
	s.Error(err)
	s.Nil(resp)
	s.Equal(400, ierr.HTTPStatusFromErr(err))
}

func (s *WebhookServiceSuite) TestPaymentConfirmedActivatesSubscription() {
	acc := s.createAccount(false)
	s.createSubscription(acc, "ch_100")

	payload := paymentPayload("evt_100", types.WebhookEventPaymentConfirmed, "ch_100")
	resp, err := s.service.ProcessEvent(s.GetContext(), payload, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)
	s.Equal("event processed", resp.Message)
	s.Equal("evt_100", resp.EventID)

	sub, err := s.params.SubscriptionRepo.GetByOriginChargeID(s.GetContext(), "ch_100")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.NotNil(sub.StartedAt)

	got, err := s.params.AccountRepo.Get(s.GetContext(), acc.ID)
	s.NoError(err)
	s.True(got.Adherent)

	// Commission rows landed for the confirmed charge
	rows, err := s.params.CommissionRepo.ListByPayment(s.GetContext(), "ch_100")
	s.NoError(err)
	s.NotEmpty(rows)

	event, err := s.params.WebhookEventRepo.GetByEventID(s.GetContext(), "evt_100")
	s.NoError(err)
	s.True(event.Processed)
	s.NotNil(event.ProcessedAt)
}

func (s *WebhookServiceSuite) TestDuplicateDeliveryHasOneSideEffect() {
	acc := s.createAccount(false)
	s.createSubscription(acc, "ch_200")

	payload := paymentPayload("evt_200", types.WebhookEventPaymentConfirmed, "ch_200")

	resp, err := s.service.ProcessEvent(s.GetContext(), payload, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)
	rows, err := s.params.CommissionRepo.ListByPayment(s.GetContext(), "ch_200")
	s.NoError(err)
	firstCount := len(rows)

	resp, err = s.service.ProcessEvent(s.GetContext(), payload, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)
	s.Equal("event already processed", resp.Message)

	rows, err = s.params.CommissionRepo.ListByPayment(s.GetContext(), "ch_200")
	s.NoError(err)
	s.Equal(firstCount, len(rows))
}

func (s *WebhookServiceSuite) TestPaidChargeWithoutSubscriptionStillProcessed() {
	payload := paymentPayload("evt_300", types.WebhookEventPaymentConfirmed, "ch_unknown")

	resp, err := s.service.ProcessEvent(s.GetContext(), payload, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)

	event, err := s.params.WebhookEventRepo.GetByEventID(s.GetContext(), "evt_300")
	s.NoError(err)
	s.True(event.Processed)
}

func (s *WebhookServiceSuite) TestOverdueAndCancelTransitions() {
	acc := s.createAccount(true)
	s.createSubscription(acc, "ch_400")

	payload := paymentPayload("evt_400", types.WebhookEventPaymentOverdue, "ch_400")
	resp, err := s.service.ProcessEvent(s.GetContext(), payload, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)

	sub, err := s.params.SubscriptionRepo.GetByOriginChargeID(s.GetContext(), "ch_400")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusOverdue, sub.SubscriptionStatus)

	payload = paymentPayload("evt_401", types.WebhookEventPaymentRefunded, "ch_400")
	resp, err = s.service.ProcessEvent(s.GetContext(), payload, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)

	sub, err = s.params.SubscriptionRepo.GetByOriginChargeID(s.GetContext(), "ch_400")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, sub.SubscriptionStatus)
}

func (s *WebhookServiceSuite) TestUnknownEventTypeAcknowledged() {
	payload := []byte(`{"id":"evt_500","event":"PAYMENT_ANTICIPATED"}`)

	resp, err := s.service.ProcessEvent(s.GetContext(), payload, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)

	event, err := s.params.WebhookEventRepo.GetByEventID(s.GetContext(), "evt_500")
	s.NoError(err)
	s.True(event.Processed)
	s.Equal(types.WebhookEventType("PAYMENT_ANTICIPATED"), event.EventType)
}

func (s *WebhookServiceSuite) TestHandlerFailureStoredAndRetriedOnRedelivery() {
	// Payment event without the payment object fails the handler
	broken := []byte(`{"id":"evt_600","event":"PAYMENT_CONFIRMED"}`)

	resp, err := s.service.ProcessEvent(s.GetContext(), broken, testWebhookToken)
	s.NoError(err)
	s.False(resp.Success)
	s.Equal("event stored, processing failed", resp.Message)

	event, err := s.params.WebhookEventRepo.GetByEventID(s.GetContext(), "evt_600")
	s.NoError(err)
	s.False(event.Processed)
	s.Equal(1, event.RetryCount)
	s.NotNil(event.LastError)

	// Gateway redelivers with the full object, the handler runs again
	acc := s.createAccount(false)
	s.createSubscription(acc, "ch_600")
	fixed := paymentPayload("evt_600", types.WebhookEventPaymentConfirmed, "ch_600")

	resp, err = s.service.ProcessEvent(s.GetContext(), fixed, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)

	event, err = s.params.WebhookEventRepo.GetByEventID(s.GetContext(), "evt_600")
	s.NoError(err)
	s.True(event.Processed)
}

func (s *WebhookServiceSuite) TestRenewalPaymentCreatesCommissions() {
	acc := s.createAccount(true)
	sub := s.createSubscription(acc, "ch_810")
	gwID := "gwsub_810"
	now := time.Now().UTC()
	sub.GatewaySubscriptionID = &gwID
	sub.StartedAt = &now
	s.Require().NoError(s.params.SubscriptionRepo.Update(s.GetContext(), sub))

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_810","event":"PAYMENT_RECEIVED","payment":{"id":"ch_renewal_810","customer":%q,"subscription":%q,"status":"RECEIVED","value":100}}`,
		acc.GatewayCustomerID, gwID,
	))
	resp, err := s.service.ProcessEvent(s.GetContext(), payload, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)

	// The renewal charge earns its own commission rows
	rows, err := s.params.CommissionRepo.ListByPayment(s.GetContext(), "ch_renewal_810")
	s.NoError(err)
	s.NotEmpty(rows)
}

func (s *WebhookServiceSuite) TestTransferDoneMarksCommissionPaid() {
	acc := s.createAccount(true)
	referred := &account.Account{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		Name:              "Referred",
		Email:             types.GenerateUUID() + "@test.com",
		Document:          "12345678901",
		PasswordHash:      "hashed",
		ReferralCode:      types.GenerateShortID(),
		ReferrerID:        &acc.ID,
		GatewayCustomerID: "cus_" + types.GenerateUUID(),
		Adherent:          true,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.params.AccountRepo.Create(s.GetContext(), referred))

	rows := s.commissionSvc.ProcessPayment(s.GetContext(), "ch_700", referred.ID, decimal.NewFromInt(100))
	s.Require().NotEmpty(rows)

	transferID := "tr_700"
	target := rows[0]
	target.GatewayTransferID = &transferID
	s.Require().NoError(s.params.CommissionRepo.Update(s.GetContext(), target))

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_700","event":"TRANSFER_DONE","transfer":{"id":%q,"value":15,"status":"DONE"}}`,
		transferID,
	))
	resp, err := s.service.ProcessEvent(s.GetContext(), payload, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)

	got, err := s.params.CommissionRepo.Get(s.GetContext(), target.ID)
	s.NoError(err)
	s.Equal(types.CommissionStatusPaid, got.CommissionStatus)
}

func (s *WebhookServiceSuite) TestCompositeEventIDWhenGatewayOmitsID() {
	payload := []byte(`{"event":"PAYMENT_CONFIRMED","dateCreated":"2025-01-15 10:00:00","payment":{"id":"ch_800","customer":"cus_001","status":"CONFIRMED","value":100}}`)

	resp, err := s.service.ProcessEvent(s.GetContext(), payload, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)
	s.NotEmpty(resp.EventID)

	// The composite key is deterministic, the redelivery deduplicates
	again, err := s.service.ProcessEvent(s.GetContext(), payload, testWebhookToken)
	s.NoError(err)
	s.True(again.Success)
	s.Equal(resp.EventID, again.EventID)
	s.Equal("event already processed", again.Message)
}

func (s *WebhookServiceSuite) TestReprocessEvent() {
	broken := []byte(`{"id":"evt_900","event":"PAYMENT_CONFIRMED"}`)
	resp, err := s.service.ProcessEvent(s.GetContext(), broken, testWebhookToken)
	s.NoError(err)
	s.False(resp.Success)

	// The stored payload still lacks the payment object
	err = s.service.ReprocessEvent(s.GetContext(), "evt_900")
	s.Error(err)

	event, err := s.params.WebhookEventRepo.GetByEventID(s.GetContext(), "evt_900")
	s.NoError(err)
	s.False(event.Processed)
	s.Equal(2, event.RetryCount)

	// Reprocessing a processed event is a no-op
	ok := []byte(`{"id":"evt_901","event":"PAYMENT_ANTICIPATED"}`)
	resp, err = s.service.ProcessEvent(s.GetContext(), ok, testWebhookToken)
	s.NoError(err)
	s.True(resp.Success)
	s.NoError(s.service.ReprocessEvent(s.GetContext(), "evt_901"))
}
