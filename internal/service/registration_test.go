package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/vendaflow/vendaflow/internal/api/dto"
	"github.com/vendaflow/vendaflow/internal/domain/account"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/idempotency"
	"github.com/vendaflow/vendaflow/internal/testutil"
	"github.com/vendaflow/vendaflow/internal/types"
	"golang.org/x/crypto/bcrypt"
)

type RegistrationServiceSuite struct {
	testutil.BaseServiceTestSuite
	service RegistrationService
	params  ServiceParams
}

func TestRegistrationService(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

func (s *RegistrationServiceSuite) SetupTest() {
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
	confirmationSvc := NewConfirmationService(s.params)
	commissionSvc := NewCommissionService(s.params)
	subscriptionSvc := NewSubscriptionService(s.params, commissionSvc)
	s.service = NewRegistrationService(s.params, confirmationSvc, subscriptionSvc, commissionSvc)
}

func (s *RegistrationServiceSuite) validRequest() *dto.RegistrationRequest {
	return &dto.RegistrationRequest{
		Name:        "Ana Souza",
		Email:       types.GenerateUUID() + "@test.com",
		Document:    "12345678901",
		Phone:       "11999990000",
		Password:    "s3cret-password",
		PlanID:      "plan_basic",
		Amount:      decimal.NewFromInt(100),
		BillingType: types.BillingTypePix,
		Cycle:       types.BillingCycleMonthly,
	}
}

func (s *RegistrationServiceSuite) pendings(n int) []types.ChargeStatus {
	statuses := make([]types.ChargeStatus, n)
	for i := range statuses {
		statuses[i] = types.ChargeStatusPending
	}
	return statuses
}

func (s *RegistrationServiceSuite) stepStatuses(resp *dto.RegistrationResponse) map[string]types.StepStatus {
	out := make(map[string]types.StepStatus, len(resp.Steps))
	for _, step := range resp.Steps {
		out[step.Name] = step.Status
	}
	return out
}

func (s *RegistrationServiceSuite) TestHappyPathPix() {
	gw := s.GetGateway()
	chargeID := gw.NextChargeID()
	gw.ScriptStatuses(chargeID, types.ChargeStatusConfirmed)

	req := s.validRequest()
	resp, err := s.service.ProcessRegistration(s.GetContext(), req)
	s.NoError(err)
	s.True(resp.Success)
	s.Empty(resp.Error)

	s.NotEmpty(resp.AccountID)
	s.NotEmpty(resp.CustomerID)
	s.Equal(chargeID, resp.ChargeID)
	s.NotEmpty(resp.SubscriptionID)
	s.NotEmpty(resp.InvoiceURL)
	s.Equal(1, resp.PollAttempts)

	steps := s.stepStatuses(resp)
	s.Len(steps, 6)
	for _, name := range []string{
		types.StepValidateInput,
		types.StepCreateCustomer,
		types.StepCreateCharge,
		types.StepAwaitConfirmation,
		types.StepProvisionAccount,
		types.StepSetupBilling,
	} {
		s.Equal(types.StepStatusCompleted, steps[name], "step %s", name)
	}

	acc, err := s.params.AccountRepo.Get(s.GetContext(), resp.AccountID)
	s.NoError(err)
	s.True(acc.Adherent)
	s.NotEmpty(acc.ReferralCode)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)))

	sub, err := s.params.SubscriptionRepo.GetByOriginChargeID(s.GetContext(), chargeID)
	s.NoError(err)
	s.Equal(resp.AccountID, sub.AccountID)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.NotNil(sub.StartedAt)
	s.NotNil(sub.GatewaySubscriptionID)

	rows, err := s.params.CommissionRepo.ListByPayment(s.GetContext(), chargeID)
	s.NoError(err)
	s.NotEmpty(rows)

	// Nothing went to the recovery path
	_, err = s.params.FallbackRepo.GetByChargeID(s.GetContext(), chargeID)
	s.True(ierr.IsNotFound(err))
}

func (s *RegistrationServiceSuite) TestValidationAbortsBeforeGatewayCalls() {
	req := &dto.RegistrationRequest{
		Email:       "not-an-email",
		Password:    "short",
		BillingType: types.BillingTypePix,
	}

	resp, err := s.service.ProcessRegistration(s.GetContext(), req)
	s.Error(err)
	s.Nil(resp)
	s.Equal(400, ierr.HTTPStatusFromErr(err))

	s.Equal(0, s.GetGateway().CustomerCalls)
	s.Equal(0, s.GetGateway().ChargeCalls)
}

func (s *RegistrationServiceSuite) TestCardRegistrationRequiresCardData() {
	req := s.validRequest()
	req.BillingType = types.BillingTypeCard
	req.Card = nil

	resp, err := s.service.ProcessRegistration(s.GetContext(), req)
	s.Error(err)
	s.Nil(resp)
	s.Equal(0, s.GetGateway().CustomerCalls)
}

func (s *RegistrationServiceSuite) TestDuplicateEmailRejected() {
	existing := &account.Account{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		Name:              "Existing",
		Email:             "taken@test.com",
		Document:          "12345678901",
		PasswordHash:      "hashed",
		ReferralCode:      types.GenerateShortID(),
		GatewayCustomerID: "cus_existing",
		Adherent:          true,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.params.AccountRepo.Create(s.GetContext(), existing))

	req := s.validRequest()
	req.Email = "taken@test.com"

	resp, err := s.service.ProcessRegistration(s.GetContext(), req)
	s.Error(err)
	s.Nil(resp)
	s.True(ierr.IsAlreadyExists(err))
	s.Equal(0, s.GetGateway().CustomerCalls)
}

func (s *RegistrationServiceSuite) TestUnknownReferralCodeRejected() {
	req := s.validRequest()
	req.ReferralCode = "NOSUCHCODE"

	resp, err := s.service.ProcessRegistration(s.GetContext(), req)
	s.Error(err)
	s.Nil(resp)
	s.Equal(400, ierr.HTTPStatusFromErr(err))
	s.Equal(0, s.GetGateway().CustomerCalls)
}

func (s *RegistrationServiceSuite) TestReferralCodeLinksReferrer() {
	referrer := &account.Account{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		Name:              "Referrer",
		Email:             "referrer@test.com",
		Document:          "12345678901",
		PasswordHash:      "hashed",
		ReferralCode:      "REF123",
		GatewayCustomerID: "cus_ref",
		Adherent:          true,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.params.AccountRepo.Create(s.GetContext(), referrer))

	gw := s.GetGateway()
	chargeID := gw.NextChargeID()
	gw.ScriptStatuses(chargeID, types.ChargeStatusConfirmed)

	req := s.validRequest()
	req.ReferralCode = "REF123"

	resp, err := s.service.ProcessRegistration(s.GetContext(), req)
	s.NoError(err)
	s.True(resp.Success)

	acc, err := s.params.AccountRepo.Get(s.GetContext(), resp.AccountID)
	s.NoError(err)
	s.Require().NotNil(acc.ReferrerID)
	s.Equal(referrer.ID, *acc.ReferrerID)

	// Level 1 commission landed with the referrer
	rows, err := s.params.CommissionRepo.ListByPayment(s.GetContext(), chargeID)
	s.NoError(err)
	found := false
	for _, row := range rows {
		if row.Level == types.CommissionLevel1 {
			found = true
			s.Equal(referrer.ID, row.BeneficiaryID)
		}
	}
	s.True(found)
}

func (s *RegistrationServiceSuite) TestGatewayCustomerFailureStopsFlow() {
	s.GetGateway().CreateCustomerErr = ierr.NewError("gateway unavailable").
		WithHint("Gateway request failed").
		Mark(ierr.ErrHTTPClient)

	resp, err := s.service.ProcessRegistration(s.GetContext(), s.validRequest())
	s.NoError(err)
	s.False(resp.Success)
	s.False(resp.FallbackStored)

	steps := s.stepStatuses(resp)
	s.Equal(types.StepStatusFailed, steps[types.StepCreateCustomer])
	s.Equal(0, s.GetGateway().ChargeCalls)
}

func (s *RegistrationServiceSuite) TestConfirmationTimeoutStoresFallback() {
	gw := s.GetGateway()
	chargeID := gw.NextChargeID()
	gw.ScriptStatuses(chargeID, types.ChargeStatusPending)

	resp, err := s.service.ProcessRegistration(s.GetContext(), s.validRequest())
	s.NoError(err)
	s.False(resp.Success)
	s.True(resp.FallbackStored)
	s.False(resp.RequiresManualIntervention)
	s.Equal("payment confirmation still pending", resp.Error)
	s.Equal(15, resp.PollAttempts)

	rec, err := s.params.FallbackRepo.GetByChargeID(s.GetContext(), chargeID)
	s.NoError(err)
	s.Equal(types.FallbackKindPendingSubscription, rec.Kind)
	s.False(rec.RequiresManualIntervention)
	s.Nil(rec.AccountID)
	s.Equal(types.FallbackStatusPending, rec.FallbackStatus)

	// No account was provisioned for an unconfirmed payment
	s.Empty(resp.AccountID)
}

func (s *RegistrationServiceSuite) TestCardDeclinedGetsNoFallback() {
	gw := s.GetGateway()
	chargeID := gw.NextChargeID()
	gw.ScriptStatuses(chargeID,
		types.ChargeStatusPending,
		types.ChargeStatusPending,
		types.ChargeStatusRefused,
	)

	req := s.validRequest()
	req.BillingType = types.BillingTypeCard
	req.Card = &dto.CardRequest{
		HolderName:  "Ana Souza",
		Number:      "5162306219378829",
		ExpiryMonth: "05",
		ExpiryYear:  "2030",
		Ccv:         "318",
	}

	resp, err := s.service.ProcessRegistration(s.GetContext(), req)
	s.NoError(err)
	s.False(resp.Success)
	s.False(resp.FallbackStored)
	s.Equal("payment was refused by the card issuer", resp.Error)
	s.Equal(3, resp.PollAttempts)

	// Declines are retryable by the customer, no recovery record
	_, err = s.params.FallbackRepo.GetByChargeID(s.GetContext(), chargeID)
	s.True(ierr.IsNotFound(err))
	s.Empty(resp.AccountID)
}

func (s *RegistrationServiceSuite) TestPixConfirmsLateInWindow() {
	gw := s.GetGateway()
	chargeID := gw.NextChargeID()
	statuses := append(s.pendings(11), types.ChargeStatusReceived)
	gw.ScriptStatuses(chargeID, statuses...)

	resp, err := s.service.ProcessRegistration(s.GetContext(), s.validRequest())
	s.NoError(err)
	s.True(resp.Success)
	s.Equal(12, resp.PollAttempts)
	s.NotEmpty(resp.SubscriptionID)
}

func (s *RegistrationServiceSuite) TestBillingFailureAfterConfirmationNeedsIntervention() {
	gw := s.GetGateway()
	chargeID := gw.NextChargeID()
	gw.ScriptStatuses(chargeID, types.ChargeStatusConfirmed)
	gw.CreateSubscriptionErr = ierr.NewError("gateway unavailable").
		WithHint("Gateway request failed").
		Mark(ierr.ErrHTTPClient)

	req := s.validRequest()
	resp, err := s.service.ProcessRegistration(s.GetContext(), req)
	s.NoError(err)
	s.False(resp.Success)
	s.True(resp.FallbackStored)
	s.True(resp.RequiresManualIntervention)

	// Money was captured, so the account stays provisioned
	s.NotEmpty(resp.AccountID)
	_, getErr := s.params.AccountRepo.Get(s.GetContext(), resp.AccountID)
	s.NoError(getErr)

	rec, err := s.params.FallbackRepo.GetByChargeID(s.GetContext(), chargeID)
	s.NoError(err)
	s.Equal(types.FallbackKindPendingCompletion, rec.Kind)
	s.True(rec.RequiresManualIntervention)
	s.Require().NotNil(rec.AccountID)
	s.Equal(resp.AccountID, *rec.AccountID)
}

func (s *RegistrationServiceSuite) TestFallbackInputNeverStoresPlaintextSecrets() {
	gw := s.GetGateway()
	chargeID := gw.NextChargeID()
	gw.ScriptStatuses(chargeID, types.ChargeStatusPending)

	req := s.validRequest()
	req.BillingType = types.BillingTypeCard
	req.Card = &dto.CardRequest{
		HolderName:  "Ana Souza",
		Number:      "5162306219378829",
		ExpiryMonth: "05",
		ExpiryYear:  "2030",
		Ccv:         "318",
	}

	resp, err := s.service.ProcessRegistration(s.GetContext(), req)
	s.NoError(err)
	s.True(resp.FallbackStored)

	rec, err := s.params.FallbackRepo.GetByChargeID(s.GetContext(), chargeID)
	s.NoError(err)

	var input map[string]interface{}
	s.Require().NoError(json.Unmarshal(rec.Input, &input))

	hash, ok := input["password_hash"].(string)
	s.True(ok)
	s.NotEqual(req.Password, hash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)))

	s.NotContains(input, "password")
	s.NotContains(input, "card")
	s.NotContains(string(rec.Input), req.Card.Number)
}

func (s *RegistrationServiceSuite) TestTimeoutWindowUsesConfiguredBudget() {
	gw := s.GetGateway()
	chargeID := gw.NextChargeID()
	gw.ScriptStatuses(chargeID, types.ChargeStatusPending)

	start := time.Now()
	resp, err := s.service.ProcessRegistration(s.GetContext(), s.validRequest())
	s.NoError(err)
	s.False(resp.Success)

	// 15 polls at 1ms spacing, well under a second even on slow runners
	s.Less(time.Since(start), 5*time.Second)
	s.Equal(15, s.GetGateway().StatusCalls[chargeID])
}
