package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vendaflow/vendaflow/internal/api/dto"
	"github.com/vendaflow/vendaflow/internal/domain/account"
	"github.com/vendaflow/vendaflow/internal/domain/fallback"
	"github.com/vendaflow/vendaflow/internal/domain/subscription"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/gateway"
	"github.com/vendaflow/vendaflow/internal/types"
	"golang.org/x/crypto/bcrypt"
)

const gatewayDateLayout = "2006-01-02"

// RegistrationService runs the payment-first registration flow: the
// customer pays before any account exists, and provisioning happens only
// after the gateway confirms the money. Steps execute in a fixed order
// and each one is recorded in the response's audit trail.
type RegistrationService interface {
	ProcessRegistration(ctx context.Context, req *dto.RegistrationRequest) (*dto.RegistrationResponse, error)
}

type registrationService struct {
	ServiceParams
	confirmationSvc ConfirmationService
	subscriptionSvc SubscriptionService
	commissionSvc   CommissionService
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(
	params ServiceParams,
	confirmationSvc ConfirmationService,
	subscriptionSvc SubscriptionService,
	commissionSvc CommissionService,
) RegistrationService {
	return &registrationService{
		ServiceParams:   params,
		confirmationSvc: confirmationSvc,
		subscriptionSvc: subscriptionSvc,
		commissionSvc:   commissionSvc,
	}
}

// fallbackInput is the registration snapshot stored on fallback records.
// Credentials are already hashed, raw card data is never included.
type fallbackInput struct {
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Document     string             `json:"document"`
	Phone        string             `json:"phone,omitempty"`
	PasswordHash string             `json:"password_hash"`
	PlanID       string             `json:"plan_id"`
	ServiceType  string             `json:"service_type,omitempty"`
	Amount       decimal.Decimal    `json:"amount"`
	BillingType  types.BillingType  `json:"billing_type"`
	Cycle        types.BillingCycle `json:"cycle"`
	ReferrerID   *string            `json:"referrer_id,omitempty"`
}

// flow carries the mutable state of one registration execution
type flow struct {
	req          *dto.RegistrationRequest
	resp         *dto.RegistrationResponse
	passwordHash string
	referrerID   *string
	customer     *gateway.Customer
	charge       *gateway.Charge
	account      *account.Account
}

func (f *flow) step(name string, status types.StepStatus, message string, err error) {
	entry := types.ProcessingStep{
		Name:      name,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		msg := err.Error()
		entry.Error = &msg
	}
	f.resp.Steps = append(f.resp.Steps, entry)
}

func (f *flow) completed(name, message string) {
	f.step(name, types.StepStatusCompleted, message, nil)
}

func (f *flow) failed(name, message string, err error) {
	f.step(name, types.StepStatusFailed, message, err)
	f.resp.Success = false
	f.resp.Error = message
}

func (s *registrationService) ProcessRegistration(ctx context.Context, req *dto.RegistrationRequest) (*dto.RegistrationResponse, error) {
	f := &flow{
		req:  req,
		resp: &dto.RegistrationResponse{Steps: make([]types.ProcessingStep, 0, 6)},
	}

	// Step 1: validate everything before a single gateway call is made
	if err := s.validateInput(ctx, f); err != nil {
		return nil, err
	}
	f.completed(types.StepValidateInput, "input validated")

	// Step 2: gateway customer
	if err := s.createGatewayCustomer(ctx, f); err != nil {
		f.failed(types.StepCreateCustomer, "failed to create gateway customer", err)
		return f.resp, nil
	}
	f.resp.CustomerID = f.customer.ID
	f.completed(types.StepCreateCustomer, "gateway customer created")

	// Step 3: first charge
	if err := s.createCharge(ctx, f); err != nil {
		f.failed(types.StepCreateCharge, "failed to create charge", err)
		return f.resp, nil
	}
	f.resp.ChargeID = f.charge.ID
	f.resp.InvoiceURL = f.charge.InvoiceURL
	f.resp.PixQrCode = f.charge.PixQrCode
	f.completed(types.StepCreateCharge, "charge created")

	// Step 4: synchronous confirmation window
	result, err := s.confirmationSvc.AwaitConfirmation(ctx, f.charge.ID,
		s.Config.Gateway.ConfirmationTimeout, s.Config.Gateway.ConfirmationInterval)
	if result != nil {
		f.resp.PollAttempts = result.Attempts
	}
	if err != nil {
		// Polling aborted (caller gone), release the pending charge so the
		// customer is not billed for an abandoned registration
		s.cancelAbandonedCharge(f.charge.ID)
		f.failed(types.StepAwaitConfirmation, "registration aborted before confirmation", err)
		return f.resp, err
	}
	if !result.Confirmed {
		if result.TimedOut {
			s.storeFallback(ctx, f, types.FallbackKindPendingSubscription, "confirmation timed out")
			f.failed(types.StepAwaitConfirmation, "payment confirmation still pending", nil)
			return f.resp, nil
		}
		// Declined charges get no fallback record, the customer simply retries
		f.failed(types.StepAwaitConfirmation, result.DeclineReason, nil)
		return f.resp, nil
	}
	f.completed(types.StepAwaitConfirmation, "payment confirmed")

	// Step 5: provision the account, money is captured from here on
	if err := s.provisionAccount(ctx, f); err != nil {
		s.storeFallback(ctx, f, types.FallbackKindPendingCompletion, "account provisioning failed")
		f.failed(types.StepProvisionAccount, "failed to provision account", err)
		f.resp.RequiresManualIntervention = true
		return f.resp, nil
	}
	f.resp.AccountID = f.account.ID
	f.completed(types.StepProvisionAccount, "account provisioned")

	// Step 6: recurring billing + commissions
	sub, err := s.setupBilling(ctx, f)
	if err != nil {
		s.storeFallback(ctx, f, types.FallbackKindPendingCompletion, "billing setup failed")
		f.failed(types.StepSetupBilling, "failed to set up billing", err)
		f.resp.RequiresManualIntervention = true
		return f.resp, nil
	}
	f.resp.SubscriptionID = sub.ID
	f.completed(types.StepSetupBilling, "billing configured")

	// Commission fan-out is best-effort, failures stay in the engine
	s.commissionSvc.ProcessPayment(ctx, f.charge.ID, f.account.ID, req.Amount)

	f.resp.Success = true
	s.Logger.Infow("registration completed",
		"account_id", f.account.ID,
		"charge_id", f.charge.ID,
		"subscription_id", sub.ID,
		"poll_attempts", f.resp.PollAttempts,
	)
	return f.resp, nil
}

func (s *registrationService) validateInput(ctx context.Context, f *flow) error {
	if err := f.req.Validate(); err != nil {
		return err
	}

	if _, err := s.AccountRepo.GetByEmail(ctx, f.req.Email); err == nil {
		return ierr.NewError("email already registered").
			WithHint("An account with this email already exists").
			WithReportableDetails(map[string]any{
				"email": f.req.Email,
			}).
			Mark(ierr.ErrAlreadyExists)
	} else if !ierr.IsNotFound(err) {
		return err
	}

	if f.req.ReferralCode != "" {
		referrer, err := s.AccountRepo.GetByReferralCode(ctx, f.req.ReferralCode)
		if err != nil {
			if ierr.IsNotFound(err) {
				return ierr.NewError("unknown referral code").
					WithHintf("Referral code %s does not exist", f.req.ReferralCode).
					Mark(ierr.ErrValidation)
			}
			return err
		}
		f.referrerID = &referrer.ID
	}

	// Hash once, before anything durable is written anywhere
	hash, err := bcrypt.GenerateFromPassword([]byte(f.req.Password), bcrypt.DefaultCost)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to hash password").
			Mark(ierr.ErrSystem)
	}
	f.passwordHash = string(hash)
	return nil
}

func (s *registrationService) createGatewayCustomer(ctx context.Context, f *flow) error {
	customer, err := s.Gateway.CreateCustomer(ctx, &gateway.CreateCustomerRequest{
		Name:          f.req.Name,
		Email:         f.req.Email,
		CpfCnpj:       f.req.Document,
		MobilePhone:   f.req.Phone,
		PostalCode:    f.req.PostalCode,
		AddressNumber: f.req.AddressNumber,
	})
	if err != nil {
		return err
	}
	f.customer = customer
	return nil
}

func (s *registrationService) createCharge(ctx context.Context, f *flow) error {
	chargeReq := &gateway.CreateChargeRequest{
		Customer:    f.customer.ID,
		BillingType: f.req.BillingType,
		Value:       f.req.Amount,
		DueDate:     time.Now().UTC().Format(gatewayDateLayout),
		Description: "Plan " + f.req.PlanID,
	}
	if f.req.BillingType == types.BillingTypeCard && f.req.Card != nil {
		chargeReq.CreditCard = &gateway.CreditCard{
			HolderName:  f.req.Card.HolderName,
			Number:      f.req.Card.Number,
			ExpiryMonth: f.req.Card.ExpiryMonth,
			ExpiryYear:  f.req.Card.ExpiryYear,
			Ccv:         f.req.Card.Ccv,
		}
		chargeReq.CreditCardHolderInfo = &gateway.CreditCardHolderInfo{
			Name:          f.req.Name,
			Email:         f.req.Email,
			CpfCnpj:       f.req.Document,
			PostalCode:    f.req.PostalCode,
			AddressNumber: f.req.AddressNumber,
			Phone:         f.req.Phone,
		}
	}

	charge, err := s.Gateway.CreateCharge(ctx, chargeReq)
	if err != nil {
		return err
	}
	f.charge = charge
	return nil
}

func (s *registrationService) provisionAccount(ctx context.Context, f *flow) error {
	acc := &account.Account{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		Name:              f.req.Name,
		Email:             f.req.Email,
		Document:          f.req.Document,
		Phone:             f.req.Phone,
		PasswordHash:      f.passwordHash,
		ReferralCode:      types.GenerateShortID(),
		ReferrerID:        f.referrerID,
		GatewayCustomerID: f.customer.ID,
		Adherent:          true,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
	if err := acc.Validate(); err != nil {
		return err
	}
	if err := s.AccountRepo.Create(ctx, acc); err != nil {
		return err
	}
	f.account = acc
	return nil
}

func (s *registrationService) setupBilling(ctx context.Context, f *flow) (*subscription.Subscription, error) {
	cycle := f.req.Cycle
	if cycle == "" {
		cycle = types.BillingCycleMonthly
	}

	gwSub, err := s.Gateway.CreateSubscription(ctx, &gateway.CreateSubscriptionRequest{
		Customer:          f.customer.ID,
		BillingType:       f.req.BillingType,
		Value:             f.req.Amount,
		NextDueDate:       nextDueDate(cycle).Format(gatewayDateLayout),
		Cycle:             cycle,
		ExternalReference: f.account.ID,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	gwSubID := gwSub.ID
	sub := &subscription.Subscription{
		AccountID:             f.account.ID,
		PlanID:                f.req.PlanID,
		SubscriptionStatus:    types.SubscriptionStatusActive,
		Amount:                f.req.Amount,
		BillingType:           f.req.BillingType,
		Cycle:                 cycle,
		GatewaySubscriptionID: &gwSubID,
		OriginChargeID:        f.charge.ID,
		GatewayCustomerID:     f.customer.ID,
		StartedAt:             &now,
		ServiceType:           f.req.ServiceType,
	}
	return s.subscriptionSvc.Create(ctx, sub)
}

// storeFallback writes the durable recovery record for the external
// sweep. Failures here are logged, never surfaced: the response already
// tells the caller the flow did not finish.
func (s *registrationService) storeFallback(ctx context.Context, f *flow, kind types.FallbackKind, reason string) {
	input, err := json.Marshal(fallbackInput{
		Name:         f.req.Name,
		Email:        f.req.Email,
		Document:     f.req.Document,
		Phone:        f.req.Phone,
		PasswordHash: f.passwordHash,
		PlanID:       f.req.PlanID,
		ServiceType:  f.req.ServiceType,
		Amount:       f.req.Amount,
		BillingType:  f.req.BillingType,
		Cycle:        f.req.Cycle,
		ReferrerID:   f.referrerID,
	})
	if err != nil {
		s.Logger.Errorw("failed to encode fallback input", "charge_id", f.charge.ID, "error", err)
		return
	}

	rec := &fallback.Record{
		ID:                         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FALLBACK),
		Kind:                       kind,
		ChargeID:                   f.charge.ID,
		GatewayCustomerID:          f.customer.ID,
		Input:                      input,
		FallbackStatus:             types.FallbackStatusPending,
		RequiresManualIntervention: kind == types.FallbackKindPendingCompletion,
		LastError:                  &reason,
		BaseModel:                  types.GetDefaultBaseModel(ctx),
	}
	if f.account != nil {
		rec.AccountID = &f.account.ID
	}

	if err := s.FallbackRepo.Create(ctx, rec); err != nil {
		if ierr.IsAlreadyExists(err) {
			s.Logger.Infow("fallback record already stored", "charge_id", f.charge.ID)
		} else {
			s.Logger.Errorw("failed to store fallback record",
				"charge_id", f.charge.ID,
				"kind", kind,
				"error", err,
			)
			return
		}
	}

	f.resp.FallbackStored = true
	s.Logger.Warnw("fallback record stored",
		"charge_id", f.charge.ID,
		"kind", kind,
		"reason", reason,
	)
}

// cancelAbandonedCharge releases a pending charge after the registration
// was aborted mid-poll. Best effort, runs on a fresh context since the
// request context is already dead.
func (s *registrationService) cancelAbandonedCharge(chargeID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Gateway.CancelCharge(ctx, chargeID); err != nil {
		s.Logger.Errorw("failed to cancel abandoned charge",
			"charge_id", chargeID,
			"error", err,
		)
	}
}

func nextDueDate(cycle types.BillingCycle) time.Time {
	now := time.Now().UTC()
	if cycle == types.BillingCycleYearly {
		return now.AddDate(1, 0, 0)
	}
	return now.AddDate(0, 1, 0)
}
