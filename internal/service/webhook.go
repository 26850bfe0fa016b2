package service

import (
	"context"
	"crypto/subtle"

	jsoniter "github.com/json-iterator/go"
	"github.com/vendaflow/vendaflow/internal/api/dto"
	"github.com/vendaflow/vendaflow/internal/domain/webhookevent"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/idempotency"
	"github.com/vendaflow/vendaflow/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WebhookService is the reconciliation path for gateway events. Every
// authenticated, well-formed delivery is stored and acknowledged exactly
// once; handler failures are recorded on the stored row and retried on
// redelivery, never surfaced to the gateway as an error status.
type WebhookService interface {
	// ProcessEvent authenticates, stores and dispatches one delivery
	ProcessEvent(ctx context.Context, payload []byte, token string) (*dto.WebhookResponse, error)

	// ReprocessEvent re-runs the handler for a stored unprocessed event,
	// used by the external sweep
	ReprocessEvent(ctx context.Context, eventID string) error
}

type webhookService struct {
	ServiceParams
	subscriptionSvc SubscriptionService
	commissionSvc   CommissionService
}

// NewWebhookService creates a new webhook service
func NewWebhookService(params ServiceParams, subscriptionSvc SubscriptionService, commissionSvc CommissionService) WebhookService {
	return &webhookService{
		ServiceParams:   params,
		subscriptionSvc: subscriptionSvc,
		commissionSvc:   commissionSvc,
	}
}

func (s *webhookService) ProcessEvent(ctx context.Context, payload []byte, token string) (*dto.WebhookResponse, error) {
	if err := s.authenticate(token); err != nil {
		return nil, err
	}

	var req dto.WebhookRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook payload is not valid JSON").
			Mark(ierr.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	eventID := s.eventID(&req)
	event := &webhookevent.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventID:   eventID,
		EventType: req.Event,
		Payload:   payload,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}

	if err := s.WebhookEventRepo.Create(ctx, event); err != nil {
		if !ierr.IsAlreadyExists(err) {
			return nil, err
		}
		stored, getErr := s.WebhookEventRepo.GetByEventID(ctx, eventID)
		if getErr != nil {
			return nil, getErr
		}
		if stored.Processed {
			s.Logger.Infow("duplicate webhook delivery ignored",
				"event_id", eventID,
				"event_type", req.Event,
			)
			return &dto.WebhookResponse{
				Success: true,
				Message: "event already processed",
				EventID: eventID,
			}, nil
		}
		// Redelivery of a stored-but-unprocessed event, run the handler again
		event = stored
	}

	return s.dispatch(ctx, event, &req), nil
}

func (s *webhookService) ReprocessEvent(ctx context.Context, eventID string) error {
	event, err := s.WebhookEventRepo.GetByEventID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.Processed {
		return nil
	}

	var req dto.WebhookRequest
	if err := json.Unmarshal(event.Payload, &req); err != nil {
		return ierr.WithError(err).
			WithHintf("Stored payload for event %s is not valid JSON", eventID).
			Mark(ierr.ErrSystem)
	}

	resp := s.dispatch(ctx, event, &req)
	if !resp.Success {
		return ierr.NewError("event handler failed").
			WithHint(resp.Message).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

// dispatch runs the handler for the event type and records the outcome on
// the stored row. The returned response always acknowledges the delivery.
func (s *webhookService) dispatch(ctx context.Context, event *webhookevent.WebhookEvent, req *dto.WebhookRequest) *dto.WebhookResponse {
	err := s.handle(ctx, req)
	if err != nil {
		event.RecordFailure(err)
		if updErr := s.WebhookEventRepo.Update(ctx, event); updErr != nil {
			s.Logger.Errorw("failed to record webhook handler failure",
				"event_id", event.EventID,
				"error", updErr,
			)
		}
		s.Logger.Errorw("webhook handler failed",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"retry_count", event.RetryCount,
			"error", err,
		)
		return &dto.WebhookResponse{
			Success: false,
			Message: "event stored, processing failed",
			EventID: event.EventID,
		}
	}

	event.MarkProcessed()
	if updErr := s.WebhookEventRepo.Update(ctx, event); updErr != nil {
		s.Logger.Errorw("failed to mark webhook event processed",
			"event_id", event.EventID,
			"error", updErr,
		)
	}

	s.Logger.Infow("webhook event processed",
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return &dto.WebhookResponse{
		Success: true,
		Message: "event processed",
		EventID: event.EventID,
	}
}

func (s *webhookService) handle(ctx context.Context, req *dto.WebhookRequest) error {
	switch req.Event {
	case types.WebhookEventPaymentConfirmed, types.WebhookEventPaymentReceived:
		return s.handlePaymentPaid(ctx, req)
	case types.WebhookEventPaymentOverdue:
		return s.handlePaymentTransition(ctx, req, s.subscriptionSvc.MarkOverdue)
	case types.WebhookEventPaymentDeleted, types.WebhookEventPaymentRefunded:
		return s.handlePaymentTransition(ctx, req, s.subscriptionSvc.Cancel)
	case types.WebhookEventSubscriptionSync:
		return s.handleSubscriptionSync(ctx, req)
	case types.WebhookEventTransferDone, types.WebhookEventTransferFailed, types.WebhookEventTransferCancelled:
		return s.handleTransfer(ctx, req)
	default:
		// Unknown event types are stored and acknowledged with no handler
		s.Logger.Infow("webhook event type has no handler",
			"event_type", req.Event,
		)
		return nil
	}
}

func (s *webhookService) handlePaymentPaid(ctx context.Context, req *dto.WebhookRequest) error {
	if req.Payment == nil {
		return ierr.NewError("missing payment object").
			WithHint("Payment events must carry a payment object").
			Mark(ierr.ErrValidation)
	}

	err := s.subscriptionSvc.ActivateForCharge(ctx, &PaidCharge{
		ChargeID:              req.Payment.ID,
		GatewaySubscriptionID: req.Payment.Subscription,
	})
	if err != nil {
		if ierr.IsNotFound(err) {
			// Charge is not ours (or the registration flow has not written
			// its subscription yet and the fallback sweep will catch up)
			s.Logger.Infow("paid charge has no matching subscription",
				"charge_id", req.Payment.ID,
			)
			return nil
		}
		return err
	}
	return nil
}

func (s *webhookService) handlePaymentTransition(ctx context.Context, req *dto.WebhookRequest, transition func(ctx context.Context, chargeID, gatewaySubscriptionID string) error) error {
	if req.Payment == nil {
		return ierr.NewError("missing payment object").
			WithHint("Payment events must carry a payment object").
			Mark(ierr.ErrValidation)
	}

	err := transition(ctx, req.Payment.ID, req.Payment.Subscription)
	if err != nil && ierr.IsNotFound(err) {
		s.Logger.Infow("payment event has no matching subscription",
			"charge_id", req.Payment.ID,
			"event_type", req.Event,
		)
		return nil
	}
	return err
}

func (s *webhookService) handleSubscriptionSync(ctx context.Context, req *dto.WebhookRequest) error {
	if req.Subscription == nil {
		return ierr.NewError("missing subscription object").
			WithHint("Subscription events must carry a subscription object").
			Mark(ierr.ErrValidation)
	}

	err := s.subscriptionSvc.SyncFromGateway(ctx, req.Subscription.ToGateway())
	if err != nil && ierr.IsNotFound(err) {
		s.Logger.Infow("subscription event has no matching subscription",
			"gateway_subscription_id", req.Subscription.ID,
		)
		return nil
	}
	return err
}

func (s *webhookService) handleTransfer(ctx context.Context, req *dto.WebhookRequest) error {
	if req.Transfer == nil {
		return ierr.NewError("missing transfer object").
			WithHint("Transfer events must carry a transfer object").
			Mark(ierr.ErrValidation)
	}
	return s.commissionSvc.ApplyTransferStatus(ctx, req.Transfer.ID, req.Event)
}

// authenticate compares the shared-secret token in constant time
func (s *webhookService) authenticate(token string) error {
	expected := s.Config.Webhook.AccessToken
	if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return ierr.NewError("invalid webhook token").
			WithHint("Webhook access token is missing or invalid").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}

// eventID returns the delivery's idempotency key: the gateway-assigned
// event id when present, otherwise a deterministic composite of the
// event's identifying fields
func (s *webhookService) eventID(req *dto.WebhookRequest) string {
	if req.ID != "" {
		return req.ID
	}

	params := map[string]interface{}{
		"event": string(req.Event),
		"date":  req.DateCreated,
	}
	if req.Payment != nil {
		params["payment"] = req.Payment.ID
		params["status"] = string(req.Payment.Status)
	}
	if req.Subscription != nil {
		params["subscription"] = req.Subscription.ID
	}
	if req.Transfer != nil {
		params["transfer"] = req.Transfer.ID
	}
	return s.IdempotencyGen.GenerateKey(idempotency.ScopeWebhookEvent, params)
}
