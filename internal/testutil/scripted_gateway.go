package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/gateway"
	"github.com/vendaflow/vendaflow/internal/types"
)

// ScriptedGateway implements gateway.Client for tests. Charge status
// polls walk a scripted per-charge sequence, sticking at the last entry
// once the script runs out. Error fields inject failures per operation.
type ScriptedGateway struct {
	mu sync.Mutex

	sequences map[string][]types.ChargeStatus
	cursor    map[string]int

	customerSeq     int
	chargeSeq       int
	subscriptionSeq int

	// Call counters
	CustomerCalls     int
	ChargeCalls       int
	StatusCalls       map[string]int
	SubscriptionCalls int
	CancelledCharges  []string

	// Error injection
	CreateCustomerErr     error
	CreateChargeErr       error
	CreateSubscriptionErr error
	// GetChargeStatusErrs are consumed one per poll before the script resumes
	GetChargeStatusErrs []error
}

// NewScriptedGateway creates a new scripted gateway client
func NewScriptedGateway() *ScriptedGateway {
	return &ScriptedGateway{
		sequences:   make(map[string][]types.ChargeStatus),
		cursor:      make(map[string]int),
		StatusCalls: make(map[string]int),
	}
}

// ScriptStatuses sets the status sequence polls will observe for a charge
func (g *ScriptedGateway) ScriptStatuses(chargeID string, statuses ...types.ChargeStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sequences[chargeID] = statuses
	g.cursor[chargeID] = 0
}

// NextChargeID returns the id the next created charge will get
func (g *ScriptedGateway) NextChargeID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("ch_%03d", g.chargeSeq+1)
}

func (g *ScriptedGateway) CreateCustomer(ctx context.Context, req *gateway.CreateCustomerRequest) (*gateway.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.CustomerCalls++
	if g.CreateCustomerErr != nil {
		return nil, g.CreateCustomerErr
	}

	g.customerSeq++
	return &gateway.Customer{
		ID:      fmt.Sprintf("cus_%03d", g.customerSeq),
		Name:    req.Name,
		Email:   req.Email,
		CpfCnpj: req.CpfCnpj,
	}, nil
}

func (g *ScriptedGateway) CreateCharge(ctx context.Context, req *gateway.CreateChargeRequest) (*gateway.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ChargeCalls++
	if g.CreateChargeErr != nil {
		return nil, g.CreateChargeErr
	}

	g.chargeSeq++
	return &gateway.Charge{
		ID:          fmt.Sprintf("ch_%03d", g.chargeSeq),
		Customer:    req.Customer,
		Status:      types.ChargeStatusPending,
		Value:       req.Value,
		BillingType: req.BillingType,
		DueDate:     req.DueDate,
		InvoiceURL:  "https://gateway.test/invoice",
	}, nil
}

func (g *ScriptedGateway) GetChargeStatus(ctx context.Context, chargeID string) (*gateway.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.StatusCalls[chargeID]++

	if len(g.GetChargeStatusErrs) > 0 {
		err := g.GetChargeStatusErrs[0]
		g.GetChargeStatusErrs = g.GetChargeStatusErrs[1:]
		return nil, err
	}

	seq, ok := g.sequences[chargeID]
	if !ok || len(seq) == 0 {
		return nil, ierr.NewError("unknown charge").
			WithHintf("Charge %s does not exist", chargeID).
			Mark(ierr.ErrNotFound)
	}

	idx := g.cursor[chargeID]
	if idx >= len(seq) {
		idx = len(seq) - 1
	} else {
		g.cursor[chargeID]++
	}

	return &gateway.Charge{
		ID:     chargeID,
		Status: seq[idx],
	}, nil
}

func (g *ScriptedGateway) CancelCharge(ctx context.Context, chargeID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.CancelledCharges = append(g.CancelledCharges, chargeID)
	return nil
}

func (g *ScriptedGateway) CreateSubscription(ctx context.Context, req *gateway.CreateSubscriptionRequest) (*gateway.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.SubscriptionCalls++
	if g.CreateSubscriptionErr != nil {
		return nil, g.CreateSubscriptionErr
	}

	g.subscriptionSeq++
	return &gateway.Subscription{
		ID:          fmt.Sprintf("gwsub_%03d", g.subscriptionSeq),
		Customer:    req.Customer,
		Status:      "ACTIVE",
		Value:       req.Value,
		NextDueDate: req.NextDueDate,
		BillingType: req.BillingType,
	}, nil
}
