package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	gocache "github.com/patrickmn/go-cache"
	"github.com/vendaflow/vendaflow/internal/config"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/httpclient"
	"github.com/vendaflow/vendaflow/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is the thin adapter over the external payment gateway API
type Client interface {
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*Customer, error)
	CreateCharge(ctx context.Context, req *CreateChargeRequest) (*Charge, error)
	GetChargeStatus(ctx context.Context, chargeID string) (*Charge, error)
	CancelCharge(ctx context.Context, chargeID string) error
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*Subscription, error)
}

type apiClient struct {
	cfg    *config.Configuration
	client httpclient.Client
	logger *logger.Logger
	// customers keyed by document, avoids duplicate create-customer calls
	// when a registration is retried shortly after a failure
	customerCache *gocache.Cache
}

// NewClient creates a new gateway API client
func NewClient(cfg *config.Configuration, client httpclient.Client, logger *logger.Logger) Client {
	ttl := cfg.Gateway.CustomerCacheTTL
	return &apiClient{
		cfg:           cfg,
		client:        client,
		logger:        logger,
		customerCache: gocache.New(ttl, 2*ttl),
	}
}

func (c *apiClient) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*Customer, error) {
	if cached, found := c.customerCache.Get(req.CpfCnpj); found {
		if customer, ok := cached.(*Customer); ok {
			c.logger.Debugw("gateway customer cache hit", "document", req.CpfCnpj, "customer_id", customer.ID)
			return customer, nil
		}
	}

	var customer Customer
	if err := c.post(ctx, "/customers", req, &customer); err != nil {
		return nil, err
	}

	c.customerCache.SetDefault(req.CpfCnpj, &customer)
	return &customer, nil
}

func (c *apiClient) CreateCharge(ctx context.Context, req *CreateChargeRequest) (*Charge, error) {
	var charge Charge
	if err := c.post(ctx, "/payments", req, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (c *apiClient) GetChargeStatus(ctx context.Context, chargeID string) (*Charge, error) {
	var charge Charge
	if err := c.get(ctx, "/payments/"+chargeID, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (c *apiClient) CancelCharge(ctx context.Context, chargeID string) error {
	return c.send(ctx, &httpclient.Request{
		Method:  http.MethodDelete,
		URL:     c.cfg.Gateway.BaseURL + "/payments/" + chargeID,
		Headers: c.headers(),
	}, nil)
}

func (c *apiClient) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*Subscription, error) {
	var subscription Subscription
	if err := c.post(ctx, "/subscriptions", req, &subscription); err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (c *apiClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode gateway request").
			Mark(ierr.ErrSystem)
	}
	return c.send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     c.cfg.Gateway.BaseURL + path,
		Headers: c.headers(),
		Body:    payload,
	}, out)
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	return c.send(ctx, &httpclient.Request{
		Method:  http.MethodGet,
		URL:     c.cfg.Gateway.BaseURL + path,
		Headers: c.headers(),
	}, out)
}

func (c *apiClient) send(ctx context.Context, req *httpclient.Request, out any) error {
	resp, err := c.client.Send(ctx, req)
	if err != nil {
		if httpErr, ok := httpclient.IsHTTPError(err); ok {
			return mapAPIError(httpErr)
		}
		return ierr.WithError(err).
			WithHint("Payment gateway is unreachable").
			Mark(ierr.ErrGateway)
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return ierr.WithError(err).
				WithHint("Payment gateway returned an unexpected response").
				Mark(ierr.ErrGateway)
		}
	}
	return nil
}

func (c *apiClient) headers() map[string]string {
	return map[string]string{
		"access_token": c.cfg.Gateway.APIKey,
	}
}

// mapAPIError flattens the gateway's error body into a single
// human-readable message per call
func mapAPIError(httpErr *httpclient.Error) error {
	var body apiErrorResponse
	if err := json.Unmarshal(httpErr.Response, &body); err == nil && len(body.Errors) > 0 {
		descriptions := make([]string, 0, len(body.Errors))
		for _, e := range body.Errors {
			descriptions = append(descriptions, e.Description)
		}
		return ierr.NewError(fmt.Sprintf("gateway returned %d", httpErr.StatusCode)).
			WithHint(strings.Join(descriptions, "; ")).
			WithReportableDetails(map[string]any{
				"status_code": httpErr.StatusCode,
			}).
			Mark(ierr.ErrGateway)
	}

	return ierr.WithError(httpErr).
		WithHintf("Payment gateway request failed with status %d", httpErr.StatusCode).
		Mark(ierr.ErrGateway)
}
