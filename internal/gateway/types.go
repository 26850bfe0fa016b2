package gateway

import (
	"github.com/shopspring/decimal"
	"github.com/vendaflow/vendaflow/internal/types"
)

// Wire types for the external payment gateway REST API. Field names
// follow the gateway's JSON shape, conversion from local names happens
// in the client.

// CreateCustomerRequest creates a customer at the gateway
type CreateCustomerRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	CpfCnpj           string `json:"cpfCnpj"`
	MobilePhone       string `json:"mobilePhone,omitempty"`
	PostalCode        string `json:"postalCode,omitempty"`
	AddressNumber     string `json:"addressNumber,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
}

// Customer is the gateway's customer representation
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	CpfCnpj string `json:"cpfCnpj"`
}

// CreditCard carries raw card data for card charges
type CreditCard struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	Ccv         string `json:"ccv"`
}

// CreditCardHolderInfo is the holder data the gateway requires alongside
// raw card details
type CreditCardHolderInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	CpfCnpj       string `json:"cpfCnpj"`
	PostalCode    string `json:"postalCode,omitempty"`
	AddressNumber string `json:"addressNumber,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// CreateChargeRequest creates a single charge
type CreateChargeRequest struct {
	Customer             string                `json:"customer"`
	BillingType          types.BillingType     `json:"billingType"`
	Value                decimal.Decimal       `json:"value"`
	DueDate              string                `json:"dueDate"`
	Description          string                `json:"description,omitempty"`
	ExternalReference    string                `json:"externalReference,omitempty"`
	CreditCard           *CreditCard           `json:"creditCard,omitempty"`
	CreditCardHolderInfo *CreditCardHolderInfo `json:"creditCardHolderInfo,omitempty"`
}

// Charge is the gateway's charge representation
type Charge struct {
	ID          string             `json:"id"`
	Customer    string             `json:"customer"`
	Status      types.ChargeStatus `json:"status"`
	Value       decimal.Decimal    `json:"value"`
	BillingType types.BillingType  `json:"billingType"`
	DueDate     string             `json:"dueDate"`
	InvoiceURL  string             `json:"invoiceUrl,omitempty"`
	// Populated for PIX charges
	PixQrCode string `json:"pixQrCode,omitempty"`
}

// CreateSubscriptionRequest creates a recurring charge schedule
type CreateSubscriptionRequest struct {
	Customer          string             `json:"customer"`
	BillingType       types.BillingType  `json:"billingType"`
	Value             decimal.Decimal    `json:"value"`
	NextDueDate       string             `json:"nextDueDate"`
	Cycle             types.BillingCycle `json:"cycle"`
	Description       string             `json:"description,omitempty"`
	ExternalReference string             `json:"externalReference,omitempty"`
}

// Subscription is the gateway's subscription representation
type Subscription struct {
	ID          string            `json:"id"`
	Customer    string            `json:"customer"`
	Status      string            `json:"status"`
	Value       decimal.Decimal   `json:"value"`
	NextDueDate string            `json:"nextDueDate"`
	BillingType types.BillingType `json:"billingType"`
}

// apiError is one entry of the gateway's error body
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// apiErrorResponse is the gateway's error body shape
type apiErrorResponse struct {
	Errors []apiError `json:"errors"`
}
