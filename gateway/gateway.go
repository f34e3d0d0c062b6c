// Package gateway is the boundary to the external payment provider. The
// core only depends on the Client interface; the wire client lives in
// http.go and tests substitute fakes.
package gateway

import "context"

// Order is the gateway's view of a checkout session. Receipt echoes back
// the caller-supplied human order id, which is what the fulfillment
// recovery path uses to relocate the internal order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units (paise)
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// PaymentDetails describes a single captured/failed payment at the gateway.
type PaymentDetails struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Method  string `json:"method"`
}

type Client interface {
	// CreateOrder opens a checkout session for the given amount (major
	// units), tagging it with the human order id as receipt.
	CreateOrder(ctx context.Context, receipt string, amount float64) (*Order, error)
	// FetchOrder retrieves a checkout session, receipt included.
	FetchOrder(ctx context.Context, gatewayOrderID string) (*Order, error)
	// FetchPayment retrieves a payment's status and method.
	FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error)
	// Refund returns amount (major units) to the payer.
	Refund(ctx context.Context, paymentID string, amount float64) error
}
