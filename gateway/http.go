package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient talks to a Razorpay-style REST API with basic auth. Amounts
// cross the wire in paise (₹1 = 100 paise).
type HTTPClient struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

func NewHTTPClient(baseURL, keyID, keySecret string) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) CreateOrder(ctx context.Context, receipt string, amount float64) (*Order, error) {
	body := map[string]interface{}{
		"amount":          toPaise(amount),
		"currency":        "INR",
		"receipt":         receipt,
		"payment_capture": 1,
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	return &order, nil
}

func (c *HTTPClient) FetchOrder(ctx context.Context, gatewayOrderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+gatewayOrderID, nil, &order); err != nil {
		return nil, fmt.Errorf("fetch gateway order %s: %w", gatewayOrderID, err)
	}
	return &order, nil
}

func (c *HTTPClient) FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error) {
	var details PaymentDetails
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &details); err != nil {
		return nil, fmt.Errorf("fetch gateway payment %s: %w", paymentID, err)
	}
	return &details, nil
}

func (c *HTTPClient) Refund(ctx context.Context, paymentID string, amount float64) error {
	body := map[string]interface{}{
		"amount": toPaise(amount),
		"speed":  "normal",
	}
	if err := c.do(ctx, http.MethodPost, "/v1/payments/"+paymentID+"/refund", body, nil); err != nil {
		return fmt.Errorf("refund gateway payment %s: %w", paymentID, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toPaise(amount float64) int64 {
	return int64(amount*100 + 0.5)
}
