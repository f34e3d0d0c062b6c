package service

import (
	"context"
	"errors"
	"log"

	"canteen-order-api/models"

	"gorm.io/gorm"
)

// InitiationResult is what the frontend needs to open the gateway's
// checkout. Amount is in minor units, as the gateway quotes it.
type InitiationResult struct {
	GatewayOrderRef string  `json:"gateway_order_ref"`
	Amount          int64   `json:"amount"`
	Currency        string  `json:"currency"`
	OrderID         string  `json:"order_id"`
	TotalAmount     float64 `json:"total_amount"`
}

// Initiate opens (or re-opens) a checkout session for an order and writes
// the `initiated` payment record that later acts as the fulfillment lock.
// Re-initiating after a failed attempt creates a fresh gateway order;
// re-initiating while a session is live returns the existing reference.
// A success already on record is never rearmed: the order is repaired and
// the caller told it is paid.
func (s *Fulfillment) Initiate(ctx context.Context, userID uint, orderRef string) (*InitiationResult, error) {
	order, err := s.orders.Find(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}
	if order.PaymentStatus == models.PaymentSuccess {
		return nil, ErrAlreadyPaid
	}
	if order.Status == models.OrderCancelled {
		return nil, ErrOrderCancelled
	}

	payment, err := s.payments.GetByOrderKey(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if payment != nil {
		switch payment.Status {
		case models.PayInitiated:
			// Checkout session already open; hand back the same reference
			// so a double-click cannot produce two live sessions.
			return &InitiationResult{
				GatewayOrderRef: payment.GatewayOrderID,
				Amount:          int64(payment.Amount*100 + 0.5),
				Currency:        "INR",
				OrderID:         order.OrderID,
				TotalAmount:     payment.Amount,
			}, nil
		case models.PaySuccess:
			// The payment already went through but the order never got
			// marked paid (crash between the payment transition and the
			// order save). Rearming here would erase the success record
			// and with it the money trail; repair the order instead.
			ref := payment.GatewayPaymentID
			if ref == "" {
				ref = models.PaymentRefPlaceholder
			}
			log.Printf("order %s has a successful payment on record, repairing instead of re-initiating", order.OrderID)
			if _, err := s.Fulfill(ctx, payment.GatewayOrderID, ref, payment.PaymentMethod); err != nil {
				return nil, err
			}
			return nil, ErrAlreadyPaid
		}
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, order.OrderID, order.TotalAmount)
	if err != nil {
		return nil, err
	}

	if payment != nil {
		// The previous attempt failed; rearm the record with the new session.
		payment.GatewayOrderID = gwOrder.ID
		payment.GatewayPaymentID = ""
		payment.PaymentMethod = ""
		payment.Status = models.PayInitiated
		if err := s.payments.Save(ctx, payment); err != nil {
			return nil, err
		}
	} else {
		payment = &models.Payment{
			OrderID:        order.ID,
			GatewayOrderID: gwOrder.ID,
			Amount:         order.TotalAmount,
			Status:         models.PayInitiated,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return nil, err
		}
	}

	log.Printf("payment initiated for order %s (gateway ref %s)", order.OrderID, gwOrder.ID)
	return &InitiationResult{
		GatewayOrderRef: gwOrder.ID,
		Amount:          gwOrder.Amount,
		Currency:        gwOrder.Currency,
		OrderID:         order.OrderID,
		TotalAmount:     order.TotalAmount,
	}, nil
}
