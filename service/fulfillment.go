package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"canteen-order-api/cache"
	"canteen-order-api/gateway"
	"canteen-order-api/models"

	"gorm.io/gorm"
)

var (
	// ErrPaymentNotFound means neither a payment record nor a matching
	// order could be located for a gateway reference. This is a
	// reconciliation gap needing an operator, never silently dropped.
	ErrPaymentNotFound = errors.New("no payment record or matching order for gateway reference")
	// ErrPaymentConflict flags a success notification for a payment
	// already recorded as failed. Overwriting a recorded failure without
	// gateway reconciliation risks a double refund, so it goes to manual
	// review instead.
	ErrPaymentConflict = errors.New("success notification for payment already recorded as failed")
	// ErrOrderMissing means a payment record points at an order that does
	// not exist: data corruption, surfaced rather than retried.
	ErrOrderMissing = errors.New("order referenced by payment record does not exist")

	ErrAlreadyPaid    = errors.New("order is already paid")
	ErrOrderCancelled = errors.New("cannot pay for a cancelled order")
)

// Fulfillment is the idempotent entry point that turns a successful
// gateway payment into a paid order. It is invoked by the verify-payment
// call, the webhook, and the reconciliation job; any of those may race or
// repeat, and each run re-derives everything from storage.
type Fulfillment struct {
	orders   OrderRepo
	payments PaymentRepo
	gateway  gateway.Client
	tokens   TokenIssuer
	cache    cache.MenuCache
}

func NewFulfillment(orders OrderRepo, payments PaymentRepo, gw gateway.Client, tokens TokenIssuer, menuCache cache.MenuCache) *Fulfillment {
	return &Fulfillment{
		orders:   orders,
		payments: payments,
		gateway:  gw,
		tokens:   tokens,
		cache:    menuCache,
	}
}

// Fulfill transitions the payment record initiated→success and the order
// pending→paid, exactly once per payment no matter how many callers race
// or retry. The conditional update on the payment record is the lock:
// exactly one caller wins it, everyone else resolves against the stored
// outcome.
func (s *Fulfillment) Fulfill(ctx context.Context, gatewayOrderRef, gatewayPaymentRef, method string) (*models.Order, error) {
	payment, won, err := s.payments.MarkSuccessIfInitiated(ctx, gatewayOrderRef, gatewayPaymentRef, method)
	if err != nil {
		return nil, err
	}
	if !won {
		payment, err = s.resolveMissedLock(ctx, gatewayOrderRef, gatewayPaymentRef, method)
		if err != nil {
			return nil, err
		}
	}

	order, err := s.orders.GetByKey(ctx, payment.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: payment %d (gateway ref %s)", ErrOrderMissing, payment.ID, gatewayOrderRef)
	}
	if err != nil {
		return nil, err
	}

	// Idempotence guard: a duplicate notification for an order that has
	// already progressed past "paid" is a harmless replay. Orders still
	// pending or cancelled (by the cleanup sweep) get fulfilled anyway —
	// the customer paid.
	if order.PaymentStatus == models.PaymentSuccess &&
		order.Status != models.OrderPending && order.Status != models.OrderCancelled {
		log.Printf("order %s already fulfilled (status %s), skipping", order.OrderID, order.Status)
		return order, nil
	}

	order.PaymentStatus = models.PaymentSuccess
	order.Status = models.OrderPaid
	if gatewayPaymentRef != "" && gatewayPaymentRef != models.PaymentRefPlaceholder {
		order.PaymentID = gatewayPaymentRef
	} else if order.PaymentID == "" || order.PaymentID == models.PaymentRefPlaceholder {
		order.PaymentID = payment.GatewayPaymentID
	}

	if order.PickupToken == "" {
		token, err := s.tokens.Issue(order.OrderID)
		if err != nil {
			// The customer paid; a missing pickup token is recoverable,
			// an unpaid-looking paid order is not.
			log.Printf("pickup token generation failed for %s: %v", order.OrderID, err)
		} else {
			order.PickupToken = token
		}
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.MenuKey(order.CanteenID))
	log.Printf("order %s fulfilled (payment %s)", order.OrderID, gatewayOrderRef)
	return order, nil
}

// resolveMissedLock interprets a failed initiated→success transition.
// Either the record is already settled, or it does not exist yet because
// the webhook outran payment initiation.
func (s *Fulfillment) resolveMissedLock(ctx context.Context, gatewayOrderRef, gatewayPaymentRef, method string) (*models.Payment, error) {
	payment, err := s.payments.GetByGatewayRef(ctx, gatewayOrderRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.recoverEarlyWebhook(ctx, gatewayOrderRef, gatewayPaymentRef, method)
	}
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case models.PayFailed:
		return nil, fmt.Errorf("%w: %s", ErrPaymentConflict, gatewayOrderRef)
	case models.PaySuccess:
		log.Printf("payment %s already processed, replaying idempotently", gatewayOrderRef)
		// A payment.captured following an order.paid carries the real
		// payment reference; upgrade the placeholder.
		if payment.GatewayPaymentID == models.PaymentRefPlaceholder &&
			gatewayPaymentRef != "" && gatewayPaymentRef != models.PaymentRefPlaceholder {
			payment.GatewayPaymentID = gatewayPaymentRef
			payment.PaymentMethod = method
			if err := s.payments.Save(ctx, payment); err != nil {
				return nil, err
			}
		}
		return payment, nil
	default:
		// Still initiated: the CAS must have raced a re-initiation.
		// Retry the transition once; if it misses again the concurrent
		// caller won and the record is settled.
		retried, won, err := s.payments.MarkSuccessIfInitiated(ctx, gatewayOrderRef, gatewayPaymentRef, method)
		if err != nil {
			return nil, err
		}
		if won {
			return retried, nil
		}
		return s.payments.GetByGatewayRef(ctx, gatewayOrderRef)
	}
}

// recoverEarlyWebhook handles the webhook-before-initiation race: the
// gateway echoes back our human order id as the checkout receipt, so we
// can find the order and synthesize the payment record the initiation
// flow never got to write.
func (s *Fulfillment) recoverEarlyWebhook(ctx context.Context, gatewayOrderRef, gatewayPaymentRef, method string) (*models.Payment, error) {
	log.Printf("no payment record for %s, querying gateway for receipt", gatewayOrderRef)
	gwOrder, err := s.gateway.FetchOrder(ctx, gatewayOrderRef)
	if err != nil {
		return nil, fmt.Errorf("%w: gateway lookup failed: %v", ErrPaymentNotFound, err)
	}
	if gwOrder.Receipt == "" {
		return nil, fmt.Errorf("%w: gateway order %s carries no receipt", ErrPaymentNotFound, gatewayOrderRef)
	}

	order, err := s.orders.GetByOrderID(ctx, gwOrder.Receipt)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no order matches receipt %q", ErrPaymentNotFound, gwOrder.Receipt)
	}
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		OrderID:          order.ID,
		GatewayOrderID:   gatewayOrderRef,
		GatewayPaymentID: gatewayPaymentRef,
		Amount:           order.TotalAmount,
		Status:           models.PaySuccess,
		PaymentMethod:    method,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		// Unique index collision: a concurrent caller synthesized or
		// initiated the same record first. Their copy is authoritative.
		existing, lookupErr := s.payments.GetByGatewayRef(ctx, gatewayOrderRef)
		if lookupErr != nil {
			return nil, err
		}
		return existing, nil
	}
	log.Printf("synthesized payment record for order %s from webhook data", order.OrderID)
	return payment, nil
}

// RecordFailure notes a payment.failed notification. Both the payment
// record and the order only move to failed from their pending states; a
// success that landed first is never overwritten.
func (s *Fulfillment) RecordFailure(ctx context.Context, gatewayOrderRef string) error {
	payment, err := s.payments.GetByGatewayRef(ctx, gatewayOrderRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("failure notification for unknown payment %s, ignoring", gatewayOrderRef)
		return nil
	}
	if err != nil {
		return err
	}

	won, err := s.payments.MarkFailedIfInitiated(ctx, gatewayOrderRef)
	if err != nil {
		return err
	}
	if !won {
		log.Printf("payment %s already settled, ignoring failure notification", gatewayOrderRef)
		return nil
	}

	if _, err := s.orders.MarkPaymentFailedIfPending(ctx, payment.OrderID); err != nil {
		return err
	}
	log.Printf("payment %s recorded as failed", gatewayOrderRef)
	return nil
}
