package service

import (
	"context"
	"errors"
	"log"
	"time"

	"canteen-order-api/cache"
	"canteen-order-api/gateway"
	"canteen-order-api/models"

	"gorm.io/gorm"
)

// Default reconciliation windows.
const (
	DefaultPendingTTL   = 5 * time.Minute
	DefaultPickupWindow = 24 * time.Hour
)

// Reconciler is the periodic repair job. Every sweep is a pure function of
// (storage, now): the ticking loop in Run exists only for production, and
// tests invoke the sweeps directly with a chosen clock.
type Reconciler struct {
	orders     OrderRepo
	payments   PaymentRepo
	inventory  InventoryRepo
	fulfill    *Fulfillment
	gateway    gateway.Client
	cache      cache.MenuCache
	pendingTTL time.Duration
	pickupTTL  time.Duration
}

func NewReconciler(orders OrderRepo, payments PaymentRepo, inventory InventoryRepo, fulfill *Fulfillment, gw gateway.Client, menuCache cache.MenuCache) *Reconciler {
	return &Reconciler{
		orders:     orders,
		payments:   payments,
		inventory:  inventory,
		fulfill:    fulfill,
		gateway:    gw,
		cache:      menuCache,
		pendingTTL: DefaultPendingTTL,
		pickupTTL:  DefaultPickupWindow,
	}
}

// Run drives the sweeps until the context is cancelled. sweepEvery is the
// stale-pending cadence (one minute in production); extendedEvery the
// refund sweep cadence (hourly).
func (r *Reconciler) Run(ctx context.Context, sweepEvery, extendedEvery time.Duration) {
	log.Printf("reconciliation job started (pending sweep every %s, refund sweep every %s)", sweepEvery, extendedEvery)
	pending := time.NewTicker(sweepEvery)
	extended := time.NewTicker(extendedEvery)
	defer pending.Stop()
	defer extended.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("reconciliation job stopped")
			return
		case <-pending.C:
			r.SweepPending(ctx, time.Now())
		case <-extended.C:
			r.SweepUnclaimed(ctx, time.Now())
		}
	}
}

// SweepPending expires pending orders older than the pending TTL. An
// expired order that turns out to be paid (fulfillment crashed or the
// webhook got lost) is recovered, not cancelled. Per-order failures are
// logged and skipped so one bad order never blocks the rest of the sweep.
func (r *Reconciler) SweepPending(ctx context.Context, now time.Time) {
	expired, err := r.orders.StalePending(ctx, now.Add(-r.pendingTTL))
	if err != nil {
		log.Printf("pending sweep query failed: %v", err)
		return
	}
	if len(expired) == 0 {
		return
	}
	log.Printf("pending sweep: %d candidate order(s)", len(expired))

	touched := make(map[uint]bool)
	for i := range expired {
		if err := r.expireOrder(ctx, &expired[i], touched); err != nil {
			log.Printf("pending sweep: order %s: %v", expired[i].OrderID, err)
		}
	}
	for canteenID := range touched {
		r.cache.Invalidate(cache.MenuKey(canteenID))
	}
}

func (r *Reconciler) expireOrder(ctx context.Context, order *models.Order, touched map[uint]bool) error {
	payment, err := r.payments.GetByOrderKey(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if payment != nil && payment.Status == models.PaySuccess {
		// Paid but never fulfilled. Re-run fulfillment instead of
		// cancelling the customer's paid order.
		ref := payment.GatewayPaymentID
		if ref == "" {
			ref = models.PaymentRefPlaceholder
		}
		log.Printf("order %s is paid but unfulfilled, recovering", order.OrderID)
		_, err := r.fulfill.Fulfill(ctx, payment.GatewayOrderID, ref, payment.PaymentMethod)
		return err
	}

	won, err := r.orders.CancelIfPending(ctx, order.ID)
	if err != nil {
		return err
	}
	if !won {
		// An in-flight fulfillment claimed the order between the query
		// and the conditional update; nothing to clean up.
		return nil
	}

	for _, item := range order.Items {
		if err := r.inventory.Release(ctx, item.MenuItemID, item.Quantity); err != nil {
			return err
		}
	}
	touched[order.CanteenID] = true
	log.Printf("order %s expired, inventory restored", order.OrderID)
	return nil
}

// SweepUnclaimed refunds and cancels paid orders nobody picked up within
// the pickup window. The refund goes out before the cancel transition: a
// failed refund leaves the order for the next sweep, so we can never
// cancel a paid order without returning the money.
func (r *Reconciler) SweepUnclaimed(ctx context.Context, now time.Time) {
	orders, err := r.orders.PaidUnclaimed(ctx, now.Add(-r.pickupTTL))
	if err != nil {
		log.Printf("refund sweep query failed: %v", err)
		return
	}
	if len(orders) == 0 {
		return
	}
	log.Printf("refund sweep: %d unclaimed paid order(s)", len(orders))

	for i := range orders {
		if err := r.refundUnclaimed(ctx, &orders[i]); err != nil {
			log.Printf("refund sweep: order %s: %v", orders[i].OrderID, err)
		}
	}
}

func (r *Reconciler) refundUnclaimed(ctx context.Context, order *models.Order) error {
	paymentRef := order.PaymentID
	if paymentRef == "" || paymentRef == models.PaymentRefPlaceholder {
		payment, err := r.payments.GetByOrderKey(ctx, order.ID)
		if err != nil {
			return err
		}
		paymentRef = payment.GatewayPaymentID
	}
	if paymentRef == "" || paymentRef == models.PaymentRefPlaceholder {
		return errors.New("no usable payment reference for refund")
	}

	if err := r.gateway.Refund(ctx, paymentRef, order.TotalAmount); err != nil {
		return err
	}

	won, err := r.orders.CancelIfAmong(ctx, order.ID, []models.OrderStatus{models.OrderPaid})
	if err != nil {
		return err
	}
	if !won {
		// Refund went out but the order moved (owner started preparing at
		// the last minute). Needs an operator; do not touch inventory.
		log.Printf("order %s refunded but no longer paid — manual review required", order.OrderID)
		return nil
	}

	for _, item := range order.Items {
		if err := r.inventory.Release(ctx, item.MenuItemID, item.Quantity); err != nil {
			return err
		}
	}
	r.cache.Invalidate(cache.MenuKey(order.CanteenID))
	log.Printf("order %s refunded and cancelled after pickup window", order.OrderID)
	return nil
}
