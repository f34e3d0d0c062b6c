// Package service contains the order fulfillment and inventory
// reconciliation core. Services hold no state of their own: every
// operation re-derives state from storage, and all mutual exclusion lives
// in the stores' conditional updates, so the logic is correct across
// processes, not just goroutines.
package service

import (
	"context"
	"time"

	"canteen-order-api/models"
)

// Repository interfaces are declared on the consumer side so tests can
// substitute in-memory fakes. The gorm implementations in the store
// package satisfy them; absence is reported as gorm.ErrRecordNotFound.

type InventoryRepo interface {
	Reserve(ctx context.Context, canteenID, itemID uint, qty int) (*models.MenuItem, error)
	Release(ctx context.Context, itemID uint, qty int) error
}

type OrderRepo interface {
	Create(ctx context.Context, order *models.Order) error
	GetByKey(ctx context.Context, id uint) (*models.Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	Find(ctx context.Context, ref string) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	CancelIfPending(ctx context.Context, id uint) (bool, error)
	CancelIfAmong(ctx context.Context, id uint, from []models.OrderStatus) (bool, error)
	MarkPaymentFailedIfPending(ctx context.Context, id uint) (bool, error)
	StalePending(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	PaidUnclaimed(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type PaymentRepo interface {
	Create(ctx context.Context, payment *models.Payment) error
	Save(ctx context.Context, payment *models.Payment) error
	GetByGatewayRef(ctx context.Context, gatewayOrderID string) (*models.Payment, error)
	GetByOrderKey(ctx context.Context, orderKey uint) (*models.Payment, error)
	MarkSuccessIfInitiated(ctx context.Context, gatewayOrderID, gatewayPaymentID, method string) (*models.Payment, bool, error)
	MarkFailedIfInitiated(ctx context.Context, gatewayOrderID string) (bool, error)
}

type CanteenRepo interface {
	Get(ctx context.Context, id uint) (*models.Canteen, error)
}

// TokenIssuer produces the signed pickup token attached to paid orders.
type TokenIssuer interface {
	Issue(orderID string) (string, error)
}
