package store

import (
	"context"
	"strconv"
	"time"

	"canteen-order-api/models"

	"gorm.io/gorm"
)

// OrderStore is the gorm repository for order aggregates. The conditional
// transition methods return whether this caller won the update; a false
// result means a concurrent writer got there first and losers must skip
// their follow-up work.
type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

// GetByKey loads an order by its storage key, items included.
func (s *OrderStore) GetByKey(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByOrderID loads an order by its human-readable identifier.
func (s *OrderStore) GetByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("order_id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Find resolves either a numeric storage key or a human order id.
func (s *OrderStore) Find(ctx context.Context, ref string) (*models.Order, error) {
	if key, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return s.GetByKey(ctx, uint(key))
	}
	return s.GetByOrderID(ctx, ref)
}

// Save persists the order's own fields. Items are immutable after creation
// and are not touched.
func (s *OrderStore) Save(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Omit("Items", "Canteen").Save(order).Error
}

// CancelIfPending atomically moves pending → cancelled and records the
// payment as failed. Exactly one of a concurrent fulfillment and the
// reconciliation job can win this row.
func (s *OrderStore) CancelIfPending(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderPending).
		Updates(map[string]interface{}{
			"status":         models.OrderCancelled,
			"payment_status": models.PaymentFailed,
		})
	return res.RowsAffected > 0, res.Error
}

// CancelIfAmong atomically cancels the order if its status is one of the
// given states. Payment status is left alone.
func (s *OrderStore) CancelIfAmong(ctx context.Context, id uint, from []models.OrderStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", models.OrderCancelled)
	return res.RowsAffected > 0, res.Error
}

// MarkPaymentFailedIfPending downgrades the order's payment status only
// from pending, so a recorded success can never regress.
func (s *OrderStore) MarkPaymentFailedIfPending(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, models.PaymentPending).
		Update("payment_status", models.PaymentFailed)
	return res.RowsAffected > 0, res.Error
}

// StalePending returns pending orders created before the cutoff, items
// included so the sweep can restore inventory.
func (s *OrderStore) StalePending(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("status = ? AND created_at < ?", models.OrderPending, cutoff).
		Find(&orders).Error
	return orders, err
}

// PaidUnclaimed returns paid orders that have not moved since the cutoff,
// candidates for the refund sweep.
func (s *OrderStore) PaidUnclaimed(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("status = ? AND updated_at < ?", models.OrderPaid, cutoff).
		Find(&orders).Error
	return orders, err
}

// ByUser lists a user's orders, newest first, optionally filtered by status.
func (s *OrderStore) ByUser(ctx context.Context, userID uint, status string) ([]models.Order, error) {
	var orders []models.Order
	q := s.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at desc").Find(&orders).Error
	return orders, err
}

// ByCanteen lists a canteen's orders, newest first, optionally filtered by status.
func (s *OrderStore) ByCanteen(ctx context.Context, canteenID uint, status string) ([]models.Order, error) {
	var orders []models.Order
	q := s.db.WithContext(ctx).Preload("Items").Where("canteen_id = ?", canteenID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at desc").Find(&orders).Error
	return orders, err
}
