package store

import (
	"context"
	"errors"
	"fmt"

	"canteen-order-api/models"

	"gorm.io/gorm"
)

var (
	ErrItemNotFound = errors.New("menu item not found")
	ErrWrongCanteen = errors.New("menu item belongs to a different canteen")
)

// StockError reports a failed reservation along with the quantity actually
// left, so callers can show the shopper what is still available.
type StockError struct {
	ItemName  string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient quantity for %s: requested %d, available %d",
		e.ItemName, e.Requested, e.Available)
}

// InventoryStore owns the available-quantity counters. All mutations go
// through atomic increment/decrement statements; the counters are never
// read-then-written.
type InventoryStore struct {
	db *gorm.DB
}

func NewInventoryStore(db *gorm.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

// Reserve decrements available stock by qty, but only if the item belongs
// to canteenID and still has at least qty units. The guard and the
// decrement are one conditional UPDATE, so two buyers can never both claim
// the last unit. On success it returns the item as a price/name snapshot.
func (s *InventoryStore) Reserve(ctx context.Context, canteenID, itemID uint, qty int) (*models.MenuItem, error) {
	res := s.db.WithContext(ctx).Model(&models.MenuItem{}).
		Where("id = ? AND canteen_id = ? AND available_quantity >= ?", itemID, canteenID, qty).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity - ?", qty))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.diagnoseMiss(ctx, canteenID, itemID, qty)
	}

	var item models.MenuItem
	if err := s.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// diagnoseMiss re-reads the row to turn a failed conditional update into a
// specific client error: missing item, wrong canteen, or not enough stock.
func (s *InventoryStore) diagnoseMiss(ctx context.Context, canteenID, itemID uint, qty int) error {
	var item models.MenuItem
	err := s.db.WithContext(ctx).First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: item %d", ErrItemNotFound, itemID)
	}
	if err != nil {
		return err
	}
	if item.CanteenID != canteenID {
		return fmt.Errorf("%w: %s", ErrWrongCanteen, item.Name)
	}
	return &StockError{ItemName: item.Name, Requested: qty, Available: item.AvailableQuantity}
}

// Release adds qty back to available stock. Used for rollback of partial
// reservations, cancellations, and administrative restocking.
func (s *InventoryStore) Release(ctx context.Context, itemID uint, qty int) error {
	return s.db.WithContext(ctx).Model(&models.MenuItem{}).
		Where("id = ?", itemID).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity + ?", qty)).Error
}
