package store

import (
	"context"

	"canteen-order-api/models"

	"gorm.io/gorm"
)

// CanteenStore is a read model: the order core consults canteen state and
// menus but never owns their CRUD.
type CanteenStore struct {
	db *gorm.DB
}

func NewCanteenStore(db *gorm.DB) *CanteenStore {
	return &CanteenStore{db: db}
}

func (s *CanteenStore) Get(ctx context.Context, id uint) (*models.Canteen, error) {
	var canteen models.Canteen
	if err := s.db.WithContext(ctx).First(&canteen, id).Error; err != nil {
		return nil, err
	}
	return &canteen, nil
}

func (s *CanteenStore) List(ctx context.Context) ([]models.Canteen, error) {
	var canteens []models.Canteen
	err := s.db.WithContext(ctx).Find(&canteens).Error
	return canteens, err
}

func (s *CanteenStore) MenuItems(ctx context.Context, canteenID uint) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := s.db.WithContext(ctx).
		Where("canteen_id = ?", canteenID).Order("name").Find(&items).Error
	return items, err
}
