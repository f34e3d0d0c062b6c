package store

import (
	"path/filepath"
	"testing"

	"canteen-order-api/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens a throwaway file-backed sqlite database. A file (not
// :memory:) plus a busy timeout lets the concurrency tests hammer it from
// several goroutines.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "store_test.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Canteen{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	))
	return db
}

func seedCanteen(t *testing.T, db *gorm.DB) *models.Canteen {
	t.Helper()
	canteen := &models.Canteen{OwnerID: 1, Name: "Main Canteen", Place: "Block A", IsOpen: true}
	require.NoError(t, db.Create(canteen).Error)
	return canteen
}

func seedItem(t *testing.T, db *gorm.DB, canteenID uint, name string, price float64, qty int) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{CanteenID: canteenID, Name: name, Price: price, AvailableQuantity: qty}
	require.NoError(t, db.Create(item).Error)
	return item
}
