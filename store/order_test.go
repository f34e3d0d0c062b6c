package store

import (
	"context"
	"testing"
	"time"

	"canteen-order-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrder(t *testing.T, s *OrderStore, canteenID uint, status models.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderID:       models.NewOrderID(),
		UserID:        7,
		CanteenID:     canteenID,
		Items:         []models.OrderItem{{MenuItemID: 1, Name: "Samosa", Price: 15, Quantity: 2}},
		TotalAmount:   30,
		Status:        status,
		PaymentStatus: models.PaymentPending,
	}
	require.NoError(t, s.Create(context.Background(), order))
	return order
}

func TestOrderFindByEitherIdentifier(t *testing.T) {
	db := testDB(t)
	canteen := seedCanteen(t, db)
	s := NewOrderStore(db)
	order := seedOrder(t, s, canteen.ID, models.OrderPending)

	byHuman, err := s.Find(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byHuman.ID)
	assert.Len(t, byHuman.Items, 1)

	byKey, err := s.Find(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, byKey.OrderID)
}

func TestCancelIfPendingWinsOnce(t *testing.T) {
	db := testDB(t)
	canteen := seedCanteen(t, db)
	s := NewOrderStore(db)
	order := seedOrder(t, s, canteen.ID, models.OrderPending)
	ctx := context.Background()

	won, err := s.CancelIfPending(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, won)

	// Second attempt loses: the order is no longer pending.
	won, err = s.CancelIfPending(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, won)

	got, err := s.GetByKey(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)
}

func TestCancelIfAmong(t *testing.T) {
	db := testDB(t)
	canteen := seedCanteen(t, db)
	s := NewOrderStore(db)
	ctx := context.Background()

	paid := seedOrder(t, s, canteen.ID, models.OrderPaid)
	won, err := s.CancelIfAmong(ctx, paid.ID, []models.OrderStatus{models.OrderPending, models.OrderPaid})
	require.NoError(t, err)
	assert.True(t, won)

	preparing := seedOrder(t, s, canteen.ID, models.OrderPreparing)
	won, err = s.CancelIfAmong(ctx, preparing.ID, []models.OrderStatus{models.OrderPending, models.OrderPaid})
	require.NoError(t, err)
	assert.False(t, won, "preparing orders are outside the cancellable set")
}

func TestMarkPaymentFailedIfPendingIsMonotonic(t *testing.T) {
	db := testDB(t)
	canteen := seedCanteen(t, db)
	s := NewOrderStore(db)
	ctx := context.Background()

	order := seedOrder(t, s, canteen.ID, models.OrderPending)
	won, err := s.MarkPaymentFailedIfPending(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, won)

	// A successful payment never regresses to failed.
	paid := seedOrder(t, s, canteen.ID, models.OrderPaid)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", paid.ID).
		Update("payment_status", models.PaymentSuccess).Error)
	won, err = s.MarkPaymentFailedIfPending(ctx, paid.ID)
	require.NoError(t, err)
	assert.False(t, won)

	got, err := s.GetByKey(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, got.PaymentStatus)
}

func TestStalePending(t *testing.T) {
	db := testDB(t)
	canteen := seedCanteen(t, db)
	s := NewOrderStore(db)
	ctx := context.Background()

	stale := seedOrder(t, s, canteen.ID, models.OrderPending)
	fresh := seedOrder(t, s, canteen.ID, models.OrderPending)
	paid := seedOrder(t, s, canteen.ID, models.OrderPaid)

	past := time.Now().Add(-10 * time.Minute)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", stale.ID).
		Update("created_at", past).Error)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", paid.ID).
		Update("created_at", past).Error)

	got, err := s.StalePending(ctx, time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stale.ID, got[0].ID)
	assert.NotEmpty(t, got[0].Items, "sweep needs items to restore inventory")
	_ = fresh
}

func TestUniqueHumanOrderID(t *testing.T) {
	db := testDB(t)
	canteen := seedCanteen(t, db)
	s := NewOrderStore(db)
	order := seedOrder(t, s, canteen.ID, models.OrderPending)

	dup := &models.Order{
		OrderID:       order.OrderID,
		UserID:        8,
		CanteenID:     canteen.ID,
		Items:         []models.OrderItem{{MenuItemID: 1, Name: "Chai", Price: 10, Quantity: 1}},
		TotalAmount:   10,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentPending,
	}
	assert.Error(t, s.Create(context.Background(), dup), "human order id is unique")
}
