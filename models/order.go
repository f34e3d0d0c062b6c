package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order as seen by operators.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// PaymentStatus is the gateway-facing payment state of an order.
// Once it reaches PaymentSuccess it never regresses.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

type Order struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	OrderID       string        `json:"order_id" gorm:"uniqueIndex;not null"`
	UserID        uint          `json:"user_id" gorm:"not null;index"`
	CanteenID     uint          `json:"canteen_id" gorm:"not null;index"`
	Canteen       *Canteen      `json:"canteen,omitempty" gorm:"foreignKey:CanteenID"`
	Items         []OrderItem   `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	TotalAmount   float64       `json:"total_amount" gorm:"not null"`
	Status        OrderStatus   `json:"status" gorm:"not null;default:'pending';index:idx_orders_status_created"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"not null;default:'pending'"`
	PaymentID     string        `json:"payment_id,omitempty"`
	PickupToken   string        `json:"pickup_token,omitempty"`
	CreatedAt     time.Time     `json:"created_at" gorm:"index:idx_orders_status_created"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type OrderItem struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	OrderID    uint    `json:"-" gorm:"not null;index"`
	MenuItemID uint    `json:"menu_item_id" gorm:"not null"`
	Name       string  `json:"name" gorm:"not null"` // snapshot name at order time
	Price      float64 `json:"price" gorm:"not null"` // snapshot price at order time
	Quantity   int     `json:"quantity" gorm:"not null"`
}

// NewOrderID generates a human-readable order identifier, e.g.
// ORD-M3K9XQZ-A41F2. The timestamp prefix keeps ids roughly sortable;
// the random suffix plus a unique index make collisions a storage error
// rather than a silent overwrite.
func NewOrderID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:5]
	return strings.ToUpper("ORD-" + ts + "-" + suffix)
}
