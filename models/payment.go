package models

import "time"

// PayStatus is the tri-state lifecycle of a payment attempt. The
// (GatewayOrderID, PayInitiated) pair works as a compare-and-swap lock:
// the transition initiated→success can only be won by one caller.
type PayStatus string

const (
	PayInitiated PayStatus = "initiated"
	PaySuccess   PayStatus = "success"
	PayFailed    PayStatus = "failed"
)

// PaymentRefPlaceholder marks a payment whose gateway payment reference is
// not yet known (an order.paid webhook carries no payment entity). A later
// notification with a real reference upgrades it.
const PaymentRefPlaceholder = "N/A"

// Payment is the single payment-attempt record for an order.
type Payment struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	OrderID          uint      `json:"order_id" gorm:"uniqueIndex;not null"`
	GatewayOrderID   string    `json:"gateway_order_id" gorm:"uniqueIndex;not null"`
	GatewayPaymentID string    `json:"gateway_payment_id,omitempty"`
	Amount           float64   `json:"amount" gorm:"not null"`
	Status           PayStatus `json:"status" gorm:"not null;default:'initiated'"`
	PaymentMethod    string    `json:"payment_method,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
