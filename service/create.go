package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"canteen-order-api/cache"
	"canteen-order-api/models"

	"gorm.io/gorm"
)

var (
	ErrEmptyCart       = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be at least 1")
	ErrCanteenNotFound = errors.New("canteen not found")
	ErrCanteenClosed   = errors.New("canteen is currently closed")
	ErrNotOrderOwner   = errors.New("order does not belong to this user")
	ErrNotCancellable  = errors.New("order cannot be cancelled in its current status")
)

// HoursError is returned when the canteen is open but the current IST time
// falls outside its declared operating window.
type HoursError struct {
	OpeningTime string
	ClosingTime string
}

func (e *HoursError) Error() string {
	return fmt.Sprintf("canteen is closed. Operating hours: %s - %s", e.OpeningTime, e.ClosingTime)
}

// CartLine is one requested line of an incoming cart.
type CartLine struct {
	MenuItemID uint
	Quantity   int
}

// OrderCreation validates carts, reserves inventory and creates order
// aggregates. It also owns customer cancellation, the inverse operation.
type OrderCreation struct {
	canteens  CanteenRepo
	inventory InventoryRepo
	orders    OrderRepo
	cache     cache.MenuCache
	now       func() time.Time
}

func NewOrderCreation(canteens CanteenRepo, inventory InventoryRepo, orders OrderRepo, menuCache cache.MenuCache) *OrderCreation {
	return &OrderCreation{
		canteens:  canteens,
		inventory: inventory,
		orders:    orders,
		cache:     menuCache,
		now:       time.Now,
	}
}

// Create runs the full creation protocol: validate the cart, check canteen
// state and operating hours, then reserve stock line by line. Reservations
// are strictly sequential because rollback depends on knowing exactly
// which lines succeeded; the moment any line fails, everything reserved so
// far is released before the error returns.
func (s *OrderCreation) Create(ctx context.Context, userID, canteenID uint, lines []CartLine) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, line := range lines {
		if line.MenuItemID == 0 || line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	canteen, err := s.canteens.Get(ctx, canteenID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCanteenNotFound
	}
	if err != nil {
		return nil, err
	}
	if !canteen.IsOpen {
		return nil, ErrCanteenClosed
	}
	if canteen.OpeningTime != "" && canteen.ClosingTime != "" &&
		!models.IsCurrentlyOpen(canteen, s.now()) {
		return nil, &HoursError{OpeningTime: canteen.OpeningTime, ClosingTime: canteen.ClosingTime}
	}

	// reserved is the rollback ledger: only lines that actually decremented
	// stock in this request ever enter it.
	var reserved []CartLine
	var orderItems []models.OrderItem
	var total float64

	for _, line := range lines {
		item, err := s.inventory.Reserve(ctx, canteenID, line.MenuItemID, line.Quantity)
		if err != nil {
			s.rollback(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, line)
		orderItems = append(orderItems, models.OrderItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   line.Quantity,
		})
		total += item.Price * float64(line.Quantity)
	}

	order := &models.Order{
		OrderID:       models.NewOrderID(),
		UserID:        userID,
		CanteenID:     canteenID,
		Items:         orderItems,
		TotalAmount:   total,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentPending,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.rollback(ctx, reserved)
		return nil, err
	}

	s.cache.Invalidate(cache.MenuKey(canteenID))
	log.Printf("order %s created for user %d (canteen %d, total %.2f)", order.OrderID, userID, canteenID, total)
	return order, nil
}

// rollback releases every reservation this request made. It runs on a
// context detached from the request so a client disconnect cannot strand
// inventory.
func (s *OrderCreation) rollback(ctx context.Context, reserved []CartLine) {
	if len(reserved) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log.Printf("rolling back %d reserved inventory line(s)", len(reserved))
	for _, line := range reserved {
		if err := s.inventory.Release(ctx, line.MenuItemID, line.Quantity); err != nil {
			log.Printf("rollback release failed for item %d: %v", line.MenuItemID, err)
		}
	}
}

// Cancel lets a customer back out of an order that is still pending or
// paid. The transition is a conditional update, so a cancel racing a
// fulfillment or the reconciliation job resolves to exactly one winner;
// inventory is only released on a win.
func (s *OrderCreation) Cancel(ctx context.Context, userID uint, ref string) (*models.Order, error) {
	order, err := s.orders.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}

	won, err := s.orders.CancelIfAmong(ctx, order.ID, []models.OrderStatus{models.OrderPending, models.OrderPaid})
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrNotCancellable
	}

	for _, item := range order.Items {
		if err := s.inventory.Release(ctx, item.MenuItemID, item.Quantity); err != nil {
			log.Printf("release failed for cancelled order %s item %d: %v", order.OrderID, item.MenuItemID, err)
		}
	}
	s.cache.Invalidate(cache.MenuKey(order.CanteenID))

	order.Status = models.OrderCancelled
	log.Printf("order %s cancelled by user %d", order.OrderID, userID)
	return order, nil
}
