package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"canteen-order-api/cache"
	"canteen-order-api/gateway"
	"canteen-order-api/models"
	"canteen-order-api/store"

	"gorm.io/gorm"
)

// In-memory fakes implementing the repo interfaces with the same
// conditional-update semantics as the gorm stores. They let the
// concurrency properties run without a database, as the substitutable
// stores were designed for.

type memCanteens struct {
	mu       sync.Mutex
	canteens map[uint]*models.Canteen
}

func newMemCanteens() *memCanteens {
	return &memCanteens{canteens: make(map[uint]*models.Canteen)}
}

func (m *memCanteens) add(c *models.Canteen) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canteens[c.ID] = c
}

func (m *memCanteens) Get(_ context.Context, id uint) (*models.Canteen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.canteens[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *c
	return &clone, nil
}

type memInventory struct {
	mu    sync.Mutex
	items map[uint]*models.MenuItem
}

func newMemInventory() *memInventory {
	return &memInventory{items: make(map[uint]*models.MenuItem)}
}

func (m *memInventory) add(item *models.MenuItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

func (m *memInventory) quantity(id uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].AvailableQuantity
}

func (m *memInventory) Reserve(_ context.Context, canteenID, itemID uint, qty int) (*models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: item %d", store.ErrItemNotFound, itemID)
	}
	if item.CanteenID != canteenID {
		return nil, fmt.Errorf("%w: %s", store.ErrWrongCanteen, item.Name)
	}
	if item.AvailableQuantity < qty {
		return nil, &store.StockError{ItemName: item.Name, Requested: qty, Available: item.AvailableQuantity}
	}
	item.AvailableQuantity -= qty
	clone := *item
	return &clone, nil
}

func (m *memInventory) Release(_ context.Context, itemID uint, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[itemID]; ok {
		item.AvailableQuantity += qty
	}
	return nil
}

type memOrders struct {
	mu     sync.Mutex
	nextID uint
	orders map[uint]*models.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uint]*models.Order)}
}

func cloneOrder(o *models.Order) *models.Order {
	clone := *o
	clone.Items = append([]models.OrderItem(nil), o.Items...)
	return &clone
}

func (m *memOrders) setCreatedAt(id uint, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id].CreatedAt = at
}

func (m *memOrders) setUpdatedAt(id uint, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id].UpdatedAt = at
}

func (m *memOrders) get(id uint) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneOrder(m.orders[id])
}

func (m *memOrders) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orders {
		if existing.OrderID == order.OrderID {
			return errors.New("UNIQUE constraint failed: orders.order_id")
		}
	}
	m.nextID++
	order.ID = m.nextID
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *memOrders) GetByKey(_ context.Context, id uint) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneOrder(o), nil
}

func (m *memOrders) GetByOrderID(_ context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderID == orderID {
			return cloneOrder(o), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memOrders) Find(ctx context.Context, ref string) (*models.Order, error) {
	if key, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return m.GetByKey(ctx, uint(key))
	}
	return m.GetByOrderID(ctx, ref)
}

func (m *memOrders) Save(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	order.UpdatedAt = time.Now()
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *memOrders) CancelIfPending(_ context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != models.OrderPending {
		return false, nil
	}
	o.Status = models.OrderCancelled
	o.PaymentStatus = models.PaymentFailed
	return true, nil
}

func (m *memOrders) CancelIfAmong(_ context.Context, id uint, from []models.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if o.Status == status {
			o.Status = models.OrderCancelled
			return true, nil
		}
	}
	return false, nil
}

func (m *memOrders) MarkPaymentFailedIfPending(_ context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.PaymentStatus != models.PaymentPending {
		return false, nil
	}
	o.PaymentStatus = models.PaymentFailed
	return true, nil
}

func (m *memOrders) StalePending(_ context.Context, cutoff time.Time) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.Status == models.OrderPending && o.CreatedAt.Before(cutoff) {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (m *memOrders) PaidUnclaimed(_ context.Context, cutoff time.Time) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.Status == models.OrderPaid && o.UpdatedAt.Before(cutoff) {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

type memPayments struct {
	mu       sync.Mutex
	nextID   uint
	payments map[string]*models.Payment // by gateway order ref
	errOn    map[uint]error             // injected GetByOrderKey failures
}

func newMemPayments() *memPayments {
	return &memPayments{payments: make(map[string]*models.Payment), errOn: make(map[uint]error)}
}

func (m *memPayments) get(ref string) *models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *m.payments[ref]
	return &clone
}

func (m *memPayments) Create(_ context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.GatewayOrderID]; ok {
		return errors.New("UNIQUE constraint failed: payments.gateway_order_id")
	}
	for _, existing := range m.payments {
		if existing.OrderID == payment.OrderID {
			return errors.New("UNIQUE constraint failed: payments.order_id")
		}
	}
	m.nextID++
	payment.ID = m.nextID
	clone := *payment
	m.payments[payment.GatewayOrderID] = &clone
	return nil
}

func (m *memPayments) Save(_ context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.GatewayOrderID]; !ok {
		// Gateway ref changed during re-initiation; drop the stale key.
		found := false
		for ref, p := range m.payments {
			if p.ID == payment.ID {
				delete(m.payments, ref)
				found = true
				break
			}
		}
		if !found {
			return gorm.ErrRecordNotFound
		}
	}
	clone := *payment
	m.payments[payment.GatewayOrderID] = &clone
	return nil
}

func (m *memPayments) GetByGatewayRef(_ context.Context, ref string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[ref]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memPayments) GetByOrderKey(_ context.Context, orderKey uint) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errOn[orderKey]; ok {
		return nil, err
	}
	for _, p := range m.payments {
		if p.OrderID == orderKey {
			clone := *p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPayments) MarkSuccessIfInitiated(_ context.Context, ref, paymentRef, method string) (*models.Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[ref]
	if !ok || p.Status != models.PayInitiated {
		return nil, false, nil
	}
	p.Status = models.PaySuccess
	p.GatewayPaymentID = paymentRef
	p.PaymentMethod = method
	clone := *p
	return &clone, true, nil
}

func (m *memPayments) MarkFailedIfInitiated(_ context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[ref]
	if !ok || p.Status != models.PayInitiated {
		return false, nil
	}
	p.Status = models.PayFailed
	return true, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	created   int
	orders    map[string]*gateway.Order
	refunds   []string
	fetchErr  error
	refundErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: make(map[string]*gateway.Order)}
}

func (g *fakeGateway) CreateOrder(_ context.Context, receipt string, amount float64) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created++
	order := &gateway.Order{
		ID:       fmt.Sprintf("gw_order_%d", g.created),
		Amount:   int64(amount * 100),
		Currency: "INR",
		Receipt:  receipt,
	}
	g.orders[order.ID] = order
	return order, nil
}

func (g *fakeGateway) FetchOrder(_ context.Context, id string) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	order, ok := g.orders[id]
	if !ok {
		return nil, fmt.Errorf("gateway returned 404: order %s", id)
	}
	clone := *order
	return &clone, nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*gateway.PaymentDetails, error) {
	return &gateway.PaymentDetails{ID: paymentID, Status: "captured", Method: "upi"}, nil
}

func (g *fakeGateway) Refund(_ context.Context, paymentID string, _ float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, paymentID)
	return nil
}

type fakeTokens struct {
	mu     sync.Mutex
	issued int
	fail   bool
}

func (f *fakeTokens) Issue(orderID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("token signing failed")
	}
	f.issued++
	return "pt-" + orderID, nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issued
}

// recordingCache tracks invalidations for asserts.
type recordingCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *recordingCache) Get(string) ([]byte, bool)         { return nil, false }
func (c *recordingCache) Set(string, []byte, time.Duration) {}
func (c *recordingCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, key)
}

func (c *recordingCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...)
}

var _ cache.MenuCache = (*recordingCache)(nil)

// env bundles one fully wired fake world.
type env struct {
	canteens  *memCanteens
	inventory *memInventory
	orders    *memOrders
	payments  *memPayments
	gateway   *fakeGateway
	tokens    *fakeTokens
	cache     *recordingCache

	creation   *OrderCreation
	flow       *Fulfillment
	reconciler *Reconciler
}

func newEnv() *env {
	e := &env{
		canteens:  newMemCanteens(),
		inventory: newMemInventory(),
		orders:    newMemOrders(),
		payments:  newMemPayments(),
		gateway:   newFakeGateway(),
		tokens:    &fakeTokens{},
		cache:     &recordingCache{},
	}
	e.creation = NewOrderCreation(e.canteens, e.inventory, e.orders, e.cache)
	e.flow = NewFulfillment(e.orders, e.payments, e.gateway, e.tokens, e.cache)
	e.reconciler = NewReconciler(e.orders, e.payments, e.inventory, e.flow, e.gateway, e.cache)
	return e
}

// seedCanteen and seedItem build the standard fixture: one open canteen,
// one menu item.
func (e *env) seedCanteen(id uint) *models.Canteen {
	canteen := &models.Canteen{ID: id, OwnerID: 1, Name: "Test Canteen", IsOpen: true}
	e.canteens.add(canteen)
	return canteen
}

func (e *env) seedItem(id, canteenID uint, name string, price float64, qty int) *models.MenuItem {
	item := &models.MenuItem{ID: id, CanteenID: canteenID, Name: name, Price: price, AvailableQuantity: qty}
	e.inventory.add(item)
	return item
}
