package handlers

import (
	"errors"
	"net/http"

	"canteen-order-api/middleware"
	"canteen-order-api/models"
	"canteen-order-api/pickup"
	"canteen-order-api/service"
	"canteen-order-api/statemachine"
	"canteen-order-api/store"

	"github.com/gin-gonic/gin"
)

type CreateOrderRequest struct {
	CanteenID uint `json:"canteen_id" binding:"required"`
	Items     []struct {
		MenuItemID uint `json:"menu_item_id" binding:"required"`
		Quantity   int  `json:"quantity" binding:"required,min=1"`
	} `json:"items" binding:"required,min=1"`
}

// CreateOrder reserves inventory and creates a pending order (customer only)
func (h *Handler) CreateOrder(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]service.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, service.CartLine{MenuItemID: item.MenuItemID, Quantity: item.Quantity})
	}

	order, err := h.Creation.Create(c.Request.Context(), userID, req.CanteenID, lines)
	if err != nil {
		writeCreationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
}

// writeCreationError maps creation failures: validation and business-rule
// failures are client errors with an actionable reason, everything else a
// server error.
func writeCreationError(c *gin.Context, err error) {
	var stockErr *store.StockError
	var hoursErr *service.HoursError

	switch {
	case errors.Is(err, service.ErrCanteenNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     stockErr.Error(),
			"item":      stockErr.ItemName,
			"available": stockErr.Available,
		})
	case errors.As(err, &hoursErr),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrCanteenClosed),
		errors.Is(err, store.ErrItemNotFound),
		errors.Is(err, store.ErrWrongCanteen):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		serverError(c, err)
	}
}

// GetMyOrders returns the caller's orders, newest first
func (h *Handler) GetMyOrders(c *gin.Context) {
	userID := middleware.GetUserID(c)
	orders, err := h.Orders.ByUser(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(orders), "orders": orders})
}

// GetOrder returns one order by storage key or human order id
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.Orders.Find(c.Request.Context(), c.Param("id"))
	if notFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}

	isOwner := order.UserID == middleware.GetUserID(c)
	if !isOwner && !h.canCanteenAct(c, order.CanteenID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to view this order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// GetCanteenOrders lists a canteen's orders (owner/admin)
func (h *Handler) GetCanteenOrders(c *gin.Context) {
	canteen, err := h.Canteens.Get(c.Request.Context(), parseUint(c.Param("canteenId")))
	if notFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Canteen not found"})
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}
	if !h.canCanteenAct(c, canteen.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to view these orders"})
		return
	}

	orders, err := h.Orders.ByCanteen(c.Request.Context(), canteen.ID, c.Query("status"))
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(orders), "orders": orders})
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdateOrderStatus handles the canteen owner's forward transitions
// (preparing/ready/completed) and owner-side cancellation. Forward moves
// require a successful payment.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.Orders.Find(c.Request.Context(), c.Param("id"))
	if notFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}
	if !h.canCanteenAct(c, order.CanteenID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to update this order"})
		return
	}

	if err := statemachine.CanTransition(order.Status, req.Status, "owner"); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":             "Invalid state transition",
			"current_status":    order.Status,
			"requested":         req.Status,
			"reason":            err.Error(),
			"valid_next_states": statemachine.ValidTransitionsFrom(order.Status),
		})
		return
	}
	if statemachine.RequiresPayment(req.Status) && order.PaymentStatus != models.PaymentSuccess {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot update status for unpaid orders"})
		return
	}

	prev := order.Status
	order.Status = req.Status
	if err := h.Orders.Save(c.Request.Context(), order); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"order_id":        order.OrderID,
		"previous_status": prev,
		"current_status":  order.Status,
	})
}

// CancelOrder lets the customer back out of a pending or paid order
func (h *Handler) CancelOrder(c *gin.Context) {
	userID := middleware.GetUserID(c)
	order, err := h.Creation.Cancel(c.Request.Context(), userID, c.Param("id"))
	switch {
	case notFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, service.ErrNotOrderOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to cancel this order"})
	case errors.Is(err, service.ErrNotCancellable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot cancel order in current status"})
	case err != nil:
		serverError(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}

type PickupRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyPickup checks a pickup token and returns the matching order
// (owner/admin)
func (h *Handler) VerifyPickup(c *gin.Context) {
	order, ok := h.resolvePickup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order, "message": "Pickup token verified"})
}

// CompletePickup marks a paid order completed once the token checks out
// (owner/admin)
func (h *Handler) CompletePickup(c *gin.Context) {
	order, ok := h.resolvePickup(c)
	if !ok {
		return
	}

	switch {
	case order.Status == models.OrderCompleted:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order already picked up", "order": order})
		return
	case order.Status == models.OrderCancelled:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order is cancelled", "order": order})
		return
	case order.PaymentStatus != models.PaymentSuccess:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment not completed for this order", "order": order})
		return
	}

	order.Status = models.OrderCompleted
	if err := h.Orders.Save(c.Request.Context(), order); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order, "message": "Order pickup completed"})
}

// resolvePickup verifies the token from the request body, loads the order
// and authorizes the caller. On failure it writes the response itself.
func (h *Handler) resolvePickup(c *gin.Context) (*models.Order, bool) {
	var req PickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pickup token is required"})
		return nil, false
	}

	claims, err := h.Tokens.Verify(req.Token)
	if errors.Is(err, pickup.ErrInvalidToken) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired pickup token"})
		return nil, false
	}

	order, err := h.Orders.GetByOrderID(c.Request.Context(), claims.OrderID)
	if notFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return nil, false
	}
	if err != nil {
		serverError(c, err)
		return nil, false
	}
	if !h.canCanteenAct(c, order.CanteenID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized for this canteen's orders"})
		return nil, false
	}
	return order, true
}
