package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"canteen-order-api/cache"
	"canteen-order-api/gateway"
	"canteen-order-api/middleware"
	"canteen-order-api/models"
	"canteen-order-api/pickup"
	"canteen-order-api/service"
	"canteen-order-api/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler bundles the injected dependencies for all HTTP handlers. There
// are no package-level singletons; main wires one of these up and tests
// build their own.
type Handler struct {
	Canteens *store.CanteenStore
	Orders   *store.OrderStore
	Creation *service.OrderCreation
	Flow     *service.Fulfillment
	Tokens   *pickup.Issuer
	Cache    cache.MenuCache
	Gateway  gateway.Client

	CheckoutSecret string // signs the post-checkout callback
	WebhookSecret  string // signs webhook deliveries
	MenuCacheTTL   time.Duration
}

// canCanteenAct reports whether the caller may operate on a canteen's
// orders: admins always, owners only for their own canteen.
func (h *Handler) canCanteenAct(c *gin.Context, canteenID uint) bool {
	if middleware.GetRole(c) == models.RoleAdmin {
		return true
	}
	canteen, err := h.Canteens.Get(c.Request.Context(), canteenID)
	if err != nil {
		return false
	}
	return canteen.OwnerID == middleware.GetUserID(c)
}

func parseUint(s string) uint {
	v, _ := strconv.ParseUint(s, 10, 64)
	return uint(v)
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func serverError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error: " + err.Error()})
}
