package routes

import (
	"canteen-order-api/handlers"
	"canteen-order-api/middleware"
	"canteen-order-api/models"

	"github.com/gin-gonic/gin"
)

func Setup(r *gin.Engine, h *handlers.Handler, jwtSecret []byte) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.GET("/canteens", h.ListCanteens)
		public.GET("/canteens/:id/menu", h.GetMenu)
		public.GET("/state-machine", h.GetStateMachineInfo)

		// Gateway callback; authenticated by its HMAC signature, not a JWT
		public.POST("/payments/webhook", h.Webhook)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api")
	customer.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(models.RoleCustomer, models.RoleAdmin))
	{
		customer.POST("/orders", h.CreateOrder)
		customer.GET("/orders", h.GetMyOrders)
		customer.GET("/orders/:id", h.GetOrder)
		customer.PUT("/orders/:id/cancel", h.CancelOrder)

		customer.POST("/payments/initiate", h.InitiatePayment)
		customer.POST("/payments/verify", h.VerifyPayment)
	}

	// ── Canteen owner routes ───────────────────────────────────────
	owner := r.Group("/api/canteen")
	owner.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(models.RoleOwner, models.RoleAdmin))
	{
		owner.GET("/:canteenId/orders", h.GetCanteenOrders)
		owner.PUT("/orders/:id/status", h.UpdateOrderStatus)
		owner.POST("/orders/verify-pickup", h.VerifyPickup)
		owner.POST("/orders/pickup", h.CompletePickup)
	}
}
