package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"canteen-order-api/cache"
	"canteen-order-api/config"
	"canteen-order-api/gateway"
	"canteen-order-api/handlers"
	"canteen-order-api/pickup"
	"canteen-order-api/routes"
	"canteen-order-api/service"
	"canteen-order-api/store"

	"github.com/gin-gonic/gin"
)

func main() {
	// Set Gin mode
	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		gin.SetMode(gin.DebugMode)
	}

	cfg := config.Load()

	db, err := config.OpenDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}

	// Stores
	canteens := store.NewCanteenStore(db)
	inventory := store.NewInventoryStore(db)
	orders := store.NewOrderStore(db)
	payments := store.NewPaymentStore(db)

	// Collaborators
	menuCache := cache.NewTTLCache()
	gw := gateway.NewHTTPClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret)
	tokens := pickup.NewIssuer(cfg.JWTSecret)

	// Services
	creation := service.NewOrderCreation(canteens, inventory, orders, menuCache)
	flow := service.NewFulfillment(orders, payments, gw, tokens, menuCache)
	reconciler := service.NewReconciler(orders, payments, inventory, flow, gw, menuCache)

	go reconciler.Run(context.Background(), cfg.SweepInterval, cfg.ExtendedSweepInterval)

	h := &handlers.Handler{
		Canteens:       canteens,
		Orders:         orders,
		Creation:       creation,
		Flow:           flow,
		Tokens:         tokens,
		Cache:          menuCache,
		Gateway:        gw,
		CheckoutSecret: cfg.GatewayKeySecret,
		WebhookSecret:  cfg.GatewayWebhookSecret,
		MenuCacheTTL:   cfg.MenuCacheTTL,
	}

	// Create Gin router with default middleware (logger + recovery)
	r := gin.Default()

	// CORS middleware for frontend integration
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Razorpay-Signature")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Canteen Order & Payment API",
			"version": "1.0.0",
		})
	})

	routes.Setup(r, h, cfg.JWTSecret)

	log.Printf("🚀 Server running on http://localhost:%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
