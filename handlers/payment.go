package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"canteen-order-api/gateway"
	"canteen-order-api/middleware"
	"canteen-order-api/models"
	"canteen-order-api/service"

	"github.com/gin-gonic/gin"
)

type InitiatePaymentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// InitiatePayment opens a gateway checkout session for an order (customer)
func (h *Handler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Flow.Initiate(c.Request.Context(), middleware.GetUserID(c), req.OrderID)
	switch {
	case notFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, service.ErrNotOrderOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
	case errors.Is(err, service.ErrAlreadyPaid), errors.Is(err, service.ErrOrderCancelled):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		serverError(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
	}
}

type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

// VerifyPayment is the synchronous post-checkout confirmation: the client
// hands back the gateway's signed (orderRef, paymentRef) pair and we
// fulfill. The webhook may have won the race already; that is a success.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !gateway.VerifyCheckoutSignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature, h.CheckoutSecret) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment signature"})
		return
	}

	method := "unknown"
	if details, err := h.Gateway.FetchPayment(c.Request.Context(), req.GatewayPaymentID); err != nil {
		log.Printf("could not fetch payment method for %s: %v", req.GatewayPaymentID, err)
	} else {
		method = details.Method
	}

	order, err := h.Flow.Fulfill(c.Request.Context(), req.GatewayOrderID, req.GatewayPaymentID, method)
	if err != nil {
		writeFulfillError(c, err)
		return
	}
	if order.UserID != middleware.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified successfully", "order": order})
}

func writeFulfillError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPaymentConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		serverError(c, err)
	}
}

// webhookEvent is the gateway's notification envelope. Entity pointers are
// nil when the payload omits them.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity *struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Method  string `json:"method"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity *struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// Webhook handles the gateway's asynchronous notifications. The signature
// is HMAC over the raw body, so the body is read before any JSON work. A
// non-2xx response makes the gateway retry, which is exactly what we want
// for transient fulfillment failures — fulfillment is idempotent.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read body"})
		return
	}
	signature := c.GetHeader("X-Razorpay-Signature")
	if !gateway.VerifyWebhookSignature(body, signature, h.WebhookSecret) {
		log.Printf("webhook rejected: bad signature")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	log.Printf("webhook event: %s", event.Event)

	switch event.Event {
	case "payment.captured", "order.paid":
		gatewayOrderRef, paymentRef, method, ok := normalizeSuccess(&event)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}
		if _, err := h.Flow.Fulfill(c.Request.Context(), gatewayOrderRef, paymentRef, method); err != nil {
			log.Printf("webhook fulfillment failed for %s: %v", gatewayOrderRef, err)
			serverError(c, err)
			return
		}
	case "payment.failed":
		if entity := event.Payload.Payment.Entity; entity != nil && entity.OrderID != "" {
			if err := h.Flow.RecordFailure(c.Request.Context(), entity.OrderID); err != nil {
				serverError(c, err)
				return
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// normalizeSuccess reduces both success-shaped events to the one
// (gatewayOrderRef, paymentRef, method) tuple fulfillment works with. An
// order.paid without a payment entity yields the placeholder reference.
func normalizeSuccess(event *webhookEvent) (gatewayOrderRef, paymentRef, method string, ok bool) {
	paymentRef = models.PaymentRefPlaceholder
	method = "unknown"

	if entity := event.Payload.Payment.Entity; entity != nil {
		paymentRef = entity.ID
		if entity.Method != "" {
			method = entity.Method
		}
		if event.Event == "payment.captured" {
			return entity.OrderID, paymentRef, method, entity.OrderID != ""
		}
	}
	if entity := event.Payload.Order.Entity; entity != nil {
		return entity.ID, paymentRef, method, entity.ID != ""
	}
	return "", "", "", false
}
