package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"canteen-order-api/cache"
	"canteen-order-api/models"
	"canteen-order-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListCanteens returns all canteens with their live open/closed state
func (h *Handler) ListCanteens(c *gin.Context) {
	canteens, err := h.Canteens.List(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}

	now := time.Now()
	out := make([]gin.H, 0, len(canteens))
	for i := range canteens {
		out = append(out, gin.H{
			"canteen":           canteens[i],
			"is_currently_open": models.IsCurrentlyOpen(&canteens[i], now),
		})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "canteens": out})
}

// GetMenu returns a canteen's menu. The item listing is served from the
// menu cache; the open/closed flag is recomputed on every request so a
// cached menu can never freeze yesterday's answer.
func (h *Handler) GetMenu(c *gin.Context) {
	canteenID := parseUint(c.Param("id"))
	canteen, err := h.Canteens.Get(c.Request.Context(), canteenID)
	if notFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Canteen not found"})
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}

	key := cache.MenuKey(canteenID)
	var items []models.MenuItem
	hit := false
	if cached, ok := h.Cache.Get(key); ok {
		if err := json.Unmarshal(cached, &items); err == nil {
			hit = true
		} else {
			// Corrupt entry; drop it and serve from the store.
			h.Cache.Invalidate(key)
		}
	}
	if !hit {
		items, err = h.Canteens.MenuItems(c.Request.Context(), canteenID)
		if err != nil {
			serverError(c, err)
			return
		}
		if payload, err := json.Marshal(items); err == nil {
			h.Cache.Set(key, payload, h.MenuCacheTTL)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"canteen":           canteen.Name,
		"is_currently_open": models.IsCurrentlyOpen(canteen, time.Now()),
		"count":             len(items),
		"menu":              items,
	})
}

// GetStateMachineInfo returns the order lifecycle for documentation
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	transitions := statemachine.GetAllTransitions()
	info := make([]gin.H, 0, len(transitions))
	for _, t := range transitions {
		info = append(info, gin.H{"from": t.From, "to": t.To, "actor": t.Actor})
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   info,
		"terminal_states": []models.OrderStatus{models.OrderCompleted, models.OrderCancelled},
		"description":     "Canteen Order Lifecycle State Machine",
	})
}
