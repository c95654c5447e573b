package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"
	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/services"
	"github.com/easydigitaldownloads/edd-campaign-tracker/pkg/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateOrderRequest struct {
	PurchaseKey string  `json:"purchase_key,omitempty" binding:"omitempty,max=36"`
	Type        string  `json:"type,omitempty" binding:"omitempty,oneof=sale refund"`
	Status      string  `json:"status,omitempty" binding:"omitempty,oneof=pending complete revoked refunded"`
	Total       float64 `json:"total" binding:"gte=0"`
	Tax         float64 `json:"tax" binding:"gte=0"`
}

// CurrentAttribution returns the campaign held in the visitor session.
func (h *Handler) CurrentAttribution(c *gin.Context) {
	store := newSessionStore(sessions.Default(c))
	a, ok := h.attributionService.FromSession(store)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": services.NoCampaignInfo})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": a})
}

// CreateOrder records a new order from the checkout and attaches the
// visitor's campaign to it.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order := models.Order{
		PurchaseKey: req.PurchaseKey,
		Type:        req.Type,
		Status:      req.Status,
		Total:       req.Total,
		Tax:         req.Tax,
	}
	if order.PurchaseKey == "" {
		order.PurchaseKey = utils.NewPurchaseKey()
	}
	if order.Type == "" {
		order.Type = models.OrderTypeSale
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&order).Error; err != nil {
		h.logger.Error("Failed to create order", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	h.persistAttribution(c, http.StatusCreated, order)
}

// AttachAttribution attaches the visitor's campaign to an existing order.
func (h *Handler) AttachAttribution(c *gin.Context) {
	order, ok := h.findOrder(c)
	if !ok {
		return
	}
	h.persistAttribution(c, http.StatusOK, order)
}

func (h *Handler) persistAttribution(c *gin.Context, status int, order models.Order) {
	store := newSessionStore(sessions.Default(c))
	cookie := services.ParseGACookieFromRequest(c.Request)

	a, stored, err := h.attributionService.Persist(c.Request.Context(), order.ID, cookie, store, c.ClientIP())
	if err != nil {
		h.logger.Error("Failed to persist campaign attribution", "order_id", order.ID, "error", err)
		c.JSON(status, gin.H{"order": order, "attribution_stored": false, "error": "Failed to store campaign attribution"})
		return
	}

	resp := gin.H{"order": order, "attribution_stored": stored}
	if stored {
		resp["campaign"] = a
	}
	c.JSON(status, resp)
}

func (h *Handler) findOrder(c *gin.Context) (models.Order, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return models.Order{}, false
	}

	var order models.Order
	err = h.db.WithContext(c.Request.Context()).First(&order, uint(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return models.Order{}, false
	}
	if err != nil {
		h.logger.Error("Failed to load order", "order_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return models.Order{}, false
	}
	return order, true
}
