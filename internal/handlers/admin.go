package handlers

import (
	"net/http"
	"strconv"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"
	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

type orderRow struct {
	models.Order
	Campaign string `json:"campaign"`
}

// ListOrders returns recent orders with their campaign column.
func (h *Handler) ListOrders(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	ctx := c.Request.Context()
	var orders []models.Order
	if err := h.db.WithContext(ctx).Order("date_created desc, id desc").Limit(limit).Find(&orders).Error; err != nil {
		h.logger.Error("Failed to list orders", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders"})
		return
	}

	rows := make([]orderRow, 0, len(orders))
	for _, o := range orders {
		a, found, err := h.attributionService.Lookup(ctx, o.ID)
		if err != nil {
			h.logger.Error("Failed to look up campaign", "order_id", o.ID, "error", err)
		}
		rows = append(rows, orderRow{Order: o, Campaign: services.CampaignColumn(a, found)})
	}

	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

// ShowOrderCampaign returns the attribution of one order as JSON.
func (h *Handler) ShowOrderCampaign(c *gin.Context) {
	order, ok := h.findOrder(c)
	if !ok {
		return
	}

	a, found, err := h.attributionService.Lookup(c.Request.Context(), order.ID)
	if err != nil {
		h.logger.Error("Failed to look up campaign", "order_id", order.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up campaign"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"order_id": order.ID, "error": services.NoCampaignInfo})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": order.ID, "campaign": a})
}

// ShowOrderMetabox renders the campaign box of the order screen.
func (h *Handler) ShowOrderMetabox(c *gin.Context) {
	order, ok := h.findOrder(c)
	if !ok {
		return
	}

	a, found, err := h.attributionService.Lookup(c.Request.Context(), order.ID)
	if err != nil {
		h.logger.Error("Failed to look up campaign", "order_id", order.ID, "error", err)
		c.String(http.StatusInternalServerError, "Failed to look up campaign")
		return
	}

	body, err := services.RenderCampaignInfo(a, found)
	if err != nil {
		h.logger.Error("Failed to render campaign info", "order_id", order.ID, "error", err)
		c.String(http.StatusInternalServerError, "Failed to render campaign info")
		return
	}

	html := `<div id="edd-order-data" class="postbox"><h3 class="hndle">Campaign Information</h3><div class="inside">` + body + `</div></div>`
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// MigrateCampaignMeta moves every legacy payment_meta record to the
// current storage location.
func (h *Handler) MigrateCampaignMeta(c *gin.Context) {
	count, err := h.attributionService.MigrateLegacy(c.Request.Context())
	if err != nil {
		h.logger.Error("Legacy campaign migration failed", "migrated", count, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Migration failed", "migrated": count})
		return
	}
	c.JSON(http.StatusOK, gin.H{"migrated": count})
}

type RenderEmailRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

func (h *Handler) ListEmailTags(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tags": h.emailTags.Tags()})
}

// RenderEmail expands email tags in a body for one order.
func (h *Handler) RenderEmail(c *gin.Context) {
	var req RenderEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.emailTags.Expand(c.Request.Context(), req.OrderID, req.Body)
	if err != nil {
		h.logger.Error("Failed to render email", "order_id", req.OrderID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"body": out})
}
