package handlers

import (
	"net/http"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/middleware"
	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "eddct_session"

func (h *Handler) SetupRouter(rateLimiter *services.IPRateLimiter) *gin.Engine {
	r := gin.Default()

	// Middleware
	if rateLimiter != nil {
		r.Use(middleware.RateLimit(rateLimiter))
	}

	store := cookie.NewStore([]byte(h.cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 86400 * 30, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(h.CaptureAttribution())

	// Routes
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.GET("/attribution", h.CurrentAttribution)
		api.POST("/orders", h.CreateOrder)
		api.POST("/orders/:id/campaign", h.AttachAttribution)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(h.cfg.AdminAPIKey))
	{
		admin.GET("/orders", h.ListOrders)
		admin.GET("/orders/:id/campaign", h.ShowOrderCampaign)
		admin.GET("/orders/:id/metabox", h.ShowOrderMetabox)
		admin.POST("/migrations/campaign-meta", h.MigrateCampaignMeta)

		admin.GET("/reports/campaigns", h.ReportCampaigns)
		admin.GET("/reports/earnings", h.ReportEarnings)
		admin.GET("/reports/sales", h.ReportSales)
		admin.GET("/reports/earnings-chart", h.ReportEarningsChart)

		admin.GET("/email-tags", h.ListEmailTags)
		admin.POST("/emails/render", h.RenderEmail)
	}

	return r
}

// Health reports database and cache reachability.
func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := gin.H{"status": "healthy", "database": "up", "redis": "disabled"}
	code := http.StatusOK

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status["status"] = "unhealthy"
		status["database"] = "down"
		code = http.StatusServiceUnavailable
	}

	if h.rdb != nil {
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
		} else {
			status["redis"] = "up"
		}
	}

	c.JSON(code, status)
}
