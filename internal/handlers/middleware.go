package handlers

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// CaptureAttribution stores utm_* parameters of the request in the visitor
// session before the route runs.
func (h *Handler) CaptureAttribution() gin.HandlerFunc {
	return func(c *gin.Context) {
		store := newSessionStore(sessions.Default(c))

		a, ok := h.attributionService.Capture(c.Request.URL.Query(), store)
		if ok {
			if err := store.save(); err != nil {
				h.logger.Warn("Failed to save campaign session", "error", err)
			} else {
				h.logger.Debug("Captured campaign", "campaign", a.Name, "source", a.Source, "medium", a.Medium)
			}

			if h.touchService != nil {
				h.touchService.RecordTouchAsync(a, c.Request.URL.RequestURI(), c.Request.Referer(), c.ClientIP(), c.Request.UserAgent())
			}
		}

		c.Next()
	}
}
