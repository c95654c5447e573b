package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/services"
	"github.com/easydigitaldownloads/edd-campaign-tracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// reportFilter reads campaign, start, end, interval and exclude_taxes from
// the query string.
func reportFilter(c *gin.Context) (services.ReportFilter, error) {
	var f services.ReportFilter
	f.Campaign = utils.SanitizeText(c.Query("campaign"))
	f.Interval = services.ReportInterval(c.Query("interval"))

	var err error
	if f.Start, err = parseReportTime(c.Query("start"), false); err != nil {
		return f, fmt.Errorf("invalid start: %w", err)
	}
	if f.End, err = parseReportTime(c.Query("end"), true); err != nil {
		return f, fmt.Errorf("invalid end: %w", err)
	}

	if v := c.Query("exclude_taxes"); v != "" {
		if f.ExcludeTaxes, err = strconv.ParseBool(v); err != nil {
			return f, fmt.Errorf("invalid exclude_taxes: %w", err)
		}
	}
	return f, nil
}

// parseReportTime accepts RFC3339 or YYYY-MM-DD. A bare date used as the end
// of a range covers the whole day.
func parseReportTime(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

func (h *Handler) reportError(c *gin.Context, msg string, err error) {
	if errors.Is(err, services.ErrInvalidRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (h *Handler) ReportCampaigns(c *gin.Context) {
	names, err := h.reportService.Campaigns(c.Request.Context())
	if err != nil {
		h.reportError(c, "Failed to list campaigns", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": names})
}

func (h *Handler) ReportEarnings(c *gin.Context) {
	f, err := reportFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	earnings, err := h.reportService.Earnings(c.Request.Context(), f)
	if err != nil {
		h.reportError(c, "Failed to compute earnings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": f.Campaign, "earnings": earnings})
}

func (h *Handler) ReportSales(c *gin.Context) {
	f, err := reportFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sales, err := h.reportService.Sales(c.Request.Context(), f)
	if err != nil {
		h.reportError(c, "Failed to count sales", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": f.Campaign, "sales": sales})
}

func (h *Handler) ReportEarningsChart(c *gin.Context) {
	f, err := reportFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chart, err := h.reportService.EarningsOverTime(c.Request.Context(), f)
	if err != nil {
		h.reportError(c, "Failed to build earnings chart", err)
		return
	}
	c.JSON(http.StatusOK, chart)
}
