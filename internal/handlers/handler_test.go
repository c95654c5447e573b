package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/config"
	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"
	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/repository"
	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/services"
	"github.com/easydigitaldownloads/edd-campaign-tracker/pkg/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	testSiteURL  = "http://example.com"
	testAdminKey = "admin-secret"
)

func setupTestHandler(t *testing.T) (*Handler, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := config.Config{
		SessionSecret: "test-secret-12345678901234567890123456789012",
		SiteURL:       testSiteURL,
		AdminAPIKey:   testAdminKey,
	}

	audit := services.NewAuditService(db, logger)
	attribution := services.NewAttributionService(repository.NewOrderMetaRepository(db), audit, cfg.SiteURL, logger)
	reports := services.NewReportService(db, rdb, logger, 0)
	touches := services.NewTouchService(db, logger, services.NewGeoIPService(cfg, logger))
	tags := services.NewEmailTagRegistry()
	services.RegisterCampaignEmailTags(tags, attribution)

	h := NewHandler(cfg, logger, db, rdb, attribution, reports, touches, tags)
	return h, db
}

func setupTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return h.SetupRouter(nil)
}

func doRequest(r http.Handler, method, target string, body interface{}, cookies []*http.Cookie, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func adminHeader() map[string]string {
	return map[string]string{"X-API-Key": testAdminKey}
}

// sessionCookie returns the campaign session cookie set by a response.
func sessionCookie(w *httptest.ResponseRecorder) []*http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionName {
			return []*http.Cookie{c}
		}
	}
	return nil
}

func createOrder(t *testing.T, db *gorm.DB, order models.Order) models.Order {
	if order.PurchaseKey == "" {
		order.PurchaseKey = utils.NewPurchaseKey()
	}
	if order.Type == "" {
		order.Type = models.OrderTypeSale
	}
	if order.Status == "" {
		order.Status = models.OrderStatusComplete
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	return order
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
