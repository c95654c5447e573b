package services

import (
	"context"
	"log/slog"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"

	"github.com/mssola/user_agent"
	"gorm.io/gorm"
)

// TouchService records captured campaign touches in the background.
type TouchService struct {
	db           *gorm.DB
	logger       *slog.Logger
	touchChannel chan models.Touch
	geoIPService *GeoIPService
}

func NewTouchService(db *gorm.DB, logger *slog.Logger, geoIPService *GeoIPService) *TouchService {
	return &TouchService{
		db:           db,
		logger:       logger,
		touchChannel: make(chan models.Touch, 1000),
		geoIPService: geoIPService,
	}
}

func (s *TouchService) Start(ctx context.Context) {
	s.logger.Info("Touch worker starting")
	for {
		select {
		case touch := <-s.touchChannel:
			s.enrichTouch(&touch)

			if err := s.db.Create(&touch).Error; err != nil {
				s.logger.Error("Failed to record campaign touch", "campaign", touch.UTMCampaign, "error", err)
			}
		case <-ctx.Done():
			s.logger.Info("Touch worker stopping")
			return
		}
	}
}

// RecordTouchAsync queues a touch built from a captured attribution.
func (s *TouchService) RecordTouchAsync(a models.Attribution, landingPath, referrer, ip, userAgent string) {
	touch := models.Touch{
		UTMSource:   a.Source,
		UTMCampaign: a.Name,
		UTMMedium:   a.Medium,
		UTMTerm:     a.Term,
		UTMContent:  a.Content,
		LandingPath: landingPath,
		Referrer:    referrer,
		IPAddress:   ip,
		UserAgent:   truncate(userAgent, 255),
	}
	if touch.Referrer == "" {
		touch.Referrer = "Direct"
	}
	touch.Referrer = truncate(touch.Referrer, 255)

	select {
	case s.touchChannel <- touch:
	default:
		s.logger.Warn("Touch channel full, dropping campaign touch", "campaign", a.Name)
	}
}

func (s *TouchService) enrichTouch(touch *models.Touch) {
	ua := user_agent.New(touch.UserAgent)
	browserName, browserVer := ua.Browser()
	touch.Browser = truncate(browserName+" "+browserVer, 50)
	touch.OS = ua.OS()

	if ua.Mobile() {
		touch.DeviceType = "Mobile"
	} else if ua.Bot() {
		touch.DeviceType = "Bot"
	} else {
		touch.DeviceType = "Desktop"
	}

	if s.geoIPService != nil {
		touch.Country, touch.Region, touch.City = s.geoIPService.GetLocation(touch.IPAddress)
	}

	touch.IPAddress = maskIP(touch.IPAddress)
}

func maskIP(ip string) string {
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == '.' {
			return ip[:i] + ".0"
		}
		if ip[i] == ':' {
			return "IPv6 (Masked)"
		}
	}
	return ip
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
