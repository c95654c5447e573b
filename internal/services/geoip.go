package services

import (
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/config"

	"github.com/oschwald/geoip2-golang"
)

type geoIPReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// GeoIPService resolves touch locations from a local GeoLite2 City database.
// Without a database every lookup returns "Unknown".
type GeoIPService struct {
	cfg       config.Config
	logger    *slog.Logger
	geoReader geoIPReader
	geoLock   sync.RWMutex
}

func NewGeoIPService(cfg config.Config, logger *slog.Logger) *GeoIPService {
	return &GeoIPService{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *GeoIPService) Init() {
	if s.cfg.GeoIPDBPath == "" {
		s.logger.Warn("GeoIP: database path not set. Lookups will be disabled.")
		return
	}

	if _, err := os.Stat(s.cfg.GeoIPDBPath); err != nil {
		s.logger.Warn("GeoIP: database not found. Lookups will be disabled.", "path", s.cfg.GeoIPDBPath)
		return
	}

	reader, err := geoip2.Open(s.cfg.GeoIPDBPath)
	if err != nil {
		s.logger.Error("GeoIP: Failed to open database", "path", s.cfg.GeoIPDBPath, "error", err)
		return
	}
	s.setReader(reader)

	meta := reader.Metadata()
	s.logger.Info("GeoIP: Loaded database", "epoch", meta.BuildEpoch)
}

func (s *GeoIPService) setReader(reader geoIPReader) {
	s.geoLock.Lock()
	defer s.geoLock.Unlock()

	if s.geoReader != nil {
		s.geoReader.Close()
	}
	s.geoReader = reader
}

func (s *GeoIPService) Close() {
	s.setReader(nil)
}

func (s *GeoIPService) GetLocation(ipStr string) (country, region, city string) {
	if ipStr == "127.0.0.1" || ipStr == "::1" {
		return "Localhost", "Local", "Local"
	}

	s.geoLock.RLock()
	reader := s.geoReader
	s.geoLock.RUnlock()

	if reader == nil {
		return "Unknown", "", ""
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "Invalid IP", "", ""
	}

	record, err := reader.City(ip)
	if err != nil {
		s.logger.Error("GeoIP: Lookup error", "ip", ipStr, "error", err)
		return "Error", "", ""
	}

	if name, ok := record.Country.Names["en"]; ok {
		country = name
	} else {
		country = record.Country.IsoCode
	}

	if country == "" {
		country = "Unknown"
	}

	if len(record.Subdivisions) > 0 {
		if name, ok := record.Subdivisions[0].Names["en"]; ok {
			region = name
		}
	}

	if name, ok := record.City.Names["en"]; ok {
		city = name
	}

	return country, region, city
}
