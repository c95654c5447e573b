package models

import (
	"time"
)

// Touch is a visit that carried a complete set of campaign parameters.
type Touch struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Timestamp   time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"timestamp"`
	UTMSource   string    `gorm:"size:255" json:"utm_source"`
	UTMCampaign string    `gorm:"size:255;index" json:"utm_campaign"`
	UTMMedium   string    `gorm:"size:255" json:"utm_medium"`
	UTMTerm     string    `gorm:"size:255" json:"utm_term,omitempty"`
	UTMContent  string    `gorm:"size:255" json:"utm_content,omitempty"`
	LandingPath string    `gorm:"type:text" json:"landing_path"`
	Referrer    string    `gorm:"size:255;default:'Direct'" json:"referrer"`
	IPAddress   string    `gorm:"size:45" json:"ip_address,omitempty"`
	Country     string    `gorm:"size:100;default:'Unknown'" json:"country"`
	City        string    `gorm:"size:100" json:"city"`
	Region      string    `gorm:"size:100" json:"region"`
	Browser     string    `gorm:"size:50" json:"browser"`
	OS          string    `gorm:"size:100" json:"os"`
	DeviceType  string    `gorm:"size:50" json:"device_type"`
	UserAgent   string    `gorm:"size:255" json:"-"` // Raw value, parsed by the touch worker
}
