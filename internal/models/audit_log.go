package models

import (
	"time"
)

const (
	AuditActionLogCampaign     = "LOG_CAMPAIGN"
	AuditActionMigrateCampaign = "MIGRATE_CAMPAIGN"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Action    string    `gorm:"size:50;not null;index" json:"action"` // e.g., "LOG_CAMPAIGN", "MIGRATE_CAMPAIGN"
	EntityID  string    `gorm:"size:50" json:"entity_id"`             // Order ID
	Details   string    `gorm:"type:text" json:"details"`             // JSON
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	Timestamp time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"timestamp"`
}
