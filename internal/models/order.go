package models

import (
	"time"
)

const (
	OrderTypeSale   = "sale"
	OrderTypeRefund = "refund"

	OrderStatusPending  = "pending"
	OrderStatusComplete = "complete"
	OrderStatusRevoked  = "revoked"
	OrderStatusRefunded = "refunded"
)

// Meta keys attached to orders.
const (
	MetaKeyCampaign     = "eddct_campaign"       // Composite attribution (JSON)
	MetaKeyCampaignName = "_eddct_campaign_name" // Campaign name only, for report filtering
	MetaKeyPaymentMeta  = "payment_meta"         // Legacy blob of payment fields (JSON)
)

type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	PurchaseKey string      `gorm:"unique;not null;size:36" json:"purchase_key"`
	Type        string      `gorm:"size:20;not null;default:'sale';index" json:"type"`
	Status      string      `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Total       float64     `gorm:"not null;default:0" json:"total"`
	Tax         float64     `gorm:"not null;default:0" json:"tax"`
	CreatedAt   time.Time   `gorm:"column:date_created;index" json:"date_created"`
	Meta        []OrderMeta `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderMeta struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	OrderID   uint   `gorm:"not null;index" json:"order_id"`
	MetaKey   string `gorm:"size:255;not null;index" json:"meta_key"`
	MetaValue string `gorm:"type:text" json:"meta_value"`
}

func (OrderMeta) TableName() string {
	return "order_meta"
}
