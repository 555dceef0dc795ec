package models

import "time"

// Partner type values carried on orders. Partner-flagged and DCA orders are
// excluded from volume accumulation by policy.
const (
	PartnerTypeNone = 0
)

// FutureOrder is the subset of the order book the task engine reads: it
// verifies order ownership for order-keyed claims and carries the volume
// used by the trade accumulator.
type FutureOrder struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DisplayingID uint      `gorm:"not null;index" json:"displaying_id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Symbol       string    `gorm:"size:32" json:"symbol"`
	OrderValue   float64   `gorm:"not null;default:0" json:"order_value"`
	PartnerType  int       `gorm:"not null;default:0" json:"partner_type"`
	IsDCA        bool      `gorm:"column:is_dca;not null;default:false" json:"is_dca"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (FutureOrder) TableName() string {
	return "future_orders"
}
