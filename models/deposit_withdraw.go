package models

import "time"

// Deposit/withdraw row types and statuses as written by the payment
// pipeline. The task engine only sweeps completed deposits.
const (
	DWTypeDeposit     = 1
	DWTypeWithdraw    = 2
	DWStatusPending   = 1
	DWStatusCompleted = 2
	DWStatusFailed    = 3
)

// DepositWithdraw is read by the minute sweep that feeds the deposit-volume
// accumulator. Rows are owned by the payment pipeline.
type DepositWithdraw struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      int       `gorm:"not null;index" json:"type"`
	Status    int       `gorm:"not null;index" json:"status"`
	AssetID   uint      `gorm:"not null" json:"asset_id"`
	Amount    float64   `gorm:"not null;default:0" json:"amount"`
	USDValue  float64   `gorm:"column:usd_value;not null;default:0" json:"usd_value"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DepositWithdraw) TableName() string {
	return "deposit_withdraws"
}
