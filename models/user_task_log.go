package models

import "time"

// UserTaskLog is the claim audit trail. One row is written per successful
// claim with the awarded asset and quantity, before the ledger credit, so a
// non-idempotent wallet collaborator can be reconciled against it.
type UserTaskLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	TaskID         uint      `gorm:"not null;index" json:"task_id"`
	Action         string    `gorm:"size:32;not null" json:"action"`
	RewardAsset    string    `gorm:"size:32;not null" json:"reward_asset"`
	RewardQuantity float64   `gorm:"not null" json:"reward_quantity"`
	CreatedAt      time.Time `json:"created_at"`
}

func (UserTaskLog) TableName() string {
	return "users_tasks_log"
}
