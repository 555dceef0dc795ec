package models

import "time"

// UserTaskOrderLog is the idempotency ledger for order-keyed one-off claims.
// The unique triple prevents re-claiming the same reward for the same order.
type UserTaskOrderLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_code_order" json:"user_id"`
	TaskCode  string    `gorm:"size:64;not null;uniqueIndex:idx_user_code_order" json:"task_code"`
	OrderID   uint      `gorm:"not null;uniqueIndex:idx_user_code_order" json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserTaskOrderLog) TableName() string {
	return "users_tasks_orders_log"
}
