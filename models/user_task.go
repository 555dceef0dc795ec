package models

import "time"

// UserTask is the per-user state of one task. At most one row exists per
// (user, task) pair; the state machine creates rows lazily on the first
// relevant event.
type UserTask struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	UserID      uint         `gorm:"not null;uniqueIndex:idx_user_task" json:"user_id"`
	TaskID      uint         `gorm:"not null;uniqueIndex:idx_user_task" json:"task_id"`
	Type        TaskType     `gorm:"size:32;not null" json:"type"`
	Status      Status       `gorm:"size:32;not null" json:"status"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	ClaimedAt   *time.Time   `json:"claimed_at,omitempty"`
	Metadata    TaskMetadata `gorm:"type:json" json:"metadata"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (UserTask) TableName() string {
	return "users_tasks"
}
