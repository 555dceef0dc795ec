package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Condition identifies how a task is completed.
type Condition string

const (
	ConditionManualClick              Condition = "MANUAL_CLICK"
	ConditionDailyCheckIn             Condition = "DAILY_CHECK_IN"
	ConditionDailyTrading             Condition = "DAILY_TRADING"
	ConditionReachDepositVolume       Condition = "REACH_DEPOSIT_VOLUME"
	ConditionReachTradeVolume         Condition = "REACH_TRADE_VOLUME"
	ConditionCompleteChildMission     Condition = "COMPLETE_CHILD_MISSION"
	ConditionAffiliateClick           Condition = "AFFILIATE_CLICK"
	ConditionSubscribeTwitter         Condition = "SUBSCRIBE_TWITTER"
	ConditionJoinTelegramGroup        Condition = "JOIN_TELEGRAM_GROUP"
	ConditionSubscribeTelegramChannel Condition = "SUBSCRIBE_TELEGRAM_CHANNEL"
)

// TaskType distinguishes one-shot tasks from the rolling daily streak cycle.
type TaskType string

const (
	TypeOneTime     TaskType = "ONE_TIME"
	TypeDailyStreak TaskType = "DAILY_STREAK"
)

// Group buckets tasks for the client task list.
type Group string

const (
	GroupDaily         Group = "DAILY"
	GroupSocial        Group = "SOCIAL"
	GroupTrade2Airdrop Group = "TRADE2AIRDROP"
)

// Status is the per-user task lifecycle state.
type Status string

const (
	StatusLocked    Status = "LOCKED"
	StatusAvailable Status = "AVAILABLE"
	StatusClaimable Status = "CLAIMABLE"
	StatusCompleted Status = "COMPLETED"
)

// TaskMetadata carries the optional volume threshold for reach-volume tasks
// and per-user progress on user task rows. Stored as a JSON column.
type TaskMetadata struct {
	Progress float64 `json:"progress,omitempty"`
	Total    float64 `json:"total,omitempty"`
}

// Value implements driver.Valuer so gorm can persist the metadata as JSON.
func (m TaskMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *TaskMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = TaskMetadata{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}
	if len(b) == 0 {
		*m = TaskMetadata{}
		return nil
	}
	return json.Unmarshal(b, m)
}

// Task is an immutable catalog entry. Rows are owned by configuration and
// never mutated by the engine.
type Task struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Code           string       `gorm:"size:32;not null;uniqueIndex" json:"code"`
	Title          string       `gorm:"size:255;not null" json:"title"`
	ButtonText     string       `gorm:"size:64;not null;default:JOIN" json:"button_text"`
	Icon           string       `gorm:"size:512" json:"icon"`
	Link           string       `gorm:"size:512" json:"link"`
	Condition      Condition    `gorm:"size:64;not null;index" json:"condition"`
	Type           TaskType     `gorm:"size:32;not null" json:"type"`
	Group          Group        `gorm:"size:32;not null;index" json:"group"`
	IsEnable       bool         `gorm:"not null;default:true" json:"is_enable"`
	RewardAsset    string       `gorm:"size:32;not null;default:HOPIUM" json:"reward_asset"`
	RewardQuantity float64      `gorm:"not null;default:0" json:"reward_quantity"`
	Metadata       TaskMetadata `gorm:"type:json" json:"metadata"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// TableName keeps the original collection naming.
func (Task) TableName() string {
	return "tasks"
}
