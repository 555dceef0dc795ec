package models

import "time"

// User is the minimal profile the task engine reads: the Telegram identity
// for notification dispatch and the referral code for commission push.
// Profile ownership lives in the user service.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64" json:"username"`
	FirstName    string    `gorm:"size:64" json:"first_name"`
	LastName     string    `gorm:"size:64" json:"last_name"`
	TelegramID   int64     `gorm:"index" json:"telegram_id"`
	ReferralCode string    `gorm:"size:32;index" json:"referral_code"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
