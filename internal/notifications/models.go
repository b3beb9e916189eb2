package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification is one stored in-app notification
type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *int64         `gorm:"index" json:"user_id"`
	CompanyID *int64         `gorm:"index" json:"company_id"`
	Type      string         `gorm:"not null" json:"type"`
	Title     string         `gorm:"not null" json:"title"`
	Message   string         `json:"message"`
	Payload   datatypes.JSON `json:"payload"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName specifies the table name
func (Notification) TableName() string {
	return "notifications"
}

// Notification types emitted by the engine
const (
	TypeCreditsIssued = "credits_issued"
	TypePayoutSent    = "payout_sent"
)
