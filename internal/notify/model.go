package notify

import "time"

// Notification is the durable record of a delivered reminder. The realtime
// push is best-effort; this row is the source of truth.
type Notification struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Title       string `gorm:"not null"`
	Description string `gorm:"type:text;not null;default:''"`
	MeetingID   string `gorm:"index;not null"`

	Read bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
}
