package auth

import "time"

// User is an organizer account. Guests never get one; they are admitted by
// PIN and identified by their attendee email only.
type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}
