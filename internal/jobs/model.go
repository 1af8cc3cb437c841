package jobs

import "time"

// Job statuses. A job moves PENDING -> RUNNING via an atomic claim, then to
// DONE (or is deleted when RemoveOnComplete is set), back to PENDING on a
// retryable failure, or to FAILED once attempts are exhausted. FAILED rows
// are dead-lettered and never deleted automatically.
const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusFailed  = "FAILED"
)

const DefaultMaxAttempts = 3

type Job struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Type    string `gorm:"type:text;not null"`
	Payload []byte `gorm:"not null;default:'{}'"`

	// Ref is a caller-supplied correlation key (the meeting id for reminder
	// jobs) so pending work can be cancelled without inspecting payloads.
	Ref string `gorm:"type:text;index;not null;default:''"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"`

	Attempts         int  `gorm:"not null;default:0"`
	MaxAttempts      int  `gorm:"not null;default:3"`
	RemoveOnComplete bool `gorm:"not null;default:false"`

	LockedBy *string `gorm:"type:text"`
	LockedAt *time.Time

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
