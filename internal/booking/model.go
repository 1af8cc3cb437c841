package booking

import (
	"time"

	"github.com/cockroachdb/errors"
)

// TimeOfDayLayout is the wire format for the From/To fields.
const TimeOfDayLayout = "15:04"

// Booking is an organizer-owned meeting. Attendees are owned rows, removed
// in the same transaction as the booking.
type Booking struct {
	ID          uint64 `gorm:"primaryKey"`
	MeetingID   string `gorm:"uniqueIndex;not null"`
	OrganizerID uint64 `gorm:"index;not null"`

	Title       string `gorm:"not null"`
	Description string `gorm:"type:text;not null;default:''"`

	Date time.Time `gorm:"index;not null"`
	From string    `gorm:"not null"`
	To   string    `gorm:"not null"`

	Attendees []Attendee

	CreatedAt time.Time `gorm:"not null"`
}

// Attendee holds one invited guest. The PIN is a booking-scoped secret: all
// attendees of one booking share it, and matching takes the first row.
type Attendee struct {
	ID         uint64 `gorm:"primaryKey"`
	BookingID  uint64 `gorm:"index;not null"`
	Email      string `gorm:"not null"`
	MeetingPin int    `gorm:"index;not null"`

	CreatedAt time.Time `gorm:"not null"`
}

// StartAt resolves Date+From in loc.
func (b *Booking) StartAt(loc *time.Location) (time.Time, error) {
	return atTimeOfDay(b.Date, b.From, loc)
}

// EndAt resolves Date+To in loc.
func (b *Booking) EndAt(loc *time.Location) (time.Time, error) {
	return atTimeOfDay(b.Date, b.To, loc)
}

func atTimeOfDay(date time.Time, hm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(TimeOfDayLayout, hm)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time of day %q", hm)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// ReminderPayload is the body of a notify-user job.
type ReminderPayload struct {
	UserID    uint64    `json:"user_id"`
	Title     string    `json:"title"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	MeetingID string    `json:"meeting_id"`
	StartAt   time.Time `json:"start_at"`
}

// JobTypeNotifyUser tags meeting reminder jobs.
const JobTypeNotifyUser = "notify-user"
