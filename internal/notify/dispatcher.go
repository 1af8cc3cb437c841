package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"devmeet/internal/booking"
	"devmeet/internal/jobs"
	"devmeet/internal/realtime"
)

// Dispatcher handles notify-user jobs: existence guard, durable notification
// row, then a best-effort realtime push to the organizer's topic.
type Dispatcher struct {
	DB  *gorm.DB
	Pub realtime.Publisher
	Log *zap.SugaredLogger
}

// HandleNotifyUser is idempotent under at-least-once delivery: once the
// booking is gone a re-delivery is a no-op, and a dead booking never
// produces a notification at all.
func (d *Dispatcher) HandleNotifyUser(ctx context.Context, job *jobs.Job) error {
	var p booking.ReminderPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return errors.Mark(errors.Wrap(err, "decode reminder payload"), jobs.ErrPermanent)
	}

	// existence guard: the booking may have been deleted after scheduling
	var b booking.Booking
	err := d.DB.WithContext(ctx).
		Where("meeting_id = ? AND organizer_id = ?", p.MeetingID, p.UserID).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jobs.ErrStale
	}
	if err != nil {
		return errors.Wrap(err, "booking lookup")
	}

	n := Notification{
		UserID:      p.UserID,
		Title:       "Upcoming Meeting",
		Description: fmt.Sprintf("Your meeting %q starts at %s", p.Title, p.From),
		MeetingID:   p.MeetingID,
	}
	if err := d.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return errors.Wrap(err, "create notification")
	}

	// best-effort push; the row above already made the reminder durable
	d.Pub.Publish(realtime.UserTopic(p.UserID), realtime.EventNotification, map[string]any{
		"id":          n.ID,
		"title":       n.Title,
		"description": n.Description,
		"meetingId":   n.MeetingID,
		"read":        n.Read,
		"createdAt":   n.CreatedAt,
	})
	d.Log.Infow("reminder delivered", "user", p.UserID, "meeting", p.MeetingID, "notification", n.ID)
	return nil
}
