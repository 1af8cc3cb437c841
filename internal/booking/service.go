package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"devmeet/internal/jobs"
)

var (
	ErrNotFound  = errors.New("booking not found")
	ErrDuplicate = errors.New("booking already exists")
	ErrForbidden = errors.New("not the organizer")
	ErrInvalid   = errors.New("invalid booking input")
)

type Service struct {
	DB   *gorm.DB
	Jobs *jobs.Repo
	Log  *zap.SugaredLogger

	Loc          *time.Location
	ReminderLead time.Duration
}

type CreateInput struct {
	Title          string
	Description    string
	Date           time.Time
	From           string
	To             string
	AttendeeEmails []string
}

// Create books a meeting: duplicate check, booking + attendees in one
// transaction, then the reminder enqueue. Enqueue failure means "reminder
// not scheduled" and is logged; it never fails the booking itself.
func (s *Service) Create(ctx context.Context, organizerID uint64, in CreateInput) (*Booking, error) {
	if in.Title == "" || in.From == "" || in.To == "" || in.Date.IsZero() {
		return nil, ErrInvalid
	}
	if _, err := time.Parse(TimeOfDayLayout, in.From); err != nil {
		return nil, errors.WithSecondaryError(ErrInvalid, err)
	}
	if _, err := time.Parse(TimeOfDayLayout, in.To); err != nil {
		return nil, errors.WithSecondaryError(ErrInvalid, err)
	}

	var count int64
	err := s.DB.WithContext(ctx).Model(&Booking{}).
		Where("organizer_id = ? AND title = ? AND date = ? AND \"from\" = ? AND \"to\" = ?",
			organizerID, in.Title, in.Date, in.From, in.To).
		Count(&count).Error
	if err != nil {
		return nil, errors.Wrap(err, "duplicate check")
	}
	if count > 0 {
		return nil, ErrDuplicate
	}

	pin := NewMeetingPin()
	b := Booking{
		MeetingID:   NewMeetingID(),
		OrganizerID: organizerID,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		From:        in.From,
		To:          in.To,
	}
	for _, email := range in.AttendeeEmails {
		b.Attendees = append(b.Attendees, Attendee{Email: email, MeetingPin: pin})
	}

	if err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&b).Error
	}); err != nil {
		return nil, errors.Wrap(err, "create booking")
	}

	s.scheduleReminder(ctx, &b)
	return &b, nil
}

func (s *Service) scheduleReminder(ctx context.Context, b *Booking) {
	start, err := b.StartAt(s.Loc)
	if err != nil {
		s.Log.Warnw("reminder not scheduled, bad start time", "meeting", b.MeetingID, "error", err)
		return
	}
	delay := time.Until(start.Add(-s.ReminderLead))
	if delay <= 0 {
		// meeting starts within the lead time, nothing to remind about
		return
	}

	payload := ReminderPayload{
		UserID:    b.OrganizerID,
		Title:     b.Title,
		From:      b.From,
		To:        b.To,
		MeetingID: b.MeetingID,
		StartAt:   start,
	}
	opts := jobs.Options{MaxAttempts: jobs.DefaultMaxAttempts, RemoveOnComplete: true}
	id, err := s.Jobs.Enqueue(ctx, b.OrganizerID, JobTypeNotifyUser, b.MeetingID, payload, delay, opts)
	if err != nil {
		s.Log.Warnw("reminder not scheduled", "meeting", b.MeetingID, "error", err)
		return
	}
	s.Log.Infow("reminder scheduled", "meeting", b.MeetingID, "job", id, "run_in", delay)
}

// Delete removes a booking and its attendees, then best-effort cancels the
// pending reminder. A reminder already claimed by a worker slips through
// here; the dispatch existence guard is the final safety net.
func (s *Service) Delete(ctx context.Context, organizerID, bookingID uint64) error {
	var b Booking
	err := s.DB.WithContext(ctx).First(&b, bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "load booking")
	}
	if b.OrganizerID != organizerID {
		return ErrForbidden
	}

	if err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ?", b.ID).Delete(&Attendee{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Booking{}, b.ID).Error
	}); err != nil {
		return errors.Wrap(err, "delete booking")
	}

	if n, err := s.Jobs.CancelPending(ctx, JobTypeNotifyUser, b.MeetingID); err != nil {
		s.Log.Warnw("reminder cancel failed", "meeting", b.MeetingID, "error", err)
	} else if n > 0 {
		s.Log.Infow("cancelled pending reminders", "meeting", b.MeetingID, "count", n)
	}
	return nil
}

type ListFilter struct {
	Date      *time.Time
	StartDate *time.Time
	EndDate   *time.Time
}

// List returns the organizer's bookings with attendees, date ascending.
func (s *Service) List(ctx context.Context, organizerID uint64, f ListFilter) ([]Booking, error) {
	q := s.DB.WithContext(ctx).Model(&Booking{}).
		Where("organizer_id = ?", organizerID).
		Preload("Attendees").
		Order("date asc")

	switch {
	case f.StartDate != nil && f.EndDate != nil:
		q = q.Where("date >= ? AND date <= ?", *f.StartDate, *f.EndDate)
	case f.Date != nil:
		q = q.Where("date >= ? AND date < ?", *f.Date, f.Date.AddDate(0, 0, 1))
	}

	var out []Booking
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	return out, nil
}

// GetByMeetingID loads a booking with attendees by its public room code.
func (s *Service) GetByMeetingID(ctx context.Context, meetingID string) (*Booking, error) {
	var b Booking
	err := s.DB.WithContext(ctx).Preload("Attendees").
		Where("meeting_id = ?", meetingID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load booking")
	}
	return &b, nil
}
