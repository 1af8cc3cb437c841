package admission

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"devmeet/internal/booking"
)

// Status codes returned by PIN verification.
type Status string

const (
	StatusInvalidPin     Status = "INVALID_PIN"
	StatusInvalidMeeting Status = "INVALID_MEETING"
	StatusTooEarly       Status = "TOO_EARLY"
	StatusTooLate        Status = "TOO_LATE"
	StatusWaitingForHost Status = "WAITING_FOR_HOST"
	StatusValid          Status = "VALID"
	StatusError          Status = "ERROR"
)

// JoinGrace widens the admission window on both sides of the meeting:
// [start-30m, end+30m], inclusive at both edges.
const JoinGrace = 30 * time.Minute

// Result carries the verification outcome. StartTime is set for TOO_EARLY
// and WAITING_FOR_HOST so the client can display it; Email identifies the
// admitted guest for VALID (guests have no durable account).
type Result struct {
	Status    Status
	StartTime time.Time
	Email     string
}

// ValidPinFormat reports whether pin is exactly six digits. Anything else
// is rejected before any store lookup.
func ValidPinFormat(pin string) bool {
	if len(pin) != 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// HostChecker is the presence read the verifier gates on.
type HostChecker interface {
	IsHostActive(ctx context.Context, meetingID string) bool
}

// Verifier decides whether a guest's PIN admits them to a meeting room.
type Verifier struct {
	DB       *gorm.DB
	Presence HostChecker
	Loc      *time.Location
	Log      *zap.SugaredLogger

	now func() time.Time
}

func NewVerifier(db *gorm.DB, presence HostChecker, loc *time.Location, log *zap.SugaredLogger) *Verifier {
	return &Verifier{DB: db, Presence: presence, Loc: loc, Log: log, now: time.Now}
}

// Verify runs the server-side admission check within one request/response
// cycle. The PIN is booking-scoped: the first attendee row with a matching
// PIN wins, which deliberately does not distinguish individual attendees.
func (v *Verifier) Verify(ctx context.Context, meetingID, pin string) Result {
	if meetingID == "" || !ValidPinFormat(pin) {
		return Result{Status: StatusInvalidPin}
	}
	pinNum, _ := strconv.Atoi(pin)

	var b booking.Booking
	err := v.DB.WithContext(ctx).
		Preload("Attendees", "meeting_pin = ?", pinNum).
		Where("meeting_id = ?", meetingID).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{Status: StatusInvalidMeeting}
	}
	if err != nil {
		v.Log.Errorw("pin verification lookup failed", "meeting", meetingID, "error", err)
		return Result{Status: StatusError}
	}
	if len(b.Attendees) == 0 {
		return Result{Status: StatusInvalidPin}
	}

	start, err := b.StartAt(v.Loc)
	if err != nil {
		v.Log.Errorw("bad booking start time", "meeting", meetingID, "error", err)
		return Result{Status: StatusError}
	}
	end, err := b.EndAt(v.Loc)
	if err != nil {
		v.Log.Errorw("bad booking end time", "meeting", meetingID, "error", err)
		return Result{Status: StatusError}
	}

	now := v.now()
	if now.Before(start.Add(-JoinGrace)) {
		return Result{Status: StatusTooEarly, StartTime: start}
	}
	if now.After(end.Add(JoinGrace)) {
		return Result{Status: StatusTooLate}
	}

	if !v.Presence.IsHostActive(ctx, meetingID) {
		return Result{Status: StatusWaitingForHost, StartTime: start}
	}
	return Result{Status: StatusValid, Email: b.Attendees[0].Email}
}
