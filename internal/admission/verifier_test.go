package admission

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"devmeet/internal/booking"
)

type stubPresence struct {
	active bool
	calls  int
}

func (s *stubPresence) IsHostActive(ctx context.Context, meetingID string) bool {
	s.calls++
	return s.active
}

func testVerifier(t *testing.T, presence HostChecker) *Verifier {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&booking.Booking{}, &booking.Attendee{}))
	return NewVerifier(gdb, presence, time.UTC, zap.NewNop().Sugar())
}

// seedMeeting creates a booking running 10:00-11:00 on 2026-08-28 with two
// attendees sharing pin 123456.
func seedMeeting(t *testing.T, db *gorm.DB) *booking.Booking {
	t.Helper()
	b := booking.Booking{
		MeetingID:   "abc1234",
		OrganizerID: 7,
		Title:       "Standup",
		Date:        time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		From:        "10:00",
		To:          "11:00",
		Attendees: []booking.Attendee{
			{Email: "ana@example.com", MeetingPin: 123456},
			{Email: "ben@example.com", MeetingPin: 123456},
		},
	}
	require.NoError(t, db.Create(&b).Error)
	return &b
}

func at(hour, min int) time.Time {
	return time.Date(2026, 8, 28, hour, min, 0, 0, time.UTC)
}

func TestVerifyMalformedPinSkipsLookup(t *testing.T) {
	// nil DB: any store access would panic
	v := NewVerifier(nil, nil, time.UTC, zap.NewNop().Sugar())

	for _, pin := range []string{"", "12345", "1234567", "12a456", "12 456"} {
		res := v.Verify(context.Background(), "abc1234", pin)
		assert.Equal(t, StatusInvalidPin, res.Status, "pin %q", pin)
	}
	res := v.Verify(context.Background(), "", "123456")
	assert.Equal(t, StatusInvalidPin, res.Status, "empty meeting id")
}

func TestVerifyUnknownMeeting(t *testing.T) {
	v := testVerifier(t, &stubPresence{})
	seedMeeting(t, v.DB)

	res := v.Verify(context.Background(), "zzzzzzz", "123456")
	assert.Equal(t, StatusInvalidMeeting, res.Status)
}

func TestVerifyWrongPin(t *testing.T) {
	v := testVerifier(t, &stubPresence{active: true})
	seedMeeting(t, v.DB)
	v.now = func() time.Time { return at(10, 15) }

	res := v.Verify(context.Background(), "abc1234", "654321")
	assert.Equal(t, StatusInvalidPin, res.Status)
}

func TestVerifyWindowEdges(t *testing.T) {
	cases := []struct {
		now  time.Time
		want Status
	}{
		{at(9, 29), StatusTooEarly},  // one minute outside the grace
		{at(9, 30), StatusValid},     // window opens exactly at start-30m
		{at(10, 30), StatusValid},    // mid-meeting
		{at(11, 30), StatusValid},    // window closes exactly at end+30m
		{at(11, 31), StatusTooLate},  // one minute past
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s->%s", tc.now.Format("15:04"), tc.want), func(t *testing.T) {
			v := testVerifier(t, &stubPresence{active: true})
			seedMeeting(t, v.DB)
			v.now = func() time.Time { return tc.now }

			res := v.Verify(context.Background(), "abc1234", "123456")
			assert.Equal(t, tc.want, res.Status)
		})
	}
}

func TestVerifyTooEarlyReportsStartTime(t *testing.T) {
	v := testVerifier(t, &stubPresence{})
	seedMeeting(t, v.DB)
	v.now = func() time.Time { return at(8, 0) }

	res := v.Verify(context.Background(), "abc1234", "123456")
	assert.Equal(t, StatusTooEarly, res.Status)
	assert.Equal(t, at(10, 0), res.StartTime)
}

func TestVerifyWaitsForHost(t *testing.T) {
	presence := &stubPresence{active: false}
	v := testVerifier(t, presence)
	seedMeeting(t, v.DB)
	v.now = func() time.Time { return at(10, 15) }

	res := v.Verify(context.Background(), "abc1234", "123456")
	assert.Equal(t, StatusWaitingForHost, res.Status)
	assert.Equal(t, at(10, 0), res.StartTime)
	assert.Equal(t, 1, presence.calls)
}

func TestVerifyAdmitsFirstMatchingAttendee(t *testing.T) {
	v := testVerifier(t, &stubPresence{active: true})
	seedMeeting(t, v.DB)
	v.now = func() time.Time { return at(10, 15) }

	res := v.Verify(context.Background(), "abc1234", "123456")
	assert.Equal(t, StatusValid, res.Status)
	assert.Equal(t, "ana@example.com", res.Email)
}

func TestVerifyTimeWindowBeforePresence(t *testing.T) {
	presence := &stubPresence{active: false}
	v := testVerifier(t, presence)
	seedMeeting(t, v.DB)
	v.now = func() time.Time { return at(8, 0) }

	res := v.Verify(context.Background(), "abc1234", "123456")
	assert.Equal(t, StatusTooEarly, res.Status)
	assert.Zero(t, presence.calls, "presence is not consulted outside the window")
}

func TestValidPinFormat(t *testing.T) {
	assert.True(t, ValidPinFormat("000000"))
	assert.True(t, ValidPinFormat("999999"))
	assert.False(t, ValidPinFormat("99999"))
	assert.False(t, ValidPinFormat("9999999"))
	assert.False(t, ValidPinFormat("12345x"))
	assert.False(t, ValidPinFormat(""))
}
