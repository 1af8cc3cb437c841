package presence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"devmeet/internal/realtime"
)

const DefaultHostActiveTTL = 2 * time.Hour

// Tracker pairs the host-active flag with the realtime announcement guests
// wait on. Flag first, event second: a guest who verifies between the two
// re-checks the flag anyway.
type Tracker struct {
	store Store
	pub   realtime.Publisher
	ttl   time.Duration
	log   *zap.SugaredLogger
}

func NewTracker(store Store, pub realtime.Publisher, ttl time.Duration, log *zap.SugaredLogger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultHostActiveTTL
	}
	return &Tracker{store: store, pub: pub, ttl: ttl, log: log}
}

// MarkHostActive records the host's conferencing session as live and tells
// the meeting's topic about it.
func (t *Tracker) MarkHostActive(ctx context.Context, meetingID string) error {
	if err := t.store.SetActive(ctx, meetingID, t.ttl); err != nil {
		return err
	}
	t.pub.Publish(realtime.MeetingTopic(meetingID), realtime.EventHostJoined, map[string]any{"started": true})
	t.log.Infow("host joined", "meeting", meetingID)
	return nil
}

// ClearHostActive drops the flag on explicit host hangup. A crash skips
// this path; the TTL bounds how long the stale flag survives.
func (t *Tracker) ClearHostActive(ctx context.Context, meetingID string) error {
	if err := t.store.Clear(ctx, meetingID); err != nil {
		return err
	}
	t.pub.Publish(realtime.MeetingTopic(meetingID), realtime.EventHostLeft, map[string]any{"ended": true})
	t.log.Infow("host left", "meeting", meetingID)
	return nil
}

// IsHostActive reads the flag. Store errors are logged and read as absent:
// a false "host inactive" only delays a guest, the reverse would let them in
// without a host.
func (t *Tracker) IsHostActive(ctx context.Context, meetingID string) bool {
	active, err := t.store.IsActive(ctx, meetingID)
	if err != nil {
		t.log.Warnw("host presence read failed", "meeting", meetingID, "error", err)
		return false
	}
	return active
}
