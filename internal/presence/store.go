package presence

import (
	"context"
	"time"
)

// Store holds the ephemeral host-active flag per meeting. Flags carry a TTL
// so an orphaned "host active" state self-heals even when the host's leave
// signal is lost. Absence always reads as "host not present".
type Store interface {
	SetActive(ctx context.Context, meetingID string, ttl time.Duration) error
	Clear(ctx context.Context, meetingID string) error
	IsActive(ctx context.Context, meetingID string) (bool, error)
}

func hostActiveKey(meetingID string) string {
	return "meeting:" + meetingID + ":host_active"
}
