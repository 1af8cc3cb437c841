package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a single-process Store used in tests and as the fallback
// when no redis is configured. Expiry is checked lazily on read.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) SetActive(_ context.Context, meetingID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires[hostActiveKey(meetingID)] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, meetingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, hostActiveKey(meetingID))
	return nil
}

func (s *MemoryStore) IsActive(_ context.Context, meetingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := hostActiveKey(meetingID)
	exp, ok := s.expires[key]
	if !ok {
		return false, nil
	}
	if s.now().After(exp) {
		delete(s.expires, key)
		return false, nil
	}
	return true, nil
}
