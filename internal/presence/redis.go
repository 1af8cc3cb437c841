package presence

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps host-active flags in redis with per-key expiry.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	opts.MaxRetries = 3
	return &RedisStore{rdb: redis.NewClient(opts)}, nil
}

func (s *RedisStore) SetActive(ctx context.Context, meetingID string, ttl time.Duration) error {
	err := s.rdb.Set(ctx, hostActiveKey(meetingID), "true", ttl).Err()
	return errors.Wrap(err, "set host active")
}

func (s *RedisStore) Clear(ctx context.Context, meetingID string) error {
	err := s.rdb.Del(ctx, hostActiveKey(meetingID)).Err()
	return errors.Wrap(err, "clear host active")
}

func (s *RedisStore) IsActive(ctx context.Context, meetingID string) (bool, error) {
	_, err := s.rdb.Get(ctx, hostActiveKey(meetingID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "read host active")
	}
	return true, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return errors.Wrap(s.rdb.Ping(ctx).Err(), "redis ping")
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
