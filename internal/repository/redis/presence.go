package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceStore tracks last-seen timestamps per account in plain keys with a
// TTL. Implements port.PresenceStore; data loss here only degrades the
// "online" badge on the admin user list.
type PresenceStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewPresenceStore constructs the Redis-backed presence tracker.
func NewPresenceStore(client *redis.Client, prefix string, ttl time.Duration) *PresenceStore {
	if prefix == "" {
		prefix = "presence"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PresenceStore{client: client, prefix: prefix, ttl: ttl}
}

// Touch records account activity at the given instant.
func (s *PresenceStore) Touch(ctx context.Context, accountID string, at time.Time) error {
	key := s.key(accountID)
	if err := s.client.Set(ctx, key, at.UnixNano(), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set presence: %w", err)
	}
	return nil
}

// LastSeen returns the most recent recorded activity for an account.
func (s *PresenceStore) LastSeen(ctx context.Context, accountID string) (time.Time, bool, error) {
	nanos, err := s.client.Get(ctx, s.key(accountID)).Int64()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("redis get presence: %w", err)
	}
	return time.Unix(0, nanos).UTC(), true, nil
}

func (s *PresenceStore) key(accountID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, accountID)
}
