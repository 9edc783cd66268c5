package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// presenceTTL bounds how long a stale last-active record survives a
// crashed process before Redis expires it.
const presenceTTL = 80 * time.Second

const presenceKeyPrefix = "presence:"

type PresenceRepo struct {
	redis *redis.Client
}

func NewPresenceRepo(redis *redis.Client) *PresenceRepo {
	return &PresenceRepo{redis: redis}
}

func (pr *PresenceRepo) UpdateLastActive(ctx context.Context, userID string, at time.Time) error {
	key := presenceKeyPrefix + userID
	return pr.redis.Set(ctx, key, at.UTC().Format(time.RFC3339Nano), presenceTTL).Err()
}

func (pr *PresenceRepo) GetLastActive(ctx context.Context, userID string) (time.Time, bool, error) {
	key := presenceKeyPrefix + userID

	v, err := pr.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	at, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last active for user %s: %w", userID, err)
	}
	return at, true, nil
}

func (pr *PresenceRepo) DeleteLastActive(ctx context.Context, userID string) error {
	key := presenceKeyPrefix + userID
	return pr.redis.Del(ctx, key).Err()
}

func (pr *PresenceRepo) OnlineUserIDs(ctx context.Context) ([]string, error) {
	var (
		users  []string
		cursor uint64
	)

	for {
		keys, next, err := pr.redis.Scan(ctx, cursor, presenceKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			users = append(users, strings.TrimPrefix(key, presenceKeyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return users, nil
}
