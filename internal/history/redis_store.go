package history

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "chat:history:"

// RedisStore keeps each room's log in a redis list. RPUSH is atomic, so
// concurrent appends to one room never interleave.
type RedisStore struct {
	rdb  *redis.Client
	opts options
}

func NewRedisStore(rdb *redis.Client, opts ...Option) *RedisStore {
	return &RedisStore{rdb: rdb, opts: buildOptions(opts)}
}

func (s *RedisStore) key(room string) string { return redisKeyPrefix + room }

func (s *RedisStore) Append(ctx context.Context, room, text string) error {
	line := domain.FormatHistoryLine(s.opts.now(), text)
	if err := s.rdb.RPush(ctx, s.key(room), line).Err(); err != nil {
		return fmt.Errorf("history: rpush %s: %w", room, err)
	}
	return nil
}

func (s *RedisStore) ReadAll(ctx context.Context, room string) ([]string, error) {
	lines, err := s.rdb.LRange(ctx, s.key(room), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("history: lrange %s: %w", room, err)
	}
	if lines == nil {
		lines = []string{}
	}
	return lines, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
