package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps flags in Redis with a TTL, for deployments running more
// than one site instance.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at addr.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func introKey(id string) string {
	return fmt.Sprintf("intro-played:%s", id)
}

func (s *RedisStore) IntroPlayed(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, introKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) MarkIntroPlayed(ctx context.Context, id string) error {
	if err := s.client.Set(ctx, introKey(id), "true", DefaultTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
