package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const DefaultResultKey = "studioledger:dashboard:latest"

// RedisStore shares the latest result between replicas.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    func() time.Duration
}

func NewRedisStore(client *redis.Client, key string, ttl func() time.Duration) *RedisStore {
	if key == "" {
		key = DefaultResultKey
	}
	if ttl == nil {
		ttl = func() time.Duration { return 0 }
	}
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (Entry, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrCacheMiss
	}
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode cached result: %w", err)
	}
	return entry, nil
}

func (s *RedisStore) Save(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}
	ttl := s.ttl()
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key, data, ttl).Err()
}
