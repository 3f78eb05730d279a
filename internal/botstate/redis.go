package botstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps command state in Redis so sessions survive restarts and
// multiple bot instances can share them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Close releases the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func stateKey(user string) string {
	return "facebot:state:" + user
}

func (r *RedisStore) Set(ctx context.Context, user string, state State, label string) error {
	payload, err := json.Marshal(Entry{State: state, Label: label})
	if err != nil {
		return fmt.Errorf("marshal state entry: %w", err)
	}
	if err := r.client.Set(ctx, stateKey(user), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, user string) (Entry, error) {
	payload, err := r.client.Get(ctx, stateKey(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{State: StateIdle}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get state: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(payload, &e); err != nil {
		return Entry{}, fmt.Errorf("unmarshal state entry: %w", err)
	}
	return e, nil
}

func (r *RedisStore) Clear(ctx context.Context, user string) error {
	if err := r.client.Del(ctx, stateKey(user)).Err(); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}
