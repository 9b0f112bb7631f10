package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentops/gatekeeper/service/store"
)

// Store implements store.Service on a redis backend. Expiry is delegated to
// redis TTLs; list keys use the native list commands so that stored data is
// interoperable with any other client following the same key scheme.
type Store struct {
	client redis.UniversalClient
}

var _ store.Service = (*Store)(nil)

// New connects to redis and verifies the connection with a ping.
func New(ctx context.Context, options ...Option) (*Store, error) {
	cfg := &config{addr: "localhost:6379"}
	for _, option := range options {
		option(cfg)
	}
	if cfg.client == nil {
		password := cfg.password
		if cfg.secretURL != "" {
			var err error
			if password, err = resolveSecret(ctx, cfg.secretURL, cfg.secretKey); err != nil {
				return nil, fmt.Errorf("failed to resolve redis credentials: %w", err)
			}
		}
		cfg.client = redis.NewClient(&redis.Options{
			Addr:     cfg.addr,
			Password: password,
			DB:       cfg.db,
		})
	}
	if err := cfg.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return &Store{client: cfg.client}, nil
}

// wrap maps a go-redis error to the store taxonomy.
func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%w: %s %s: %v", store.ErrUnavailable, op, key, err)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, store.ErrInvalidKey
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, wrap("get", key, err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	return wrap("set", key, s.client.Set(ctx, key, value, ttl).Err())
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	return wrap("del", key, s.client.Del(ctx, key).Err())
}

func asValues(values [][]byte) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func (s *Store) LPush(ctx context.Context, key string, values ...[]byte) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	return wrap("lpush", key, s.client.LPush(ctx, key, asValues(values)...).Err())
}

func (s *Store) RPush(ctx context.Context, key string, values ...[]byte) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	return wrap("rpush", key, s.client.RPush(ctx, key, asValues(values)...).Err())
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	if key == "" {
		return nil, store.ErrInvalidKey
	}
	items, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, wrap("lrange", key, err)
	}
	out := make([][]byte, len(items))
	for i, item := range items {
		out[i] = []byte(item)
	}
	return out, nil
}

func (s *Store) LTrim(ctx context.Context, key string, start, stop int64) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	return wrap("ltrim", key, s.client.LTrim(ctx, key, start, stop).Err())
}

func (s *Store) LRem(ctx context.Context, key string, count int64, value []byte) (int64, error) {
	if key == "" {
		return 0, store.ErrInvalidKey
	}
	removed, err := s.client.LRem(ctx, key, count, value).Result()
	if err != nil {
		return 0, wrap("lrem", key, err)
	}
	return removed, nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	return wrap("expire", key, s.client.Expire(ctx, key, ttl).Err())
}

// Close releases the underlying client connections.
func (s *Store) Close() error {
	return s.client.Close()
}
