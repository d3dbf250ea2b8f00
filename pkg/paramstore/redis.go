package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrParameterNotFound is returned when a named parameter does not exist.
var ErrParameterNotFound = errors.New("parameter not found")

// RedisStore is a hierarchical parameter store on Redis. Parameters are plain
// string keys named like paths ("/commute/database/host").
type RedisStore struct {
	client    *redis.Client
	scanCount int64
}

// NewRedisStore connects and pings Redis.
func NewRedisStore(opts ...RedisOption) (*RedisStore, error) {
	cfg := &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     4,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
		ScanCount:    100,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client, scanCount: cfg.ScanCount}, nil
}

// Client returns underlying redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// GetParameter returns one parameter value.
func (s *RedisStore) GetParameter(ctx context.Context, name string) (string, error) {
	v, err := s.client.Get(ctx, name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%s: %w", name, ErrParameterNotFound)
		}
		return "", fmt.Errorf("get %s: %w", name, err)
	}
	return v, nil
}

// GetParametersByPath returns every parameter below path, keyed by full name.
func (s *RedisStore) GetParametersByPath(ctx context.Context, path string) (map[string]string, error) {
	pattern := strings.TrimRight(path, "/") + "/*"

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, s.scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}

	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget %s: %w", pattern, err)
	}
	for i, key := range keys {
		// keys can expire between SCAN and MGET
		if val, ok := results[i].(string); ok {
			out[key] = val
		}
	}
	return out, nil
}

// PutParameter writes one parameter. Used to seed a store.
func (s *RedisStore) PutParameter(ctx context.Context, name, value string) error {
	if err := s.client.Set(ctx, name, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}
