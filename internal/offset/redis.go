package offset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
)

// RedisConfig configures the Redis checkpoint store
type RedisConfig struct {
	Address  string
	Password string
	Database int

	// Prefix is prepended to every key, e.g. "hostlog:"
	Prefix string

	// Timeout bounds every Redis operation
	Timeout time.Duration
}

// DefaultRedisConfig returns defaults for a local Redis
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address: address,
		Prefix:  "hostlog:",
		Timeout: 5 * time.Second,
	}
}

// RedisStore implements CheckpointStore on Redis, for hosts that share
// checkpoints with other tooling or run without a writable disk
type RedisStore struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisStore connects to Redis and checks the connection
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().
		Str("address", cfg.Address).
		Int("db", cfg.Database).
		Msg("Redis checkpoint store initialized")

	return &RedisStore{cfg: cfg, client: client}, nil
}

func (s *RedisStore) key(logClass string) string {
	return s.cfg.Prefix + makeKey(Scope, logClass)
}

// Get retrieves the checkpoint of a log class
func (s *RedisStore) Get(ctx context.Context, logClass string) (domain.Cursor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.key(logClass)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint from Redis: %w", err)
	}
	return decode(val)
}

// Set stores the checkpoint of a log class. Checkpoints never expire.
func (s *RedisStore) Set(ctx context.Context, logClass string, c domain.Cursor) error {
	val, err := encode(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(logClass), val, 0).Err(); err != nil {
		return fmt.Errorf("failed to set checkpoint in Redis: %w", err)
	}
	return nil
}

// Delete removes the checkpoint of a log class
func (s *RedisStore) Delete(ctx context.Context, logClass string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(logClass)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint from Redis: %w", err)
	}
	return nil
}

// List returns all stored checkpoints
func (s *RedisStore) List(ctx context.Context) (map[string]domain.Cursor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	prefix := s.key("")
	result := make(map[string]domain.Cursor)
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get checkpoint from Redis: %w", err)
		}
		c, err := decode(val)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Skipping corrupt checkpoint")
			continue
		}
		result[strings.TrimPrefix(key, prefix)] = c
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan checkpoints in Redis: %w", err)
	}
	return result, nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	log.Info().Msg("Closing Redis checkpoint store")
	return s.client.Close()
}
