// Package cache publishes consolidated snapshots for API readers. A publish
// stores the payload under its run id and moves the latest pointer to it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"marketsync/internal/config"
)

// Entry is one published snapshot.
type Entry struct {
	RunID       string
	PublishedAt time.Time
	Payload     []byte
}

type Store interface {
	// Publish makes e the latest entry. ttl <= 0 never expires.
	Publish(ctx context.Context, e Entry, ttl time.Duration) error
	Latest(ctx context.Context) (e Entry, found bool, err error)
	Invalidate(ctx context.Context) error
}

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"

	DefaultNamespace = "marketsync:snapshot"
)

var ErrMissingRunID = errors.New("cache: entry has no run id")

// New builds the store named by cfg.Driver. cfg.Key is the Redis key
// namespace.
func New(cfg config.CacheConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client, cfg.Key), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Driver)
	}
}

// PublishJSON encodes v and publishes it as run runID.
func PublishJSON(ctx context.Context, s Store, runID string, at time.Time, v any, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", runID, err)
	}
	return s.Publish(ctx, Entry{RunID: runID, PublishedAt: at, Payload: raw}, ttl)
}

// LatestJSON decodes the latest entry into v. found is false on a miss.
func LatestJSON(ctx context.Context, s Store, v any) (runID string, found bool, err error) {
	if s == nil {
		return "", false, nil
	}
	e, found, err := s.Latest(ctx)
	if err != nil || !found {
		return "", false, err
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return e.RunID, false, fmt.Errorf("decode snapshot %s: %w", e.RunID, err)
	}
	return e.RunID, true, nil
}
