package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldPayload     = "payload"
	fieldPublishedAt = "published_at"
)

// RedisStore keeps each run in a hash at <ns>:run:<id> and the current run id
// at <ns>:latest. Both are written in one MULTI/EXEC.
type RedisStore struct {
	Client    *redis.Client
	Namespace string
}

func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &RedisStore{Client: client, Namespace: namespace}
}

func (s *RedisStore) latestKey() string { return s.Namespace + ":latest" }

func (s *RedisStore) runKey(runID string) string { return s.Namespace + ":run:" + runID }

func (s *RedisStore) Publish(ctx context.Context, e Entry, ttl time.Duration) error {
	if e.RunID == "" {
		return ErrMissingRunID
	}
	if ttl < 0 {
		ttl = 0
	}
	previous, err := s.currentRunID(ctx)
	if err != nil {
		return err
	}
	key := s.runKey(e.RunID)
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldPayload, e.Payload,
			fieldPublishedAt, e.PublishedAt.UTC().Format(time.RFC3339Nano),
		)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		pipe.Set(ctx, s.latestKey(), e.RunID, ttl)
		if previous != "" && previous != e.RunID {
			pipe.Del(ctx, s.runKey(previous))
		}
		return nil
	})
	return err
}

func (s *RedisStore) Latest(ctx context.Context) (Entry, bool, error) {
	runID, err := s.currentRunID(ctx)
	if err != nil || runID == "" {
		return Entry{}, false, err
	}
	fields, err := s.Client.HGetAll(ctx, s.runKey(runID)).Result()
	if err != nil {
		return Entry{}, false, err
	}
	payload, ok := fields[fieldPayload]
	if !ok {
		// run hash expired before the pointer
		return Entry{}, false, nil
	}
	e := Entry{RunID: runID, Payload: []byte(payload)}
	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldPublishedAt]); err == nil {
		e.PublishedAt = ts
	}
	return e, true, nil
}

func (s *RedisStore) Invalidate(ctx context.Context) error {
	runID, err := s.currentRunID(ctx)
	if err != nil || runID == "" {
		return err
	}
	return s.Client.Del(ctx, s.latestKey(), s.runKey(runID)).Err()
}

func (s *RedisStore) currentRunID(ctx context.Context) (string, error) {
	runID, err := s.Client.Get(ctx, s.latestKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return runID, err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
