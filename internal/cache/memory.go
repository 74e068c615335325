package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps only the latest entry; publishing replaces it.
type MemoryStore struct {
	mu      sync.Mutex
	latest  *Entry
	expires time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Publish(_ context.Context, e Entry, ttl time.Duration) error {
	if e.RunID == "" {
		return ErrMissingRunID
	}
	e.Payload = append([]byte(nil), e.Payload...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &e
	s.expires = time.Time{}
	if ttl > 0 {
		s.expires = s.now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) Latest(_ context.Context) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Entry{}, false, nil
	}
	if !s.expires.IsZero() && s.now().After(s.expires) {
		s.latest = nil
		return Entry{}, false, nil
	}
	e := *s.latest
	e.Payload = append([]byte(nil), e.Payload...)
	return e, true, nil
}

func (s *MemoryStore) Invalidate(_ context.Context) error {
	s.mu.Lock()
	s.latest = nil
	s.mu.Unlock()
	return nil
}
