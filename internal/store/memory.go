package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	members   map[string]struct{}
	expiresAt time.Time // zero = no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is a mutex-guarded in-process StateStore with TTL support.
// It backs the unit tests and works as a single-process fallback when no
// Redis is available.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*memoryEntry

	// now is swappable so tests can control the clock.
	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*memoryEntry),
		now:  time.Now,
	}
}

var _ StateStore = (*MemoryStore)(nil)

// SetClock replaces the store's time source. Test helper.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) getLocked(key string) (*memoryEntry, bool) {
	e, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if e.expired(s.now()) {
		delete(s.data, key)
		return nil, false
	}
	return e, true
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.getLocked(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) MGet(_ context.Context, keys ...string) ([]*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*string, len(keys))
	for i, key := range keys {
		if e, ok := s.getLocked(key); ok {
			v := e.value
			out[i] = &v
		}
	}
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = &memoryEntry{value: value, expiresAt: s.expiry(ttl)}
	return nil
}

func (s *MemoryStore) SetMulti(_ context.Context, pairs map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := s.expiry(ttl)
	for k, v := range pairs {
		s.data[k] = &memoryEntry{value: v, expiresAt: exp}
	}
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.getLocked(key); ok {
		return false, nil
	}
	s.data[key] = &memoryEntry{value: value, expiresAt: s.expiry(ttl)}
	return true, nil
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if e, ok := s.getLocked(key); ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	if e, ok := s.data[key]; ok {
		e.value = strconv.FormatInt(n, 10)
	} else {
		s.data[key] = &memoryEntry{value: strconv.FormatInt(n, 10)}
	}
	return n, nil
}

func (s *MemoryStore) SAdd(_ context.Context, key, member string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.getLocked(key)
	if !ok {
		e = &memoryEntry{members: make(map[string]struct{})}
		s.data[key] = e
	}
	if e.members == nil {
		e.members = make(map[string]struct{})
	}
	e.members[member] = struct{}{}
	if ttl > 0 {
		e.expiresAt = s.expiry(ttl)
	}
	return nil
}

func (s *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.getLocked(key)
	if !ok {
		return nil, nil
	}
	members := make([]string, 0, len(e.members))
	for m := range e.members {
		members = append(members, m)
	}
	return members, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.getLocked(key); ok {
		e.expiresAt = s.expiry(ttl)
	}
	return nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
