package store

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

func newClockedStore() (*MemoryStore, *time.Time) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.SetClock(func() time.Time { return now })
	return s, &now
}

func TestMemoryStoreGetSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s, now := newClockedStore()
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	*now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after expiry = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreMGetReportsMissingAsNil(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "a", "1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	vals, err := s.MGet(ctx, "a", "missing", "a")
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if len(vals) != 3 {
		t.Fatalf("MGet returned %d values, want 3", len(vals))
	}
	if vals[0] == nil || *vals[0] != "1" || vals[2] == nil || *vals[2] != "1" {
		t.Error("present keys should carry their value")
	}
	if vals[1] != nil {
		t.Error("missing key should be nil")
	}
}

func TestMemoryStoreSetMulti(t *testing.T) {
	s, now := newClockedStore()
	ctx := context.Background()

	err := s.SetMulti(ctx, map[string]string{"a": "1", "b": "2"}, time.Minute)
	if err != nil {
		t.Fatalf("SetMulti: %v", err)
	}
	for key, want := range map[string]string{"a": "1", "b": "2"} {
		got, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get %s: %v", key, err)
		}
		if got != want {
			t.Errorf("Get %s = %q, want %q", key, got, want)
		}
	}

	*now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Error("SetMulti keys should share the TTL")
	}
}

func TestMemoryStoreSetNX(t *testing.T) {
	s, now := newClockedStore()
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "lock", "1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX = (%v, %v), want acquired", ok, err)
	}
	ok, err = s.SetNX(ctx, "lock", "2", time.Minute)
	if err != nil || ok {
		t.Fatalf("second SetNX = (%v, %v), want not acquired", ok, err)
	}

	// Expired locks can be re-acquired.
	*now = now.Add(2 * time.Minute)
	ok, err = s.SetNX(ctx, "lock", "3", time.Minute)
	if err != nil || !ok {
		t.Fatalf("SetNX after expiry = (%v, %v), want acquired", ok, err)
	}
}

func TestMemoryStoreIncr(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Incr(ctx, "counter")
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if got != want {
			t.Errorf("Incr = %d, want %d", got, want)
		}
	}
}

func TestMemoryStoreSetOperations(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	members, err := s.SMembers(ctx, "set")
	if err != nil {
		t.Fatalf("SMembers empty: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("empty set members = %v", members)
	}

	for _, m := range []string{"1", "2", "2", "3"} {
		if err := s.SAdd(ctx, "set", m, time.Hour); err != nil {
			t.Fatalf("SAdd: %v", err)
		}
	}
	members, err = s.SMembers(ctx, "set")
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	sort.Strings(members)
	if len(members) != 3 || members[0] != "1" || members[1] != "2" || members[2] != "3" {
		t.Errorf("members = %v, want [1 2 3]", members)
	}
}

func TestMemoryStoreDel(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "a", "1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "b", "2", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := s.Del(ctx, "a", "b", "never-existed"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Error("a should be gone")
	}
	if _, err := s.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Error("b should be gone")
	}
}

func TestMemoryStoreExpire(t *testing.T) {
	s, now := newClockedStore()
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Expire(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Expire: %v", err)
	}

	*now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Error("key should expire after Expire's TTL passes")
	}
}
