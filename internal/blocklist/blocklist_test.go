package blocklist

import (
	"context"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (s *fakeStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *fakeStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, nil
}

func (s *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *fakeStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return s.err }
func (s *fakeStore) Close() error                   { return nil }

func TestBlockIdentity(t *testing.T) {
	m := NewManager(newFakeStore())
	ctx := context.Background()

	if err := m.BlockIdentity(ctx, "user-1", "chargeback abuse", 0); err != nil {
		t.Fatal(err)
	}

	if !m.IsBlocked(ctx, "user-1", "") {
		t.Error("blocked identity reported unblocked")
	}
	if m.IsBlocked(ctx, "user-2", "") {
		t.Error("unrelated identity reported blocked")
	}
}

func TestBlockIP(t *testing.T) {
	m := NewManager(newFakeStore())
	ctx := context.Background()

	if err := m.BlockIP(ctx, "203.0.113.10", "manual ban", 0); err != nil {
		t.Fatal(err)
	}

	// The block holds regardless of any identity passed alongside.
	if !m.IsBlocked(ctx, "", "203.0.113.10") {
		t.Error("blocked IP reported unblocked")
	}
	if !m.IsBlocked(ctx, "clean-user", "203.0.113.10") {
		t.Error("blocked IP with clean identity reported unblocked")
	}
}

func TestDefaultTTL(t *testing.T) {
	store := newFakeStore()
	m := NewManager(store)
	ctx := context.Background()

	if err := m.BlockIdentity(ctx, "user-1", "abuse", 0); err != nil {
		t.Fatal(err)
	}
	if got := store.ttls[domain.BlockIdentityKey("user-1")]; got != domain.DefaultBlockTTL {
		t.Errorf("ttl = %v, want %v", got, domain.DefaultBlockTTL)
	}

	if err := m.BlockIP(ctx, "203.0.113.10", "abuse", time.Hour); err != nil {
		t.Fatal(err)
	}
	if got := store.ttls[domain.BlockIPKey("203.0.113.10")]; got != time.Hour {
		t.Errorf("ttl = %v, want 1h", got)
	}
}

func TestUnblock(t *testing.T) {
	m := NewManager(newFakeStore())
	ctx := context.Background()

	if err := m.BlockIdentity(ctx, "user-1", "abuse", 0); err != nil {
		t.Fatal(err)
	}
	if err := m.UnblockIdentity(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	if m.IsBlocked(ctx, "user-1", "") {
		t.Error("unblocked identity still reported blocked")
	}

	// Unblocking something that was never blocked is not an error.
	if err := m.UnblockIP(ctx, "198.51.100.1"); err != nil {
		t.Errorf("unblock of absent entry failed: %v", err)
	}
}

func TestIsBlockedIdempotent(t *testing.T) {
	m := NewManager(newFakeStore())
	ctx := context.Background()

	if err := m.BlockIdentity(ctx, "user-1", "abuse", 0); err != nil {
		t.Fatal(err)
	}

	for _, identity := range []string{"user-1", "user-2"} {
		first := m.IsBlocked(ctx, identity, "")
		second := m.IsBlocked(ctx, identity, "")
		if first != second {
			t.Errorf("IsBlocked(%s) flapped: %v then %v", identity, first, second)
		}
	}
}

func TestFailsOpen(t *testing.T) {
	store := newFakeStore()
	m := NewManager(store)
	ctx := context.Background()

	if err := m.BlockIdentity(ctx, "user-1", "abuse", 0); err != nil {
		t.Fatal(err)
	}

	store.err = errors.New("store offline")
	if m.IsBlocked(ctx, "user-1", "203.0.113.10") {
		t.Error("failing store did not fail open")
	}
}

func TestValidation(t *testing.T) {
	m := NewManager(newFakeStore())
	ctx := context.Background()

	if err := m.BlockIdentity(ctx, "", "abuse", 0); err == nil {
		t.Error("empty identity accepted")
	}
	if err := m.BlockIP(ctx, "", "abuse", 0); err == nil {
		t.Error("empty ip accepted")
	}
}

func TestListBlocked(t *testing.T) {
	m := NewManager(newFakeStore())
	ctx := context.Background()

	if err := m.BlockIdentity(ctx, "user-1", "chargeback abuse", 0); err != nil {
		t.Fatal(err)
	}
	if err := m.BlockIP(ctx, "203.0.113.10", "manual ban", 0); err != nil {
		t.Fatal(err)
	}

	entries, err := m.ListBlocked(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("listed %d entries, want 2", len(entries))
	}

	byValue := make(map[string]BlockedEntry)
	for _, e := range entries {
		byValue[e.Value] = e
	}
	if e := byValue["user-1"]; e.Type != "identity" || e.Reason != "chargeback abuse" {
		t.Errorf("identity entry = %+v", e)
	}
	if e := byValue["203.0.113.10"]; e.Type != "ip" || e.Reason != "manual ban" {
		t.Errorf("ip entry = %+v", e)
	}
}
