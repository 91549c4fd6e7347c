package events

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
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
	return nil
}

func (s *fakeStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, nil
}

func (s *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
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

func (s *fakeStore) Ping(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                   { return nil }

// fakeBus captures published messages.
type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	err       error
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string][][]byte)}
}

func (b *fakeBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[topic] = append(b.published[topic], payload)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBus) Ping(ctx context.Context) error { return nil }
func (b *fakeBus) Close() error                   { return nil }

func TestLogAssignsIDAndTimestamp(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder(store, nil)

	event := &domain.SecurityEvent{
		Type:      domain.EventFraudAssessment,
		IPAddress: "203.0.113.10",
		Success:   true,
	}
	r.Log(context.Background(), event)

	if event.ID == "" {
		t.Fatal("event id not assigned")
	}
	if event.Timestamp.IsZero() {
		t.Fatal("timestamp not assigned")
	}

	raw, _ := store.Get(context.Background(), domain.SecurityEventKey(event.ID))
	if raw == nil {
		t.Fatal("event not persisted")
	}
	var stored domain.SecurityEvent
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatal(err)
	}
	if stored.Type != domain.EventFraudAssessment {
		t.Errorf("stored type = %s", stored.Type)
	}
}

func TestLogKeyNamespace(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder(store, nil)

	r.Log(context.Background(), &domain.SecurityEvent{ID: "evt-1", Type: domain.EventIPBlocked})

	for key := range store.data {
		if !strings.HasPrefix(key, "security:event:") {
			t.Errorf("event stored under %q, want security:event: namespace", key)
		}
	}
}

func TestLogPublishesToBus(t *testing.T) {
	bus := newFakeBus()
	r := NewRecorder(newFakeStore(), bus)

	r.Log(context.Background(), &domain.SecurityEvent{Type: domain.EventFraudAssessment})

	if len(bus.published[domain.TopicSecurityEvent]) != 1 {
		t.Errorf("published %d messages, want 1", len(bus.published[domain.TopicSecurityEvent]))
	}
}

func TestLogSwallowsFailures(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("store offline")
	bus := newFakeBus()
	bus.err = errors.New("bus offline")
	r := NewRecorder(store, bus)

	// Must not panic or surface anything.
	r.Log(context.Background(), &domain.SecurityEvent{Type: domain.EventFraudAssessment})
}

func TestListNewestFirst(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder(store, nil)
	ctx := context.Background()

	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r.Log(ctx, &domain.SecurityEvent{
			ID:        string(rune('a' + i)),
			Type:      domain.EventFraudAssessment,
			RiskScore: i * 10,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	events, err := r.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("listed %d events, want 3", len(events))
	}
	if events[0].RiskScore != 20 {
		t.Errorf("first event score = %d, want newest (20)", events[0].RiskScore)
	}

	limited, err := r.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limited list length = %d, want 2", len(limited))
	}
}
