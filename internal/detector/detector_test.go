package detector

import (
	"context"
	"errors"
	"path"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// fakeStore is an in-memory KVStore for detector tests, with optional
// whole-store error injection.
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
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if raw, ok := s.data[key]; ok {
		n, _ = strconv.ParseInt(string(raw), 10, 64)
	}
	n++
	s.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
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

// fakeProfiles serves a single canned profile.
type fakeProfiles struct {
	profile *domain.BehaviorProfile
	err     error
}

func (f *fakeProfiles) Get(ctx context.Context, identityID string) (*domain.BehaviorProfile, error) {
	return f.profile, f.err
}

// fakeReputation serves canned reputation scores.
type fakeReputation struct {
	emails map[string]int
	ips    map[string]int
	err    error
}

func (f *fakeReputation) EmailReputation(ctx context.Context, email string) (int, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	score, ok := f.emails[email]
	return score, ok, nil
}

func (f *fakeReputation) IPReputation(ctx context.Context, ip string) (int, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	score, ok := f.ips[ip]
	return score, ok, nil
}

// fakeCards serves canned card-verification history.
type fakeCards struct {
	failures int
	testCard bool
	err      error
}

func (f *fakeCards) FailedVerifications(ctx context.Context, identityID string) (int, error) {
	return f.failures, f.err
}

func (f *fakeCards) IsTestCard(ctx context.Context, identityID string) (bool, error) {
	return f.testCard, f.err
}

// testCheck returns a benign authenticated request at 14:30 UTC.
func testCheck() *domain.CheckContext {
	return &domain.CheckContext{
		SessionID:  "sess-1",
		IdentityID: "user-1",
		Email:      "jane@example.com",
		IPAddress:  "203.0.113.10",
		UserAgent:  "Mozilla/5.0 (X11; Linux x86_64)",
		Amount:     50,
		Currency:   "USD",
		Country:    "US",
		Timestamp:  time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC),
	}
}

func TestDefaults(t *testing.T) {
	detectors := Defaults(Config{
		Store:    newFakeStore(),
		Profiles: &fakeProfiles{},
	})

	want := []string{
		domain.RuleVelocity,
		domain.RuleDeviceFingerprint,
		domain.RuleGeoAnomaly,
		domain.RuleBehavioralDeviation,
		domain.RulePaymentHeuristics,
		domain.RuleEmailReputation,
		domain.RuleIPReputation,
		domain.RuleCardVerification,
	}

	if len(detectors) != len(want) {
		t.Fatalf("Defaults() returned %d detectors, want %d", len(detectors), len(want))
	}
	for i, d := range detectors {
		if d.Name() != want[i] {
			t.Errorf("detector %d = %s, want %s", i, d.Name(), want[i])
		}
	}
}

func TestDefaultsCleanRequest(t *testing.T) {
	// A fresh identity with benign attributes must pass every default
	// detector without a signal.
	detectors := Defaults(Config{
		Store:    newFakeStore(),
		Profiles: &fakeProfiles{},
	})

	check := testCheck()
	for _, d := range detectors {
		sig, err := d.Detect(context.Background(), check)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", d.Name(), err)
		}
		if sig != nil {
			t.Errorf("%s fired on a clean request: %+v", d.Name(), sig)
		}
	}
}

var errStore = errors.New("store offline")
