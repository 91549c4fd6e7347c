package detector

import (
	"context"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestIPBlocklisted(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	if err := store.Set(ctx, domain.BlockIPKey("203.0.113.10"), []byte(`{"reason":"manual ban"}`), 0); err != nil {
		t.Fatal(err)
	}

	d := NewIP(store, &fakeReputation{})
	sig, err := d.Detect(ctx, testCheck())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig == nil {
		t.Fatal("blocklisted IP did not fire")
	}
	if sig.Score != blocklistedIPScore {
		t.Errorf("score = %d, want %d", sig.Score, blocklistedIPScore)
	}
}

// A blocklisted IP reports the blocklist hit even when a reputation
// record also exists; the stronger finding wins.
func TestIPBlocklistBeforeReputation(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	if err := store.Set(ctx, domain.BlockIPKey("203.0.113.10"), []byte(`{"reason":"abuse"}`), 0); err != nil {
		t.Fatal(err)
	}

	d := NewIP(store, &fakeReputation{ips: map[string]int{"203.0.113.10": 5}})
	sig, err := d.Detect(ctx, testCheck())
	if err != nil {
		t.Fatal(err)
	}
	if sig == nil || sig.Score != blocklistedIPScore {
		t.Fatalf("got %+v, want blocklist signal", sig)
	}
}

func TestIPReputation(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]int
		fires  bool
	}{
		{"uncached ip is silent", nil, false},
		{"good reputation", map[string]int{"203.0.113.10": 80}, false},
		{"at threshold", map[string]int{"203.0.113.10": 25}, false},
		{"just below threshold", map[string]int{"203.0.113.10": 24}, true},
		{"bad reputation", map[string]int{"203.0.113.10": 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewIP(newFakeStore(), &fakeReputation{ips: tt.scores})

			sig, err := d.Detect(context.Background(), testCheck())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.fires && sig == nil {
				t.Fatal("expected a reputation signal")
			}
			if !tt.fires && sig != nil {
				t.Fatalf("fired unexpectedly: %+v", sig)
			}
			if sig != nil && sig.Score != ipReputationScore {
				t.Errorf("score = %d, want %d", sig.Score, ipReputationScore)
			}
		})
	}
}

func TestIPStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errStore
	d := NewIP(store, &fakeReputation{})

	if _, err := d.Detect(context.Background(), testCheck()); err == nil {
		t.Fatal("expected error from failing store")
	}
}
