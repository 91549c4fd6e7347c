package detector

import (
	"context"
	"testing"
)

func TestEmailReputation(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]int
		email  string
		fires  bool
	}{
		{"no email on request", nil, "", false},
		{"uncached address is neutral", nil, "jane@example.com", false},
		{"good reputation", map[string]int{"jane@example.com": 90}, "jane@example.com", false},
		{"at threshold", map[string]int{"jane@example.com": 30}, "jane@example.com", false},
		{"just below threshold", map[string]int{"jane@example.com": 29}, "jane@example.com", true},
		{"bad reputation", map[string]int{"jane@example.com": 5}, "jane@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewEmail(&fakeReputation{emails: tt.scores})
			check := testCheck()
			check.Email = tt.email

			sig, err := d.Detect(context.Background(), check)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.fires && sig == nil {
				t.Fatal("expected a reputation signal")
			}
			if !tt.fires && sig != nil {
				t.Fatalf("fired unexpectedly: %+v", sig)
			}
			if sig != nil && sig.Score != emailReputationScore {
				t.Errorf("score = %d, want %d", sig.Score, emailReputationScore)
			}
		})
	}
}

func TestEmailReputationError(t *testing.T) {
	d := NewEmail(&fakeReputation{err: errStore})

	if _, err := d.Detect(context.Background(), testCheck()); err == nil {
		t.Fatal("expected error from failing reputation source")
	}
}

func TestStoreReputationRoundTrip(t *testing.T) {
	store := newFakeStore()
	rep := NewStoreReputation(store)
	ctx := context.Background()

	if err := rep.SetEmailReputation(ctx, "jane@example.com", 22); err != nil {
		t.Fatal(err)
	}
	score, found, err := rep.EmailReputation(ctx, "jane@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !found || score != 22 {
		t.Errorf("got (%d, %v), want (22, true)", score, found)
	}

	_, found, err = rep.EmailReputation(ctx, "nobody@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("unknown address reported as cached")
	}

	if err := rep.SetIPReputation(ctx, "203.0.113.10", 12); err != nil {
		t.Fatal(err)
	}
	score, found, err = rep.IPReputation(ctx, "203.0.113.10")
	if err != nil {
		t.Fatal(err)
	}
	if !found || score != 12 {
		t.Errorf("got (%d, %v), want (12, true)", score, found)
	}
}
