package detector

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestVelocityFirstRequest(t *testing.T) {
	store := newFakeStore()
	d := NewVelocity(store)

	sig, err := d.Detect(context.Background(), testCheck())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig != nil {
		t.Fatalf("first request fired a signal: %+v", sig)
	}

	raw, _ := store.Get(context.Background(), domain.VelocityIdentityKey("user-1"))
	if string(raw) != "1" {
		t.Errorf("identity counter = %q, want 1", raw)
	}
}

func TestVelocityIdentityLimit(t *testing.T) {
	store := newFakeStore()
	d := NewVelocity(store)
	check := testCheck()
	check.Amount = 0 // keep the amount window out of this test

	for i := 0; i < 10; i++ {
		sig, err := d.Detect(context.Background(), check)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i+1, err)
		}
		if sig != nil {
			t.Fatalf("request %d fired early: %+v", i+1, sig)
		}
	}

	// The 11th action in the hour crosses the limit.
	sig, err := d.Detect(context.Background(), check)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig == nil {
		t.Fatal("11th request in one hour did not fire")
	}
	if sig.Score != identityVelocityScore {
		t.Errorf("score = %d, want %d", sig.Score, identityVelocityScore)
	}
	if !strings.Contains(sig.Reason, "high user velocity") {
		t.Errorf("reason = %q, want user velocity mention", sig.Reason)
	}
}

func TestVelocityIPLimit(t *testing.T) {
	store := newFakeStore()
	d := NewVelocity(store)

	// Anonymous traffic: only the IP counter applies.
	check := testCheck()
	check.IdentityID = ""
	check.Amount = 0

	var sig *domain.Signal
	var err error
	for i := 0; i < 51; i++ {
		sig, err = d.Detect(context.Background(), check)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i+1, err)
		}
		if i < 50 && sig != nil {
			t.Fatalf("request %d fired early: %+v", i+1, sig)
		}
	}

	if sig == nil {
		t.Fatal("51st request from one IP did not fire")
	}
	if sig.Score != ipVelocityScore {
		t.Errorf("score = %d, want %d", sig.Score, ipVelocityScore)
	}
	if !strings.Contains(sig.Reason, "IP velocity") {
		t.Errorf("reason = %q, want IP velocity mention", sig.Reason)
	}
}

func TestVelocityAmountLimit(t *testing.T) {
	store := newFakeStore()
	d := NewVelocity(store)
	check := testCheck()
	check.Amount = 3000

	// 3000 + 3000 + 3000 stays under 10000; the fourth pushes past it.
	for i := 0; i < 3; i++ {
		sig, err := d.Detect(context.Background(), check)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i+1, err)
		}
		if sig != nil {
			t.Fatalf("request %d fired early: %+v", i+1, sig)
		}
	}

	sig, err := d.Detect(context.Background(), check)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig == nil {
		t.Fatal("cumulative amount over 10000 did not fire")
	}
	if sig.Score != amountVelocityScore {
		t.Errorf("score = %d, want %d", sig.Score, amountVelocityScore)
	}
	if !strings.Contains(sig.Reason, "transaction volume") {
		t.Errorf("reason = %q, want volume mention", sig.Reason)
	}
}

func TestVelocityCombined(t *testing.T) {
	store := newFakeStore()
	d := NewVelocity(store)
	check := testCheck()
	check.Amount = 1000

	var sig *domain.Signal
	var err error
	for i := 0; i < 11; i++ {
		sig, err = d.Detect(context.Background(), check)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i+1, err)
		}
	}

	// 11th action: identity count 11 and window total 11000 both over.
	if sig == nil {
		t.Fatal("combined limits did not fire")
	}
	want := identityVelocityScore + amountVelocityScore
	if sig.Score != want {
		t.Errorf("score = %d, want %d", sig.Score, want)
	}
	if !strings.Contains(sig.Reason, ";") {
		t.Errorf("reason = %q, want concatenated reasons", sig.Reason)
	}
}

func TestVelocityWindowPruning(t *testing.T) {
	store := newFakeStore()
	d := NewVelocity(store)
	check := testCheck()
	check.Amount = 600

	// Seed one stale entry (outside the hour) and one live one.
	stale := amountEntry{At: check.Timestamp.Add(-2 * time.Hour).Unix(), Amount: 9000}
	live := amountEntry{At: check.Timestamp.Add(-30 * time.Minute).Unix(), Amount: 500}
	seed, _ := json.Marshal([]amountEntry{stale, live})
	key := domain.VelocityAmountKey(check.IdentityID)
	if err := store.Set(context.Background(), key, seed, domain.VelocityWindow); err != nil {
		t.Fatal(err)
	}

	sig, err := d.Detect(context.Background(), check)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 500 + 600 = 1100, well under the limit; the stale 9000 must not count.
	if sig != nil {
		t.Fatalf("stale entry counted toward the window: %+v", sig)
	}

	raw, _ := store.Get(context.Background(), key)
	var entries []amountEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("retained %d entries, want 2 (stale evicted)", len(entries))
	}
}

func TestVelocityStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errStore
	d := NewVelocity(store)

	sig, err := d.Detect(context.Background(), testCheck())
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	if sig != nil {
		t.Errorf("got signal alongside error: %+v", sig)
	}
}
