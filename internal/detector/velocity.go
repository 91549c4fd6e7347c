package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Velocity thresholds over the one-hour sliding window.
const (
	identityHourlyLimit = 10
	ipHourlyLimit       = 50
	amountHourlyLimit   = 10000.0

	identityVelocityScore = 30
	ipVelocityScore       = 40
	amountVelocityScore   = 25

	// Retained amount entries per identity; entries older than the
	// window are excluded from the sum even before eviction.
	maxAmountEntries = 100
)

// Velocity tracks per-identity request counts, per-IP request counts,
// and per-identity cumulative transaction amounts over a rolling hour.
// Each dimension that exceeds its limit adds to one combined signal.
type Velocity struct {
	store domain.KVStore
}

func NewVelocity(store domain.KVStore) *Velocity {
	return &Velocity{store: store}
}

func (d *Velocity) Name() string { return domain.RuleVelocity }

func (d *Velocity) Detect(ctx context.Context, check *domain.CheckContext) (*domain.Signal, error) {
	score := 0
	var reasons []string
	meta := make(map[string]string)

	if check.HasIdentity() {
		count, err := d.store.Increment(ctx, domain.VelocityIdentityKey(check.IdentityID), domain.VelocityWindow)
		if err != nil {
			return nil, fmt.Errorf("identity counter: %w", err)
		}
		meta["identity_count"] = strconv.FormatInt(count, 10)
		if count > identityHourlyLimit {
			score += identityVelocityScore
			reasons = append(reasons, fmt.Sprintf("high user velocity: %d actions in the last hour", count))
		}
	}

	if check.IPAddress != "" {
		count, err := d.store.Increment(ctx, domain.VelocityIPKey(check.IPAddress), domain.VelocityWindow)
		if err != nil {
			return nil, fmt.Errorf("ip counter: %w", err)
		}
		meta["ip_count"] = strconv.FormatInt(count, 10)
		if count > ipHourlyLimit {
			score += ipVelocityScore
			reasons = append(reasons, fmt.Sprintf("high IP velocity: %d actions in the last hour", count))
		}
	}

	if check.HasIdentity() && check.HasAmount() {
		total, err := d.recordAmount(ctx, check)
		if err != nil {
			return nil, fmt.Errorf("amount window: %w", err)
		}
		meta["amount_total"] = strconv.FormatFloat(total, 'f', 2, 64)
		if total > amountHourlyLimit {
			score += amountVelocityScore
			reasons = append(reasons, fmt.Sprintf("high transaction volume: %.2f in the last hour", total))
		}
	}

	if score == 0 {
		return nil, nil
	}

	return &domain.Signal{
		Rule:     domain.RuleVelocity,
		Score:    score,
		Reason:   strings.Join(reasons, "; "),
		Metadata: meta,
	}, nil
}

// amountEntry is one recorded transaction in the amount window.
type amountEntry struct {
	At     int64   `json:"at"` // unix seconds
	Amount float64 `json:"amount"`
}

// recordAmount appends the current transaction to the identity's
// amount window and returns the in-window total including it. Stale
// entries are dropped on write; the retained list is capped, newest
// kept.
func (d *Velocity) recordAmount(ctx context.Context, check *domain.CheckContext) (float64, error) {
	key := domain.VelocityAmountKey(check.IdentityID)

	raw, err := d.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}

	var entries []amountEntry
	if raw != nil {
		if err := json.Unmarshal(raw, &entries); err != nil {
			// Corrupt window: start over rather than fail the detector.
			entries = nil
		}
	}

	cutoff := check.Timestamp.Add(-domain.VelocityWindow).Unix()
	kept := entries[:0]
	total := 0.0
	for _, e := range entries {
		if e.At > cutoff {
			kept = append(kept, e)
			total += e.Amount
		}
	}

	kept = append(kept, amountEntry{At: check.Timestamp.Unix(), Amount: check.Amount})
	total += check.Amount

	if len(kept) > maxAmountEntries {
		kept = kept[len(kept)-maxAmountEntries:]
	}

	buf, err := json.Marshal(kept)
	if err != nil {
		return 0, err
	}
	if err := d.store.Set(ctx, key, buf, domain.VelocityWindow); err != nil {
		return 0, err
	}

	return total, nil
}
