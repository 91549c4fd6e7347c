package detector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// External-lookup ports. The built-in implementations are KV-backed
// caches with simple, explainable semantics; a real provider (GeoIP
// database, reputation feed, card network) swaps in behind the same
// interface without changing detector logic.

// Location is a coarse resolved client location.
type Location struct {
	Country string
}

// LocationResolver maps a client IP to a coarse location. Resolvers
// return an empty Location, not an error, when the IP is simply
// unknown to them.
type LocationResolver interface {
	Resolve(ctx context.Context, ip string) (Location, error)
}

// NopResolver is the resolver used when no GeoIP database is
// configured: every IP is unknown, so the geo detector relies on
// caller-supplied country codes alone.
type NopResolver struct{}

func (NopResolver) Resolve(ctx context.Context, ip string) (Location, error) {
	return Location{}, nil
}

// ReputationSource provides cached reputation scores (0..100, higher
// is better). found=false means no score is cached for the subject.
type ReputationSource interface {
	EmailReputation(ctx context.Context, email string) (score int, found bool, err error)
	IPReputation(ctx context.Context, ip string) (score int, found bool, err error)
}

// CardHistorySource provides cached card-verification history for an
// identity.
type CardHistorySource interface {
	FailedVerifications(ctx context.Context, identityID string) (int, error)
	IsTestCard(ctx context.Context, identityID string) (bool, error)
}

// ProfileSource provides read-only access to behavior profiles.
// Detectors never mutate profiles; that is the profile store's job.
type ProfileSource interface {
	Get(ctx context.Context, identityID string) (*domain.BehaviorProfile, error)
}

// Retention for detector-owned reputation and card-history caches.
const (
	ReputationTTL  = 24 * time.Hour
	CardFailureTTL = 24 * time.Hour
	TestCardTTL    = 30 * 24 * time.Hour
)

// StoreReputation is the KV-backed ReputationSource. Scores are kept
// as decimal strings so they stay readable in the store and cheap to
// write from the admin surface.
type StoreReputation struct {
	store domain.KVStore
}

func NewStoreReputation(store domain.KVStore) *StoreReputation {
	return &StoreReputation{store: store}
}

func (r *StoreReputation) EmailReputation(ctx context.Context, email string) (int, bool, error) {
	return r.lookup(ctx, domain.EmailReputationKey(email))
}

func (r *StoreReputation) IPReputation(ctx context.Context, ip string) (int, bool, error) {
	return r.lookup(ctx, domain.IPReputationKey(ip))
}

func (r *StoreReputation) lookup(ctx context.Context, key string) (int, bool, error) {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if raw == nil {
		return 0, false, nil
	}
	score, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, false, fmt.Errorf("malformed reputation value at %s: %w", key, err)
	}
	return score, true, nil
}

// SetEmailReputation caches a reputation score for an email address.
func (r *StoreReputation) SetEmailReputation(ctx context.Context, email string, score int) error {
	return r.store.Set(ctx, domain.EmailReputationKey(email), []byte(strconv.Itoa(score)), ReputationTTL)
}

// SetIPReputation caches a reputation score for an IP address.
func (r *StoreReputation) SetIPReputation(ctx context.Context, ip string, score int) error {
	return r.store.Set(ctx, domain.IPReputationKey(ip), []byte(strconv.Itoa(score)), ReputationTTL)
}

// StoreCardHistory is the KV-backed CardHistorySource.
type StoreCardHistory struct {
	store domain.KVStore
}

func NewStoreCardHistory(store domain.KVStore) *StoreCardHistory {
	return &StoreCardHistory{store: store}
}

func (c *StoreCardHistory) FailedVerifications(ctx context.Context, identityID string) (int, error) {
	raw, err := c.store.Get(ctx, domain.CardFailuresKey(identityID))
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("malformed failure counter for %s: %w", identityID, err)
	}
	return count, nil
}

func (c *StoreCardHistory) IsTestCard(ctx context.Context, identityID string) (bool, error) {
	return c.store.Exists(ctx, domain.TestCardKey(identityID))
}

// RecordFailure increments the identity's failed-verification counter
// and returns the new count.
func (c *StoreCardHistory) RecordFailure(ctx context.Context, identityID string) (int64, error) {
	return c.store.Increment(ctx, domain.CardFailuresKey(identityID), CardFailureTTL)
}

// MarkTestCard flags the identity as having presented a known test
// card number.
func (c *StoreCardHistory) MarkTestCard(ctx context.Context, identityID string) error {
	return c.store.Set(ctx, domain.TestCardKey(identityID), []byte("1"), TestCardTTL)
}

// ClearFailures resets the identity's verification history, e.g. after
// a successful manual review.
func (c *StoreCardHistory) ClearFailures(ctx context.Context, identityID string) error {
	if err := c.store.Delete(ctx, domain.CardFailuresKey(identityID)); err != nil {
		return err
	}
	return c.store.Delete(ctx, domain.TestCardKey(identityID))
}
