// Package profile maintains per-identity behavior profiles: rolling
// transaction averages, access hours, locations, devices, and risk
// history. The profile store is the only writer of profile records;
// detectors read them through the same Get.
package profile

import (
	"context"
	"encoding/json"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Bounds on the profile's accumulated sets.
const (
	maxRiskHistory       = 30
	maxAccessHours       = 10
	maxFrequentLocations = 10
	maxTypicalDevices    = 5
)

// Store reads and updates behavior profiles in the KV store. Profiles
// expire 30 days after their last update; every update refreshes the
// TTL.
type Store struct {
	store domain.KVStore
}

func NewStore(store domain.KVStore) *Store {
	return &Store{store: store}
}

// Get returns the identity's profile, or nil when none exists. A
// malformed record is treated as absent so the next update can rebuild
// it instead of wedging the identity forever.
func (s *Store) Get(ctx context.Context, identityID string) (*domain.BehaviorProfile, error) {
	raw, err := s.store.Get(ctx, domain.ProfileKey(identityID))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var profile domain.BehaviorProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, nil
	}
	return &profile, nil
}

// Observation carries the request attributes that feed the profile
// beyond what the assessment record itself holds.
type Observation struct {
	Country           string
	DeviceFingerprint string
}

// Update folds one completed assessment into the identity's profile,
// creating it on first write.
//
// The transaction average is a 2-point smoothing, (old + new) / 2,
// not a true moving average. Access hours keep the first 10 distinct
// values; a full set retains its oldest hours. Risk history keeps the
// most recent 30 entries.
//
// Concurrent updates for the same identity are last-writer-wins; the
// profile is advisory input to scoring, not a ledger.
func (s *Store) Update(ctx context.Context, a *domain.Assessment, obs Observation) error {
	if a.IdentityID == "" {
		return nil
	}

	profile, err := s.Get(ctx, a.IdentityID)
	if err != nil {
		return err
	}

	if profile == nil {
		profile = &domain.BehaviorProfile{
			IdentityID: a.IdentityID,
			CreatedAt:  a.Timestamp,
		}
	}

	if a.TransactionAmount > 0 {
		if profile.AverageTransactionAmount > 0 {
			profile.AverageTransactionAmount = (profile.AverageTransactionAmount + a.TransactionAmount) / 2
		} else {
			profile.AverageTransactionAmount = a.TransactionAmount
		}
	}

	profile.RiskHistory = append(profile.RiskHistory, domain.RiskPoint{
		Date:  a.Timestamp,
		Score: a.RiskScore,
	})
	if len(profile.RiskHistory) > maxRiskHistory {
		profile.RiskHistory = profile.RiskHistory[len(profile.RiskHistory)-maxRiskHistory:]
	}

	profile.CommonAccessHours = addHour(profile.CommonAccessHours, a.Timestamp.Hour())

	if obs.Country != "" {
		profile.FrequentLocations = addValue(profile.FrequentLocations, obs.Country, maxFrequentLocations)
	}
	if obs.DeviceFingerprint != "" {
		profile.TypicalDevices = addValue(profile.TypicalDevices, obs.DeviceFingerprint, maxTypicalDevices)
	}

	profile.UpdatedAt = a.Timestamp

	buf, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, domain.ProfileKey(a.IdentityID), buf, domain.ProfileTTL)
}

// addHour adds a distinct hour while below the cap; a full set keeps
// its oldest values rather than rotating.
func addHour(hours []int, hour int) []int {
	for _, h := range hours {
		if h == hour {
			return hours
		}
	}
	if len(hours) >= maxAccessHours {
		return hours
	}
	return append(hours, hour)
}

func addValue(set []string, v string, max int) []string {
	for _, s := range set {
		if s == v {
			return set
		}
	}
	if len(set) >= max {
		return set
	}
	return append(set, v)
}
