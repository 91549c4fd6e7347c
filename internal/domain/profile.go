package domain

import (
	"time"
)

// BehaviorProfile is a per-identity rolling summary of historical
// transaction and access patterns. Created lazily on first assessment,
// mutated by every subsequent one, expired by TTL rather than deleted.
//
// Invariants: len(RiskHistory) <= 30, len(CommonAccessHours) <= 10.
type BehaviorProfile struct {
	IdentityID               string      `json:"identityId"`
	AverageTransactionAmount float64     `json:"averageTransactionAmount"`
	FrequentLocations        []string    `json:"frequentLocations"`
	TypicalDevices           []string    `json:"typicalDevices"`
	CommonAccessHours        []int       `json:"commonAccessHours"`
	RiskHistory              []RiskPoint `json:"riskHistory"`
	CreatedAt                time.Time   `json:"createdAt"`
	UpdatedAt                time.Time   `json:"updatedAt"`
}

// RiskPoint is one dated entry of an identity's risk history.
type RiskPoint struct {
	Date  time.Time `json:"date"`
	Score int       `json:"score"`
}

// KnowsHour reports whether the given hour (0..23) is one of the
// identity's recorded access hours.
func (p *BehaviorProfile) KnowsHour(hour int) bool {
	for _, h := range p.CommonAccessHours {
		if h == hour {
			return true
		}
	}
	return false
}
