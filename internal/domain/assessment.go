// Package domain defines the core interfaces and types for Harrier.
package domain

import (
	"time"
)

// RiskLevel is the coarse band derived from a numeric risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Action is the enforcement decision derived from a risk level and score.
type Action string

const (
	ActionAllow     Action = "allow"
	ActionChallenge Action = "challenge"
	ActionBlock     Action = "block"
)

// Built-in detector rule names. Signals carry one of these (or a
// custom rule id) so downstream analytics can group by rule.
const (
	RuleVelocity            = "velocity"
	RuleDeviceFingerprint   = "device_fingerprint"
	RuleGeoAnomaly          = "geo_anomaly"
	RuleBehavioralDeviation = "behavioral_deviation"
	RulePaymentHeuristics   = "payment_heuristics"
	RuleEmailReputation     = "email_reputation"
	RuleIPReputation        = "ip_reputation"
	RuleCardVerification    = "card_verification"
	RuleCustom              = "custom_rules"

	// RuleBlocklist marks the hard-gate signal attached when a request
	// is rejected before detectors run.
	RuleBlocklist = "blocklist"
)

// Signal is a single detector's finding about one risk factor.
type Signal struct {
	Rule     string            `json:"rule"`
	Score    int               `json:"score"` // 0..100 contribution
	Reason   string            `json:"reason"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Assessment is one completed risk evaluation. Immutable after
// creation; short-lived copies live in the KV store (1h TTL) and
// durable copies in the archive repository.
type Assessment struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	IdentityID string    `json:"identityId,omitempty"`
	RiskScore  int       `json:"riskScore"` // 0..100
	RiskLevel  RiskLevel `json:"riskLevel"`
	Action     Action    `json:"action"`
	Signals    []Signal  `json:"signals"`

	// Request attributes
	IPAddress         string  `json:"ipAddress"`
	UserAgent         string  `json:"userAgent"`
	TransactionAmount float64 `json:"transactionAmount,omitempty"`
	Currency          string  `json:"currency,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// Processing metadata
	Metadata AssessmentMetadata `json:"metadata"`
}

// AssessmentMetadata contains processing information.
type AssessmentMetadata struct {
	TraceID         string `json:"traceId"`
	DetectorsRun    int    `json:"detectorsRun"`
	DetectorsFailed int    `json:"detectorsFailed"`
	DetectMs        int64  `json:"detectMs"`
	TotalMs         int64  `json:"totalMs"`
	EngineVersion   string `json:"engineVersion"`
	FailSafe        bool   `json:"failSafe,omitempty"`
}

// Reasons collects the reason strings of all fired signals, in
// detector completion order.
func (a *Assessment) Reasons() []string {
	var reasons []string
	for _, s := range a.Signals {
		if s.Reason != "" {
			reasons = append(reasons, s.Reason)
		}
	}
	return reasons
}

// CheckRequest is the inbound request descriptor for an assessment.
// IPAddress and UserAgent normally come from the transport layer;
// the rest is caller-supplied.
type CheckRequest struct {
	SessionID  string  `json:"sessionId,omitempty"`
	IdentityID string  `json:"identityId,omitempty"`
	Email      string  `json:"email,omitempty"`
	IPAddress  string  `json:"ipAddress"`
	UserAgent  string  `json:"userAgent"`
	Amount     float64 `json:"amount,omitempty"`
	Currency   string  `json:"currency,omitempty"`

	// Country is an optional caller-resolved ISO country code (e.g.
	// from a CDN geo header). When empty the engine consults its
	// location resolver.
	Country string `json:"country,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Statistics is the aggregate view over the live assessment window,
// served to dashboards.
type Statistics struct {
	TotalAssessments   int               `json:"totalAssessments"`
	RiskDistribution   map[RiskLevel]int `json:"riskDistribution"`
	ActionDistribution map[Action]int    `json:"actionDistribution"`
	TopRules           []RuleCount       `json:"topRules"`
}

// RuleCount is one entry of the top-rules ranking.
type RuleCount struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}
