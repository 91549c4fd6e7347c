package domain

import (
	"time"
)

// SecurityEvent is one append-only audit record. Events are written
// fire-and-forget with a bounded TTL and never read on the hot path.
type SecurityEvent struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	IdentityID string            `json:"identityId,omitempty"`
	IPAddress  string            `json:"ipAddress"`
	UserAgent  string            `json:"userAgent"`
	Success    bool              `json:"success"`
	RiskScore  int               `json:"riskScore,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Security event types.
const (
	EventFraudAssessment   = "fraud_assessment"
	EventIdentityBlocked   = "identity_blocked"
	EventIdentityUnblocked = "identity_unblocked"
	EventIPBlocked         = "ip_blocked"
	EventIPUnblocked       = "ip_unblocked"
	EventCardVerification  = "card_verification"
)

// BlockEntry is the value stored under a blocklist key. The key's
// existence is the block; its expiry is the unblock.
type BlockEntry struct {
	Reason    string    `json:"reason"`
	BlockedAt time.Time `json:"blockedAt"`
}
