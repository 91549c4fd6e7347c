package domain

import (
	"context"
	"time"
)

// Detector is one independent risk signal evaluator. Implementations
// are pure with respect to their inputs except for updating their own
// KV-backed counters and history; they never touch another detector's
// keys.
//
// Detect returns (nil, nil) when no anomaly is found. A non-nil error
// (or a timeout, or a panic) causes the detector's contribution to be
// dropped from the assessment, never to abort it.
type Detector interface {
	Name() string
	Detect(ctx context.Context, check *CheckContext) (*Signal, error)
}

// CheckContext is the assembled view of one request that detectors
// evaluate against. Built once per assessment by the orchestrator and
// shared read-only across the detector fan-out.
type CheckContext struct {
	SessionID  string
	IdentityID string
	Email      string
	IPAddress  string
	UserAgent  string

	// Amount <= 0 means no transaction is attached to this request.
	Amount   float64
	Currency string

	// Country is the resolved ISO country code, empty when unknown.
	Country string

	// Timestamp is the assessment time. The orchestrator sets it to
	// the current UTC time; tests may pin it.
	Timestamp time.Time

	Metadata map[string]string
}

// HasIdentity reports whether the request is tied to an authenticated
// identity.
func (c *CheckContext) HasIdentity() bool {
	return c.IdentityID != ""
}

// HasAmount reports whether the request carries a transaction amount.
func (c *CheckContext) HasAmount() bool {
	return c.Amount > 0
}
