// Package detector implements the independent risk signal evaluators.
//
// Each detector checks one risk dimension (velocity, device, location,
// behavior, payment shape, reputation, card history) and returns either
// a signal with a score contribution or nothing. Detectors are
// registered behind the domain.Detector interface so rules can be added
// or removed without touching the orchestrator.
//
// Each detector owns exactly one KV key namespace and never reads
// another detector's keys.
package detector

import (
	"github.com/opensource-finance/harrier/internal/domain"
)

// Config wires the shared dependencies into the default detector set.
// Reputation and Cards default to store-backed implementations when
// nil; Store and Profiles are required.
type Config struct {
	Store      domain.KVStore
	Profiles   ProfileSource
	Reputation ReputationSource
	Cards      CardHistorySource
}

// Defaults returns the standard detector set in registration order.
func Defaults(cfg Config) []domain.Detector {
	if cfg.Reputation == nil {
		cfg.Reputation = NewStoreReputation(cfg.Store)
	}
	if cfg.Cards == nil {
		cfg.Cards = NewStoreCardHistory(cfg.Store)
	}

	return []domain.Detector{
		NewVelocity(cfg.Store),
		NewDevice(cfg.Store),
		NewGeo(cfg.Store),
		NewBehavior(cfg.Profiles),
		NewPayment(),
		NewEmail(cfg.Reputation),
		NewIP(cfg.Store, cfg.Reputation),
		NewCard(cfg.Cards),
	}
}
