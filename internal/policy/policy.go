// Package policy implements the risk scoring and decision policy:
// signals aggregate into one score, the score maps to a risk level,
// and the level (plus the raw score) maps to an enforcement action.
package policy

import (
	"math"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Risk level thresholds. A score at or above a threshold maps up.
const (
	MediumThreshold   = 25
	HighThreshold     = 50
	CriticalThreshold = 75
)

// HardBlockScore is the score above which a High-risk assessment is
// blocked outright instead of challenged.
const HardBlockScore = 80

// Diminishing-returns multiplier parameters: each signal past the
// first adds 10%, capped at 1.5x, so a single strong signal is not
// muted and many weak signals cannot trivially sum past 100.
const (
	multiplierStep = 0.1
	multiplierCap  = 1.5
)

// Score aggregates fired signals into one 0..100 risk score: the
// average of the signal scores scaled by the diminishing-returns
// multiplier, clamped and rounded. Zero signals means zero risk.
//
// The curve is a tunable policy constant, not a law; the tests pin
// its current behavior.
func Score(signals []domain.Signal) int {
	if len(signals) == 0 {
		return 0
	}

	sum := 0.0
	for _, s := range signals {
		sum += float64(s.Score)
	}
	avg := sum / float64(len(signals))

	multiplier := 1.0 + multiplierStep*float64(len(signals)-1)
	if multiplier > multiplierCap {
		multiplier = multiplierCap
	}

	score := avg * multiplier
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return int(math.Round(score))
}

// LevelFor maps a score onto the four ordered risk bands.
func LevelFor(score int) domain.RiskLevel {
	switch {
	case score >= CriticalThreshold:
		return domain.RiskCritical
	case score >= HighThreshold:
		return domain.RiskHigh
	case score >= MediumThreshold:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// ActionFor maps a risk level (plus the raw score) onto an action.
// High risk challenges below the hard-block score and blocks above it.
func ActionFor(level domain.RiskLevel, score int) domain.Action {
	switch level {
	case domain.RiskCritical:
		return domain.ActionBlock
	case domain.RiskHigh:
		if score > HardBlockScore {
			return domain.ActionBlock
		}
		return domain.ActionChallenge
	case domain.RiskMedium:
		return domain.ActionChallenge
	default:
		return domain.ActionAllow
	}
}

// Decide is the full policy pipeline for a signal set.
func Decide(signals []domain.Signal) (int, domain.RiskLevel, domain.Action) {
	score := Score(signals)
	level := LevelFor(score)
	return score, level, ActionFor(level, score)
}
