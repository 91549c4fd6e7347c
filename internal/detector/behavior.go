package detector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

const (
	severeDeviationRatio   = 5.0
	moderateDeviationRatio = 2.0

	severeDeviationScore   = 40
	moderateDeviationScore = 20
	unusualHourScore       = 15
)

// Behavior compares the request against the identity's profile:
// transaction amount against the rolling average, access hour against
// the recorded hours. No profile means no baseline and no signal.
type Behavior struct {
	profiles ProfileSource
}

func NewBehavior(profiles ProfileSource) *Behavior {
	return &Behavior{profiles: profiles}
}

func (d *Behavior) Name() string { return domain.RuleBehavioralDeviation }

func (d *Behavior) Detect(ctx context.Context, check *domain.CheckContext) (*domain.Signal, error) {
	if !check.HasIdentity() {
		return nil, nil
	}

	profile, err := d.profiles.Get(ctx, check.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return nil, nil
	}

	score := 0
	var reasons []string
	meta := make(map[string]string)

	if check.HasAmount() && profile.AverageTransactionAmount > 0 {
		ratio := check.Amount / profile.AverageTransactionAmount
		meta["deviation_ratio"] = strconv.FormatFloat(ratio, 'f', 2, 64)
		switch {
		case ratio > severeDeviationRatio:
			score += severeDeviationScore
			reasons = append(reasons, fmt.Sprintf("transaction %.1fx above typical amount", ratio))
		case ratio > moderateDeviationRatio:
			score += moderateDeviationScore
			reasons = append(reasons, fmt.Sprintf("transaction %.1fx above typical amount", ratio))
		}
	}

	// An hour can only be unusual once some hours are on file.
	hour := check.Timestamp.Hour()
	if len(profile.CommonAccessHours) > 0 && !profile.KnowsHour(hour) {
		score += unusualHourScore
		reasons = append(reasons, fmt.Sprintf("access at unusual hour %02d:00", hour))
		meta["hour"] = strconv.Itoa(hour)
	}

	if score == 0 {
		return nil, nil
	}

	return &domain.Signal{
		Rule:     domain.RuleBehavioralDeviation,
		Score:    score,
		Reason:   strings.Join(reasons, "; "),
		Metadata: meta,
	}, nil
}
