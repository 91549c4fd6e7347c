package detector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

const (
	maxCardFailures = 3

	cardFailureScore = 30
	testCardScore    = 50
)

// Card checks the identity's cached card-verification history:
// repeated failed verifications and known test-card markers.
type Card struct {
	cards CardHistorySource
}

func NewCard(cards CardHistorySource) *Card {
	return &Card{cards: cards}
}

func (d *Card) Name() string { return domain.RuleCardVerification }

func (d *Card) Detect(ctx context.Context, check *domain.CheckContext) (*domain.Signal, error) {
	if !check.HasIdentity() {
		return nil, nil
	}

	failures, err := d.cards.FailedVerifications(ctx, check.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("verification history: %w", err)
	}

	testCard, err := d.cards.IsTestCard(ctx, check.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("test card lookup: %w", err)
	}

	score := 0
	var reasons []string
	meta := make(map[string]string)

	if failures > maxCardFailures {
		score += cardFailureScore
		reasons = append(reasons, fmt.Sprintf("%d failed card verifications", failures))
		meta["failures"] = strconv.Itoa(failures)
	}

	if testCard {
		score += testCardScore
		reasons = append(reasons, "known test card presented")
		meta["test_card"] = "true"
	}

	if score == 0 {
		return nil, nil
	}

	return &domain.Signal{
		Rule:     domain.RuleCardVerification,
		Score:    score,
		Reason:   strings.Join(reasons, "; "),
		Metadata: meta,
	}, nil
}
