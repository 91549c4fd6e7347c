package detector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/opensource-finance/harrier/internal/domain"
)

const (
	// Uncached addresses are treated as neutral rather than suspect.
	neutralEmailReputation = 50

	poorEmailReputation  = 30
	emailReputationScore = 35
)

// Email checks the cached reputation of the request's email address.
type Email struct {
	reputation ReputationSource
}

func NewEmail(reputation ReputationSource) *Email {
	return &Email{reputation: reputation}
}

func (d *Email) Name() string { return domain.RuleEmailReputation }

func (d *Email) Detect(ctx context.Context, check *domain.CheckContext) (*domain.Signal, error) {
	if check.Email == "" {
		return nil, nil
	}

	score, found, err := d.reputation.EmailReputation(ctx, check.Email)
	if err != nil {
		return nil, fmt.Errorf("email reputation: %w", err)
	}
	if !found {
		score = neutralEmailReputation
	}

	if score >= poorEmailReputation {
		return nil, nil
	}

	return &domain.Signal{
		Rule:   domain.RuleEmailReputation,
		Score:  emailReputationScore,
		Reason: fmt.Sprintf("poor email reputation (score %d)", score),
		Metadata: map[string]string{
			"reputation": strconv.Itoa(score),
		},
	}, nil
}
