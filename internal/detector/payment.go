package detector

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

const (
	largeAmountThreshold = 10000.0
	roundAmountMinimum   = 1000.0

	largeAmountScore = 30
	roundAmountScore = 10
	testAmountScore  = 25
)

// testAmounts are amounts commonly used to probe stolen cards.
var testAmounts = map[float64]bool{
	1: true, 5: true, 10: true, 99: true, 199: true, 299: true, 999: true,
}

// Payment applies stateless heuristics to the transaction amount. It
// keeps no history; requests without an amount produce nothing.
type Payment struct{}

func NewPayment() *Payment {
	return &Payment{}
}

func (d *Payment) Name() string { return domain.RulePaymentHeuristics }

func (d *Payment) Detect(ctx context.Context, check *domain.CheckContext) (*domain.Signal, error) {
	if !check.HasAmount() {
		return nil, nil
	}

	amount := check.Amount
	score := 0
	var reasons []string

	if amount > largeAmountThreshold {
		score += largeAmountScore
		reasons = append(reasons, fmt.Sprintf("unusually large transaction amount %.2f", amount))
	}

	if amount >= roundAmountMinimum && math.Mod(amount, 100) == 0 {
		score += roundAmountScore
		reasons = append(reasons, "suspiciously round transaction amount")
	}

	if testAmounts[amount] {
		score += testAmountScore
		reasons = append(reasons, "common fraud testing amount")
	}

	if score == 0 {
		return nil, nil
	}

	return &domain.Signal{
		Rule:   domain.RulePaymentHeuristics,
		Score:  score,
		Reason: strings.Join(reasons, "; "),
		Metadata: map[string]string{
			"amount": strconv.FormatFloat(amount, 'f', 2, 64),
		},
	}, nil
}
