package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// topRulesLimit caps the rule ranking returned by Statistics.
const topRulesLimit = 10

// Statistics aggregates the assessments still inside the KV retention
// window (one hour) into risk and action distributions plus a ranking
// of the most-fired rules. Entries that fail to decode are skipped.
func (e *Engine) Statistics(ctx context.Context) (*domain.Statistics, error) {
	keys, err := e.store.Keys(ctx, domain.AssessmentKeyPattern)
	if err != nil {
		return nil, fmt.Errorf("scan assessments: %w", err)
	}

	stats := &domain.Statistics{
		RiskDistribution:   make(map[domain.RiskLevel]int),
		ActionDistribution: make(map[domain.Action]int),
	}
	ruleCounts := make(map[string]int)

	for _, key := range keys {
		raw, err := e.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read assessment %s: %w", key, err)
		}
		if raw == nil {
			// Expired between the scan and the read.
			continue
		}

		var a domain.Assessment
		if err := json.Unmarshal(raw, &a); err != nil {
			slog.Warn("skipping malformed assessment record", "key", key, "error", err)
			continue
		}

		stats.TotalAssessments++
		stats.RiskDistribution[a.RiskLevel]++
		stats.ActionDistribution[a.Action]++
		for _, sig := range a.Signals {
			ruleCounts[sig.Rule]++
		}
	}

	stats.TopRules = rankRules(ruleCounts)
	return stats, nil
}

func rankRules(counts map[string]int) []domain.RuleCount {
	ranked := make([]domain.RuleCount, 0, len(counts))
	for rule, count := range counts {
		ranked = append(ranked, domain.RuleCount{Rule: rule, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Rule < ranked[j].Rule
	})
	if len(ranked) > topRulesLimit {
		ranked = ranked[:topRulesLimit]
	}
	return ranked
}
