package detector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/opensource-finance/harrier/internal/domain"
)

const (
	blocklistedIPScore = 80

	poorIPReputation  = 25
	ipReputationScore = 40
)

// IP checks the request IP against the blocklist and the cached IP
// reputation. A blocklisted IP contributes a signal like any other
// detector; the hard rejection of blocked callers belongs to the
// blocklist gate in the request layer, not to scoring.
type IP struct {
	store      domain.KVStore
	reputation ReputationSource
}

func NewIP(store domain.KVStore, reputation ReputationSource) *IP {
	return &IP{store: store, reputation: reputation}
}

func (d *IP) Name() string { return domain.RuleIPReputation }

func (d *IP) Detect(ctx context.Context, check *domain.CheckContext) (*domain.Signal, error) {
	if check.IPAddress == "" {
		return nil, nil
	}

	blocked, err := d.store.Exists(ctx, domain.BlockIPKey(check.IPAddress))
	if err != nil {
		return nil, fmt.Errorf("blocklist lookup: %w", err)
	}
	if blocked {
		return &domain.Signal{
			Rule:   domain.RuleIPReputation,
			Score:  blocklistedIPScore,
			Reason: "IP address is blocklisted",
			Metadata: map[string]string{
				"ip": check.IPAddress,
			},
		}, nil
	}

	score, found, err := d.reputation.IPReputation(ctx, check.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("ip reputation: %w", err)
	}
	// Unlike email, an uncached IP carries no default: most IPs have
	// no reputation record and that is not evidence of anything.
	if !found || score >= poorIPReputation {
		return nil, nil
	}

	return &domain.Signal{
		Rule:   domain.RuleIPReputation,
		Score:  ipReputationScore,
		Reason: fmt.Sprintf("poor IP reputation (score %d)", score),
		Metadata: map[string]string{
			"ip":         check.IPAddress,
			"reputation": strconv.Itoa(score),
		},
	}, nil
}
