// Package blocklist manages the TTL-bounded denylist of identities
// and IPs. Blocking is orthogonal to risk scoring: the request layer
// consults IsBlocked as a hard gate before (and regardless of) running
// an assessment.
package blocklist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Manager blocks and unblocks identities and IPs. A block is the
// presence of a key; expiry is the automatic unblock.
type Manager struct {
	store domain.KVStore
}

func NewManager(store domain.KVStore) *Manager {
	return &Manager{store: store}
}

// BlockIdentity blocks an identity. ttl <= 0 applies the default 24h.
func (m *Manager) BlockIdentity(ctx context.Context, identityID, reason string, ttl time.Duration) error {
	if identityID == "" {
		return fmt.Errorf("identity id is required")
	}
	return m.block(ctx, domain.BlockIdentityKey(identityID), reason, ttl)
}

// BlockIP blocks an IP address. ttl <= 0 applies the default 24h.
func (m *Manager) BlockIP(ctx context.Context, ip, reason string, ttl time.Duration) error {
	if ip == "" {
		return fmt.Errorf("ip address is required")
	}
	return m.block(ctx, domain.BlockIPKey(ip), reason, ttl)
}

func (m *Manager) block(ctx context.Context, key, reason string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = domain.DefaultBlockTTL
	}

	entry := domain.BlockEntry{
		Reason:    reason,
		BlockedAt: time.Now().UTC(),
	}
	buf, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, buf, ttl)
}

func (m *Manager) UnblockIdentity(ctx context.Context, identityID string) error {
	return m.store.Delete(ctx, domain.BlockIdentityKey(identityID))
}

func (m *Manager) UnblockIP(ctx context.Context, ip string) error {
	return m.store.Delete(ctx, domain.BlockIPKey(ip))
}

// IsBlocked checks both keys and short-circuits on the first hit.
//
// Lookups fail open: an unreachable store must not lock all traffic
// out. The assessment path has the opposite failure policy and falls
// back to challenge.
func (m *Manager) IsBlocked(ctx context.Context, identityID, ip string) bool {
	_, blocked := m.Blocked(ctx, identityID, ip)
	return blocked
}

// Blocked is IsBlocked plus which kind of block matched ("identity"
// or "ip"), for callers that report on the hit.
func (m *Manager) Blocked(ctx context.Context, identityID, ip string) (string, bool) {
	if identityID != "" {
		blocked, err := m.store.Exists(ctx, domain.BlockIdentityKey(identityID))
		if err != nil {
			slog.Warn("identity blocklist check failed, failing open",
				"identity_id", identityID,
				"error", err)
		} else if blocked {
			return "identity", true
		}
	}

	if ip != "" {
		blocked, err := m.store.Exists(ctx, domain.BlockIPKey(ip))
		if err != nil {
			slog.Warn("ip blocklist check failed, failing open",
				"ip", ip,
				"error", err)
		} else if blocked {
			return "ip", true
		}
	}

	return "", false
}

// BlockedEntry is one row of the admin blocklist view.
type BlockedEntry struct {
	Type      string    `json:"type"` // "identity" or "ip"
	Value     string    `json:"value"`
	Reason    string    `json:"reason"`
	BlockedAt time.Time `json:"blockedAt"`
}

// ListBlocked enumerates all active blocks, most recent first. Entries
// that expire between enumeration and read are skipped.
func (m *Manager) ListBlocked(ctx context.Context) ([]BlockedEntry, error) {
	keys, err := m.store.Keys(ctx, domain.BlockKeyPattern)
	if err != nil {
		return nil, err
	}

	entries := make([]BlockedEntry, 0, len(keys))
	for _, key := range keys {
		raw, err := m.store.Get(ctx, key)
		if err != nil || raw == nil {
			continue
		}

		var entry domain.BlockEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}

		kind, value, ok := splitBlockKey(key)
		if !ok {
			continue
		}
		entries = append(entries, BlockedEntry{
			Type:      kind,
			Value:     value,
			Reason:    entry.Reason,
			BlockedAt: entry.BlockedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].BlockedAt.After(entries[j].BlockedAt)
	})
	return entries, nil
}

func splitBlockKey(key string) (kind, value string, ok bool) {
	if v, found := strings.CutPrefix(key, domain.BlockIdentityKey("")); found {
		return "identity", v, true
	}
	if v, found := strings.CutPrefix(key, domain.BlockIPKey("")); found {
		return "ip", v, true
	}
	return "", "", false
}
