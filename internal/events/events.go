// Package events records the append-only security audit trail.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Recorder appends security events to the KV store and fans them out
// on the bus for durable archiving. Recording is fire-and-forget: the
// hot path never fails because the audit trail is unavailable.
type Recorder struct {
	store domain.KVStore
	bus   domain.EventBus
}

// NewRecorder creates a recorder. bus may be nil; events then stay in
// the KV store only.
func NewRecorder(store domain.KVStore, bus domain.EventBus) *Recorder {
	return &Recorder{store: store, bus: bus}
}

// Log appends one event. Missing IDs and timestamps are filled in.
// Failures are logged and swallowed.
func (r *Recorder) Log(ctx context.Context, event *domain.SecurityEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	buf, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to encode security event",
			"event_type", event.Type,
			"error", err)
		return
	}

	if err := r.store.Set(ctx, domain.SecurityEventKey(event.ID), buf, domain.SecurityEventTTL); err != nil {
		slog.Error("failed to record security event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		// Fall through: the bus copy may still make it to the archive.
	}

	if r.bus != nil {
		if err := r.bus.Publish(ctx, domain.TopicSecurityEvent, buf); err != nil {
			slog.Error("failed to publish security event",
				"event_id", event.ID,
				"error", err)
		}
	}
}

// List returns events still inside the retention window, newest
// first, capped at limit (limit <= 0 means no cap). This is the audit
// pull; nothing on the assessment path calls it.
func (r *Recorder) List(ctx context.Context, limit int) ([]*domain.SecurityEvent, error) {
	keys, err := r.store.Keys(ctx, domain.SecurityEventKeyPattern)
	if err != nil {
		return nil, err
	}

	events := make([]*domain.SecurityEvent, 0, len(keys))
	for _, key := range keys {
		raw, err := r.store.Get(ctx, key)
		if err != nil || raw == nil {
			continue
		}
		var event domain.SecurityEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			continue
		}
		events = append(events, &event)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
