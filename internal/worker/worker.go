// Package worker provides the async archiver that drains the event
// bus into the durable repository. Assessments and security events
// are produced fire-and-forget on the hot path; this worker is what
// makes them durable.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Archiver subscribes to the assessment and security-event topics and
// writes every message into the repository.
type Archiver struct {
	bus  domain.EventBus
	repo domain.Repository

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewArchiver creates a new archive worker.
func NewArchiver(bus domain.EventBus, repo domain.Repository) *Archiver {
	ctx, cancel := context.WithCancel(context.Background())
	return &Archiver{
		bus:    bus,
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the pipeline topics.
func (a *Archiver) Start() error {
	sub, err := a.bus.Subscribe(a.ctx, domain.TopicAssessmentCompleted, a.handleAssessment)
	if err != nil {
		return err
	}
	a.subscriptions = append(a.subscriptions, sub)

	sub, err = a.bus.Subscribe(a.ctx, domain.TopicSecurityEvent, a.handleSecurityEvent)
	if err != nil {
		return err
	}
	a.subscriptions = append(a.subscriptions, sub)

	slog.Info("archive worker started",
		"topics", []string{domain.TopicAssessmentCompleted, domain.TopicSecurityEvent},
	)
	return nil
}

func (a *Archiver) handleAssessment(ctx context.Context, msg *domain.Message) error {
	var assessment domain.Assessment
	if err := json.Unmarshal(msg.Payload, &assessment); err != nil {
		slog.Error("failed to parse assessment message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if err := a.repo.SaveAssessment(ctx, &assessment); err != nil {
		slog.Error("failed to archive assessment",
			"assessment_id", assessment.ID,
			"error", err,
		)
		return err
	}

	slog.Debug("assessment archived",
		"assessment_id", assessment.ID,
		"risk_level", assessment.RiskLevel,
	)
	return nil
}

func (a *Archiver) handleSecurityEvent(ctx context.Context, msg *domain.Message) error {
	var event domain.SecurityEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse security event message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if err := a.repo.SaveSecurityEvent(ctx, &event); err != nil {
		slog.Error("failed to archive security event",
			"event_id", event.ID,
			"error", err,
		)
		return err
	}

	return nil
}

// Stop gracefully stops the worker.
func (a *Archiver) Stop() error {
	a.cancel()

	// Unsubscribe all
	for _, sub := range a.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	a.subscriptions = nil

	slog.Info("archive worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (a *Archiver) GetStats() Stats {
	topics := make([]string, len(a.subscriptions))
	for i, sub := range a.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(a.subscriptions),
		Topics:            topics,
	}
}
