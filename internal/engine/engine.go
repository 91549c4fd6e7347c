// Package engine contains the assessment orchestrator: it fans the
// check context out to every registered detector, folds the surviving
// signals through the scoring policy, and takes care of persistence,
// profile updates, audit events, metrics, and bus fan-out.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/harrier/internal/detector"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/events"
	"github.com/opensource-finance/harrier/internal/policy"
	"github.com/opensource-finance/harrier/internal/profile"
)

// EngineVersion is stamped into every assessment's metadata.
const EngineVersion = "harrier-1.0"

// Fan-out defaults, applied when the config leaves them zero.
const (
	defaultDetectorTimeout = 300 * time.Millisecond
	defaultAssessTimeout   = 1500 * time.Millisecond
	defaultMaxConcurrent   = 8
)

var tracer = otel.Tracer("harrier-engine")

// errDetectorPanic marks a detector that panicked instead of
// returning.
var errDetectorPanic = errors.New("detector panic")

// Config wires the engine's dependencies. Detectors, Store, and
// Profiles are required; the rest defaults to no-ops when nil.
type Config struct {
	Detectors []domain.Detector
	Store     domain.KVStore
	Profiles  *profile.Store
	Events    *events.Recorder
	Metrics   domain.MetricsSink
	Bus       domain.EventBus
	Resolver  detector.LocationResolver

	DetectorTimeout time.Duration
	AssessTimeout   time.Duration
	MaxConcurrent   int
}

// Engine runs risk assessments. One engine serves many concurrent
// assessments; it holds no per-request state.
type Engine struct {
	detectors []domain.Detector
	store     domain.KVStore
	profiles  *profile.Store
	events    *events.Recorder
	metrics   domain.MetricsSink
	bus       domain.EventBus
	resolver  detector.LocationResolver

	detectorTimeout time.Duration
	assessTimeout   time.Duration
	maxConcurrent   int
}

type nopSink struct{}

func (nopSink) Record(name string, value float64, tags map[string]string) {}

// New creates an engine from the config, applying defaults for
// anything unset.
func New(cfg Config) *Engine {
	if cfg.DetectorTimeout <= 0 {
		cfg.DetectorTimeout = defaultDetectorTimeout
	}
	if cfg.AssessTimeout <= 0 {
		cfg.AssessTimeout = defaultAssessTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopSink{}
	}
	if cfg.Resolver == nil {
		cfg.Resolver = detector.NopResolver{}
	}

	return &Engine{
		detectors:       cfg.Detectors,
		store:           cfg.Store,
		profiles:        cfg.Profiles,
		events:          cfg.Events,
		metrics:         cfg.Metrics,
		bus:             cfg.Bus,
		resolver:        cfg.Resolver,
		detectorTimeout: cfg.DetectorTimeout,
		assessTimeout:   cfg.AssessTimeout,
		maxConcurrent:   cfg.MaxConcurrent,
	}
}

// Assess runs one risk assessment. It never returns an error and
// never blocks past the assessment timeout: when the orchestration
// itself fails (timeout, scorer panic), the caller gets the fail-safe
// default of medium risk and a challenge rather than an open or
// closed gate.
func (e *Engine) Assess(ctx context.Context, req *domain.CheckRequest) *domain.Assessment {
	started := time.Now()

	ctx, span := tracer.Start(ctx, "engine.assess",
		trace.WithAttributes(
			attribute.String("session.id", req.SessionID),
			attribute.Bool("has.identity", req.IdentityID != ""),
		),
	)
	defer span.End()

	runCtx, cancel := context.WithTimeout(ctx, e.assessTimeout)
	defer cancel()

	assessment, err := e.run(runCtx, ctx, req, started)
	if err != nil {
		slog.Error("assessment orchestration failed, returning fail-safe default",
			"session_id", req.SessionID,
			"identity_id", req.IdentityID,
			"error", err)
		assessment = e.failSafe(ctx, req, started)
	}

	span.SetAttributes(
		attribute.Int("risk.score", assessment.RiskScore),
		attribute.String("risk.level", string(assessment.RiskLevel)),
		attribute.String("risk.action", string(assessment.Action)),
	)
	return assessment
}

// run executes the decision path under the assessment timeout. Side
// effects after the decision run under the parent context so a
// deadline hit during archival cannot void a computed decision.
func (e *Engine) run(runCtx, parent context.Context, req *domain.CheckRequest, started time.Time) (a *domain.Assessment, err error) {
	defer func() {
		if r := recover(); r != nil {
			a = nil
			err = fmt.Errorf("orchestration panic: %v", r)
		}
	}()

	check := e.buildCheck(runCtx, req)

	detectStart := time.Now()
	signals, failed, err := e.detect(runCtx, check)
	if err != nil {
		return nil, err
	}
	detectMs := time.Since(detectStart).Milliseconds()

	score, level, action := policy.Decide(signals)

	a = &domain.Assessment{
		ID:                uuid.New().String(),
		SessionID:         check.SessionID,
		IdentityID:        check.IdentityID,
		RiskScore:         score,
		RiskLevel:         level,
		Action:            action,
		Signals:           signals,
		IPAddress:         check.IPAddress,
		UserAgent:         check.UserAgent,
		TransactionAmount: check.Amount,
		Currency:          check.Currency,
		Timestamp:         check.Timestamp,
		Metadata: domain.AssessmentMetadata{
			TraceID:         traceID(runCtx),
			DetectorsRun:    len(e.detectors),
			DetectorsFailed: failed,
			DetectMs:        detectMs,
			TotalMs:         time.Since(started).Milliseconds(),
			EngineVersion:   EngineVersion,
		},
	}

	e.finish(parent, a, check)
	return a, nil
}

// buildCheck assembles the per-assessment view of the request: fills
// in a session id, stamps the time, defaults the currency, and
// resolves the country when the caller did not supply one.
func (e *Engine) buildCheck(ctx context.Context, req *domain.CheckRequest) *domain.CheckContext {
	check := &domain.CheckContext{
		SessionID:  req.SessionID,
		IdentityID: req.IdentityID,
		Email:      req.Email,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Country:    req.Country,
		Timestamp:  time.Now().UTC(),
		Metadata:   req.Metadata,
	}

	if check.SessionID == "" {
		check.SessionID = uuid.New().String()
	}
	if check.Amount > 0 && check.Currency == "" {
		check.Currency = "USD"
	}
	if check.Country == "" && check.IPAddress != "" {
		loc, err := e.resolver.Resolve(ctx, check.IPAddress)
		if err != nil {
			slog.Debug("location resolution failed",
				"ip", check.IPAddress,
				"error", err)
		} else {
			check.Country = loc.Country
		}
	}

	return check
}

// detect fans the check out to all detectors and joins with
// per-detector failure isolation: an erroring, panicking, or
// timed-out detector is dropped from the signal set, never propagated.
// Only the outer deadline aborts the join.
func (e *Engine) detect(ctx context.Context, check *domain.CheckContext) ([]domain.Signal, int, error) {
	if len(e.detectors) == 0 {
		return nil, 0, nil
	}

	var (
		mu      sync.Mutex
		signals []domain.Signal
		failed  int
	)

	sem := make(chan struct{}, e.maxConcurrent)
	var wg sync.WaitGroup

	for _, d := range e.detectors {
		wg.Add(1)
		go func(d domain.Detector) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			start := time.Now()
			sig, err := e.runDetector(ctx, d, check)
			elapsed := float64(time.Since(start).Microseconds()) / 1000.0

			e.metrics.Record(domain.MetricDetectorDuration, elapsed,
				map[string]string{"detector": d.Name()})

			if err != nil {
				cause := "error"
				switch {
				case errors.Is(err, errDetectorPanic):
					cause = "panic"
				case errors.Is(err, context.DeadlineExceeded):
					cause = "timeout"
				}
				slog.Warn("detector dropped from assessment",
					"detector", d.Name(),
					"cause", cause,
					"error", err)
				e.metrics.Record(domain.MetricDetectorFailures, 1,
					map[string]string{"detector": d.Name(), "cause": cause})

				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			if sig != nil {
				e.metrics.Record(domain.MetricSignals, 1,
					map[string]string{"rule": sig.Rule})
				mu.Lock()
				signals = append(signals, *sig)
				mu.Unlock()
			}
		}(d)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// A join that lands after the window expired means the
		// in-flight detectors were force-dropped en masse; the
		// partial result is not trustworthy.
		if err := ctx.Err(); err != nil {
			return nil, 0, fmt.Errorf("assessment window exceeded: %w", err)
		}
		return signals, failed, nil
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("assessment window exceeded: %w", ctx.Err())
	}
}

// runDetector bounds one detector call with its own timeout and panic
// isolation. A detector that ignores its context still cannot hold up
// the join: the result is abandoned at the deadline.
func (e *Engine) runDetector(ctx context.Context, d domain.Detector, check *domain.CheckContext) (*domain.Signal, error) {
	dctx, cancel := context.WithTimeout(ctx, e.detectorTimeout)
	defer cancel()

	type outcome struct {
		signal *domain.Signal
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("%w: %v", errDetectorPanic, r)}
			}
		}()
		sig, err := d.Detect(dctx, check)
		ch <- outcome{signal: sig, err: err}
	}()

	select {
	case out := <-ch:
		return out.signal, out.err
	case <-dctx.Done():
		return nil, dctx.Err()
	}
}

// finish runs the post-decision side effects: short-term persistence,
// profile update, audit event, metrics, and bus fan-out. All are
// best-effort; the decision stands regardless, so even a panic here
// is swallowed rather than escalated into a fail-safe rewrite.
func (e *Engine) finish(ctx context.Context, a *domain.Assessment, check *domain.CheckContext) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("post-decision side effects panicked",
				"assessment_id", a.ID,
				"panic", r)
		}
	}()

	if err := e.persist(ctx, a); err != nil {
		slog.Warn("failed to persist assessment",
			"assessment_id", a.ID,
			"error", err)
	}

	if a.IdentityID != "" && e.profiles != nil {
		obs := profile.Observation{Country: check.Country}
		if check.UserAgent != "" {
			obs.DeviceFingerprint = detector.Fingerprint(check.UserAgent)
		}
		if err := e.profiles.Update(ctx, a, obs); err != nil {
			slog.Warn("failed to update behavior profile",
				"identity_id", a.IdentityID,
				"error", err)
		}
	}

	if e.events != nil {
		e.events.Log(ctx, &domain.SecurityEvent{
			Type:       domain.EventFraudAssessment,
			IdentityID: a.IdentityID,
			IPAddress:  a.IPAddress,
			UserAgent:  a.UserAgent,
			Success:    a.Action != domain.ActionBlock,
			RiskScore:  a.RiskScore,
			Timestamp:  a.Timestamp,
			Metadata: map[string]string{
				"assessment_id": a.ID,
				"session_id":    a.SessionID,
				"risk_level":    string(a.RiskLevel),
				"action":        string(a.Action),
			},
		})
	}

	e.metrics.Record(domain.MetricAssessments, 1, map[string]string{
		"risk_level": string(a.RiskLevel),
		"action":     string(a.Action),
		"signals":    strconv.Itoa(len(a.Signals)),
	})
	e.metrics.Record(domain.MetricAssessmentScore, float64(a.RiskScore), nil)

	e.publish(ctx, a)
}

// persist writes the short-lived assessment copy used for debugging
// and the statistics window. The durable copy travels over the bus to
// the archive.
func (e *Engine) persist(ctx context.Context, a *domain.Assessment) error {
	buf, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, domain.AssessmentKey(a.ID), buf, domain.AssessmentTTL)
}

// Alert is the compact payload published for high-risk assessments.
type Alert struct {
	AssessmentID string           `json:"assessmentId"`
	SessionID    string           `json:"sessionId"`
	IdentityID   string           `json:"identityId,omitempty"`
	IPAddress    string           `json:"ipAddress"`
	RiskScore    int              `json:"riskScore"`
	RiskLevel    domain.RiskLevel `json:"riskLevel"`
	Action       domain.Action    `json:"action"`
	Reasons      []string         `json:"reasons"`
	Timestamp    time.Time        `json:"timestamp"`
}

func (e *Engine) publish(ctx context.Context, a *domain.Assessment) {
	if e.bus == nil {
		return
	}

	buf, err := json.Marshal(a)
	if err != nil {
		slog.Error("failed to encode assessment for publish", "error", err)
		return
	}
	if err := e.bus.Publish(ctx, domain.TopicAssessmentCompleted, buf); err != nil {
		slog.Warn("failed to publish assessment",
			"assessment_id", a.ID,
			"error", err)
	}

	if a.RiskLevel != domain.RiskHigh && a.RiskLevel != domain.RiskCritical {
		return
	}

	alert, err := json.Marshal(Alert{
		AssessmentID: a.ID,
		SessionID:    a.SessionID,
		IdentityID:   a.IdentityID,
		IPAddress:    a.IPAddress,
		RiskScore:    a.RiskScore,
		RiskLevel:    a.RiskLevel,
		Action:       a.Action,
		Reasons:      a.Reasons(),
		Timestamp:    a.Timestamp,
	})
	if err != nil {
		return
	}
	if err := e.bus.Publish(ctx, domain.TopicAlert, alert); err != nil {
		slog.Warn("failed to publish alert",
			"assessment_id", a.ID,
			"error", err)
	}
}

// failSafe builds the default assessment returned when orchestration
// fails: medium risk and a challenge, so a subsystem outage neither
// waves all traffic through nor blocks it outright.
func (e *Engine) failSafe(ctx context.Context, req *domain.CheckRequest, started time.Time) *domain.Assessment {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	// The lowest score inside the medium band keeps score and level
	// consistent for downstream consumers.
	score := policy.MediumThreshold

	a := &domain.Assessment{
		ID:                uuid.New().String(),
		SessionID:         sessionID,
		IdentityID:        req.IdentityID,
		RiskScore:         score,
		RiskLevel:         domain.RiskMedium,
		Action:            domain.ActionChallenge,
		Signals:           []domain.Signal{},
		IPAddress:         req.IPAddress,
		UserAgent:         req.UserAgent,
		TransactionAmount: req.Amount,
		Currency:          req.Currency,
		Timestamp:         time.Now().UTC(),
		Metadata: domain.AssessmentMetadata{
			TraceID:       traceID(ctx),
			TotalMs:       time.Since(started).Milliseconds(),
			EngineVersion: EngineVersion,
			FailSafe:      true,
		},
	}

	e.metrics.Record(domain.MetricFailSafe, 1, nil)
	e.metrics.Record(domain.MetricAssessments, 1, map[string]string{
		"risk_level": string(a.RiskLevel),
		"action":     string(a.Action),
		"signals":    "0",
	})

	// Best effort: the store may be the thing that is down.
	if err := e.persist(ctx, a); err != nil {
		slog.Debug("failed to persist fail-safe assessment", "error", err)
	}
	if e.events != nil {
		e.events.Log(ctx, &domain.SecurityEvent{
			Type:       domain.EventFraudAssessment,
			IdentityID: a.IdentityID,
			IPAddress:  a.IPAddress,
			UserAgent:  a.UserAgent,
			Success:    true,
			RiskScore:  a.RiskScore,
			Timestamp:  a.Timestamp,
			Metadata: map[string]string{
				"assessment_id": a.ID,
				"fail_safe":     "true",
			},
		})
	}

	return a
}

// Assessment returns the short-lived stored copy of an assessment, or
// nil when it has expired or never existed.
func (e *Engine) Assessment(ctx context.Context, id string) (*domain.Assessment, error) {
	raw, err := e.store.Get(ctx, domain.AssessmentKey(id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var a domain.Assessment
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("malformed assessment %s: %w", id, err)
	}
	return &a, nil
}

func traceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
