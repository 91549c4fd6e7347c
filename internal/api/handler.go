package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/blocklist"
	"github.com/opensource-finance/harrier/internal/detector"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
	"github.com/opensource-finance/harrier/internal/events"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/profile"
	"github.com/opensource-finance/harrier/internal/repository"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	engine     *engine.Engine
	store      domain.KVStore
	repo       domain.Repository
	bus        domain.EventBus
	blocklist  *blocklist.Manager
	events     *events.Recorder
	profiles   *profile.Store
	reputation *detector.StoreReputation
	cards      *detector.StoreCardHistory
	rules      *detector.CustomRules
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		engine:     deps.Engine,
		store:      deps.Store,
		repo:       deps.Repo,
		bus:        deps.Bus,
		blocklist:  deps.Blocklist,
		events:     deps.Events,
		profiles:   deps.Profiles,
		reputation: deps.Reputation,
		cards:      deps.Cards,
		rules:      deps.Rules,
		version:    deps.Version,
	}
}

// AssessResponse is the response for POST /assess: the assessment with
// the fired reasons flattened out for quick consumption.
type AssessResponse struct {
	*domain.Assessment
	Reasons []string `json:"reasons"`
}

// Assess handles POST /assess requests: the hard blocklist gate first,
// then the full detector pipeline.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Amount < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "amount must not be negative",
		})
		return
	}

	// Fill transport attributes the client did not supply.
	if req.IPAddress == "" {
		req.IPAddress = clientIP(r)
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	// Blocklisted identities and IPs never reach the detectors.
	if kind, blocked := h.blocklist.Blocked(ctx, req.IdentityID, req.IPAddress); blocked {
		metrics.BlocklistHits.WithLabelValues(kind).Inc()
		a := h.blockedAssessment(&req, kind)

		h.events.Log(ctx, &domain.SecurityEvent{
			Type:       domain.EventFraudAssessment,
			IdentityID: req.IdentityID,
			IPAddress:  req.IPAddress,
			UserAgent:  req.UserAgent,
			Success:    false,
			RiskScore:  a.RiskScore,
			Timestamp:  a.Timestamp,
			Metadata: map[string]string{
				"assessment_id": a.ID,
				"blocklisted":   kind,
			},
		})

		writeJSON(w, http.StatusOK, AssessResponse{Assessment: a, Reasons: a.Reasons()})
		return
	}

	a := h.engine.Assess(ctx, &req)
	writeJSON(w, http.StatusOK, AssessResponse{Assessment: a, Reasons: a.Reasons()})
}

// blockedAssessment builds the immediate block decision for a
// blocklisted identity or IP.
func (h *Handler) blockedAssessment(req *domain.CheckRequest, kind string) *domain.Assessment {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	reason := "identity is blocklisted"
	if kind == "ip" {
		reason = "IP address is blocklisted"
	}

	return &domain.Assessment{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		IdentityID: req.IdentityID,
		RiskScore:  100,
		RiskLevel:  domain.RiskCritical,
		Action:     domain.ActionBlock,
		Signals: []domain.Signal{
			{Rule: domain.RuleBlocklist, Score: 100, Reason: reason},
		},
		IPAddress:         req.IPAddress,
		UserAgent:         req.UserAgent,
		TransactionAmount: req.Amount,
		Currency:          req.Currency,
		Timestamp:         time.Now().UTC(),
		Metadata: domain.AssessmentMetadata{
			EngineVersion: engine.EngineVersion,
		},
	}
}

// GetAssessment retrieves an assessment by ID: the live KV copy first,
// then the archive.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	a, err := h.engine.Assessment(ctx, id)
	if err != nil {
		slog.Error("failed to read assessment", "id", id, "error", err)
	}
	if a == nil && h.repo != nil {
		a, err = h.repo.GetAssessment(ctx, id)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to read archived assessment", "id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to read assessment",
			})
			return
		}
	}

	if a == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "assessment not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// ListAssessments retrieves archived assessments with optional
// identity, since, and limit filters.
func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	identityID := r.URL.Query().Get("identityId")

	since := time.Now().Add(-24 * time.Hour).UTC()
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "since must be RFC3339",
			})
			return
		}
		since = parsed
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	list, err := h.repo.ListAssessments(ctx, identityID, since, limit)
	if err != nil {
		slog.Error("failed to list assessments", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list assessments",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assessments": list,
		"count":       len(list),
	})
}

// GetProfile returns the behavior profile for an identity.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "identityId")

	p, err := h.profiles.Get(r.Context(), identityID)
	if err != nil {
		slog.Error("failed to read profile", "identity_id", identityID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to read profile",
		})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "profile not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// CheckBlocked answers whether an identity or IP is currently
// blocklisted. Gateways call this on their own hot path, so the
// response is just the verdict.
func (h *Handler) CheckBlocked(w http.ResponseWriter, r *http.Request) {
	identityID := r.URL.Query().Get("identityId")
	ip := r.URL.Query().Get("ip")

	if identityID == "" && ip == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "identityId or ip is required",
		})
		return
	}

	kind, blocked := h.blocklist.Blocked(r.Context(), identityID, ip)
	resp := map[string]any{
		"blocked": blocked,
	}
	if blocked {
		resp["type"] = kind
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats returns aggregate statistics over the live assessment window.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Statistics(r.Context())
	if err != nil {
		slog.Error("failed to compute statistics", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compute statistics",
		})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"
	components := make(map[string]string)

	check := func(name string, ping func() error) {
		if err := ping(); err != nil {
			status = "degraded"
			components[name] = err.Error()
			return
		}
		components[name] = "ok"
	}

	if h.store != nil {
		check("store", func() error { return h.store.Ping(ctx) })
	}
	if h.repo != nil {
		check("repository", func() error { return h.repo.Ping(ctx) })
	}
	if h.bus != nil {
		check("bus", func() error { return h.bus.Ping(ctx) })
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    h.version,
		"components": components,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// BlockRequest is the request body for POST /blocklist.
type BlockRequest struct {
	Type       string `json:"type"` // "identity" or "ip"
	Value      string `json:"value"`
	Reason     string `json:"reason,omitempty"`
	TTLSeconds int    `json:"ttlSeconds,omitempty"`
}

// Block adds an identity or IP to the blocklist.
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Value == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "value is required",
		})
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second

	var err error
	var eventType string
	switch req.Type {
	case "identity":
		err = h.blocklist.BlockIdentity(ctx, req.Value, req.Reason, ttl)
		eventType = domain.EventIdentityBlocked
	case "ip":
		err = h.blocklist.BlockIP(ctx, req.Value, req.Reason, ttl)
		eventType = domain.EventIPBlocked
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "type must be identity or ip",
		})
		return
	}

	if err != nil {
		slog.Error("failed to block", "type", req.Type, "value", req.Value, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to block",
		})
		return
	}

	h.logBlockEvent(ctx, eventType, req.Type, req.Value, req.Reason)

	slog.Info("blocked", "type", req.Type, "value", req.Value, "reason", req.Reason)
	writeJSON(w, http.StatusCreated, map[string]string{
		"type":  req.Type,
		"value": req.Value,
	})
}

// Unblock removes an identity or IP from the blocklist.
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := chi.URLParam(r, "type")
	value := chi.URLParam(r, "value")

	var err error
	var eventType string
	switch kind {
	case "identity":
		err = h.blocklist.UnblockIdentity(ctx, value)
		eventType = domain.EventIdentityUnblocked
	case "ip":
		err = h.blocklist.UnblockIP(ctx, value)
		eventType = domain.EventIPUnblocked
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "type must be identity or ip",
		})
		return
	}

	if err != nil {
		slog.Error("failed to unblock", "type", kind, "value", value, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to unblock",
		})
		return
	}

	h.logBlockEvent(ctx, eventType, kind, value, "")

	slog.Info("unblocked", "type", kind, "value", value)
	writeJSON(w, http.StatusOK, map[string]string{
		"type":  kind,
		"value": value,
	})
}

func (h *Handler) logBlockEvent(ctx context.Context, eventType, kind, value, reason string) {
	ev := &domain.SecurityEvent{
		Type:    eventType,
		Success: true,
		Metadata: map[string]string{
			"reason": reason,
		},
	}
	if kind == "identity" {
		ev.IdentityID = value
	} else {
		ev.IPAddress = value
	}
	h.events.Log(ctx, ev)
}

// ListBlocklist returns all active blocks.
func (h *Handler) ListBlocklist(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.blocklist.ListBlocked(r.Context())
	if err != nil {
		slog.Error("failed to list blocklist", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list blocklist",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"blocks": blocks,
		"count":  len(blocks),
	})
}

// ListEvents returns recent security events from the live window.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	list, err := h.events.List(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list events",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": list,
		"count":  len(list),
	})
}

// ReputationRequest is the request body for PUT /reputation.
type ReputationRequest struct {
	Type    string `json:"type"` // "email" or "ip"
	Subject string `json:"subject"`
	Score   int    `json:"score"`
}

// SetReputation seeds the reputation cache for an email or IP.
func (h *Handler) SetReputation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReputationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Subject == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "subject is required",
		})
		return
	}
	if req.Score < 0 || req.Score > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "score must be between 0 and 100",
		})
		return
	}

	var err error
	switch req.Type {
	case "email":
		err = h.reputation.SetEmailReputation(ctx, req.Subject, req.Score)
	case "ip":
		err = h.reputation.SetIPReputation(ctx, req.Subject, req.Score)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "type must be email or ip",
		})
		return
	}

	if err != nil {
		slog.Error("failed to set reputation", "type", req.Type, "subject", req.Subject, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to set reputation",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type":    req.Type,
		"subject": req.Subject,
		"score":   req.Score,
	})
}

// CardVerificationRequest is the request body for
// POST /signals/card-verification.
type CardVerificationRequest struct {
	IdentityID string `json:"identityId"`
	Success    bool   `json:"success"`
	TestCard   bool   `json:"testCard,omitempty"`
}

// CardVerification ingests a card verification outcome into the
// signal history consumed by the card detector.
func (h *Handler) CardVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CardVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.IdentityID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "identityId is required",
		})
		return
	}

	var failures int64
	if !req.Success {
		n, err := h.cards.RecordFailure(ctx, req.IdentityID)
		if err != nil {
			slog.Error("failed to record card failure", "identity_id", req.IdentityID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to record card verification",
			})
			return
		}
		failures = n
	}

	if req.TestCard {
		if err := h.cards.MarkTestCard(ctx, req.IdentityID); err != nil {
			slog.Error("failed to mark test card", "identity_id", req.IdentityID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to record card verification",
			})
			return
		}
	}

	h.events.Log(ctx, &domain.SecurityEvent{
		Type:       domain.EventCardVerification,
		IdentityID: req.IdentityID,
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
		Success:    req.Success,
		Metadata: map[string]string{
			"test_card": strconv.FormatBool(req.TestCard),
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"identityId": req.IdentityID,
		"failures":   failures,
	})
}

// CreateRuleRequest is the request body for creating a custom rule.
type CreateRuleRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Score       int    `json:"score"`
	Reason      string `json:"reason,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// ListRules returns all stored custom rules plus how many are loaded
// in the detector.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	rules, err := h.repo.ListCustomRules(r.Context())
	if err != nil {
		slog.Error("failed to list rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list rules",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  rules,
		"count":  len(rules),
		"loaded": h.rules.Count(),
	})
}

// GetRule retrieves a custom rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	rule, err := h.repo.GetCustomRule(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "rule not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get rule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get rule",
		})
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// CreateRule validates, persists, and loads a new custom rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	h.saveRule(w, r, "")
}

// UpdateRule replaces an existing custom rule.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	h.saveRule(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) saveRule(w http.ResponseWriter, r *http.Request, pathID string) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if pathID != "" {
		req.ID = pathID
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name and expression are required",
		})
		return
	}
	if req.Score < 0 || req.Score > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "score must be between 0 and 100",
		})
		return
	}

	rule := &domain.CustomRule{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Score:       req.Score,
		Reason:      req.Reason,
		Enabled:     req.Enabled,
	}

	// Compile-check before anything is persisted.
	if err := h.rules.Validate(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveCustomRule(ctx, rule); err != nil {
			slog.Error("failed to save rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	// Apply immediately: load enabled rules, drop disabled ones.
	if rule.Enabled {
		if err := h.rules.Load(rule); err != nil {
			slog.Error("failed to load rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to load rule",
			})
			return
		}
	} else {
		h.rules.Remove(rule.ID)
	}

	status := http.StatusOK
	if pathID == "" {
		status = http.StatusCreated
	}

	slog.Info("rule saved", "id", rule.ID, "name", rule.Name, "enabled", rule.Enabled)
	writeJSON(w, status, map[string]any{
		"rule": rule,
	})
}

// DeleteRule removes a custom rule from storage and the detector.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleID := chi.URLParam(r, "id")

	if h.repo != nil {
		err := h.repo.DeleteCustomRule(ctx, ruleID)
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
			return
		}
		if err != nil {
			slog.Error("failed to delete rule", "id", ruleID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to delete rule",
			})
			return
		}
	}

	h.rules.Remove(ruleID)

	slog.Info("rule deleted", "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "rule deleted",
	})
}

// ReloadRules reloads all custom rules from the repository into the
// detector. This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListCustomRules(ctx)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.rules.Reload(dbRules); err != nil {
		slog.Error("failed to reload rules into detector", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded from database", "count", h.rules.Count())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   h.rules.Count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// clientIP extracts the caller address, without the port. RealIP
// middleware has already folded proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
