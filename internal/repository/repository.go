// Package repository provides the durable archive behind the KV
// store's short-TTL working set: assessments, security events, and
// custom rule configurations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// defaultListLimit caps unbounded list queries.
const defaultListLimit = 100

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveAssessment archives one completed assessment.
func (r *SQLRepository) SaveAssessment(ctx context.Context, a *domain.Assessment) error {
	if a.ID == "" {
		return fmt.Errorf("%w: assessment id is required", ErrInvalidInput)
	}

	signals, _ := json.Marshal(a.Signals)
	metadata, _ := json.Marshal(a.Metadata)

	query := `
		INSERT INTO assessments (
			id, session_id, identity_id, risk_score, risk_level, action,
			signals, ip_address, user_agent, amount, currency, timestamp, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.ID, a.SessionID, a.IdentityID,
		a.RiskScore, string(a.RiskLevel), string(a.Action),
		string(signals), a.IPAddress, a.UserAgent,
		a.TransactionAmount, a.Currency,
		a.Timestamp, string(metadata),
	)
	return err
}

// GetAssessment retrieves an archived assessment by ID.
func (r *SQLRepository) GetAssessment(ctx context.Context, id string) (*domain.Assessment, error) {
	query := `
		SELECT id, session_id, identity_id, risk_score, risk_level, action,
			   signals, ip_address, user_agent, amount, currency, timestamp, metadata
		FROM assessments
		WHERE id = ?
	`

	a, err := scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAssessments retrieves archived assessments, newest first. An
// empty identityID matches all identities.
func (r *SQLRepository) ListAssessments(ctx context.Context, identityID string, since time.Time, limit int) ([]*domain.Assessment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, session_id, identity_id, risk_score, risk_level, action,
			   signals, ip_address, user_agent, amount, currency, timestamp, metadata
		FROM assessments
		WHERE timestamp >= ?
	`
	args := []any{since}
	if identityID != "" {
		query += " AND identity_id = ?"
		args = append(args, identityID)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []*domain.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}

	return assessments, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row scanner) (*domain.Assessment, error) {
	var (
		a                 domain.Assessment
		level, action     string
		signals, metadata string
	)

	err := row.Scan(
		&a.ID, &a.SessionID, &a.IdentityID,
		&a.RiskScore, &level, &action,
		&signals, &a.IPAddress, &a.UserAgent,
		&a.TransactionAmount, &a.Currency,
		&a.Timestamp, &metadata,
	)
	if err != nil {
		return nil, err
	}

	a.RiskLevel = domain.RiskLevel(level)
	a.Action = domain.Action(action)
	if signals != "" {
		json.Unmarshal([]byte(signals), &a.Signals)
	}
	if metadata != "" {
		json.Unmarshal([]byte(metadata), &a.Metadata)
	}

	return &a, nil
}

// SaveSecurityEvent archives one audit event.
func (r *SQLRepository) SaveSecurityEvent(ctx context.Context, ev *domain.SecurityEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	metadata, _ := json.Marshal(ev.Metadata)

	success := 0
	if ev.Success {
		success = 1
	}

	query := `
		INSERT INTO security_events (
			id, type, identity_id, ip_address, user_agent,
			success, risk_score, metadata, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ev.ID, ev.Type, ev.IdentityID, ev.IPAddress, ev.UserAgent,
		success, ev.RiskScore, string(metadata), ev.Timestamp,
	)
	return err
}

// ListSecurityEvents retrieves archived events, newest first. An empty
// identityID matches all identities.
func (r *SQLRepository) ListSecurityEvents(ctx context.Context, identityID string, since time.Time, limit int) ([]*domain.SecurityEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, type, identity_id, ip_address, user_agent,
			   success, risk_score, metadata, timestamp
		FROM security_events
		WHERE timestamp >= ?
	`
	args := []any{since}
	if identityID != "" {
		query += " AND identity_id = ?"
		args = append(args, identityID)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.SecurityEvent
	for rows.Next() {
		var (
			ev       domain.SecurityEvent
			success  int
			metadata string
		)

		if err := rows.Scan(
			&ev.ID, &ev.Type, &ev.IdentityID, &ev.IPAddress, &ev.UserAgent,
			&success, &ev.RiskScore, &metadata, &ev.Timestamp,
		); err != nil {
			return nil, err
		}

		ev.Success = success == 1
		if metadata != "" {
			json.Unmarshal([]byte(metadata), &ev.Metadata)
		}
		events = append(events, &ev)
	}

	return events, rows.Err()
}

// SaveCustomRule stores a custom rule configuration, replacing any
// existing rule with the same id.
func (r *SQLRepository) SaveCustomRule(ctx context.Context, rule *domain.CustomRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	if rule.Expression == "" {
		return fmt.Errorf("%w: rule expression is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()
	createdAt := rule.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := `
		INSERT INTO custom_rules (
			id, name, description, expression, score, reason, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			score = excluded.score,
			reason = excluded.reason,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description,
		rule.Expression, rule.Score, rule.Reason, enabled,
		createdAt, now,
	)
	return err
}

// GetCustomRule retrieves a custom rule by ID.
func (r *SQLRepository) GetCustomRule(ctx context.Context, id string) (*domain.CustomRule, error) {
	query := `
		SELECT id, name, description, expression, score, reason, enabled, created_at, updated_at
		FROM custom_rules
		WHERE id = ?
	`

	var rule domain.CustomRule
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&rule.ID, &rule.Name, &rule.Description,
		&rule.Expression, &rule.Score, &rule.Reason, &enabled,
		&rule.CreatedAt, &rule.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1
	return &rule, nil
}

// ListCustomRules retrieves all custom rules, including disabled ones.
// The detector skips disabled rules itself.
func (r *SQLRepository) ListCustomRules(ctx context.Context) ([]*domain.CustomRule, error) {
	query := `
		SELECT id, name, description, expression, score, reason, enabled, created_at, updated_at
		FROM custom_rules
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.CustomRule
	for rows.Next() {
		var rule domain.CustomRule
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Description,
			&rule.Expression, &rule.Score, &rule.Reason, &enabled,
			&rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// DeleteCustomRule removes a custom rule.
func (r *SQLRepository) DeleteCustomRule(ctx context.Context, id string) error {
	query := `DELETE FROM custom_rules WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
