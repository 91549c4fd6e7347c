package domain

import (
	"context"
	"time"
)

// Repository defines the interface for durable persistence. The KV
// store holds the short-TTL working copies; the repository is the
// system of record fed asynchronously by the archive worker.
type Repository interface {
	// Assessment archive
	SaveAssessment(ctx context.Context, a *Assessment) error
	GetAssessment(ctx context.Context, id string) (*Assessment, error)
	ListAssessments(ctx context.Context, identityID string, since time.Time, limit int) ([]*Assessment, error)

	// Security event archive
	SaveSecurityEvent(ctx context.Context, ev *SecurityEvent) error
	ListSecurityEvents(ctx context.Context, identityID string, since time.Time, limit int) ([]*SecurityEvent, error)

	// Custom rule configuration
	SaveCustomRule(ctx context.Context, rule *CustomRule) error
	GetCustomRule(ctx context.Context, id string) (*CustomRule, error)
	ListCustomRules(ctx context.Context) ([]*CustomRule, error)
	DeleteCustomRule(ctx context.Context, id string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
