package repository

// Schema definitions for the Harrier archive database.
// Compatible with both SQLite and PostgreSQL.

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    identity_id TEXT,
    risk_score INTEGER NOT NULL,
    risk_level TEXT NOT NULL,
    action TEXT NOT NULL,
    signals TEXT NOT NULL,
    ip_address TEXT,
    user_agent TEXT,
    amount REAL,
    currency TEXT,
    timestamp TIMESTAMP NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_identity ON assessments(identity_id);
CREATE INDEX IF NOT EXISTS idx_assessments_session ON assessments(session_id);
CREATE INDEX IF NOT EXISTS idx_assessments_timestamp ON assessments(timestamp);
CREATE INDEX IF NOT EXISTS idx_assessments_level ON assessments(risk_level);
`

const schemaSecurityEvents = `
CREATE TABLE IF NOT EXISTS security_events (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    identity_id TEXT,
    ip_address TEXT,
    user_agent TEXT,
    success INTEGER NOT NULL DEFAULT 1,
    risk_score INTEGER NOT NULL DEFAULT 0,
    metadata TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_security_events_identity ON security_events(identity_id);
CREATE INDEX IF NOT EXISTS idx_security_events_type ON security_events(type);
CREATE INDEX IF NOT EXISTS idx_security_events_timestamp ON security_events(timestamp);
`

const schemaCustomRules = `
CREATE TABLE IF NOT EXISTS custom_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    score INTEGER NOT NULL,
    reason TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_custom_rules_enabled ON custom_rules(enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAssessments,
		schemaSecurityEvents,
		schemaCustomRules,
	}
}
