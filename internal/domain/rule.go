package domain

import "time"

// CustomRule is an administrator-defined detection rule: a CEL
// expression over the check context that contributes a fixed score
// when it evaluates to true. Custom rules are stored in the archive
// repository and evaluated by the custom-rules detector; adding or
// removing one never touches the orchestrator.
type CustomRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Expression is a CEL boolean expression. Available variables:
	// amount (double), currency, identity_id, ip, email, country,
	// user_agent, session_id (string), hour (int), has_identity (bool).
	Expression string `json:"expression"`

	// Score is the contribution when the expression matches (0..100).
	Score int `json:"score"`

	// Reason is the human-readable explanation attached to the signal.
	Reason string `json:"reason"`

	// Whether the rule is active
	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
