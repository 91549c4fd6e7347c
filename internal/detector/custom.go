package detector

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/harrier/internal/domain"
)

// CustomRules evaluates administrator-defined CEL rules against the
// check context. Each matching rule contributes its configured score;
// the detector folds all matches into one combined signal. Rules are
// hot-reloadable: the admin surface loads, replaces, and removes them
// while assessments run.
type CustomRules struct {
	mu    sync.RWMutex
	env   *cel.Env
	rules map[string]*compiledRule
}

type compiledRule struct {
	rule    *domain.CustomRule
	program cel.Program
}

// NewCustomRules creates the custom-rule detector with an empty rule
// set.
func NewCustomRules() (*CustomRules, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("currency", cel.StringType),
		cel.Variable("identity_id", cel.StringType),
		cel.Variable("ip", cel.StringType),
		cel.Variable("email", cel.StringType),
		cel.Variable("country", cel.StringType),
		cel.Variable("user_agent", cel.StringType),
		cel.Variable("session_id", cel.StringType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("has_identity", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &CustomRules{
		env:   env,
		rules: make(map[string]*compiledRule),
	}, nil
}

func (d *CustomRules) Name() string { return domain.RuleCustom }

// Validate compiles a rule without loading it, for admin-side checks
// before persisting.
func (d *CustomRules) Validate(rule *domain.CustomRule) error {
	if rule == nil {
		return fmt.Errorf("rule is required")
	}
	_, err := d.compile(rule)
	return err
}

// Load compiles and activates a rule, replacing any previous version
// with the same id.
func (d *CustomRules) Load(rule *domain.CustomRule) error {
	compiled, err := d.compile(rule)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.rules[rule.ID] = compiled
	return nil
}

// Reload replaces the whole active rule set. Disabled rules are
// skipped; a compile failure leaves the previous set untouched.
func (d *CustomRules) Reload(rules []*domain.CustomRule) error {
	next := make(map[string]*compiledRule)
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		compiled, err := d.compile(r)
		if err != nil {
			return err
		}
		next[r.ID] = compiled
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.rules = next
	return nil
}

// Remove deactivates a rule by id.
func (d *CustomRules) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.rules, id)
}

// Count returns the number of active rules.
func (d *CustomRules) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rules)
}

func (d *CustomRules) Detect(ctx context.Context, check *domain.CheckContext) (*domain.Signal, error) {
	d.mu.RLock()
	rules := make([]*compiledRule, 0, len(d.rules))
	for _, r := range d.rules {
		rules = append(rules, r)
	}
	d.mu.RUnlock()

	if len(rules) == 0 {
		return nil, nil
	}

	activation := map[string]any{
		"amount":       check.Amount,
		"currency":     check.Currency,
		"identity_id":  check.IdentityID,
		"ip":           check.IPAddress,
		"email":        check.Email,
		"country":      check.Country,
		"user_agent":   check.UserAgent,
		"session_id":   check.SessionID,
		"hour":         check.Timestamp.Hour(),
		"has_identity": check.HasIdentity(),
	}

	score := 0
	var reasons []string
	meta := make(map[string]string)

	for _, r := range rules {
		out, _, err := r.program.Eval(activation)
		if err != nil {
			// One broken rule must not silence the others.
			continue
		}
		matched, ok := out.(types.Bool)
		if !ok || !bool(matched) {
			continue
		}

		score += r.rule.Score
		reason := r.rule.Reason
		if reason == "" {
			reason = r.rule.Name
		}
		reasons = append(reasons, reason)
		meta[r.rule.ID] = r.rule.Name
	}

	if score == 0 {
		return nil, nil
	}
	if score > 100 {
		score = 100
	}

	return &domain.Signal{
		Rule:     domain.RuleCustom,
		Score:    score,
		Reason:   strings.Join(reasons, "; "),
		Metadata: meta,
	}, nil
}

func (d *CustomRules) compile(rule *domain.CustomRule) (*compiledRule, error) {
	ast, issues := d.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := d.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return &compiledRule{rule: rule, program: program}, nil
}
