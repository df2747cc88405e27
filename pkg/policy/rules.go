package policy

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"sync"

	"gopkg.in/yaml.v3"
)

// Effect is the outcome of a matched rule.
type Effect string

const (
	// EffectAllow permits the action.
	EffectAllow Effect = "allow"

	// EffectDeny blocks the action.
	EffectDeny Effect = "deny"
)

// Rule is a single policy rule. Empty matcher fields match anything; the ID
// and kind matchers support glob patterns (path.Match syntax).
type Rule struct {
	// Name is an optional human-readable rule name used in logs.
	Name string `yaml:"name"`

	// Action matches the action kind. Empty matches all actions.
	Action string `yaml:"action"`

	// CallerKind matches the caller's module kind.
	CallerKind string `yaml:"caller_kind"`

	// CallerID matches the caller's module code.
	CallerID string `yaml:"caller_id"`

	// Effect is "allow" or "deny".
	Effect Effect `yaml:"effect"`
}

// RuleSet is the on-disk rules document.
type RuleSet struct {
	// Default is the effect applied when no rule matches.
	// Default: "allow"
	Default Effect `yaml:"default"`

	// Rules are evaluated in order; the first match wins.
	Rules []Rule `yaml:"rules"`
}

// RuleGate is a Gate backed by an ordered rule set loaded from a YAML file.
// The rule set can be swapped at runtime (hot reload); evaluation is
// lock-free apart from a read lock on the current set.
type RuleGate struct {
	mu     sync.RWMutex
	rules  *RuleSet
	logger *slog.Logger
}

// NewRuleGate creates a gate from the rules file at path.
func NewRuleGate(path string, logger *slog.Logger) (*RuleGate, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g := &RuleGate{logger: logger.With("component", "policy.rulegate")}
	if err := g.LoadFile(path); err != nil {
		return nil, err
	}
	return g, nil
}

// NewStaticRuleGate creates a gate from an in-memory rule set.
func NewStaticRuleGate(rules *RuleSet, logger *slog.Logger) (*RuleGate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := validateRules(rules); err != nil {
		return nil, err
	}

	return &RuleGate{
		rules:  rules,
		logger: logger.With("component", "policy.rulegate"),
	}, nil
}

// LoadFile replaces the current rule set with the contents of the file at
// path. On error the previous rule set stays in effect.
func (g *RuleGate) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}

	if err := validateRules(&rules); err != nil {
		return fmt.Errorf("invalid rules file %q: %w", path, err)
	}

	g.mu.Lock()
	g.rules = &rules
	g.mu.Unlock()

	g.logger.Info("policy rules loaded", "path", path, "rule_count", len(rules.Rules))
	return nil
}

// Allowed implements Gate. Rules are evaluated in order; the first match
// wins, and the rule set's default applies when nothing matches.
func (g *RuleGate) Allowed(action Action, id Identity) bool {
	g.mu.RLock()
	rules := g.rules
	g.mu.RUnlock()

	for i := range rules.Rules {
		r := &rules.Rules[i]
		if !matchField(r.Action, string(action)) {
			continue
		}
		if !matchField(r.CallerKind, id.Kind) {
			continue
		}
		if !matchField(r.CallerID, id.ID) {
			continue
		}

		if r.Effect == EffectDeny {
			g.logger.Debug("rule denied action",
				"rule", r.Name,
				"action", string(action),
				"caller_kind", id.Kind,
				"caller_id", id.ID,
			)
			return false
		}
		return true
	}

	return rules.Default != EffectDeny
}

// matchField matches a rule field against a value. Empty patterns match
// anything; otherwise glob syntax applies, falling back to literal comparison
// on malformed patterns.
func matchField(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	ok, err := path.Match(pattern, value)
	if err != nil {
		return pattern == value
	}
	return ok
}

// validateRules checks a rule set for unknown effects.
func validateRules(rules *RuleSet) error {
	if rules == nil {
		return fmt.Errorf("rule set cannot be nil")
	}

	switch rules.Default {
	case "", EffectAllow, EffectDeny:
	default:
		return fmt.Errorf("unknown default effect %q", rules.Default)
	}

	for i := range rules.Rules {
		switch rules.Rules[i].Effect {
		case EffectAllow, EffectDeny:
		default:
			return fmt.Errorf("rule %d: unknown effect %q", i, rules.Rules[i].Effect)
		}
	}

	return nil
}
