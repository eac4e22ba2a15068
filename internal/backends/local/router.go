package local

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/arborflow/arbor/pkg/domain"
)

// Rule maps an input pattern to a route label. Pattern is a regular
// expression matched case-insensitively against the normalized input.
type Rule struct {
	Pattern string `mapstructure:"pattern"`
	Route   string `mapstructure:"route"`
}

// RuleRouter classifies input with an ordered rule list; the first match
// wins. No match returns the fallback route (empty means "let the caller
// pick its default").
type RuleRouter struct {
	rules    []compiledRule
	fallback string
}

type compiledRule struct {
	re    *regexp.Regexp
	route string
}

// NewRuleRouter compiles the rule list.
func NewRuleRouter(rules []Rule, fallback string) (*RuleRouter, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile router rule %q: %w", r.Pattern, err)
		}
		compiled = append(compiled, compiledRule{re: re, route: r.Route})
	}
	return &RuleRouter{rules: compiled, fallback: fallback}, nil
}

// Classify implements ports.RouterBackend.
func (r *RuleRouter) Classify(ctx context.Context, input string, history []domain.Turn) (string, error) {
	text := strings.TrimSpace(input)
	for _, rule := range r.rules {
		if rule.re.MatchString(text) {
			return rule.route, nil
		}
	}
	return r.fallback, nil
}
