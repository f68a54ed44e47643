package permission

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Rule is a declarative permission rule with glob pattern matching.
type Rule struct {
	Pattern  string   // glob pattern, e.g. "mcp__search__*", "fetch_url"
	Decision Decision // Allow or Deny
}

// Rules turns allow and deny pattern lists into rules, deny rules first.
func Rules(allow, deny []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(allow)+len(deny))
	for _, p := range deny {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid deny pattern %q", p)
		}
		rules = append(rules, Rule{Pattern: p, Decision: Deny})
	}
	for _, p := range allow {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid allow pattern %q", p)
		}
		rules = append(rules, Rule{Pattern: p, Decision: Allow})
	}
	return rules, nil
}

// MatchRules evaluates rules against a tool name. Deny wins over allow.
// Returns (decision, matched). If no rule matches, matched is false.
func MatchRules(rules []Rule, toolName string) (Decision, bool) {
	var hasAllow bool
	for _, r := range rules {
		ok, err := doublestar.Match(r.Pattern, toolName)
		if err != nil || !ok {
			continue
		}
		if r.Decision == Deny {
			return Deny, true
		}
		hasAllow = true
	}
	if hasAllow {
		return Allow, true
	}
	return Allow, false
}
