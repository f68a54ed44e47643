// Package permission decides which tools researchers are allowed to see.
//
// A [Policy] is built from allow and deny glob patterns over tool names, for
// example "mcp__fs__*" or "fetch_url". Denied tools are removed from the
// catalog before the model is asked to choose, so a researcher cannot call
// what it was never offered.
package permission

import (
	"context"
	"fmt"
	"log/slog"

	research "github.com/armatrix/deep-research-go"
)

// Decision represents the outcome of a permission check.
type Decision int

const (
	Allow Decision = iota // Tool is offered to researchers
	Deny                  // Tool is hidden
)

func (d Decision) String() string {
	if d == Deny {
		return "deny"
	}
	return "allow"
}

// Policy evaluates tool names against a rule set.
//
// With no allow rules every tool not denied is allowed. Once any allow rule
// exists the policy becomes an allowlist. The think tool is added by the
// engine after filtering and is never subject to the policy.
type Policy struct {
	rules     []Rule
	allowlist bool
	logger    *slog.Logger
}

// NewPolicy builds a Policy from allow and deny patterns. Invalid patterns
// are reported.
func NewPolicy(allow, deny []string) (*Policy, error) {
	rules, err := Rules(allow, deny)
	if err != nil {
		return nil, err
	}
	return &Policy{rules: rules, allowlist: len(allow) > 0, logger: slog.Default()}, nil
}

// WithLogger sets the logger used to report hidden tools.
func (p *Policy) WithLogger(l *slog.Logger) *Policy {
	p.logger = l
	return p
}

// Empty reports whether the policy has no rules and thus allows everything.
func (p *Policy) Empty() bool {
	return p == nil || len(p.rules) == 0
}

// Check evaluates whether the named tool may be offered.
func (p *Policy) Check(name string) Decision {
	if p.Empty() {
		return Allow
	}
	d, matched := MatchRules(p.rules, name)
	if !matched && p.allowlist {
		return Deny
	}
	return d
}

// Filter wraps src so that denied tools are dropped from every listing.
func (p *Policy) Filter(src research.ToolSource) research.ToolSource {
	if p.Empty() {
		return src
	}
	return &filteredSource{src: src, policy: p}
}

// FilterAll applies Filter to each source.
func (p *Policy) FilterAll(sources []research.ToolSource) []research.ToolSource {
	out := make([]research.ToolSource, len(sources))
	for i, src := range sources {
		out[i] = p.Filter(src)
	}
	return out
}

type filteredSource struct {
	src    research.ToolSource
	policy *Policy
}

func (f *filteredSource) Tools(ctx context.Context) ([]research.Tool, error) {
	tools, err := f.src.Tools(ctx)
	if err != nil {
		return nil, err
	}
	kept := tools[:0:0]
	for _, t := range tools {
		if f.policy.Check(t.Name()) == Deny {
			f.policy.logger.Debug("tool hidden by policy", "tool", t.Name())
			continue
		}
		kept = append(kept, t)
	}
	return kept, nil
}

// Validate reports the first invalid pattern in allow or deny.
func Validate(allow, deny []string) error {
	_, err := Rules(allow, deny)
	if err != nil {
		return fmt.Errorf("tool policy: %w", err)
	}
	return nil
}
