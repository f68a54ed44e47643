package budget

import (
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/shopspring/decimal"
)

// Usage holds token counts for a single model call.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
}

// TotalInput is the input side of the call including cache traffic.
func (u Usage) TotalInput() int {
	return u.InputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
}

func (u Usage) add(o Usage) Usage {
	return Usage{
		InputTokens:              u.InputTokens + o.InputTokens,
		OutputTokens:             u.OutputTokens + o.OutputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens + o.CacheReadInputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens + o.CacheCreationInputTokens,
	}
}

// ModelUsage aggregates the calls made against one model.
type ModelUsage struct {
	Calls int             `json:"calls"`
	Usage Usage           `json:"usage"`
	Cost  decimal.Decimal `json:"cost_usd"`
}

// Snapshot is a point-in-time copy of a tracker's totals.
type Snapshot struct {
	Calls   int                            `json:"calls"`
	Usage   Usage                          `json:"usage"`
	Cost    decimal.Decimal                `json:"cost_usd"`
	Limit   decimal.Decimal                `json:"limit_usd"`
	ByModel map[anthropic.Model]ModelUsage `json:"by_model"`
}

// Tracker accumulates usage and cost across every model client of a run.
// Researchers run concurrently, so it is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	limit   decimal.Decimal // zero means unlimited
	pricing map[anthropic.Model]ModelPricing
	calls   int
	usage   Usage
	cost    decimal.Decimal
	byModel map[anthropic.Model]ModelUsage
}

// NewTracker creates a tracker. A zero limit disables enforcement; a nil
// pricing table uses DefaultPricing.
func NewTracker(limit decimal.Decimal, pricing map[anthropic.Model]ModelPricing) *Tracker {
	if pricing == nil {
		pricing = DefaultPricing
	}
	return &Tracker{
		limit:   limit,
		pricing: pricing,
		cost:    decimal.Zero,
		byModel: make(map[anthropic.Model]ModelUsage),
	}
}

// RecordUsage adds one call. Calls against models missing from the pricing
// table count tokens but add no cost.
func (t *Tracker) RecordUsage(model anthropic.Model, u Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cost := decimal.Zero
	if p, ok := t.pricing[model]; ok {
		cost = p.Cost(u)
	}

	t.calls++
	t.usage = t.usage.add(u)
	t.cost = t.cost.Add(cost)

	mu := t.byModel[model]
	mu.Calls++
	mu.Usage = mu.Usage.add(u)
	mu.Cost = mu.Cost.Add(cost)
	t.byModel[model] = mu
}

// TotalCost returns the cumulative cost.
func (t *Tracker) TotalCost() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cost
}

// Exhausted reports whether spending has reached the limit.
func (t *Tracker) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.limit.IsZero() && t.cost.GreaterThanOrEqual(t.limit)
}

// Remaining returns the unspent budget, or false when there is no limit.
func (t *Tracker) Remaining() (decimal.Decimal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit.IsZero() {
		return decimal.Zero, false
	}
	return t.limit.Sub(t.cost), true
}

// Snapshot copies the current totals.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	by := make(map[anthropic.Model]ModelUsage, len(t.byModel))
	for k, v := range t.byModel {
		by[k] = v
	}
	return Snapshot{
		Calls:   t.calls,
		Usage:   t.usage,
		Cost:    t.cost,
		Limit:   t.limit,
		ByModel: by,
	}
}
