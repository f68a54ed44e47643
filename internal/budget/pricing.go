// Package budget prices model usage and enforces a per-run spending ceiling.
package budget

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/shopspring/decimal"
)

// ModelPricing holds per-model token prices in USD per million tokens.
type ModelPricing struct {
	InputPerMTok         decimal.Decimal
	OutputPerMTok        decimal.Decimal
	LongInputPerMTok     decimal.Decimal
	LongOutputPerMTok    decimal.Decimal
	CacheWritePerMTok    decimal.Decimal
	CacheReadPerMTok     decimal.Decimal
	LongContextThreshold int // 0 disables long-context rates
}

var million = decimal.NewFromInt(1_000_000)

func perMTok(tokens int, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(tokens)).Mul(rate).Div(million)
}

// long reports whether a call with the given total input is billed at the
// long-context rates.
func (p ModelPricing) long(totalInput int) bool {
	return p.LongContextThreshold > 0 && totalInput > p.LongContextThreshold
}

// Cost prices a single call. Long-context rates apply to every input and
// output token once the call's total input crosses the threshold.
func (p ModelPricing) Cost(u Usage) decimal.Decimal {
	totalInput := u.TotalInput()
	in, out := p.InputPerMTok, p.OutputPerMTok
	if p.long(totalInput) {
		in, out = p.LongInputPerMTok, p.LongOutputPerMTok
	}
	return perMTok(u.InputTokens, in).
		Add(perMTok(u.CacheReadInputTokens, p.CacheReadPerMTok)).
		Add(perMTok(u.CacheCreationInputTokens, p.CacheWritePerMTok)).
		Add(perMTok(u.OutputTokens, out))
}

func usd(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// DefaultPricing contains built-in pricing for the models the CLI offers.
var DefaultPricing = map[anthropic.Model]ModelPricing{
	anthropic.ModelClaudeOpus4_6: {
		InputPerMTok:         usd(5),
		OutputPerMTok:        usd(25),
		LongInputPerMTok:     usd(10),
		LongOutputPerMTok:    usd(37.5),
		CacheWritePerMTok:    usd(6.25),
		CacheReadPerMTok:     usd(0.5),
		LongContextThreshold: 200_000,
	},
	anthropic.ModelClaudeSonnet4_5: {
		InputPerMTok:         usd(3),
		OutputPerMTok:        usd(15),
		LongInputPerMTok:     usd(6),
		LongOutputPerMTok:    usd(22.5),
		CacheWritePerMTok:    usd(3.75),
		CacheReadPerMTok:     usd(0.3),
		LongContextThreshold: 200_000,
	},
	anthropic.ModelClaudeHaiku4_5: {
		InputPerMTok:      usd(1),
		OutputPerMTok:     usd(5),
		CacheWritePerMTok: usd(1.25),
		CacheReadPerMTok:  usd(0.1),
	},
}

// ParseLimit parses a USD amount such as "2.50" or "$2.50". An empty string
// means unlimited and yields zero.
func ParseLimit(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("budget: invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("budget: negative amount %q", s)
	}
	return d, nil
}
