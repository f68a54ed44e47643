package budget

import (
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertUSD(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	expected := decimal.NewFromFloat(want)
	assert.True(t, expected.Equal(got), "expected %s, got %s", expected, got)
}

func TestCost_Standard(t *testing.T) {
	p := DefaultPricing[anthropic.ModelClaudeSonnet4_5]

	// 1000 in at $3 + 500 out at $15
	assertUSD(t, 0.0105, p.Cost(Usage{InputTokens: 1000, OutputTokens: 500}))
}

func TestCost_LongContextAppliesToAllTokens(t *testing.T) {
	p := DefaultPricing[anthropic.ModelClaudeOpus4_6]

	// 250K input at $10 + 1000 out at $37.50
	assertUSD(t, 2.5375, p.Cost(Usage{InputTokens: 250_000, OutputTokens: 1000}))
}

func TestCost_CacheTokensCountTowardThreshold(t *testing.T) {
	p := DefaultPricing[anthropic.ModelClaudeOpus4_6]

	u := Usage{InputTokens: 100_000, CacheReadInputTokens: 150_000}
	// long rates: 100K * $10 + 150K * $0.50
	assertUSD(t, 1.075, p.Cost(u))
}

func TestCost_HaikuNeverLong(t *testing.T) {
	p := DefaultPricing[anthropic.ModelClaudeHaiku4_5]
	assertUSD(t, 0.5, p.Cost(Usage{InputTokens: 500_000}))
}

func TestTracker_RecordUsage(t *testing.T) {
	tr := NewTracker(decimal.Zero, nil)

	tr.RecordUsage(anthropic.ModelClaudeSonnet4_5, Usage{InputTokens: 1000, OutputTokens: 500})
	tr.RecordUsage(anthropic.ModelClaudeHaiku4_5, Usage{InputTokens: 1000, OutputTokens: 1000})

	// sonnet 0.0105 + haiku 0.006
	assertUSD(t, 0.0165, tr.TotalCost())

	snap := tr.Snapshot()
	assert.Equal(t, 2, snap.Calls)
	assert.Equal(t, 2000, snap.Usage.InputTokens)
	require.Len(t, snap.ByModel, 2)
	assert.Equal(t, 1, snap.ByModel[anthropic.ModelClaudeHaiku4_5].Calls)
	assertUSD(t, 0.006, snap.ByModel[anthropic.ModelClaudeHaiku4_5].Cost)
}

func TestTracker_UnknownModelCountsTokensOnly(t *testing.T) {
	tr := NewTracker(decimal.Zero, nil)
	tr.RecordUsage("some-other-model", Usage{InputTokens: 10, OutputTokens: 10})

	assert.True(t, tr.TotalCost().IsZero())
	assert.Equal(t, 10, tr.Snapshot().Usage.OutputTokens)
}

func TestTracker_Unlimited(t *testing.T) {
	tr := NewTracker(decimal.Zero, nil)
	tr.RecordUsage(anthropic.ModelClaudeOpus4_6, Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000})

	assert.False(t, tr.Exhausted())
	_, limited := tr.Remaining()
	assert.False(t, limited)
}

func TestTracker_Exhausted(t *testing.T) {
	tr := NewTracker(decimal.NewFromFloat(0.01), nil)
	assert.False(t, tr.Exhausted())

	tr.RecordUsage(anthropic.ModelClaudeSonnet4_5, Usage{InputTokens: 1000, OutputTokens: 500})
	assert.True(t, tr.Exhausted())

	rem, limited := tr.Remaining()
	assert.True(t, limited)
	assert.True(t, rem.IsNegative())
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker(decimal.Zero, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.RecordUsage(anthropic.ModelClaudeHaiku4_5, Usage{InputTokens: 1000})
		}()
	}
	wg.Wait()

	snap := tr.Snapshot()
	assert.Equal(t, 50, snap.Calls)
	assert.Equal(t, 50_000, snap.Usage.InputTokens)
	assertUSD(t, 0.05, snap.Cost)
}

func TestParseLimit(t *testing.T) {
	d, err := ParseLimit("$2.50")
	require.NoError(t, err)
	assertUSD(t, 2.5, d)

	d, err = ParseLimit("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseLimit("abc")
	assert.Error(t, err)

	_, err = ParseLimit("-1")
	assert.Error(t, err)
}
