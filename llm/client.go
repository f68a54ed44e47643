package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	research "github.com/armatrix/deep-research-go"
	"github.com/armatrix/deep-research-go/internal/budget"
)

// Defaults for a model profile.
const (
	DefaultModel     = anthropic.ModelClaudeSonnet4_5
	DefaultMaxTokens = 16_384
)

// Client is a research.Model backed by the streaming Messages API. One Client
// is one model profile; create separate clients for the tool-binding and the
// plain profile.
type Client struct {
	streamer  MessageStreamer
	model     anthropic.Model
	maxTokens int64
	tracker   *budget.Tracker
	logger    *slog.Logger
}

var _ research.Model = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithModel selects the model.
func WithModel(m anthropic.Model) Option {
	return func(c *Client) { c.model = m }
}

// WithMaxTokens sets the per-response output token cap.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = int64(n) }
}

// WithTracker records usage into t and refuses calls once it is exhausted.
func WithTracker(t *budget.Tracker) Option {
	return func(c *Client) { c.tracker = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client over streamer.
func New(streamer MessageStreamer, opts ...Option) *Client {
	c := &Client{
		streamer:  streamer,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
		logger:    slog.Default(),
	}
	for _, fn := range opts {
		fn(c)
	}
	return c
}

// NewFromAPIKey creates a Client talking to the Anthropic API. An empty key
// falls back to the ANTHROPIC_API_KEY environment variable.
func NewFromAPIKey(apiKey string, opts ...Option) *Client {
	var reqOpts []option.RequestOption
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	api := anthropic.NewClient(reqOpts...)
	return New(NewMessageStreamer(&api.Messages), opts...)
}

// Model returns the configured model name.
func (c *Client) Model() anthropic.Model { return c.model }

// Invoke streams one response and converts it to a research.Message.
func (c *Client) Invoke(ctx context.Context, req research.Request) (research.Message, error) {
	if c.tracker != nil && c.tracker.Exhausted() {
		return research.Message{}, research.ErrBudgetExhausted
	}

	params := buildParams(c.model, c.maxTokens, req)
	stream := c.streamer.NewStreaming(ctx, params)

	msg := anthropic.Message{}
	for stream.Next() {
		if err := msg.Accumulate(stream.Current()); err != nil {
			stream.Close()
			return research.Message{}, fmt.Errorf("accumulate: %w", err)
		}
	}
	// A stream that failed to open has no decoder to close.
	if err := stream.Err(); err != nil {
		return research.Message{}, fmt.Errorf("stream: %w", err)
	}
	stream.Close()

	if c.tracker != nil {
		c.tracker.RecordUsage(c.model, budget.Usage{
			InputTokens:              int(msg.Usage.InputTokens),
			OutputTokens:             int(msg.Usage.OutputTokens),
			CacheReadInputTokens:     int(msg.Usage.CacheReadInputTokens),
			CacheCreationInputTokens: int(msg.Usage.CacheCreationInputTokens),
		})
	}

	if msg.StopReason == anthropic.StopReasonMaxTokens {
		c.logger.Warn("response truncated at max_tokens", "model", c.model, "max_tokens", c.maxTokens)
	}
	return fromAPIMessage(msg), nil
}
