package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// LoopConfig holds everything a single agent's think-act loop needs.
type LoopConfig struct {
	// Agent labels events, logs and spans.
	Agent string

	Model  Model
	System string

	// Messages is the initial history. It is copied; the caller's slice is
	// never mutated.
	Messages []Message

	// Sources are queried for tools on every model turn and again before
	// each tool batch. The think tool is always available.
	Sources []ToolSource

	// MaxIterations caps model turns. Reaching it stops the loop as if the
	// model had requested no tools. Zero or less means
	// DefaultMaxToolCallIterations.
	MaxIterations int

	Logger  *slog.Logger
	OnEvent EventHandler
}

// LoopResult is the outcome of RunToolLoop.
type LoopResult struct {
	Messages   []Message
	Iterations int

	// ForcedStop is set when the ceiling was reached while the last AI
	// message still requested tools. Pending holds those unexecuted calls.
	ForcedStop bool
	Pending    []ToolCall
}

type loopState int

const (
	loopCallModel loopState = iota
	loopExecuteTools
	loopDone
)

func (s loopState) String() string {
	switch s {
	case loopCallModel:
		return "call_model"
	case loopExecuteTools:
		return "execute_tools"
	default:
		return "done"
	}
}

// nextLoopState decides where the loop goes after a model turn.
func nextLoopState(iterations, ceiling int, last Message) loopState {
	if !last.HasToolCalls() {
		return loopDone
	}
	if iterations >= ceiling {
		return loopDone
	}
	return loopExecuteTools
}

// RunToolLoop runs the model-call / tool-call cycle until the model stops
// requesting tools or the iteration ceiling is hit.
//
// On error the returned LoopResult still holds the history accumulated so
// far, so callers can salvage partial work.
func RunToolLoop(ctx context.Context, cfg LoopConfig) (*LoopResult, error) {
	if cfg.Model == nil {
		return nil, ErrNoModel
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxToolCallIterations
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("agent", cfg.Agent)

	res := &LoopResult{Messages: cloneMessages(cfg.Messages)}
	state := loopCallModel
	var last Message

	for state != loopDone {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		switch state {
		case loopCallModel:
			ai, err := callModel(ctx, cfg, res.Messages, res.Iterations+1)
			if err != nil {
				return res, err
			}
			res.Messages = append(res.Messages, ai)
			res.Iterations++
			last = ai

			state = nextLoopState(res.Iterations, cfg.MaxIterations, ai)
			if state == loopDone && ai.HasToolCalls() {
				res.ForcedStop = true
				res.Pending = ai.ToolCalls
				logger.Warn("iteration ceiling reached with pending tool calls",
					"iterations", res.Iterations, "pending", len(ai.ToolCalls))
				cfg.OnEvent.emit(&ForcedStopEvent{
					Agent:      cfg.Agent,
					Iterations: res.Iterations,
					Pending:    ai.ToolCalls,
				})
			}

		case loopExecuteTools:
			replies, err := executeToolCalls(ctx, cfg, last.ToolCalls)
			if err != nil {
				return res, err
			}
			if err := verifyToolReplies(last.ToolCalls, replies); err != nil {
				return res, err
			}
			res.Messages = append(res.Messages, replies...)
			state = loopCallModel
		}
	}

	logger.Debug("loop finished", "iterations", res.Iterations, "forced_stop", res.ForcedStop)
	return res, nil
}

// callModel performs one model turn with a freshly fetched catalog bound.
func callModel(ctx context.Context, cfg LoopConfig, history []Message, iteration int) (Message, error) {
	ctx, span := startSpan(ctx, "model.turn",
		attribute.String("agent", cfg.Agent),
		attribute.Int("iteration", iteration),
	)

	catalog, err := FetchCatalog(ctx, cfg.Sources)
	if err != nil {
		endSpan(span, err)
		return Message{}, err
	}

	start := time.Now()
	ai, err := cfg.Model.Invoke(ctx, Request{
		System:   cfg.System,
		Messages: history,
		Tools:    catalog.Specs(),
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrModelCall, err)
		endSpan(span, err)
		return Message{}, err
	}
	ai.Role = RoleAI

	span.SetAttributes(attribute.Int("tool_calls", len(ai.ToolCalls)))
	endSpan(span, nil)

	cfg.OnEvent.emit(&ModelTurnEvent{
		Agent:     cfg.Agent,
		Iteration: iteration,
		ToolCalls: len(ai.ToolCalls),
		Duration:  time.Since(start),
	})
	return ai, nil
}

// executeToolCalls runs calls strictly in request order and returns one Tool
// message per call. The catalog is refetched because it may have changed
// since the model turn.
func executeToolCalls(ctx context.Context, cfg LoopConfig, calls []ToolCall) ([]Message, error) {
	catalog, err := FetchCatalog(ctx, cfg.Sources)
	if err != nil {
		return nil, err
	}

	replies := make([]Message, 0, len(calls))
	for _, call := range calls {
		tool, err := catalog.Lookup(call.Name)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		reply, err := invokeTool(ctx, cfg.Agent, tool, call)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)

		cfg.OnEvent.emit(&ToolCallEvent{
			Agent:    cfg.Agent,
			Tool:     call.Name,
			CallID:   call.ID,
			IsError:  reply.IsError,
			Duration: time.Since(start),
		})
	}
	return replies, nil
}

func invokeTool(ctx context.Context, agent string, tool Tool, call ToolCall) (Message, error) {
	ctx, span := startSpan(ctx, "tool."+call.Name,
		attribute.String("agent", agent),
		attribute.String("tool.call_id", call.ID),
	)

	result, err := tool.Invoke(ctx, call.Input)
	if err != nil {
		if !IsFatal(err) {
			err = fmt.Errorf("%w: %s: %w", ErrToolProtocol, call.Name, err)
		}
		endSpan(span, err)
		return Message{}, err
	}
	if result == nil {
		result = TextResult("")
	}
	span.SetAttributes(attribute.Bool("tool.is_error", result.IsError))
	endSpan(span, nil)

	return ToolMessage(call, result.Content, result.IsError), nil
}

// verifyToolReplies checks that replies answer calls one-to-one, in order.
func verifyToolReplies(calls []ToolCall, replies []Message) error {
	if len(calls) != len(replies) {
		return fmt.Errorf("%w: %d calls, %d replies", ErrToolCallMismatch, len(calls), len(replies))
	}
	for i, call := range calls {
		r := replies[i]
		if r.Role != RoleTool || r.ToolCallID != call.ID {
			return fmt.Errorf("%w: reply %d answers %q, want %q", ErrToolCallMismatch, i, r.ToolCallID, call.ID)
		}
	}
	return nil
}
