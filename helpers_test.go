package research

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var testDate = time.Date(2025, 9, 5, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testDate }

func call(id, name, input string) ToolCall {
	return ToolCall{ID: id, Name: name, Input: json.RawMessage(input)}
}

// scriptedModel replays replies in order and records every request. Once the
// script runs out it answers with a plain "done".
type scriptedModel struct {
	mu       sync.Mutex
	replies  []Message
	errs     map[int]error // by zero-based call index
	requests []Request
}

func script(replies ...Message) *scriptedModel {
	return &scriptedModel{replies: replies}
}

func (m *scriptedModel) failOn(idx int, err error) *scriptedModel {
	if m.errs == nil {
		m.errs = map[int]error{}
	}
	m.errs[idx] = err
	return m
}

func (m *scriptedModel) Invoke(_ context.Context, req Request) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req.Messages = cloneMessages(req.Messages)
	m.requests = append(m.requests, req)
	idx := len(m.requests) - 1
	if err := m.errs[idx]; err != nil {
		return Message{}, err
	}
	if idx < len(m.replies) {
		return m.replies[idx], nil
	}
	return AIMessage("done"), nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *scriptedModel) request(i int) Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

// countingModel wraps a ModelFunc with a call counter. Use it where calls
// arrive concurrently and ordering cannot be scripted.
type countingModel struct {
	n  atomic.Int32
	fn ModelFunc
}

func (m *countingModel) Invoke(ctx context.Context, req Request) (Message, error) {
	m.n.Add(1)
	return m.fn(ctx, req)
}

// lastHuman returns the content of the last human message in req.
func lastHuman(req Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleHuman {
			return req.Messages[i].Content
		}
	}
	return ""
}

func firstHuman(req Request) string {
	for _, m := range req.Messages {
		if m.Role == RoleHuman {
			return m.Content
		}
	}
	return ""
}

func isCompression(req Request) bool {
	return len(req.Messages) > 0 && req.Messages[0].Role == RoleSystem &&
		strings.Contains(req.Messages[0].Content, "gathered information by calling tools")
}

// --- tools ---

type echoInput struct {
	Text string `json:"text" jsonschema:"required"`
}

type echoTool struct{ name string }

func (t echoTool) Name() string        { return t.name }
func (t echoTool) Description() string { return "Echo the text back" }
func (t echoTool) Execute(_ context.Context, in echoInput) (*ToolResult, error) {
	if in.Text == "fail" {
		return ErrorResult("echo failed"), nil
	}
	return TextResult("echo: " + in.Text), nil
}

func newEcho(name string) Tool { return NewTool[echoInput](echoTool{name: name}) }

// brokenTool fails at the protocol level.
type brokenTool struct{}

func (brokenTool) Name() string        { return "broken" }
func (brokenTool) Description() string { return "Always fails" }
func (brokenTool) Execute(context.Context, echoInput) (*ToolResult, error) {
	return nil, errors.New("connection reset")
}

// sourceFunc adapts a function to ToolSource.
type sourceFunc func(ctx context.Context) ([]Tool, error)

func (f sourceFunc) Tools(ctx context.Context) ([]Tool, error) { return f(ctx) }

// --- events ---

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) handle(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func eventsOf[T Event](l *eventLog) []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []T
	for _, ev := range l.events {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

func toolNames(specs []ToolSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}
