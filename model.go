package research

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
)

// ToolSpec is the model-facing description of a tool.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
}

// Request is a single model invocation.
type Request struct {
	// System is rendered as the leading system instruction. SystemMessages
	// inside Messages are appended after it.
	System string

	Messages []Message

	// Tools are bound for this call only. Nil means a plain text call.
	Tools []ToolSpec

	// ToolChoice forces the named tool when non-empty.
	ToolChoice string
}

// Model is the language-model capability consumed by every stage.
//
// Invoke returns the AI message produced for req. Implementations must be safe
// for concurrent use: researchers share a model across goroutines.
type Model interface {
	Invoke(ctx context.Context, req Request) (Message, error)
}

// ModelFunc adapts a plain function to the Model interface.
type ModelFunc func(ctx context.Context, req Request) (Message, error)

// Invoke calls f.
func (f ModelFunc) Invoke(ctx context.Context, req Request) (Message, error) {
	return f(ctx, req)
}
