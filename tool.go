package research

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/armatrix/deep-research-go/internal/schema"
)

// Tool is a capability the model can call: structured arguments in, a result
// string out. Remote tools are discovered at runtime, so the interface is
// untyped; use NewTool to adapt a TypedTool.
type Tool interface {
	Name() string
	Description() string
	Schema() anthropic.ToolInputSchemaParam

	// Invoke runs the tool. A returned error is a protocol failure and aborts
	// the owning task; tool-level failures are reported via ToolResult.IsError.
	Invoke(ctx context.Context, input json.RawMessage) (*ToolResult, error)
}

// TypedTool is a tool whose input is decoded into T. The input schema is
// generated from T's json and jsonschema struct tags.
type TypedTool[T any] interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input T) (*ToolResult, error)
}

// ToolResult is the output of a tool execution.
type ToolResult struct {
	Content string
	IsError bool
}

// TextResult is a convenience constructor for a successful tool result.
func TextResult(text string) *ToolResult {
	return &ToolResult{Content: text}
}

// ErrorResult is a convenience constructor for an error tool result.
func ErrorResult(text string) *ToolResult {
	return &ToolResult{Content: text, IsError: true}
}

// typedTool is the type-erased wrapper around a TypedTool.
type typedTool[T any] struct {
	inner  TypedTool[T]
	schema anthropic.ToolInputSchemaParam
}

// NewTool adapts a TypedTool into a Tool.
func NewTool[T any](t TypedTool[T]) Tool {
	return &typedTool[T]{inner: t, schema: schema.Generate[T]()}
}

func (t *typedTool[T]) Name() string                           { return t.inner.Name() }
func (t *typedTool[T]) Description() string                    { return t.inner.Description() }
func (t *typedTool[T]) Schema() anthropic.ToolInputSchemaParam { return t.schema }

func (t *typedTool[T]) Invoke(ctx context.Context, raw json.RawMessage) (*ToolResult, error) {
	var input T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &input); err != nil {
			return ErrorResult(fmt.Sprintf("invalid input: %s", err.Error())), nil
		}
	}
	return t.inner.Execute(ctx, input)
}

// ToolSource provides the tools available for one model turn. Sources are
// queried again on every turn; the returned set is not assumed stable.
type ToolSource interface {
	Tools(ctx context.Context) ([]Tool, error)
}

// StaticTools is a ToolSource with a fixed tool set.
type StaticTools []Tool

// Tools returns the fixed set.
func (s StaticTools) Tools(context.Context) ([]Tool, error) {
	return s, nil
}

// Catalog is the set of tools resolved for a single turn, indexed by name.
type Catalog struct {
	byName map[string]Tool
	order  []string
}

// newCatalog indexes tools by name. Later tools with a duplicate name are
// dropped so the first source wins.
func newCatalog(tools []Tool) *Catalog {
	c := &Catalog{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, exists := c.byName[t.Name()]; exists {
			continue
		}
		c.byName[t.Name()] = t
		c.order = append(c.order, t.Name())
	}
	return c
}

// FetchCatalog queries every source and returns the combined catalog. The
// think tool is always present and listed first.
func FetchCatalog(ctx context.Context, sources []ToolSource) (*Catalog, error) {
	tools := []Tool{NewThinkTool()}
	for _, src := range sources {
		ts, err := src.Tools(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list tools: %s", ErrToolProtocol, err.Error())
		}
		tools = append(tools, ts...)
	}
	return newCatalog(tools), nil
}

// Lookup resolves a tool by name.
func (c *Catalog) Lookup(name string) (Tool, error) {
	t, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Names returns tool names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Specs returns the model-facing descriptions in catalog order.
func (c *Catalog) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(c.order))
	for _, name := range c.order {
		specs = append(specs, specOf(c.byName[name]))
	}
	return specs
}

func specOf(t Tool) ToolSpec {
	return ToolSpec{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.Schema(),
	}
}
