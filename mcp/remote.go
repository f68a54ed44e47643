package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	research "github.com/armatrix/deep-research-go"
	"github.com/armatrix/deep-research-go/internal/schema"
)

// remoteTool exposes one tool of a connected server as a research.Tool.
type remoteTool struct {
	name   string // name shown to the model
	server string
	remote string // name on the server
	desc   string
	schema anthropic.ToolInputSchemaParam
	mgr    *Manager
}

var _ research.Tool = (*remoteTool)(nil)

func (t *remoteTool) Name() string                           { return t.name }
func (t *remoteTool) Description() string                    { return t.desc }
func (t *remoteTool) Schema() anthropic.ToolInputSchemaParam { return t.schema }

// Invoke forwards the call to the server. Malformed arguments and tool-level
// failures come back as error results the model can react to. A failed
// round-trip is a protocol error.
func (t *remoteTool) Invoke(ctx context.Context, input json.RawMessage) (*research.ToolResult, error) {
	args := map[string]any{}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return research.ErrorResult(fmt.Sprintf("invalid tool input: %s", err)), nil
		}
	}

	res, err := t.mgr.call(ctx, t.server, t.remote, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", research.ErrToolProtocol, t.server, t.remote, err)
	}
	if res.IsError {
		return research.ErrorResult(res.Text), nil
	}
	return research.TextResult(res.Text), nil
}

func (m *Manager) newRemoteTool(server string, info ToolInfo) *remoteTool {
	name := info.Name
	if m.namespaced {
		name = BridgeToolName(server, info.Name)
	}
	return &remoteTool{
		name:   name,
		server: server,
		remote: info.Name,
		desc:   info.Description,
		schema: schema.FromJSON(info.InputSchema),
		mgr:    m,
	}
}
