package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// ClientName and ClientVersion are reported in the initialize handshake.
var (
	ClientName    = "deep-research"
	ClientVersion = "dev"
)

// clientTransport is a Transport backed by an mcp-go client.
type clientTransport struct {
	cfg  ServerConfig
	kind TransportType

	// dial overrides client construction; used for in-process servers.
	dial func() (*client.Client, error)

	mu  sync.Mutex
	cli *client.Client
}

var _ Transport = (*clientTransport)(nil)

func (t *clientTransport) newClient() (*client.Client, error) {
	if t.dial != nil {
		return t.dial()
	}
	switch t.kind {
	case TransportStdio:
		return client.NewStdioMCPClient(t.cfg.Command, t.cfg.envList(), t.cfg.Args...)
	case TransportSSE:
		var opts []transport.ClientOption
		if len(t.cfg.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(t.cfg.Headers))
		}
		return client.NewSSEMCPClient(t.cfg.URL, opts...)
	case TransportStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(t.cfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(t.cfg.Headers))
		}
		return client.NewStreamableHttpClient(t.cfg.URL, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, t.kind)
	}
}

// Connect creates the client, starts it and runs initialize.
func (t *clientTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cli != nil {
		return nil
	}

	cli, err := t.newClient()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	// Stdio clients spawn their subprocess on construction.
	if t.kind != TransportStdio {
		if err := cli.Start(ctx); err != nil {
			_ = cli.Close()
			return fmt.Errorf("start: %w", err)
		}
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: ClientName, Version: ClientVersion}
	if _, err := cli.Initialize(ctx, req); err != nil {
		_ = cli.Close()
		return fmt.Errorf("initialize: %w", err)
	}
	t.cli = cli
	return nil
}

func (t *clientTransport) conn() (*client.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cli == nil {
		return nil, ErrNotConnected
	}
	return t.cli, nil
}

func (t *clientTransport) ListTools(ctx context.Context) ([]ToolInfo, error) {
	cli, err := t.conn()
	if err != nil {
		return nil, err
	}
	res, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}

	out := make([]ToolInfo, 0, len(res.Tools))
	for _, tool := range res.Tools {
		out = append(out, ToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: inputSchema(tool),
		})
	}
	return out, nil
}

// inputSchema prefers the raw schema a server sent over the structured one.
func inputSchema(tool mcp.Tool) json.RawMessage {
	if len(tool.RawInputSchema) > 0 {
		return tool.RawInputSchema
	}
	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil
	}
	return raw
}

func (t *clientTransport) CallTool(ctx context.Context, name string, args map[string]any) (CallResult, error) {
	cli, err := t.conn()
	if err != nil {
		return CallResult{}, err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := cli.CallTool(ctx, req)
	if err != nil {
		return CallResult{}, err
	}
	return CallResult{Text: contentText(res.Content), IsError: res.IsError}, nil
}

// contentText joins the text items of a tool result. Non-text content is
// summarized by type.
func contentText(items []mcp.Content) string {
	parts := make([]string, 0, len(items))
	for _, c := range items {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		case mcp.ImageContent:
			parts = append(parts, "[image: "+v.MIMEType+"]")
		case mcp.EmbeddedResource:
			parts = append(parts, "[embedded resource]")
		}
	}
	return strings.Join(parts, "\n")
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cli == nil {
		return nil
	}
	err := t.cli.Close()
	t.cli = nil
	return err
}
