package mcp

import (
	"context"
	"encoding/json"
)

// ToolInfo describes a tool discovered from an MCP server.
type ToolInfo struct {
	Name        string
	Description string

	// InputSchema is the raw JSON Schema for the tool's input.
	InputSchema json.RawMessage
}

// CallResult is the text payload of a tools/call response.
type CallResult struct {
	Text string

	// IsError is set when the server reports a tool-level failure. The call
	// itself succeeded at the protocol level.
	IsError bool
}

// Transport is a connection to one MCP server.
type Transport interface {
	// Connect opens the connection and performs the initialize handshake.
	Connect(ctx context.Context) error

	// ListTools issues tools/list.
	ListTools(ctx context.Context) ([]ToolInfo, error)

	// CallTool issues tools/call.
	CallTool(ctx context.Context, name string, args map[string]any) (CallResult, error)

	// Close tears down the connection.
	Close() error
}

// NewTransport creates an unconnected Transport for cfg.
func NewTransport(cfg ServerConfig) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &clientTransport{cfg: cfg, kind: cfg.resolved()}, nil
}
