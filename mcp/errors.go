package mcp

import "errors"

// Sentinel errors for the MCP package.
var (
	// ErrNotConnected is returned when a transport is used before Connect.
	ErrNotConnected = errors.New("mcp: server not connected")

	// ErrServerNotFound is returned for a server name the Manager does not know.
	ErrServerNotFound = errors.New("mcp: server not found")

	// ErrToolNotFound is returned when a bridged tool name cannot be
	// resolved to a server/tool pair.
	ErrToolNotFound = errors.New("mcp: tool not found")

	// ErrInvalidConfig is returned when a ServerConfig is missing fields
	// required by its transport.
	ErrInvalidConfig = errors.New("mcp: invalid server config")
)
