// Package mcp connects the research engine to external tool servers speaking
// the Model Context Protocol. A Manager owns the connections for the lifetime
// of a run and serves their tools as a research.ToolSource.
package mcp

import "fmt"

// TransportType identifies the MCP transport protocol.
type TransportType string

const (
	// TransportStdio spawns a subprocess and talks over its stdin/stdout.
	TransportStdio TransportType = "stdio"

	// TransportSSE talks to an HTTP server over Server-Sent Events.
	TransportSSE TransportType = "sse"

	// TransportStreamableHTTP talks to an HTTP server over streamable HTTP.
	TransportStreamableHTTP TransportType = "streamable-http"
)

// ServerConfig describes how to reach a single MCP server. It is read from
// the [mcp.servers.<name>] tables of the config file.
type ServerConfig struct {
	// Command is the executable to spawn (stdio only).
	Command string `toml:"command"`

	// Args are command-line arguments for the subprocess.
	Args []string `toml:"args"`

	// Env are extra environment variables for the subprocess.
	Env map[string]string `toml:"env"`

	// URL is the server address (sse and streamable-http).
	URL string `toml:"url"`

	// Headers are sent with every HTTP request.
	Headers map[string]string `toml:"headers"`

	// Transport selects the protocol. When empty it is inferred: a Command
	// means stdio, a URL means streamable-http.
	Transport TransportType `toml:"transport"`
}

// resolved returns the effective transport type.
func (c ServerConfig) resolved() TransportType {
	if c.Transport != "" {
		return c.Transport
	}
	if c.Command != "" {
		return TransportStdio
	}
	if c.URL != "" {
		return TransportStreamableHTTP
	}
	return ""
}

// Validate checks that the fields required by the transport are present.
func (c ServerConfig) Validate() error {
	switch c.resolved() {
	case TransportStdio:
		if c.Command == "" {
			return fmt.Errorf("%w: stdio transport requires command", ErrInvalidConfig)
		}
	case TransportSSE, TransportStreamableHTTP:
		if c.URL == "" {
			return fmt.Errorf("%w: %s transport requires url", ErrInvalidConfig, c.resolved())
		}
	case "":
		return fmt.Errorf("%w: command or url required", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport)
	}
	return nil
}

// envList flattens Env into KEY=VALUE pairs.
func (c ServerConfig) envList() []string {
	if len(c.Env) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		out = append(out, k+"="+v)
	}
	return out
}
