package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/armatrix/deep-research-go/internal/schema"
)

// Server is an MCP server whose tools are typed Go functions. It can be
// served over stdio to external clients, or attached to a Manager in-process
// with InProcessTransport.
//
//	srv := mcp.NewServer("research", version)
//	mcp.AddTool(srv, "research", "Research a topic", func(ctx context.Context, in TopicInput) (string, error) {
//	    ...
//	})
//	return srv.ServeStdio()
type Server struct {
	name  string
	srv   *server.MCPServer
	tools []string
}

// NewServer creates an empty server.
func NewServer(name, version string) *Server {
	return &Server{
		name: name,
		srv: server.NewMCPServer(name, version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}
}

// Name returns the server name.
func (s *Server) Name() string { return s.name }

// ToolNames returns the registered tool names in registration order.
func (s *Server) ToolNames() []string {
	return append([]string(nil), s.tools...)
}

// AddTool registers handler as a tool. The input schema is derived from T.
// Handler errors are reported to the client as tool-level errors.
func AddTool[T any](s *Server, name, description string, handler func(ctx context.Context, input T) (string, error)) {
	raw, err := json.Marshal(schema.Generate[T]())
	if err != nil {
		raw = json.RawMessage(`{"type":"object","properties":{}}`)
	}

	s.srv.AddTool(mcp.NewToolWithRawSchema(name, description, raw),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := json.Marshal(req.Params.Arguments)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid input: %s", err)), nil
			}
			var input T
			if err := json.Unmarshal(args, &input); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid input: %s", err)), nil
			}
			out, err := handler(ctx, input)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(out), nil
		})
	s.tools = append(s.tools, name)
}

// ServeStdio serves the tools on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.srv)
}

// InProcessTransport connects to s without a subprocess or network hop.
func InProcessTransport(s *Server) Transport {
	return &clientTransport{
		kind: "in-process",
		dial: func() (*client.Client, error) { return client.NewInProcessClient(s.srv) },
	}
}
