package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	research "github.com/armatrix/deep-research-go"
	"github.com/armatrix/deep-research-go/mcp"
)

// DeepResearchInput is the input of the deep_research MCP tool.
type DeepResearchInput struct {
	Query string `json:"query" jsonschema:"required,description=The research question. Be specific about scope and the kind of report wanted."`
}

// ResearchTopicInput is the input of the research_topic MCP tool.
type ResearchTopicInput struct {
	Topic string `json:"topic" jsonschema:"required,description=A single self-contained topic to research"`
}

// Run serves the engine over stdio until the client disconnects.
func (c *ServeCmd) Run(ctx context.Context, g *Globals, _ io.Writer) error {
	a, err := newApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close()

	// MCP clients cannot answer a clarification question mid-call.
	eng, err := a.engine(research.WithClarification(false))
	if err != nil {
		return err
	}

	srv := newResearchServer(eng, func(ctx context.Context, query string, res *research.Result) {
		a.saveTrace(ctx, query, res)
		a.logUsage()
	})
	a.logger.Info("serving MCP on stdio", "tools", srv.ToolNames())
	return srv.ServeStdio()
}

// newResearchServer exposes the full pipeline and single-topic research as
// MCP tools. onRun, if set, sees every finished run.
func newResearchServer(eng *research.Engine, onRun func(context.Context, string, *research.Result)) *mcp.Server {
	srv := mcp.NewServer("deep-research", version)

	mcp.AddTool(srv, "deep_research",
		"Research a question with a supervisor and parallel researchers and return a cited markdown report.",
		func(ctx context.Context, in DeepResearchInput) (string, error) {
			query := strings.TrimSpace(in.Query)
			if query == "" {
				return "", fmt.Errorf("query is required")
			}
			res, err := eng.Run(ctx, []research.Message{research.HumanMessage(query)})
			if err != nil {
				return "", err
			}
			if onRun != nil {
				onRun(ctx, query, res)
			}
			if res.Status == research.StatusDegraded {
				return res.FinalReport + "\n\n---\nIncomplete topics: " + strings.Join(res.Gaps, "; "), nil
			}
			return res.FinalReport, nil
		})

	mcp.AddTool(srv, "research_topic",
		"Research one focused topic and return the compressed findings with sources.",
		func(ctx context.Context, in ResearchTopicInput) (string, error) {
			topic := strings.TrimSpace(in.Topic)
			if topic == "" {
				return "", fmt.Errorf("topic is required")
			}
			st, err := eng.Research(ctx, topic)
			if err != nil {
				return "", err
			}
			if st.Degraded {
				return "", fmt.Errorf("%s", st.CompressedResearch)
			}
			return st.CompressedResearch, nil
		})

	return srv
}
