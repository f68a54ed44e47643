// Package research implements a multi-agent deep-research engine.
//
// A run moves through four stages: an optional clarifying question, a
// research brief, supervised research, and a final report. The supervisor
// plans the work and delegates topics to researchers that run concurrently.
// Each researcher runs its own tool loop and compresses what it found into a
// digest that flows back to the supervisor.
//
// # Quick Start
//
//	model := llm.NewFromAPIKey(os.Getenv("ANTHROPIC_API_KEY"))
//	docs, _ := tools.NewLocalDocs("./docs")
//	eng, err := research.New(
//		research.WithResearchModel(model),
//		research.WithToolSources(docs),
//	)
//	res, err := eng.Run(ctx, []research.Message{research.HumanMessage("Compare pour-over and espresso")})
//	if res.Status == research.StatusNeedsClarification {
//		fmt.Println(res.Question)
//	}
//	fmt.Println(res.FinalReport)
//
// Tools are provided by [ToolSource] values and queried on every model turn.
// The think tool is always available to researchers.
//
// # Sub-packages
//
//   - [llm] adapts the Anthropic API to [Model].
//   - [tools] provides native research tools (local documents, web fetch, web search).
//   - [mcp] connects to MCP servers as a [ToolSource] and serves the engine over MCP.
//   - [permission] filters which tools researchers may see.
//   - [prompts] holds the prompt templates.
//   - [trace] persists run results.
package research
