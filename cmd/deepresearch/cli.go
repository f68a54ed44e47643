package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Run      RunCmd      `cmd:"" help:"Research a question end to end and print the report"`
	Research ResearchCmd `cmd:"" help:"Run a single researcher on a topic and print its findings"`
	Tools    ToolsCmd    `cmd:"" help:"List the tools available to researchers"`
	Serve    ServeCmd    `cmd:"" help:"Serve the research engine as an MCP server over stdio"`
	Traces   TracesCmd   `cmd:"" help:"Inspect saved run traces"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// Globals are flags shared by every command.
type Globals struct {
	Config      string   `short:"c" type:"path" help:"Config file layered over the default locations"`
	EnvFile     []string `type:"path" help:"Load environment variables from these files (default .env)"`
	Docs        string   `type:"path" help:"Local documents directory researchers can read"`
	TraceDir    string   `type:"path" help:"Save run traces to this directory"`
	MetricsAddr string   `help:"Serve Prometheus metrics on this address (e.g. :9090)"`
	LogLevel    string   `help:"Log level: debug, info, warn, error"`
	LogFormat   string   `help:"Log format: text or json"`
	Verbose     bool     `short:"v" help:"Print progress events to stderr"`
}

// RunCmd runs the full pipeline.
type RunCmd struct {
	Query     []string `arg:"" help:"The research question"`
	NoClarify bool     `help:"Skip the clarification stage"`
	Output    string   `short:"o" type:"path" help:"Write the report to this file instead of stdout"`
	JSON      bool     `help:"Print the full result as JSON"`
}

// ResearchCmd runs one researcher task.
type ResearchCmd struct {
	Topic []string `arg:"" help:"The topic to research"`
}

// ToolsCmd lists the researcher tool catalog.
type ToolsCmd struct{}

// ServeCmd exposes the engine to MCP clients.
type ServeCmd struct{}

// TracesCmd groups the trace subcommands.
type TracesCmd struct {
	List TracesListCmd `cmd:"" default:"1" help:"List saved traces, newest first"`
	Show TracesShowCmd `cmd:"" help:"Print a saved trace"`
}

// TracesListCmd lists saved traces.
type TracesListCmd struct{}

// TracesShowCmd prints one trace.
type TracesShowCmd struct {
	RunID    string `arg:"" help:"Run ID to show"`
	Messages bool   `help:"Also summarize every researcher's messages"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
