// Command deepresearch runs multi-agent research over local documents, web
// pages and MCP tool servers, and writes a cited report.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("deepresearch"),
		kong.Description("Multi-agent deep research with a supervisor and concurrent researchers."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(io.Writer(os.Stdout), (*io.Writer)(nil)),
		kongVars(),
	)
	err := kctx.Run(&cli.Globals)
	kctx.FatalIfErrorf(err)
}
