package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/armatrix/deep-research-go/internal/config"
	"github.com/armatrix/deep-research-go/trace"
)

// openTraces opens the configured trace store without building an app, so
// inspecting traces needs no API key.
func openTraces(g *Globals) (*trace.FileStore, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	return traceStore(cfg)
}

func traceStore(cfg *config.Config) (*trace.FileStore, error) {
	if cfg.Trace.Dir == "" {
		return nil, errors.New("no trace directory: set [trace] dir or --trace-dir")
	}
	return trace.NewFileStore(cfg.Trace.Dir)
}

// Run lists saved traces.
func (c *TracesListCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	store, err := openTraces(g)
	if err != nil {
		return err
	}
	recs, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		_, err := fmt.Fprintln(out, "No traces.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSAVED\tSTATUS\tQUERY")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.RunID(), r.SavedAt.Local().Format("2006-01-02 15:04"), r.Result.Status, shorten(r.Query, 60))
	}
	return tw.Flush()
}

// Run prints one trace: the report, gaps, researcher summaries and usage.
func (c *TracesShowCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	store, err := openTraces(g)
	if err != nil {
		return err
	}
	rec, err := store.Load(ctx, c.RunID)
	if err != nil {
		return err
	}
	res := rec.Result

	fmt.Fprintf(out, "Run:      %s\n", res.RunID)
	fmt.Fprintf(out, "Status:   %s\n", res.Status)
	fmt.Fprintf(out, "Query:    %s\n", rec.Query)
	fmt.Fprintf(out, "Duration: %s\n", res.Duration)
	if rec.Usage != nil {
		fmt.Fprintf(out, "Usage:    %d call(s), $%s\n", rec.Usage.Calls, rec.Usage.Cost.StringFixed(4))
	}
	if res.State != nil && res.State.ResearchBrief != "" {
		fmt.Fprintf(out, "\nBrief:\n%s\n", block(res.State.ResearchBrief, 2))
	}

	for i, t := range res.Tasks {
		status := "ok"
		switch {
		case t.Degraded:
			status = "incomplete"
		case t.ForcedStop:
			status = "turn limit"
		}
		fmt.Fprintf(out, "\nResearcher %d (%s, %d turns):\n%s\n", i+1, status, t.ToolCallIterations, block(t.ResearchTopic, 2))
		if c.Messages {
			fmt.Fprint(out, block(summarizeMessages(t.ResearcherMessages), 4), "\n")
		}
	}

	switch {
	case res.Question != "":
		fmt.Fprintf(out, "\nClarifying question:\n%s\n", block(res.Question, 2))
	case res.FinalReport != "":
		fmt.Fprintf(out, "\n%s\n", res.FinalReport)
	}
	return nil
}
