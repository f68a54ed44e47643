package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	research "github.com/armatrix/deep-research-go"
)

// Run executes the full research pipeline.
func (c *RunCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	query := strings.TrimSpace(strings.Join(c.Query, " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	a, err := newApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close()

	var extra []research.Option
	if c.NoClarify {
		extra = append(extra, research.WithClarification(false))
	}
	eng, err := a.engine(extra...)
	if err != nil {
		return err
	}

	res, err := eng.Run(ctx, []research.Message{research.HumanMessage(query)})
	a.logUsage()
	if err != nil {
		return err
	}
	a.saveTrace(ctx, query, res)

	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	switch res.Status {
	case research.StatusNeedsClarification:
		fmt.Fprintln(out, res.Question)
		fmt.Fprintln(os.Stderr, "\nThe request needs clarification. Re-run with more detail or --no-clarify.")
		return nil
	case research.StatusDegraded:
		a.logger.Warn("report has gaps", "topics", res.Gaps)
	}
	return writeReport(out, c.Output, res.FinalReport)
}

func writeReport(out io.Writer, path, report string) error {
	if path == "" {
		_, err := fmt.Fprintln(out, report)
		return err
	}
	if err := os.WriteFile(path, []byte(report+"\n"), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
	return nil
}

// Run executes one researcher task.
func (c *ResearchCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	topic := strings.TrimSpace(strings.Join(c.Topic, " "))
	if topic == "" {
		return fmt.Errorf("topic is required")
	}

	a, err := newApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close()

	eng, err := a.engine()
	if err != nil {
		return err
	}
	st, err := eng.Research(ctx, topic)
	a.logUsage()
	if err != nil {
		return err
	}

	if g.Verbose {
		fmt.Fprintf(os.Stderr, "\n%d turn(s):\n%s\n", st.ToolCallIterations, summarizeMessages(st.ResearcherMessages))
	}
	if st.Degraded {
		a.logger.Warn("research incomplete", "error", st.Error)
	}
	_, err = fmt.Fprintln(out, st.CompressedResearch)
	return err
}

// Run lists every tool researchers can call, including the think tool.
func (c *ToolsCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	a, err := newApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close()

	catalog, err := research.FetchCatalog(ctx, a.sources)
	if err != nil {
		return err
	}
	return printCatalog(out, catalog.Specs())
}

func printCatalog(out io.Writer, specs []research.ToolSpec) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, s := range specs {
		fmt.Fprintf(tw, "%s\t%s\n", s.Name, shorten(s.Description, descriptionWidth))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d tool(s)\n", len(specs))
	return err
}

// Run prints version information.
func (c *VersionCmd) Run(out io.Writer) error {
	_, err := fmt.Fprintf(out, "deepresearch version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return err
}
