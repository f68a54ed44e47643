package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	research "github.com/armatrix/deep-research-go"
)

const (
	descriptionWidth = 80
	summaryWidth     = 100
	wrapWidth        = 96
)

// shorten collapses whitespace and cuts s to width cells with an ellipsis.
func shorten(s string, width uint) string {
	s = strings.Join(strings.Fields(s), " ")
	return truncate.StringWithTail(s, width, "...")
}

// progressPrinter writes engine events as plain progress lines. Researchers
// emit concurrently, so writes are serialized.
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

// Handle is a research.EventHandler.
func (p *progressPrinter) Handle(ev research.Event) {
	line := formatEvent(ev)
	if line == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, line)
}

func formatEvent(ev research.Event) string {
	switch e := ev.(type) {
	case *research.StageEvent:
		if !e.Done {
			return fmt.Sprintf("> %s", e.Stage)
		}
		if e.Err != nil {
			return fmt.Sprintf("x %s: %v", e.Stage, e.Err)
		}
		return ""
	case *research.DispatchEvent:
		var b strings.Builder
		fmt.Fprintf(&b, "  supervisor round %d: %d researcher(s)", e.Iteration, len(e.Topics))
		if e.Skipped > 0 {
			fmt.Fprintf(&b, ", %d over the limit", e.Skipped)
		}
		for i, topic := range e.Topics {
			fmt.Fprintf(&b, "\n    [%d] %s", i+1, shorten(topic, summaryWidth))
		}
		return b.String()
	case *research.ToolCallEvent:
		status := ""
		if e.IsError {
			status = " (error)"
		}
		return fmt.Sprintf("    - %s %s%s", shortAgent(e.Agent), e.Tool, status)
	case *research.ForcedStopEvent:
		return fmt.Sprintf("  ! %s stopped after %d turns with %d tool call(s) pending",
			shortAgent(e.Agent), e.Iterations, len(e.Pending))
	case *research.ResearcherEvent:
		switch {
		case e.Err != nil:
			return fmt.Sprintf("  x [%d] failed: %v", e.Index+1, e.Err)
		case e.Degraded:
			return fmt.Sprintf("  ~ [%d] incomplete after %s", e.Index+1, e.Duration.Round(100*time.Millisecond))
		}
		return fmt.Sprintf("  ok [%d] done in %s", e.Index+1, e.Duration.Round(100*time.Millisecond))
	}
	return ""
}

// shortAgent abbreviates researcher task IDs to the head of their UUID.
func shortAgent(agent string) string {
	if agent == research.SupervisorAgent {
		return agent
	}
	i := strings.LastIndexByte(agent, '_')
	if i < 0 {
		return agent
	}
	id := agent[i+1:]
	if len(id) > 8 {
		id = id[:8]
	}
	return "task " + id
}

// summarizeMessages renders a researcher conversation as one short line per
// message, with tool calls listed beneath the AI turn that made them.
func summarizeMessages(msgs []research.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case research.RoleHuman:
			fmt.Fprintf(&b, "human: %s\n", shorten(m.Content, summaryWidth))
		case research.RoleAI:
			if m.Content != "" {
				fmt.Fprintf(&b, "ai: %s\n", shorten(m.Content, summaryWidth))
			}
			for _, c := range m.ToolCalls {
				fmt.Fprintf(&b, "  -> %s %s\n", c.Name, shorten(string(c.Input), summaryWidth))
			}
		case research.RoleTool:
			tag := "tool"
			if m.IsError {
				tag = "tool error"
			}
			fmt.Fprintf(&b, "  <- %s %s: %s\n", tag, m.Name, shorten(m.Content, summaryWidth))
		}
	}
	return b.String()
}

// block wraps text and indents it by n spaces.
func block(text string, n uint) string {
	return indent.String(wordwrap.String(strings.TrimSpace(text), wrapWidth), n)
}
