package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/armatrix/deep-research-go/prompts"
)

// rawNotesSeparator joins Tool and AI contents into a raw-notes entry.
const rawNotesSeparator = "\n"

// Compressor condenses a researcher's history into a digest with a single
// plain-model call. It never binds or invokes tools.
type Compressor struct {
	Model   Model
	Prompts prompts.Set
	Clock   func() time.Time
	Logger  *slog.Logger
}

// Compress returns the digest of history plus its raw-notes archive.
//
// The model sees: compression system instruction, the history, then a final
// human instruction asking for the compiled findings. Raw notes are derived
// from the original history regardless of whether the model call succeeds.
func (c *Compressor) Compress(ctx context.Context, topic string, history []Message) (string, []string, error) {
	raw := RawNotes(history)

	date := c.now().Format(DateLayout)
	system, err := prompts.Render(c.Prompts.Compress, prompts.Vars{Date: date, Topic: topic})
	if err != nil {
		return "", raw, err
	}
	human, err := prompts.Render(c.Prompts.CompressHuman, prompts.Vars{Date: date, Topic: topic})
	if err != nil {
		return "", raw, err
	}

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, SystemMessage(system))
	msgs = append(msgs, closeDanglingCalls(history)...)
	msgs = append(msgs, HumanMessage(human))

	ctx, span := startSpan(ctx, "research.compress")
	resp, err := c.Model.Invoke(ctx, Request{Messages: msgs})
	if err != nil {
		err = fmt.Errorf("%w: compress: %w", ErrModelCall, err)
		endSpan(span, err)
		return "", raw, err
	}
	endSpan(span, nil)

	if len(resp.ToolCalls) > 0 {
		c.logger().Warn("compression model returned tool calls; dropping", "count", len(resp.ToolCalls))
	}
	return resp.Content, raw, nil
}

func (c *Compressor) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

func (c *Compressor) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// RawNotes filters history to AI and Tool messages and joins their contents
// in original order. The result always has exactly one entry so that later
// merges across tasks stay a plain concatenation.
func RawNotes(history []Message) []string {
	kept := filterByRole(history, RoleTool, RoleAI)
	return []string{joinContent(kept, rawNotesSeparator)}
}

// closeDanglingCalls strips tool calls that have no matching Tool reply, as
// left by a forced stop. Providers reject histories with unanswered calls.
func closeDanglingCalls(history []Message) []Message {
	answered := make(map[string]bool)
	for _, m := range history {
		if m.Role == RoleTool {
			answered[m.ToolCallID] = true
		}
	}

	out := cloneMessages(history)
	for i, m := range out {
		if !m.HasToolCalls() {
			continue
		}
		for _, call := range m.ToolCalls {
			if !answered[call.ID] {
				out[i] = m.withoutToolCalls()
				break
			}
		}
	}
	return out
}
