package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/armatrix/deep-research-go/internal/schema"
	"github.com/armatrix/deep-research-go/prompts"
)

// Scoper turns the user's conversation into a research brief.
type Scoper interface {
	// Clarify decides whether the pipeline must stop and ask the user a
	// question before research can start.
	Clarify(ctx context.Context, messages []Message) (Clarification, error)

	// WriteBrief produces the research brief that seeds the supervisor.
	WriteBrief(ctx context.Context, messages []Message) (string, error)
}

// Clarification is the outcome of Scoper.Clarify.
type Clarification struct {
	NeedClarification bool   `json:"need_clarification" jsonschema:"required,description=Whether the user needs to be asked a clarifying question."`
	Question          string `json:"question" jsonschema:"description=A question to ask the user to clarify the report scope."`
	Verification      string `json:"verification" jsonschema:"description=Message confirming research will start once the user has provided the necessary information."`
}

// researchQuestion is the structured output of the brief call.
type researchQuestion struct {
	ResearchBrief string `json:"research_brief" jsonschema:"required,description=A research question that will be used to guide the research."`
}

const (
	clarifyToolName = "ClarifyWithUser"
	briefToolName   = "ResearchQuestion"
)

// ModelScoper implements Scoper with structured output from a plain model:
// each call forces a single tool whose input is the structured answer.
type ModelScoper struct {
	model   Model
	prompts prompts.Set
	clock   func() time.Time
}

var _ Scoper = (*ModelScoper)(nil)

// NewModelScoper creates a ModelScoper.
func NewModelScoper(m Model, p prompts.Set, clock func() time.Time) *ModelScoper {
	if clock == nil {
		clock = time.Now
	}
	return &ModelScoper{model: m, prompts: p, clock: clock}
}

// Clarify asks the model whether the request is ambiguous. A response
// without the structured tool call is treated as "proceed". A blank question
// falls back to the reply's text.
func (s *ModelScoper) Clarify(ctx context.Context, messages []Message) (Clarification, error) {
	resp, err := s.structured(ctx, s.prompts.Clarify, messages, ToolSpec{
		Name:        clarifyToolName,
		Description: "Record whether the user must be asked a clarifying question.",
		InputSchema: schema.Generate[Clarification](),
	})
	if err != nil {
		return Clarification{}, err
	}

	var c Clarification
	if input, ok := toolInput(resp, clarifyToolName); ok {
		if err := json.Unmarshal(input, &c); err != nil {
			return Clarification{}, fmt.Errorf("%w: decode clarification: %w", ErrModelCall, err)
		}
		if c.NeedClarification && strings.TrimSpace(c.Question) == "" {
			c.Question = strings.TrimSpace(resp.Content)
		}
		return c, nil
	}
	return Clarification{Verification: resp.Content}, nil
}

// WriteBrief asks the model for the research question. Plain text content is
// accepted when the model skips the tool.
func (s *ModelScoper) WriteBrief(ctx context.Context, messages []Message) (string, error) {
	resp, err := s.structured(ctx, s.prompts.Brief, messages, ToolSpec{
		Name:        briefToolName,
		Description: "Record the research question that will guide the research.",
		InputSchema: schema.Generate[researchQuestion](),
	})
	if err != nil {
		return "", err
	}

	brief := resp.Content
	if input, ok := toolInput(resp, briefToolName); ok {
		var q researchQuestion
		if err := json.Unmarshal(input, &q); err != nil {
			return "", fmt.Errorf("%w: decode brief: %w", ErrModelCall, err)
		}
		brief = q.ResearchBrief
	}

	brief = strings.TrimSpace(brief)
	if brief == "" {
		return "", ErrEmptyBrief
	}
	return brief, nil
}

func (s *ModelScoper) structured(ctx context.Context, tmpl string, messages []Message, tool ToolSpec) (Message, error) {
	prompt, err := prompts.Render(tmpl, prompts.Vars{
		Date:     s.clock().Format(DateLayout),
		Messages: bufferString(messages),
	})
	if err != nil {
		return Message{}, err
	}

	resp, err := s.model.Invoke(ctx, Request{
		Messages:   []Message{HumanMessage(prompt)},
		Tools:      []ToolSpec{tool},
		ToolChoice: tool.Name,
	})
	if err != nil {
		return Message{}, fmt.Errorf("%w: %s: %w", ErrModelCall, tool.Name, err)
	}
	return resp, nil
}

func toolInput(m Message, name string) (json.RawMessage, bool) {
	for _, c := range m.ToolCalls {
		if c.Name == name {
			return c.Input, true
		}
	}
	return nil, false
}

// bufferString renders a conversation as "Role: content" lines.
func bufferString(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		var who string
		switch m.Role {
		case RoleHuman:
			who = "Human"
		case RoleAI:
			who = "AI"
		case RoleTool:
			who = "Tool"
		default:
			who = "System"
		}
		lines = append(lines, who+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
