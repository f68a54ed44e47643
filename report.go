package research

import (
	"context"
	"fmt"
	"time"

	"github.com/armatrix/deep-research-go/prompts"
)

// Reporter synthesizes the final report from the brief and the merged notes.
type Reporter interface {
	Generate(ctx context.Context, brief, findings string, date time.Time) (string, error)
}

// ModelReporter implements Reporter with a single plain-model call.
type ModelReporter struct {
	model   Model
	prompts prompts.Set
}

var _ Reporter = (*ModelReporter)(nil)

// NewModelReporter creates a ModelReporter.
func NewModelReporter(m Model, p prompts.Set) *ModelReporter {
	return &ModelReporter{model: m, prompts: p}
}

// Generate renders the final report prompt and returns the model's content.
func (r *ModelReporter) Generate(ctx context.Context, brief, findings string, date time.Time) (string, error) {
	prompt, err := prompts.Render(r.prompts.FinalReport, prompts.Vars{
		Date:          date.Format(DateLayout),
		ResearchBrief: brief,
		Findings:      findings,
	})
	if err != nil {
		return "", err
	}

	resp, err := r.model.Invoke(ctx, Request{Messages: []Message{HumanMessage(prompt)}})
	if err != nil {
		return "", fmt.Errorf("%w: report: %w", ErrModelCall, err)
	}
	return resp.Content, nil
}
