package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/armatrix/deep-research-go/prompts"
)

// ResearcherState is the private state of one sub-researcher task.
type ResearcherState struct {
	TaskID             string    `json:"task_id"`
	ResearchTopic      string    `json:"research_topic"`
	ResearcherMessages []Message `json:"researcher_messages"`
	ToolCallIterations int       `json:"tool_call_iterations"`
	CompressedResearch string    `json:"compressed_research"`
	RawNotes           []string  `json:"raw_notes"`

	// ForcedStop is set when the loop hit its ceiling with tools pending.
	ForcedStop bool `json:"forced_stop,omitempty"`

	// Degraded is set when a non-fatal error was absorbed; Err holds it and
	// CompressedResearch holds a placeholder note.
	Degraded bool   `json:"degraded,omitempty"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// Researcher runs one tool loop followed by compression for a single topic.
type Researcher struct {
	model         Model
	compressor    *Compressor
	sources       []ToolSource
	prompts       prompts.Set
	clock         func() time.Time
	maxIterations int
	logger        *slog.Logger
	onEvent       EventHandler
}

func newResearcher(o *engineOptions) *Researcher {
	return &Researcher{
		model: o.researchModel,
		compressor: &Compressor{
			Model:   o.plainModel,
			Prompts: o.prompts,
			Clock:   o.clock,
			Logger:  o.logger.With("component", "compress"),
		},
		sources:       o.toolSources,
		prompts:       o.prompts,
		clock:         o.clock,
		maxIterations: o.maxToolCallIterations,
		logger:        o.logger.With("component", "researcher"),
		onEvent:       o.onEvent,
	}
}

// Run researches topic to completion. Non-fatal failures are absorbed into a
// degraded state and a nil error; fatal ones are returned.
func (r *Researcher) Run(ctx context.Context, taskID, topic string) (*ResearcherState, error) {
	ctx, span := startSpan(ctx, "researcher",
		attribute.String("task.id", taskID),
		attribute.String("task.topic", topic),
	)

	st := &ResearcherState{
		TaskID:             taskID,
		ResearchTopic:      topic,
		ResearcherMessages: []Message{HumanMessage(topic)},
	}

	err := r.run(ctx, st)
	if err != nil && !IsFatal(err) {
		r.degrade(st, err)
		err = nil
	}
	endSpan(span, err)
	return st, err
}

func (r *Researcher) run(ctx context.Context, st *ResearcherState) error {
	system, err := prompts.Render(r.prompts.Researcher, prompts.Vars{
		Date:  r.clock().Format(DateLayout),
		Topic: st.ResearchTopic,
	})
	if err != nil {
		return err
	}

	res, loopErr := RunToolLoop(ctx, LoopConfig{
		Agent:         st.TaskID,
		Model:         r.model,
		System:        system,
		Messages:      st.ResearcherMessages,
		Sources:       r.sources,
		MaxIterations: r.maxIterations,
		Logger:        r.logger,
		OnEvent:       r.onEvent,
	})
	if res != nil {
		st.ResearcherMessages = res.Messages
		st.ToolCallIterations = res.Iterations
		st.ForcedStop = res.ForcedStop
	}
	if loopErr != nil {
		st.RawNotes = RawNotes(st.ResearcherMessages)
		return loopErr
	}

	digest, raw, err := r.compressor.Compress(ctx, st.ResearchTopic, st.ResearcherMessages)
	st.RawNotes = raw
	if err != nil {
		return err
	}
	st.CompressedResearch = digest
	return nil
}

func (r *Researcher) degrade(st *ResearcherState, err error) {
	r.logger.Warn("researcher degraded", "task", st.TaskID, "topic", st.ResearchTopic, "error", err)
	st.Degraded = true
	st.Err = err
	st.Error = err.Error()
	st.CompressedResearch = degradedNote(st.ResearchTopic, err)
}

// degradedNote is the placeholder digest for a task that failed gracefully.
func degradedNote(topic string, err error) string {
	return fmt.Sprintf("[research incomplete] Research on %q could not be completed: %s", topic, err.Error())
}
