package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/armatrix/deep-research-go/internal/schema"
	"github.com/armatrix/deep-research-go/prompts"
)

// Supervisor tool names.
const (
	ConductResearchToolName  = "ConductResearch"
	ResearchCompleteToolName = "ResearchComplete"

	SupervisorAgent = "supervisor"
)

// ConductResearchInput delegates one topic to a sub-researcher.
type ConductResearchInput struct {
	ResearchTopic string `json:"research_topic" jsonschema:"required,description=The topic to research. Should be a single self-contained topic described in high detail (at least a paragraph)."`
}

// ResearchCompleteInput signals that the supervisor is done.
type ResearchCompleteInput struct{}

// SupervisorState is the supervisor-owned slice of the shared state.
type SupervisorState struct {
	SupervisorMessages []Message `json:"supervisor_messages"`
	Notes              []string  `json:"notes"`
	RawNotes           []string  `json:"raw_notes"`
	ResearchIterations int       `json:"research_iterations"`

	// Tasks lists every researcher task in dispatch order.
	Tasks []*ResearcherState `json:"tasks,omitempty"`

	// Gaps lists topics whose task was degraded.
	Gaps []string `json:"gaps,omitempty"`
}

type supervisorPhase int

const (
	phaseThink supervisorPhase = iota
	phaseDispatch
	phaseCollect
	phaseDone
)

func (p supervisorPhase) String() string {
	switch p {
	case phaseThink:
		return "think"
	case phaseDispatch:
		return "dispatch"
	case phaseCollect:
		return "collect"
	default:
		return "done"
	}
}

// nextSupervisorPhase is the supervisor's transition function. last is the
// supervisor's most recent AI message.
func nextSupervisorPhase(from supervisorPhase, iterations, ceiling int, last Message) supervisorPhase {
	switch from {
	case phaseThink:
		if !last.HasToolCalls() || requestsCompletion(last) {
			return phaseDone
		}
		return phaseDispatch
	case phaseDispatch:
		return phaseCollect
	case phaseCollect:
		if iterations >= ceiling {
			return phaseDone
		}
		return phaseThink
	default:
		return phaseDone
	}
}

func requestsCompletion(m Message) bool {
	for _, c := range m.ToolCalls {
		if c.Name == ResearchCompleteToolName {
			return true
		}
	}
	return false
}

// Supervisor plans research, dispatches concurrent researchers and merges
// their compressed findings.
type Supervisor struct {
	model         Model
	researcher    *Researcher
	prompts       prompts.Set
	clock         func() time.Time
	maxIterations int
	maxConcurrent int
	logger        *slog.Logger
	onEvent       EventHandler
}

func newSupervisor(o *engineOptions, r *Researcher) *Supervisor {
	return &Supervisor{
		model:         o.supervisorModel,
		researcher:    r,
		prompts:       o.prompts,
		clock:         o.clock,
		maxIterations: o.maxSupervisorIterations,
		maxConcurrent: o.maxConcurrentResearchers,
		logger:        o.logger.With("component", "supervisor"),
		onEvent:       o.onEvent,
	}
}

// supervisorTools are the specs bound on every supervisor turn.
func supervisorTools() []ToolSpec {
	return []ToolSpec{
		{
			Name:        ConductResearchToolName,
			Description: "Delegate a research task to a specialized sub-agent.",
			InputSchema: schema.Generate[ConductResearchInput](),
		},
		{
			Name:        ResearchCompleteToolName,
			Description: "Call this tool to indicate that the research is complete.",
			InputSchema: schema.Generate[ResearchCompleteInput](),
		},
		specOf(NewThinkTool()),
	}
}

// Run drives the think, dispatch and collect cycle for brief until done.
func (s *Supervisor) Run(ctx context.Context, brief string) (*SupervisorState, error) {
	st := &SupervisorState{
		SupervisorMessages: []Message{HumanMessage(brief)},
	}

	phase := phaseThink
	if s.maxIterations <= 0 {
		phase = phaseDone
	}

	var (
		last  Message
		batch *dispatchBatch
	)
	for phase != phaseDone {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		s.logger.Debug("supervisor phase", "phase", phase.String(), "iteration", st.ResearchIterations)

		switch phase {
		case phaseThink:
			ai, err := s.think(ctx, st)
			if err != nil {
				return st, err
			}
			last = ai

		case phaseDispatch:
			b, err := s.dispatch(ctx, st.ResearchIterations, last.ToolCalls)
			if err != nil {
				return st, err
			}
			batch = b

		case phaseCollect:
			if err := s.collect(batch, st); err != nil {
				return st, err
			}
			batch = nil
		}

		phase = nextSupervisorPhase(phase, st.ResearchIterations, s.maxIterations, last)
	}

	s.logger.Info("supervisor done",
		"iterations", st.ResearchIterations,
		"notes", len(st.Notes),
		"gaps", len(st.Gaps))
	return st, nil
}

func (s *Supervisor) think(ctx context.Context, st *SupervisorState) (Message, error) {
	system, err := prompts.Render(s.prompts.Supervisor, prompts.Vars{
		Date:                     s.clock().Format(DateLayout),
		MaxConcurrentResearchers: s.maxConcurrent,
		MaxIterations:            s.maxIterations,
	})
	if err != nil {
		return Message{}, err
	}

	ctx, span := startSpan(ctx, "supervisor.think",
		attribute.Int("iteration", st.ResearchIterations+1))
	start := time.Now()
	ai, err := s.model.Invoke(ctx, Request{
		System:   system,
		Messages: st.SupervisorMessages,
		Tools:    supervisorTools(),
	})
	if err != nil {
		err = fmt.Errorf("supervisor: %w: %w", ErrModelCall, err)
		endSpan(span, err)
		return Message{}, err
	}
	endSpan(span, nil)
	ai.Role = RoleAI

	st.ResearchIterations++
	st.SupervisorMessages = append(st.SupervisorMessages, ai)

	s.onEvent.emit(&ModelTurnEvent{
		Agent:     SupervisorAgent,
		Iteration: st.ResearchIterations,
		ToolCalls: len(ai.ToolCalls),
		Duration:  time.Since(start),
	})
	return ai, nil
}

// dispatchBatch is one fan-out of researcher tasks plus the bookkeeping
// needed to answer every tool call of the triggering AI message.
type dispatchBatch struct {
	calls   []ToolCall
	replies []Message // pre-filled for calls that do not start a task

	// tasks maps dispatch index to the call index it answers.
	tasks   []int
	topics  []string
	results []*ResearcherState

	group *errgroup.Group
}

// dispatch validates the calls, caps the batch, and starts one goroutine per
// accepted ConductResearch call.
func (s *Supervisor) dispatch(ctx context.Context, iteration int, calls []ToolCall) (*dispatchBatch, error) {
	b := &dispatchBatch{
		calls:   calls,
		replies: make([]Message, len(calls)),
	}

	skipped := 0
	for i, call := range calls {
		switch call.Name {
		case ThinkToolName:
			reply, err := invokeTool(ctx, "supervisor", NewThinkTool(), call)
			if err != nil {
				return nil, err
			}
			b.replies[i] = reply

		case ConductResearchToolName:
			var in ConductResearchInput
			if err := json.Unmarshal(call.Input, &in); err != nil || strings.TrimSpace(in.ResearchTopic) == "" {
				b.replies[i] = ToolMessage(call, "Error: research_topic is required", true)
				continue
			}
			if len(b.tasks) >= s.maxConcurrent {
				skipped++
				b.replies[i] = ToolMessage(call, fmt.Sprintf(
					"Error: did not run this research; at most %d researchers may run per turn.", s.maxConcurrent), true)
				continue
			}
			b.tasks = append(b.tasks, i)
			b.topics = append(b.topics, in.ResearchTopic)

		default:
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
		}
	}

	b.results = make([]*ResearcherState, len(b.tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	b.group = g

	s.onEvent.emit(&DispatchEvent{Iteration: iteration, Topics: b.topics, Skipped: skipped})
	if skipped > 0 {
		s.logger.Warn("research calls beyond concurrency bound were not run", "skipped", skipped)
	}

	for idx, topic := range b.topics {
		g.Go(func() error {
			taskID := GenerateID(PrefixTask)
			start := time.Now()
			rs, err := s.researcher.Run(gctx, taskID, topic)
			b.results[idx] = rs

			ev := &ResearcherEvent{
				TaskID:   taskID,
				Index:    idx,
				Topic:    topic,
				Duration: time.Since(start),
				Err:      err,
			}
			if rs != nil {
				ev.Degraded = rs.Degraded
				ev.ForcedStop = rs.ForcedStop
			}
			s.onEvent.emit(ev)
			return err
		})
	}
	return b, nil
}

// collect joins the batch and merges results into st in dispatch order.
func (s *Supervisor) collect(b *dispatchBatch, st *SupervisorState) error {
	if err := b.group.Wait(); err != nil {
		return err
	}

	for idx, callIdx := range b.tasks {
		rs := b.results[idx]
		b.replies[callIdx] = ToolMessage(b.calls[callIdx], rs.CompressedResearch, rs.Degraded)
	}
	if err := verifyToolReplies(b.calls, b.replies); err != nil {
		return err
	}
	st.SupervisorMessages = append(st.SupervisorMessages, b.replies...)

	for _, rs := range b.results {
		st.Notes = append(st.Notes, rs.CompressedResearch)
		st.RawNotes = append(st.RawNotes, rs.RawNotes...)
		st.Tasks = append(st.Tasks, rs)
		if rs.Degraded {
			st.Gaps = append(st.Gaps, rs.ResearchTopic)
		}
	}
	return nil
}
