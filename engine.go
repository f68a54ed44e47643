package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// reportFindingsSeparator joins notes into the findings handed to the
// report stage.
const reportFindingsSeparator = "\n"

// Engine runs the four-stage research pipeline:
// clarify, brief, supervised research, report.
//
// An Engine is stateless between runs and safe for concurrent use as long as
// its models and tool sources are.
type Engine struct {
	opts       engineOptions
	researcher *Researcher
	supervisor *Supervisor
}

// New creates an Engine. A research model is required; every other profile
// falls back to it.
func New(opts ...Option) (*Engine, error) {
	o := resolveOptions(opts)
	if o.researchModel == nil {
		return nil, ErrNoModel
	}
	if err := o.prompts.Validate(); err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}

	r := newResearcher(&o)
	return &Engine{
		opts:       o,
		researcher: r,
		supervisor: newSupervisor(&o, r),
	}, nil
}

// Run executes the full pipeline for the user's input messages.
//
// A nil error means a result was produced: a report (possibly degraded) or a
// clarification question. Fatal errors return a nil Result and no report.
func (e *Engine) Run(ctx context.Context, input []Message) (res *Result, err error) {
	runID := GenerateID(PrefixRun)
	started := time.Now()
	logger := e.opts.logger.With("run", runID)

	ctx, span := startSpan(ctx, "research.run", attribute.String("run.id", runID))
	defer func() {
		status := StatusFailed
		if res != nil {
			status = res.Status
			res.Duration = time.Since(started)
		}
		span.SetAttributes(attribute.String("run.status", string(status)))
		endSpan(span, err)
		e.opts.onEvent.emit(&RunEvent{RunID: runID, Status: status, Duration: time.Since(started), Err: err})
		if err != nil {
			logger.Error("run failed", "error", err)
		} else {
			logger.Info("run finished", "status", status, "duration", time.Since(started))
		}
	}()

	st := &State{Messages: cloneMessages(input)}
	res = &Result{RunID: runID, StartedAt: started, State: st}

	// 1. Clarify.
	if e.opts.allowClarification {
		c, err := e.stageClarify(ctx, st)
		if err != nil {
			return nil, err
		}
		if c.NeedClarification {
			res.Status = StatusNeedsClarification
			res.Question = c.Question
			return res, nil
		}
	}

	// 2. Brief.
	if err := e.stageBrief(ctx, st); err != nil {
		return nil, err
	}

	// 3. Supervised research.
	sv, err := e.stageSupervise(ctx, st)
	if err != nil {
		return nil, err
	}
	res.Tasks = sv.Tasks
	res.Gaps = sv.Gaps

	// 4. Report.
	if err := e.stageReport(ctx, st); err != nil {
		return nil, err
	}
	res.FinalReport = st.FinalReport
	res.Status = StatusCompleted
	if len(res.Gaps) > 0 {
		res.Status = StatusDegraded
	}
	return res, nil
}

func (e *Engine) stageClarify(ctx context.Context, st *State) (c Clarification, err error) {
	done := e.beginStage(StageClarify)
	defer func() { done(err) }()

	c, err = e.opts.scoper.Clarify(ctx, st.Messages)
	if err != nil {
		return Clarification{}, fmt.Errorf("clarify: %w", err)
	}
	if c.NeedClarification && strings.TrimSpace(c.Question) == "" {
		e.opts.logger.Warn("clarification requested without a question; proceeding")
		c.NeedClarification = false
	}
	if c.NeedClarification {
		st.Messages = append(st.Messages, AIMessage(c.Question))
	} else if c.Verification != "" {
		st.Messages = append(st.Messages, AIMessage(c.Verification))
	}
	return c, nil
}

func (e *Engine) stageBrief(ctx context.Context, st *State) (err error) {
	done := e.beginStage(StageBrief)
	defer func() { done(err) }()

	brief, err := e.opts.scoper.WriteBrief(ctx, st.Messages)
	if err != nil {
		return fmt.Errorf("write brief: %w", err)
	}
	if strings.TrimSpace(brief) == "" {
		return ErrEmptyBrief
	}
	st.ResearchBrief = brief
	return nil
}

func (e *Engine) stageSupervise(ctx context.Context, st *State) (sv *SupervisorState, err error) {
	done := e.beginStage(StageSupervise)
	defer func() { done(err) }()

	sv, err = e.supervisor.Run(ctx, st.ResearchBrief)
	if err != nil {
		return nil, err
	}
	st.mergeSupervisor(sv)
	return sv, nil
}

func (e *Engine) stageReport(ctx context.Context, st *State) (err error) {
	done := e.beginStage(StageReport)
	defer func() { done(err) }()

	findings := strings.Join(st.Notes, reportFindingsSeparator)
	report, err := e.opts.reporter.Generate(ctx, st.ResearchBrief, findings, e.opts.clock())
	if err != nil {
		return err
	}
	st.FinalReport = report
	st.Messages = append(st.Messages, AIMessage(FinalReportPrefix+report))
	return nil
}

// beginStage emits the start event and returns a func that emits the end.
func (e *Engine) beginStage(stage Stage) func(error) {
	e.opts.onEvent.emit(&StageEvent{Stage: stage})
	e.opts.logger.Debug("stage started", "stage", stage)
	return func(err error) {
		e.opts.onEvent.emit(&StageEvent{Stage: stage, Done: true, Err: err})
	}
}

// Supervise runs only the supervisor stage for an existing brief.
func (e *Engine) Supervise(ctx context.Context, brief string) (*SupervisorState, error) {
	if strings.TrimSpace(brief) == "" {
		return nil, ErrEmptyBrief
	}
	return e.supervisor.Run(ctx, brief)
}

// Research runs a single researcher task for topic. Non-fatal failures yield a
// degraded state and a nil error.
func (e *Engine) Research(ctx context.Context, topic string) (*ResearcherState, error) {
	return e.researcher.Run(ctx, GenerateID(PrefixTask), topic)
}
