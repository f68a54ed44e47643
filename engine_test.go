package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainWorld routes plain-model calls by what they are for: the two scoping
// structured outputs, compression, and the final report.
func plainWorld(question, brief string) *countingModel {
	return &countingModel{fn: func(_ context.Context, req Request) (Message, error) {
		switch {
		case req.ToolChoice == clarifyToolName:
			input := fmt.Sprintf(`{"need_clarification":%t,"question":%q,"verification":"Starting research."}`,
				question != "", question)
			return AIMessage("", call("s1", clarifyToolName, input)), nil
		case req.ToolChoice == briefToolName:
			return AIMessage("", call("s2", briefToolName, fmt.Sprintf(`{"research_brief":%q}`, brief))), nil
		case isCompression(req):
			return AIMessage("digest of " + firstHuman(req)), nil
		default:
			return AIMessage("REPORT\n" + lastHuman(req)), nil
		}
	}}
}

func oneRoundSupervisor(topics ...string) *scriptedModel {
	var calls []ToolCall
	for i, topic := range topics {
		calls = append(calls, conduct(fmt.Sprintf("c%d", i), topic))
	}
	return script(AIMessage("", calls...), AIMessage("", complete("done")))
}

func newTestEngine(t *testing.T, sup, plain Model, research Model, opts ...Option) *Engine {
	t.Helper()
	e, err := New(append([]Option{
		WithResearchModel(research),
		WithSupervisorModel(sup),
		WithPlainModel(plain),
		WithClock(fixedClock),
	}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestNew_RequiresModel(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestEngine_Run_Completed(t *testing.T) {
	research, _ := researchWorld()
	plain := plainWorld("", "Compare pour-over and espresso.")
	events := &eventLog{}
	e := newTestEngine(t, oneRoundSupervisor("pour-over", "espresso"), plain, research,
		WithEventHandler(events.handle))

	input := []Message{HumanMessage("pour-over vs espresso?")}
	res, err := e.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.True(t, strings.HasPrefix(res.RunID, PrefixRun+"_"))
	assert.Len(t, input, 1)

	st := res.State
	assert.Equal(t, "Compare pour-over and espresso.", st.ResearchBrief)
	assert.Equal(t, []string{"digest of pour-over", "digest of espresso"}, st.Notes)
	assert.Len(t, st.RawNotes, 2)
	assert.Equal(t, 2, st.ResearchIterations)
	assert.Len(t, res.Tasks, 2)
	assert.Empty(t, res.Gaps)

	assert.Contains(t, res.FinalReport, "Compare pour-over and espresso.")
	assert.Contains(t, res.FinalReport, "digest of pour-over\ndigest of espresso")
	assert.Equal(t, st.FinalReport, res.FinalReport)

	// input, verification, final report
	require.Len(t, st.Messages, 3)
	assert.Equal(t, "Starting research.", st.Messages[1].Content)
	assert.Equal(t, FinalReportPrefix+res.FinalReport, st.Messages[2].Content)

	var stages []string
	for _, ev := range eventsOf[*StageEvent](events) {
		if !ev.Done {
			stages = append(stages, string(ev.Stage))
		}
		assert.NoError(t, ev.Err)
	}
	assert.Equal(t, []string{"clarify", "brief", "supervise", "report"}, stages)

	runs := eventsOf[*RunEvent](events)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusCompleted, runs[0].Status)
	assert.Equal(t, res.RunID, runs[0].RunID)
}

func TestEngine_Run_NeedsClarification(t *testing.T) {
	research, _ := researchWorld()
	plain := plainWorld("Which brew methods?", "unused")
	sup := oneRoundSupervisor("x")
	e := newTestEngine(t, sup, plain, research)

	res, err := e.Run(context.Background(), []Message{HumanMessage("coffee?")})
	require.NoError(t, err)

	assert.Equal(t, StatusNeedsClarification, res.Status)
	assert.Equal(t, "Which brew methods?", res.Question)
	assert.Empty(t, res.FinalReport)
	assert.Equal(t, 0, sup.calls())
	assert.Equal(t, int32(1), plain.n.Load())

	last := res.State.Messages[len(res.State.Messages)-1]
	assert.Equal(t, AIMessage("Which brew methods?"), last)
}

func TestEngine_Run_BlankClarifyingQuestionProceeds(t *testing.T) {
	research, _ := researchWorld()
	base := plainWorld("", "A brief.")
	plain := &countingModel{fn: func(ctx context.Context, req Request) (Message, error) {
		if req.ToolChoice == clarifyToolName {
			return AIMessage("", call("s1", clarifyToolName, `{"need_clarification":true,"question":"  "}`)), nil
		}
		return base.fn(ctx, req)
	}}
	sup := oneRoundSupervisor("x")
	e := newTestEngine(t, sup, plain, research)

	res, err := e.Run(context.Background(), []Message{HumanMessage("coffee?")})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Empty(t, res.Question)
	assert.Equal(t, "A brief.", res.State.ResearchBrief)
	assert.Equal(t, 2, sup.calls())
}

func TestEngine_Run_ClarificationDisabled(t *testing.T) {
	research, _ := researchWorld()
	plain := plainWorld("Which brew methods?", "A brief.")
	e := newTestEngine(t, oneRoundSupervisor("x"), plain, research, WithClarification(false))

	res, err := e.Run(context.Background(), []Message{HumanMessage("coffee?")})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Empty(t, res.Question)
	assert.Len(t, res.State.Messages, 2)
}

func TestEngine_Run_EmptyBrief(t *testing.T) {
	research, _ := researchWorld()
	events := &eventLog{}
	e := newTestEngine(t, oneRoundSupervisor("x"), plainWorld("", "   "), research,
		WithEventHandler(events.handle))

	res, err := e.Run(context.Background(), []Message{HumanMessage("q")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyBrief)
	assert.Nil(t, res)

	runs := eventsOf[*RunEvent](events)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.ErrorIs(t, runs[0].Err, ErrEmptyBrief)
}

func TestEngine_Run_Degraded(t *testing.T) {
	research, _ := researchWorld("bad")
	e := newTestEngine(t, oneRoundSupervisor("good", "bad"), plainWorld("", "brief"), research)

	res, err := e.Run(context.Background(), []Message{HumanMessage("q")})
	require.NoError(t, err)

	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, []string{"bad"}, res.Gaps)
	assert.NotEmpty(t, res.FinalReport)
	assert.Contains(t, res.FinalReport, "[research incomplete]")
}

func TestEngine_Run_FatalErrorProducesNoReport(t *testing.T) {
	sup := script(AIMessage("", conduct("c1", "x")))
	research := ModelFunc(func(context.Context, Request) (Message, error) {
		return AIMessage("", call("r1", "unknown_tool", `{}`)), nil
	})
	plain := plainWorld("", "brief")
	var reports atomic.Int32
	counting := ModelFunc(func(ctx context.Context, req Request) (Message, error) {
		if req.ToolChoice == "" && !isCompression(req) {
			reports.Add(1)
		}
		return plain.Invoke(ctx, req)
	})
	e := newTestEngine(t, sup, counting, research)

	res, err := e.Run(context.Background(), []Message{HumanMessage("q")})
	assert.ErrorIs(t, err, ErrToolNotFound)
	assert.Nil(t, res)
	assert.Equal(t, int32(0), reports.Load())
}

func TestEngine_Run_ThreeItemComparison(t *testing.T) {
	research, _ := researchWorld()
	plain := plainWorld("", "Compare V60, Chemex and Kalita Wave.")
	var reports atomic.Int32
	counting := ModelFunc(func(ctx context.Context, req Request) (Message, error) {
		if req.ToolChoice == "" && !isCompression(req) {
			reports.Add(1)
		}
		return plain.Invoke(ctx, req)
	})
	e := newTestEngine(t, oneRoundSupervisor("V60", "Chemex", "Kalita Wave"), counting, research)

	res, err := e.Run(context.Background(), []Message{HumanMessage("compare three drippers")})
	require.NoError(t, err)

	assert.Len(t, res.Tasks, 3)
	assert.Equal(t, []string{"digest of V60", "digest of Chemex", "digest of Kalita Wave"}, res.State.Notes)
	assert.Len(t, res.State.RawNotes, 3)
	assert.Equal(t, int32(1), reports.Load())
}

func TestEngine_Run_SupervisorCeilingOne(t *testing.T) {
	research, _ := researchWorld()
	var thinks atomic.Int32
	sup := ModelFunc(func(context.Context, Request) (Message, error) {
		n := thinks.Add(1)
		return AIMessage("", conduct(fmt.Sprintf("c%d", n), fmt.Sprintf("topic %d", n))), nil
	})
	e := newTestEngine(t, sup, plainWorld("", "brief"), research, WithMaxSupervisorIterations(1))

	res, err := e.Run(context.Background(), []Message{HumanMessage("q")})
	require.NoError(t, err)
	assert.Equal(t, int32(1), thinks.Load())
	assert.Equal(t, 1, res.State.ResearchIterations)
	assert.Equal(t, []string{"digest of topic 1"}, res.State.Notes)
}

func TestEngine_Run_ReportError(t *testing.T) {
	research, _ := researchWorld()
	plain := plainWorld("", "brief")
	failing := ModelFunc(func(ctx context.Context, req Request) (Message, error) {
		if req.ToolChoice == "" && !isCompression(req) {
			return Message{}, errors.New("context window exceeded")
		}
		return plain.Invoke(ctx, req)
	})
	e := newTestEngine(t, oneRoundSupervisor("x"), failing, research)

	_, err := e.Run(context.Background(), []Message{HumanMessage("q")})
	assert.ErrorIs(t, err, ErrModelCall)
}

func TestEngine_PromptDates(t *testing.T) {
	research, _ := researchWorld()
	sup := oneRoundSupervisor("x")
	var reportPrompt string
	plain := plainWorld("", "brief")
	capture := ModelFunc(func(ctx context.Context, req Request) (Message, error) {
		if req.ToolChoice == "" && !isCompression(req) {
			reportPrompt = lastHuman(req)
		}
		return plain.Invoke(ctx, req)
	})
	e := newTestEngine(t, sup, capture, research)

	_, err := e.Run(context.Background(), []Message{HumanMessage("q")})
	require.NoError(t, err)
	assert.Contains(t, reportPrompt, "Fri Sep 5, 2025")
	assert.Contains(t, sup.request(0).System, "Fri Sep 5, 2025")
}

func TestEngine_Supervise(t *testing.T) {
	research, plain := researchWorld()
	e := newTestEngine(t, oneRoundSupervisor("a"), plain, research)

	_, err := e.Supervise(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyBrief)

	sv, err := e.Supervise(context.Background(), "brief")
	require.NoError(t, err)
	assert.Equal(t, []string{"digest of a"}, sv.Notes)
}

func TestEngine_Research(t *testing.T) {
	research, plain := researchWorld()
	e := newTestEngine(t, script(), plain, research)

	rs, err := e.Research(context.Background(), "water hardness")
	require.NoError(t, err)
	assert.Equal(t, "digest of water hardness", rs.CompressedResearch)
	assert.True(t, strings.HasPrefix(rs.TaskID, PrefixTask+"_"))
}

func TestEngine_ConcurrentRuns(t *testing.T) {
	research, _ := researchWorld()
	sup := ModelFunc(func(_ context.Context, req Request) (Message, error) {
		if len(req.Messages) == 1 {
			return AIMessage("", conduct("c1", req.Messages[0].Content)), nil
		}
		return AIMessage("", complete("c2")), nil
	})
	e := newTestEngine(t, sup, plainWorld("", "shared brief"), research)

	errs := make(chan error, 4)
	for range 4 {
		go func() {
			res, err := e.Run(context.Background(), []Message{HumanMessage("q")})
			if err == nil && res.Status != StatusCompleted {
				err = fmt.Errorf("status %s", res.Status)
			}
			errs <- err
		}()
	}
	for range 4 {
		assert.NoError(t, <-errs)
	}
}
