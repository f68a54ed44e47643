package research

import "time"

// EventType identifies the kind of event emitted by the engine.
type EventType string

const (
	EventStage      EventType = "stage"
	EventModelTurn  EventType = "model_turn"
	EventToolCall   EventType = "tool_call"
	EventForcedStop EventType = "forced_stop"
	EventDispatch   EventType = "dispatch"
	EventResearcher EventType = "researcher"
	EventRun        EventType = "run"
)

// Event is the interface implemented by all engine events.
type Event interface {
	Type() EventType
}

// EventHandler receives engine events. Researchers run concurrently, so
// handlers must be safe for concurrent use.
type EventHandler func(Event)

// Stage names a step of the top-level pipeline.
type Stage string

const (
	StageClarify   Stage = "clarify"
	StageBrief     Stage = "brief"
	StageSupervise Stage = "supervise"
	StageReport    Stage = "report"
)

// StageEvent is emitted when a pipeline stage starts and when it finishes.
type StageEvent struct {
	Stage Stage
	Done  bool
	Err   error
}

func (e *StageEvent) Type() EventType { return EventStage }

// ModelTurnEvent is emitted after every model call inside a loop.
type ModelTurnEvent struct {
	Agent     string // "supervisor" or a researcher task ID
	Iteration int
	ToolCalls int
	Duration  time.Duration
}

func (e *ModelTurnEvent) Type() EventType { return EventModelTurn }

// ToolCallEvent is emitted after each tool execution.
type ToolCallEvent struct {
	Agent    string
	Tool     string
	CallID   string
	IsError  bool
	Duration time.Duration
}

func (e *ToolCallEvent) Type() EventType { return EventToolCall }

// ForcedStopEvent is emitted when a loop hits its iteration ceiling while the
// model still requested tools.
type ForcedStopEvent struct {
	Agent      string
	Iterations int
	Pending    []ToolCall
}

func (e *ForcedStopEvent) Type() EventType { return EventForcedStop }

// DispatchEvent is emitted when the supervisor starts a researcher batch.
type DispatchEvent struct {
	Iteration int
	Topics    []string
	Skipped   int // calls beyond the concurrency bound
}

func (e *DispatchEvent) Type() EventType { return EventDispatch }

// ResearcherEvent is emitted when a researcher task finishes.
type ResearcherEvent struct {
	TaskID     string
	Index      int
	Topic      string
	Degraded   bool
	ForcedStop bool
	Duration   time.Duration
	Err        error
}

func (e *ResearcherEvent) Type() EventType { return EventResearcher }

// RunEvent is emitted once at the end of Engine.Run.
type RunEvent struct {
	RunID    string
	Status   Status
	Duration time.Duration
	Err      error
}

func (e *RunEvent) Type() EventType { return EventRun }

func (h EventHandler) emit(e Event) {
	if h != nil {
		h(e)
	}
}
