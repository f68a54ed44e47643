package research

import "time"

// State is the shared conversation state of one run. Each pipeline stage
// only appends to it; Notes and RawNotes are merged by concatenation.
type State struct {
	Messages           []Message `json:"messages"`
	ResearchBrief      string    `json:"research_brief"`
	SupervisorMessages []Message `json:"supervisor_messages"`
	Notes              []string  `json:"notes"`
	RawNotes           []string  `json:"raw_notes"`
	FinalReport        string    `json:"final_report"`
	ResearchIterations int       `json:"research_iterations"`
}

// mergeSupervisor folds the supervisor's output into the shared state.
func (s *State) mergeSupervisor(sv *SupervisorState) {
	s.SupervisorMessages = append(s.SupervisorMessages, sv.SupervisorMessages...)
	s.Notes = append(s.Notes, sv.Notes...)
	s.RawNotes = append(s.RawNotes, sv.RawNotes...)
	s.ResearchIterations += sv.ResearchIterations
}

// Status is the outcome of a run.
type Status string

const (
	StatusCompleted          Status = "completed"
	StatusDegraded           Status = "degraded"
	StatusNeedsClarification Status = "needs_clarification"
	StatusFailed             Status = "failed"
)

// Result is returned by Engine.Run.
type Result struct {
	RunID  string `json:"run_id"`
	Status Status `json:"status"`

	// FinalReport is empty unless Status is completed or degraded.
	FinalReport string `json:"final_report,omitempty"`

	// Question is set when Status is needs_clarification.
	Question string `json:"question,omitempty"`

	// State holds the full message trace.
	State *State `json:"state"`

	Tasks []*ResearcherState `json:"tasks,omitempty"`
	Gaps  []string           `json:"gaps,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}
