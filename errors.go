package research

import (
	"context"
	"errors"
)

// Sentinel errors returned by the research engine.
var (
	// Fatal: abort the owning task and unwind the run.
	ErrToolNotFound     = errors.New("research: tool not found")
	ErrToolCallMismatch = errors.New("research: tool call/reply mismatch")
	ErrToolProtocol     = errors.New("research: tool protocol failure")
	ErrEmptyBrief       = errors.New("research: empty research brief")
	ErrBudgetExhausted  = errors.New("research: budget exhausted")

	// Non-fatal at the researcher boundary.
	ErrModelCall = errors.New("research: model call failed")

	// Configuration.
	ErrNoModel = errors.New("research: no model configured")
)

var fatalErrors = []error{
	ErrToolNotFound,
	ErrToolCallMismatch,
	ErrToolProtocol,
	ErrEmptyBrief,
	ErrBudgetExhausted,
	ErrNoModel,
	context.Canceled,
	context.DeadlineExceeded,
}

// IsFatal reports whether err must abort the whole run rather than degrade a
// single researcher task.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range fatalErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
