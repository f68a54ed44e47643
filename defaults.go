package research

// Engine defaults.
const (
	// DefaultMaxToolCallIterations caps model turns within one researcher loop.
	DefaultMaxToolCallIterations = 10

	// DefaultMaxSupervisorIterations caps supervisor think cycles.
	DefaultMaxSupervisorIterations = 6

	// DefaultMaxConcurrentResearchers bounds the width of a dispatch batch.
	DefaultMaxConcurrentResearchers = 3

	// DateLayout renders the current date in prompts, e.g. "Fri Sep 5, 2025".
	DateLayout = "Mon Jan 2, 2006"

	// FinalReportPrefix precedes the report text in the run's message trace.
	FinalReportPrefix = "Here is the final report: "
)
