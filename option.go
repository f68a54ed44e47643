package research

import (
	"log/slog"
	"time"

	"github.com/armatrix/deep-research-go/prompts"
)

// Option configures an Engine via the functional options pattern.
type Option func(*engineOptions)

// engineOptions holds all configurable fields set via Option functions.
type engineOptions struct {
	researchModel   Model // tool-binding profile
	supervisorModel Model
	plainModel      Model // compression, scoping, report

	scoper   Scoper
	reporter Reporter

	toolSources []ToolSource

	maxToolCallIterations    int
	maxSupervisorIterations  int
	maxConcurrentResearchers int
	allowClarification       bool

	prompts prompts.Set
	clock   func() time.Time
	logger  *slog.Logger
	onEvent EventHandler
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (o *engineOptions) applyDefaults() {
	if o.supervisorModel == nil {
		o.supervisorModel = o.researchModel
	}
	if o.plainModel == nil {
		o.plainModel = o.researchModel
	}
	if o.maxToolCallIterations <= 0 {
		o.maxToolCallIterations = DefaultMaxToolCallIterations
	}
	if o.maxSupervisorIterations <= 0 {
		o.maxSupervisorIterations = DefaultMaxSupervisorIterations
	}
	if o.maxConcurrentResearchers <= 0 {
		o.maxConcurrentResearchers = DefaultMaxConcurrentResearchers
	}
	if o.prompts == (prompts.Set{}) {
		o.prompts = prompts.Default()
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.scoper == nil && o.plainModel != nil {
		o.scoper = NewModelScoper(o.plainModel, o.prompts, o.clock)
	}
	if o.reporter == nil && o.plainModel != nil {
		o.reporter = NewModelReporter(o.plainModel, o.prompts)
	}
}

// resolveOptions applies all option functions and fills defaults.
func resolveOptions(opts []Option) engineOptions {
	o := engineOptions{allowClarification: true}
	for _, fn := range opts {
		fn(&o)
	}
	o.applyDefaults()
	return o
}

// --- Models ---

// WithResearchModel sets the tool-binding model used by researcher loops.
// It is also the fallback for every other profile.
func WithResearchModel(m Model) Option {
	return func(o *engineOptions) { o.researchModel = m }
}

// WithSupervisorModel sets the model the supervisor thinks with.
func WithSupervisorModel(m Model) Option {
	return func(o *engineOptions) { o.supervisorModel = m }
}

// WithPlainModel sets the text-only model used for compression, scoping and
// report synthesis.
func WithPlainModel(m Model) Option {
	return func(o *engineOptions) { o.plainModel = m }
}

// --- Collaborators ---

// WithScoper replaces the default model-backed scoping stage.
func WithScoper(s Scoper) Option {
	return func(o *engineOptions) { o.scoper = s }
}

// WithReporter replaces the default model-backed report stage.
func WithReporter(r Reporter) Option {
	return func(o *engineOptions) { o.reporter = r }
}

// WithToolSources adds sources queried for researcher tools on every turn.
func WithToolSources(sources ...ToolSource) Option {
	return func(o *engineOptions) { o.toolSources = append(o.toolSources, sources...) }
}

// --- Limits ---

// WithMaxToolCallIterations caps model turns per researcher task.
func WithMaxToolCallIterations(n int) Option {
	return func(o *engineOptions) { o.maxToolCallIterations = n }
}

// WithMaxSupervisorIterations caps supervisor think cycles.
func WithMaxSupervisorIterations(n int) Option {
	return func(o *engineOptions) { o.maxSupervisorIterations = n }
}

// WithMaxConcurrentResearchers bounds the number of researchers per batch.
func WithMaxConcurrentResearchers(n int) Option {
	return func(o *engineOptions) { o.maxConcurrentResearchers = n }
}

// WithClarification toggles the clarify stage. Enabled by default.
func WithClarification(enabled bool) Option {
	return func(o *engineOptions) { o.allowClarification = enabled }
}

// --- Ambient ---

// WithPrompts replaces the prompt templates.
func WithPrompts(p prompts.Set) Option {
	return func(o *engineOptions) { o.prompts = p }
}

// WithClock overrides the time source used for prompt dates.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.clock = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithEventHandler registers a handler for engine events.
func WithEventHandler(h EventHandler) Option {
	return func(o *engineOptions) { o.onEvent = h }
}
