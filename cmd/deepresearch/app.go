package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"

	research "github.com/armatrix/deep-research-go"
	"github.com/armatrix/deep-research-go/internal/budget"
	"github.com/armatrix/deep-research-go/internal/config"
	"github.com/armatrix/deep-research-go/internal/logging"
	"github.com/armatrix/deep-research-go/internal/metrics"
	"github.com/armatrix/deep-research-go/llm"
	"github.com/armatrix/deep-research-go/mcp"
	"github.com/armatrix/deep-research-go/permission"
	"github.com/armatrix/deep-research-go/prompts"
	"github.com/armatrix/deep-research-go/tools"
	"github.com/armatrix/deep-research-go/trace"
)

const mcpConnectTimeout = 30 * time.Second

// app holds everything a command needs, built from config and flags.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracker *budget.Tracker
	metrics *metrics.Collector
	sources []research.ToolSource
	traces  *trace.FileStore
	verbose bool

	closers []func() error
}

// loadConfig reads .env files and the layered config, then applies flags.
func loadConfig(g *Globals) (*config.Config, error) {
	if len(g.EnvFile) > 0 {
		if err := godotenv.Load(g.EnvFile...); err != nil {
			return nil, fmt.Errorf("load env: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	paths := config.DefaultPaths()
	if g.Config != "" {
		if _, err := os.Stat(g.Config); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		paths = append(paths, g.Config)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, err
	}

	if g.Docs != "" {
		cfg.Tools.DocsDir = g.Docs
	}
	if g.TraceDir != "" {
		cfg.Trace.Dir = g.TraceDir
	}
	if g.MetricsAddr != "" {
		cfg.Metrics.Addr = g.MetricsAddr
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}
	return cfg, cfg.Validate()
}

// newApp wires logging, budget, metrics, tool sources and trace storage.
// Callers must Close the app.
func newApp(ctx context.Context, g *Globals) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	limit, err := cfg.Budget.Limit()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		tracker: budget.NewTracker(limit, nil),
		metrics: metrics.New(),
		verbose: g.Verbose,
	}
	a.metrics.WatchBudget(a.tracker)

	if err := a.setup(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) setup(ctx context.Context) error {
	if addr := a.cfg.Metrics.Addr; addr != "" {
		a.serveMetrics(addr)
	}

	if dir := a.cfg.Tools.DocsDir; dir != "" {
		docs, err := tools.NewLocalDocs(dir)
		if err != nil {
			return err
		}
		a.sources = append(a.sources, docs)
		a.logger.Info("local documents enabled", "root", docs.Root())
	}
	if a.cfg.Tools.WebFetch {
		a.sources = append(a.sources, &tools.WebFetchTool{UserAgent: "deepresearch/" + version})
	}
	if a.cfg.Tools.Search == "tavily" {
		key, env := a.cfg.Tools.SearchAPIKey()
		if key == "" {
			return fmt.Errorf("tools.search: %s is not set", env)
		}
		a.sources = append(a.sources, &tools.WebSearchTool{Search: tools.TavilySearch(key, nil)})
	}

	if len(a.cfg.MCP.Servers) > 0 {
		mgr := mcp.NewManager(a.cfg.MCP.Servers,
			mcp.WithNamespacing(a.cfg.MCP.Namespace),
			mcp.WithLogger(a.logger.With("component", "mcp")),
		)
		a.closers = append(a.closers, mgr.Close)

		cctx, cancel := context.WithTimeout(ctx, mcpConnectTimeout)
		err := mgr.Connect(cctx)
		cancel()
		if err != nil {
			a.logger.Warn("some MCP servers failed to connect", "error", err)
		}
		a.sources = append(a.sources, mgr)
	}

	policy, err := permission.NewPolicy(a.cfg.Tools.Allow, a.cfg.Tools.Deny)
	if err != nil {
		return err
	}
	if !policy.Empty() {
		a.sources = policy.WithLogger(a.logger.With("component", "permission")).FilterAll(a.sources)
	}

	if dir := a.cfg.Trace.Dir; dir != "" {
		store, err := trace.NewFileStore(dir)
		if err != nil {
			return err
		}
		a.traces = store
	}
	return nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", addr)

	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

// model builds an Anthropic-backed model for one profile. All profiles share
// the run's budget tracker.
func (a *app) model(mc config.ModelConfig) (research.Model, error) {
	key := mc.APIKey()
	if key == "" {
		env := mc.APIKeyEnv
		if env == "" {
			env = "ANTHROPIC_API_KEY"
		}
		return nil, fmt.Errorf("%s is not set", env)
	}
	return llm.NewFromAPIKey(key,
		llm.WithModel(anthropic.Model(mc.Model)),
		llm.WithMaxTokens(mc.MaxTokens),
		llm.WithTracker(a.tracker),
		llm.WithLogger(a.logger.With("component", "llm", "model", mc.Model)),
	), nil
}

// engineOptions returns everything but the models.
func (a *app) engineOptions(events research.EventHandler) ([]research.Option, error) {
	r := a.cfg.Research
	opts := []research.Option{
		research.WithToolSources(a.sources...),
		research.WithMaxToolCallIterations(r.MaxToolCallIterations),
		research.WithMaxSupervisorIterations(r.MaxSupervisorIterations),
		research.WithMaxConcurrentResearchers(r.MaxConcurrentResearchers),
		research.WithClarification(r.AllowClarification),
		research.WithLogger(a.logger),
		research.WithEventHandler(events),
	}
	if file := a.cfg.Prompts.File; file != "" {
		set, err := prompts.LoadFile(file)
		if err != nil {
			return nil, err
		}
		opts = append(opts, research.WithPrompts(set))
	}
	return opts, nil
}

// engine builds the engine from config. extra options are applied last.
func (a *app) engine(extra ...research.Option) (*research.Engine, error) {
	researchModel, err := a.model(a.cfg.Models.Research)
	if err != nil {
		return nil, err
	}
	supervisorModel, err := a.model(a.cfg.SupervisorModel())
	if err != nil {
		return nil, err
	}
	plainModel, err := a.model(a.cfg.Models.Plain)
	if err != nil {
		return nil, err
	}

	opts, err := a.engineOptions(a.events())
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		research.WithResearchModel(researchModel),
		research.WithSupervisorModel(supervisorModel),
		research.WithPlainModel(plainModel),
	)
	return research.New(append(opts, extra...)...)
}

// events fans engine events out to metrics and, with --verbose, stderr.
func (a *app) events() research.EventHandler {
	if !a.verbose {
		return a.metrics.Handle
	}
	p := newProgressPrinter(os.Stderr)
	return func(ev research.Event) {
		a.metrics.Handle(ev)
		p.Handle(ev)
	}
}

// saveTrace persists res when tracing is enabled. Failures are logged only.
func (a *app) saveTrace(ctx context.Context, query string, res *research.Result) {
	if a.traces == nil || res == nil {
		return
	}
	snap := a.tracker.Snapshot()
	rec := &trace.Record{Query: query, Result: res, Usage: &snap}
	if err := a.traces.Save(ctx, rec); err != nil {
		a.logger.Warn("save trace failed", "run", res.RunID, "error", err)
		return
	}
	a.logger.Info("trace saved", "run", res.RunID, "dir", a.traces.Dir())
}

// logUsage reports the run's spend.
func (a *app) logUsage() {
	snap := a.tracker.Snapshot()
	a.logger.Info("usage",
		"calls", snap.Calls,
		"input_tokens", snap.Usage.TotalInput(),
		"output_tokens", snap.Usage.OutputTokens,
		"cost_usd", snap.Cost.StringFixed(4))
}

// Close releases MCP connections and the metrics server in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
