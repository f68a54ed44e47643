// Package config loads the deep-research TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/armatrix/deep-research-go/internal/budget"
	"github.com/armatrix/deep-research-go/mcp"
	"github.com/armatrix/deep-research-go/permission"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "deepresearch.toml"

// Config is the full configuration.
type Config struct {
	Models   ModelsConfig   `toml:"models"`
	Research ResearchConfig `toml:"research"`
	Budget   BudgetConfig   `toml:"budget"`
	MCP      MCPConfig      `toml:"mcp"`
	Tools    ToolsConfig    `toml:"tools"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Prompts  PromptsConfig  `toml:"prompts"`
	Trace    TraceConfig    `toml:"trace"`
}

// ModelsConfig holds the model profiles. Research binds tools; Plain is used
// for compression, scoping and the report. Supervisor falls back to Research.
type ModelsConfig struct {
	Research   ModelConfig `toml:"research"`
	Plain      ModelConfig `toml:"plain"`
	Supervisor ModelConfig `toml:"supervisor"`
}

// ModelConfig configures one model profile.
type ModelConfig struct {
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	APIKeyEnv string `toml:"api_key_env"`
}

// APIKey reads the key from the configured environment variable.
func (m ModelConfig) APIKey() string {
	env := m.APIKeyEnv
	if env == "" {
		env = "ANTHROPIC_API_KEY"
	}
	return os.Getenv(env)
}

// ResearchConfig holds the engine limits.
type ResearchConfig struct {
	MaxConcurrentResearchers int  `toml:"max_concurrent_researchers"`
	MaxSupervisorIterations  int  `toml:"max_supervisor_iterations"`
	MaxToolCallIterations    int  `toml:"max_tool_call_iterations"`
	AllowClarification       bool `toml:"allow_clarification"`
}

// BudgetConfig caps spend per run.
type BudgetConfig struct {
	// MaxUSD is a decimal string such as "2.50". Empty means unlimited.
	MaxUSD string `toml:"max_usd"`
}

// Limit parses MaxUSD.
func (b BudgetConfig) Limit() (decimal.Decimal, error) {
	return budget.ParseLimit(b.MaxUSD)
}

// MCPConfig lists the MCP servers researchers may use.
type MCPConfig struct {
	Servers map[string]mcp.ServerConfig `toml:"servers"`

	// Namespace exposes remote tools as mcp__{server}__{tool}.
	Namespace bool `toml:"namespace"`
}

// ToolsConfig enables the native tools and restricts what researchers see.
type ToolsConfig struct {
	DocsDir  string `toml:"docs_dir"`
	WebFetch bool   `toml:"web_fetch"`

	// Search enables web_search with the named backend. Only "tavily" is
	// supported; the key is read from SearchAPIKeyEnv (TAVILY_API_KEY).
	Search          string `toml:"search"`
	SearchAPIKeyEnv string `toml:"search_api_key_env"`

	// Allow and Deny are glob patterns over tool names. Any allow pattern
	// turns the set into an allowlist; deny always wins.
	Allow []string `toml:"allow"`
	Deny  []string `toml:"deny"`
}

// SearchAPIKey reads the search backend key from the environment.
func (t ToolsConfig) SearchAPIKey() (string, string) {
	env := t.SearchAPIKeyEnv
	if env == "" {
		env = "TAVILY_API_KEY"
	}
	return os.Getenv(env), env
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// PromptsConfig points at a YAML file overriding prompt templates.
type PromptsConfig struct {
	File string `toml:"file"`
}

// TraceConfig sets where run traces are written. Empty disables tracing.
type TraceConfig struct {
	Dir string `toml:"dir"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		Models: ModelsConfig{
			Research: ModelConfig{Model: "claude-sonnet-4-5", MaxTokens: 16_384},
			Plain:    ModelConfig{Model: "claude-sonnet-4-5", MaxTokens: 16_384},
		},
		Research: ResearchConfig{
			MaxConcurrentResearchers: 3,
			MaxSupervisorIterations:  6,
			MaxToolCallIterations:    10,
			AllowClarification:       true,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load layers the given TOML files over the defaults, then applies
// environment overrides. Later files override earlier ones; missing files
// are skipped.
func Load(paths ...string) (*Config, error) {
	cfg := New()
	for _, path := range paths {
		if path == "" {
			continue
		}
		md, err := toml.DecodeFile(path, cfg)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// DefaultPaths returns the user-level and project-level config files.
func DefaultPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "deepresearch", "config.toml"))
	}
	return append(paths, DefaultFile)
}

// ApplyEnv applies DEEP_RESEARCH_* overrides using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"DEEP_RESEARCH_MODEL":        &c.Models.Research.Model,
		"DEEP_RESEARCH_PLAIN_MODEL":  &c.Models.Plain.Model,
		"DEEP_RESEARCH_LOG_LEVEL":    &c.Logging.Level,
		"DEEP_RESEARCH_LOG_FORMAT":   &c.Logging.Format,
		"DEEP_RESEARCH_MAX_USD":      &c.Budget.MaxUSD,
		"DEEP_RESEARCH_DOCS_DIR":     &c.Tools.DocsDir,
		"DEEP_RESEARCH_TRACE_DIR":    &c.Trace.Dir,
		"DEEP_RESEARCH_METRICS_ADDR": &c.Metrics.Addr,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DEEP_RESEARCH_MAX_CONCURRENT_RESEARCHERS": &c.Research.MaxConcurrentResearchers,
		"DEEP_RESEARCH_MAX_SUPERVISOR_ITERATIONS":  &c.Research.MaxSupervisorIterations,
		"DEEP_RESEARCH_MAX_TOOL_CALL_ITERATIONS":   &c.Research.MaxToolCallIterations,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := lookup("DEEP_RESEARCH_ALLOW_CLARIFICATION"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DEEP_RESEARCH_ALLOW_CLARIFICATION: %w", err)
		}
		c.Research.AllowClarification = b
	}
	return nil
}

// SupervisorModel returns the supervisor profile, falling back to Research
// for unset fields.
func (c *Config) SupervisorModel() ModelConfig {
	m := c.Models.Supervisor
	if m.Model == "" {
		m.Model = c.Models.Research.Model
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = c.Models.Research.MaxTokens
	}
	if m.APIKeyEnv == "" {
		m.APIKeyEnv = c.Models.Research.APIKeyEnv
	}
	return m
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.Models.Research.Model == "" {
		errs = append(errs, errors.New("models.research.model is required"))
	}
	if c.Models.Plain.Model == "" {
		errs = append(errs, errors.New("models.plain.model is required"))
	}
	r := c.Research
	if r.MaxConcurrentResearchers < 1 {
		errs = append(errs, fmt.Errorf("research.max_concurrent_researchers must be >= 1, got %d", r.MaxConcurrentResearchers))
	}
	if r.MaxSupervisorIterations < 1 {
		errs = append(errs, fmt.Errorf("research.max_supervisor_iterations must be >= 1, got %d", r.MaxSupervisorIterations))
	}
	if r.MaxToolCallIterations < 1 {
		errs = append(errs, fmt.Errorf("research.max_tool_call_iterations must be >= 1, got %d", r.MaxToolCallIterations))
	}
	if _, err := c.Budget.Limit(); err != nil {
		errs = append(errs, err)
	}
	switch c.Tools.Search {
	case "", "tavily":
	default:
		errs = append(errs, fmt.Errorf("tools.search must be tavily, got %q", c.Tools.Search))
	}
	if err := permission.Validate(c.Tools.Allow, c.Tools.Deny); err != nil {
		errs = append(errs, err)
	}
	for name, srv := range c.MCP.Servers {
		if err := srv.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("mcp.servers.%s: %w", name, err))
		}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
