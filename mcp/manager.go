package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	research "github.com/armatrix/deep-research-go"
)

// Manager owns the connections to a set of MCP servers. It is a
// research.ToolSource: every Tools call lists the servers' tools afresh, so
// servers may add or remove tools between turns.
//
// Connect at run start and Close at run end. A Manager is safe for
// concurrent use by parallel researchers.
type Manager struct {
	mu         sync.RWMutex
	configs    map[string]ServerConfig
	transports map[string]Transport
	connected  map[string]bool
	namespaced bool
	logger     *slog.Logger
}

var _ research.ToolSource = (*Manager)(nil)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNamespacing exposes tools as mcp__{server}__{tool}.
func WithNamespacing(enabled bool) ManagerOption {
	return func(m *Manager) { m.namespaced = enabled }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager for the given server configs.
func NewManager(configs map[string]ServerConfig, opts ...ManagerOption) *Manager {
	m := newManager(opts)
	m.configs = maps.Clone(configs)
	if m.configs == nil {
		m.configs = map[string]ServerConfig{}
	}
	return m
}

// NewManagerWithTransports creates a Manager over pre-built transports.
func NewManagerWithTransports(transports map[string]Transport, opts ...ManagerOption) *Manager {
	m := newManager(opts)
	m.configs = map[string]ServerConfig{}
	for name, tr := range transports {
		m.transports[name] = tr
	}
	return m
}

func newManager(opts []ManagerOption) *Manager {
	m := &Manager{
		transports: map[string]Transport{},
		connected:  map[string]bool{},
		logger:     slog.Default(),
	}
	for _, fn := range opts {
		fn(m)
	}
	return m
}

// ServerNames returns the configured server names, sorted.
func (m *Manager) ServerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.namesLocked()
}

func (m *Manager) namesLocked() []string {
	set := make(map[string]struct{}, len(m.configs)+len(m.transports))
	for name := range m.configs {
		set[name] = struct{}{}
	}
	for name := range m.transports {
		set[name] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Connect connects every server that is not yet connected. Failures are
// collected; servers that did connect stay usable.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, name := range m.namesLocked() {
		if m.connected[name] {
			continue
		}
		tr, ok := m.transports[name]
		if !ok {
			var err error
			if tr, err = NewTransport(m.configs[name]); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			m.transports[name] = tr
		}
		if err := tr.Connect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mcp: connect %s: %w", name, err))
			continue
		}
		m.connected[name] = true
		m.logger.Debug("mcp server connected", "server", name)
	}
	return errors.Join(errs...)
}

// Tools lists the tools of every connected server, in server-name order.
func (m *Manager) Tools(ctx context.Context) ([]research.Tool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []research.Tool
	for _, name := range m.namesLocked() {
		if !m.connected[name] {
			continue
		}
		infos, err := m.transports[name].ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("mcp: list tools on %s: %w", name, err)
		}
		for _, info := range infos {
			out = append(out, m.newRemoteTool(name, info))
		}
	}
	return out, nil
}

// CallTool calls a tool by its bridged name mcp__{server}__{tool}.
func (m *Manager) CallTool(ctx context.Context, bridged string, args map[string]any) (CallResult, error) {
	server, tool, err := ParseBridgedName(bridged)
	if err != nil {
		return CallResult{}, err
	}
	return m.call(ctx, server, tool, args)
}

// call resolves server under the read lock and forwards the call. Remote
// tools go through here so a tool fetched before Close fails cleanly.
func (m *Manager) call(ctx context.Context, server, tool string, args map[string]any) (CallResult, error) {
	m.mu.RLock()
	tr, ok := m.transports[server]
	connected := m.connected[server]
	m.mu.RUnlock()
	if !ok {
		return CallResult{}, fmt.Errorf("%w: %s", ErrServerNotFound, server)
	}
	if !connected {
		return CallResult{}, fmt.Errorf("%w: %s", ErrNotConnected, server)
	}
	return tr.CallTool(ctx, tool, args)
}

// Close disconnects every server.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, tr := range m.transports {
		if !m.connected[name] {
			continue
		}
		if err := tr.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mcp: close %s: %w", name, err))
		}
	}
	m.connected = map[string]bool{}
	return errors.Join(errs...)
}
