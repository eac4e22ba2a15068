// Package arbor is the high-level entry point for embedding the
// orchestrator: it wires storage, backends, the node set and the
// execution engine behind a small facade, with functional options to
// swap any piece.
package arbor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arborflow/arbor/internal/adapters/file"
	"github.com/arborflow/arbor/internal/adapters/memory"
	"github.com/arborflow/arbor/internal/adapters/redis"
	"github.com/arborflow/arbor/internal/backends"
	"github.com/arborflow/arbor/internal/logging"
	"github.com/arborflow/arbor/internal/nodes"
	"github.com/arborflow/arbor/internal/runtime"
	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
	"github.com/arborflow/arbor/pkg/registry"
)

// Version is the library version, stamped into the CLI.
const Version = "0.1.0"

// Engine executes conversational requests against per-agent topologies.
type Engine struct {
	runtime  *runtime.Engine
	registry ports.AdminRegistry
	loader   ports.TopologyLoader
	logger   *slog.Logger

	history ports.HistoryStore
	cache   ports.ResponseCache
	audit   ports.AuditSink

	nodeTimeout time.Duration
	promReg     prometheus.Registerer
	closers     []func() error
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithLoader injects a topology loader, replacing the default
// directory-backed one.
func WithLoader(l ports.TopologyLoader) Option {
	return func(e *Engine) { e.loader = l }
}

// WithRegistry injects a capability registry.
func WithRegistry(r ports.AdminRegistry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithRedis stores history, cache entries and audit trails in Redis
// instead of process memory.
func WithRedis(addr, password string, db int) Option {
	return func(e *Engine) {
		store := redis.New(addr, password, db)
		e.history = store
		e.cache = store
		e.audit = store
		e.closers = append(e.closers, store.Close)
	}
}

// WithStores injects the three storage ports directly.
func WithStores(history ports.HistoryStore, cache ports.ResponseCache, audit ports.AuditSink) Option {
	return func(e *Engine) {
		e.history = history
		e.cache = cache
		e.audit = audit
	}
}

// WithNodeTimeout bounds a single node invocation.
func WithNodeTimeout(d time.Duration) Option {
	return func(e *Engine) { e.nodeTimeout = d }
}

// WithMetrics registers the engine's prometheus collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.promReg = reg }
}

// New wires an Engine. topologyDir is the directory of per-agent YAML
// topologies; it may be empty when WithLoader supplies one.
func New(topologyDir string, opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.loader == nil {
		if topologyDir == "" {
			return nil, fmt.Errorf("topology directory is required when no loader is provided")
		}
		e.loader = file.NewLoader(topologyDir)
	}
	if e.registry == nil {
		e.registry = registry.NewInMemory()
	}
	if e.history == nil {
		store := memory.NewStore()
		e.history = store
		e.cache = store
		e.audit = store
	}

	resolver := backends.NewResolver(e.logger)
	nodeSet := nodes.All(e.registry, resolver, e.history, e.cache, e.audit, e.logger)

	var runtimeOpts []runtime.Option
	if e.nodeTimeout > 0 {
		runtimeOpts = append(runtimeOpts, runtime.WithNodeTimeout(e.nodeTimeout))
	}
	if e.promReg != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithMetrics(e.promReg))
	}
	e.runtime = runtime.NewEngine(e.loader, nodeSet, e.logger, runtimeOpts...)
	return e, nil
}

// Execute runs one request through an agent's topology.
func (e *Engine) Execute(ctx context.Context, agentID, input string, sess domain.SessionContext) (*domain.Response, error) {
	return e.runtime.Execute(ctx, agentID, input, sess)
}

// Inspect returns the validated topology for an agent.
func (e *Engine) Inspect(agentID string) (*domain.Topology, error) {
	return e.runtime.Inspect(agentID)
}

// Registry exposes the capability registry for the admin surface.
func (e *Engine) Registry() ports.AdminRegistry { return e.registry }

// Loader exposes the topology loader.
func (e *Engine) Loader() ports.TopologyLoader { return e.loader }

// Close releases owned resources such as Redis connections.
func (e *Engine) Close() error {
	var first error
	for _, close := range e.closers {
		if err := close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
