package nodes

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

// IntentRouter decides which reasoning branch serves the request. It first
// consults the response cache: a fresh entry for this fingerprint serves
// the answer directly through the "cached" route, skipping every expensive
// stage. Otherwise it classifies the input via the configured router
// capability and redirects along the matching labeled route.
//
// Router unavailability of any kind falls back to the topology's default
// route; routing never fails a request on its own.
//
// Config: router (capability name).
// Routes: one label per branch target, plus the reserved "cached" label.
type IntentRouter struct {
	reg      ports.Registry
	backends ports.Backends
	cache    ports.ResponseCache
	logger   *slog.Logger
}

// NewIntentRouter creates the node.
func NewIntentRouter(reg ports.Registry, backends ports.Backends, cache ports.ResponseCache, logger *slog.Logger) *IntentRouter {
	return &IntentRouter{reg: reg, backends: backends, cache: cache, logger: logger}
}

// Type implements ports.Node.
func (n *IntentRouter) Type() domain.NodeType { return domain.NodeIntentRouter }

// Invoke implements ports.Node.
func (n *IntentRouter) Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome {
	if target, ok := spec.Routes[domain.RouteCached]; ok {
		if cached := n.tryCache(ctx, state); cached {
			return domain.Redirect(target)
		}
	}

	route := n.classify(ctx, spec, state)
	target, ok := spec.Routes[route]
	if !ok {
		// Unknown label from the router backend: treat like an unavailable
		// router and fall back to the default edge.
		n.logger.Warn("router returned unmapped route, using default edge",
			"route", route, "node", spec.ID)
		state.Annotate(domain.AnnotationUnrouted)
		return domain.Continue()
	}
	return domain.Redirect(target)
}

// tryCache serves the answer from the response cache when possible.
func (n *IntentRouter) tryCache(ctx context.Context, state *domain.ExecutionState) bool {
	cached, err := n.cache.Get(ctx, state.Fingerprint)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			n.logger.Warn("cache read failed", "err", err)
		}
		return false
	}

	state.CacheHit = true
	state.Draft = cached.Answer
	state.Citations = append(state.Citations, cached.Sources...)
	for _, a := range cached.Annotations {
		state.Annotate(a)
	}
	state.Annotate(domain.AnnotationCacheHit)
	return true
}

// classify asks the router capability for a route label, falling back to
// the topology default on any unavailability.
func (n *IntentRouter) classify(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) string {
	fallback := func(reason string, err error) string {
		n.logger.Info("router unavailable, using default route",
			"reason", reason, "err", err, "route", state.Routing.Route)
		state.Annotate(domain.AnnotationUnrouted)
		return state.Routing.Route
	}

	// The default route is recorded up front so a fallback is still a
	// complete routing decision. The engine copies the topology's default
	// into the spec config before dispatch.
	state.Routing = domain.RoutingDecision{Route: spec.ConfigString("default_route", "")}

	name := spec.ConfigString("router", "")
	if name == "" {
		return state.Routing.Route
	}

	cap, err := lookup(n.reg, name, domain.KindRouter)
	if err != nil {
		return fallback("lookup", err)
	}
	if cap.Down() {
		return fallback("health hint down", nil)
	}
	router, err := n.backends.Router(cap)
	if err != nil {
		return fallback("resolve", err)
	}

	route, err := router.Classify(ctx, state.Input, state.History)
	if err != nil || route == "" {
		return fallback("classify", err)
	}
	state.Routing = domain.RoutingDecision{Router: name, Route: route}
	return route
}
