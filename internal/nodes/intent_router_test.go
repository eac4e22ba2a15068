package nodes_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborflow/arbor/internal/adapters/memory"
	"github.com/arborflow/arbor/internal/logging"
	"github.com/arborflow/arbor/internal/nodes"
	"github.com/arborflow/arbor/pkg/domain"
)

func routerSpec() domain.NodeSpec {
	return domain.NodeSpec{
		ID:   "route",
		Type: domain.NodeIntentRouter,
		Next: "plan",
		Routes: map[string]string{
			domain.RouteCached: "store",
			"external":         "delegate",
			"chat":             "plan",
		},
		Config: map[string]any{
			"router":        "main-router",
			"default_route": "chat",
		},
	}
}

func TestIntentRouter_ClassifiesAndRedirects(t *testing.T) {
	reg := newRegistry(enabledCap("main-router", domain.KindRouter))
	backends := &fakeBackends{router: &fakeRouter{route: "external"}}
	node := nodes.NewIntentRouter(reg, backends, memory.NewStore(), logging.NewNop())

	state := domain.NewExecutionState("default", "weather?", domain.SessionContext{})
	state.Input = "weather?"
	out := node.Invoke(context.Background(), routerSpec(), state)

	require.False(t, out.Failed())
	assert.Equal(t, "delegate", out.Next())
	assert.Equal(t, "external", state.Routing.Route)
	assert.Equal(t, "main-router", state.Routing.Router)
}

func TestIntentRouter_FallsBackWhenRouterMissing(t *testing.T) {
	reg := newRegistry() // router capability absent
	backends := &fakeBackends{}
	node := nodes.NewIntentRouter(reg, backends, memory.NewStore(), logging.NewNop())

	state := domain.NewExecutionState("default", "hi", domain.SessionContext{})
	state.Input = "hi"
	out := node.Invoke(context.Background(), routerSpec(), state)

	require.False(t, out.Failed())
	assert.Equal(t, "plan", out.Next(), "default route maps to the chat branch")
	assert.True(t, state.Annotated(domain.AnnotationUnrouted))
}

func TestIntentRouter_FallsBackWhenRouterDown(t *testing.T) {
	cap := enabledCap("main-router", domain.KindRouter)
	cap.Health = domain.HealthDown
	reg := newRegistry(cap)
	backends := &fakeBackends{router: &fakeRouter{route: "external"}}
	node := nodes.NewIntentRouter(reg, backends, memory.NewStore(), logging.NewNop())

	state := domain.NewExecutionState("default", "hi", domain.SessionContext{})
	state.Input = "hi"
	out := node.Invoke(context.Background(), routerSpec(), state)

	require.False(t, out.Failed())
	assert.Equal(t, "plan", out.Next())
	assert.True(t, state.Annotated(domain.AnnotationUnrouted))
}

func TestIntentRouter_UnmappedLabelUsesDefaultEdge(t *testing.T) {
	reg := newRegistry(enabledCap("main-router", domain.KindRouter))
	backends := &fakeBackends{router: &fakeRouter{route: "no-such-branch"}}
	node := nodes.NewIntentRouter(reg, backends, memory.NewStore(), logging.NewNop())

	state := domain.NewExecutionState("default", "hi", domain.SessionContext{})
	state.Input = "hi"
	out := node.Invoke(context.Background(), routerSpec(), state)

	require.False(t, out.Failed())
	assert.Empty(t, out.Next(), "falls through to the node's Next edge")
	assert.True(t, state.Annotated(domain.AnnotationUnrouted))
}

func TestIntentRouter_CacheHitShortCircuits(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	err := store.Put(ctx, "fp-1", domain.CachedAnswer{
		Answer:   "cached answer",
		Sources:  []domain.Citation{{Source: "kb", Ref: "d1"}},
		StoredAt: time.Now(),
	}, time.Minute)
	require.NoError(t, err)

	reg := newRegistry(enabledCap("main-router", domain.KindRouter))
	backends := &fakeBackends{router: &fakeRouter{route: "chat"}}
	node := nodes.NewIntentRouter(reg, backends, store, logging.NewNop())

	state := domain.NewExecutionState("default", "hi", domain.SessionContext{})
	state.Input = "hi"
	state.Fingerprint = "fp-1"
	out := node.Invoke(ctx, routerSpec(), state)

	require.False(t, out.Failed())
	assert.Equal(t, "store", out.Next(), "cache hits route straight to memory_store")
	assert.True(t, state.CacheHit)
	assert.Equal(t, "cached answer", state.Draft)
	assert.Len(t, state.Citations, 1)
	assert.True(t, state.Annotated(domain.AnnotationCacheHit))
}

func TestIntentRouter_CacheMissClassifiesNormally(t *testing.T) {
	reg := newRegistry(enabledCap("main-router", domain.KindRouter))
	backends := &fakeBackends{router: &fakeRouter{route: "chat"}}
	node := nodes.NewIntentRouter(reg, backends, memory.NewStore(), logging.NewNop())

	state := domain.NewExecutionState("default", "hi", domain.SessionContext{})
	state.Input = "hi"
	state.Fingerprint = "fp-absent"
	out := node.Invoke(context.Background(), routerSpec(), state)

	require.False(t, out.Failed())
	assert.Equal(t, "plan", out.Next())
	assert.False(t, state.CacheHit)
}
