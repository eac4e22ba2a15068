package runtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborflow/arbor/internal/adapters/memory"
	"github.com/arborflow/arbor/internal/logging"
	"github.com/arborflow/arbor/internal/nodes"
	"github.com/arborflow/arbor/internal/runtime"
	"github.com/arborflow/arbor/pkg/domain"
)

func TestEngine_RepeatedQuestionServedFromCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := domain.SessionContext{SessionID: "s1"}

	first, err := h.engine.Execute(ctx, "default", "what is the capital of France?", sess)
	require.NoError(t, err)
	assert.NotContains(t, first.Annotations, domain.AnnotationCacheHit)
	require.EqualValues(t, 1, h.backends.modelCalls.Load())

	second, err := h.engine.Execute(ctx, "default", "what is the capital of France?", sess)
	require.NoError(t, err)
	assert.Contains(t, second.Annotations, domain.AnnotationCacheHit)
	assert.Equal(t, first.Answer, second.Answer)
	assert.EqualValues(t, 1, h.backends.modelCalls.Load(), "the cached turn never reaches the model")

	// Both turns still land in session history.
	turns, err := h.store.History(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Len(t, turns, 4)
}

func TestEngine_CacheKeyIgnoresCaseAndSpacing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.Execute(ctx, "default", "What is   the Capital of France?", domain.SessionContext{})
	require.NoError(t, err)

	second, err := h.engine.Execute(ctx, "default", "what is the capital of france?", domain.SessionContext{})
	require.NoError(t, err)
	assert.Contains(t, second.Annotations, domain.AnnotationCacheHit)
	assert.EqualValues(t, 1, h.backends.modelCalls.Load())
}

func TestEngine_CacheIsPerAgent(t *testing.T) {
	loader := memory.NewTopologyLoader()
	require.NoError(t, loader.Add(defaultTopology("default")))
	require.NoError(t, loader.Add(defaultTopology("other")))

	store := memory.NewStore()
	backends := &countingBackends{}
	nodeSet := nodes.All(fullRegistry(), backends, store, store, store, logging.NewNop())
	engine := runtime.NewEngine(loader, nodeSet, logging.NewNop())
	ctx := context.Background()

	_, err := engine.Execute(ctx, "default", "same question", domain.SessionContext{})
	require.NoError(t, err)

	resp, err := engine.Execute(ctx, "other", "same question", domain.SessionContext{})
	require.NoError(t, err)
	assert.NotContains(t, resp.Annotations, domain.AnnotationCacheHit,
		"agents never share cache entries")
	assert.EqualValues(t, 2, backends.modelCalls.Load())
}

func TestEngine_FailedRequestNotCached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.backends.modelErr = domain.NewError(domain.CodeExternalCall, "boom")
	first, err := h.engine.Execute(ctx, "default", "flaky question", domain.SessionContext{})
	require.NoError(t, err)
	require.NotNil(t, first.Error)

	h.backends.modelErr = nil
	second, err := h.engine.Execute(ctx, "default", "flaky question", domain.SessionContext{})
	require.NoError(t, err)
	assert.Nil(t, second.Error)
	assert.NotContains(t, second.Annotations, domain.AnnotationCacheHit,
		"the failed attempt left no cache entry")
}

func TestEngine_RegistryEditVisibleToNextRequest(t *testing.T) {
	loader := memory.NewTopologyLoader()
	require.NoError(t, loader.Add(defaultTopology("default")))

	reg := fullRegistry()
	store := memory.NewStore()
	backends := &countingBackends{}
	nodeSet := nodes.All(reg, backends, store, store, store, logging.NewNop())
	engine := runtime.NewEngine(loader, nodeSet, logging.NewNop())
	ctx := context.Background()

	first, err := engine.Execute(ctx, "default", "hello there", domain.SessionContext{})
	require.NoError(t, err)
	assert.Nil(t, first.Error)

	cap, err := reg.Get("main-llm")
	require.NoError(t, err)
	cap.Enabled = false
	reg.Put(cap)

	second, err := engine.Execute(ctx, "default", "another question", domain.SessionContext{})
	require.NoError(t, err)
	require.NotNil(t, second.Error)
	assert.Equal(t, domain.CodeCapabilityDisabled, second.Error.Code)
}
