package nodes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborflow/arbor/internal/logging"
	"github.com/arborflow/arbor/internal/nodes"
	"github.com/arborflow/arbor/pkg/domain"
)

func groundingSpec(sources ...string) domain.NodeSpec {
	list := make([]any, len(sources))
	for i, s := range sources {
		list[i] = s
	}
	return domain.NodeSpec{ID: "ground", Config: map[string]any{"sources": list}}
}

func TestGrounding_AttachesCitations(t *testing.T) {
	reg := newRegistry(enabledCap("kb", domain.KindDataSource))
	backends := &fakeBackends{dataSource: &fakeSource{hits: []domain.Citation{
		{Source: "kb", Ref: "d1", Snippet: "a fact"},
	}}}
	node := nodes.NewGrounding(reg, backends, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	state.Input = "question"
	out := node.Invoke(context.Background(), groundingSpec("kb"), state)

	require.False(t, out.Failed())
	require.Len(t, state.Citations, 1)
	assert.False(t, state.Annotated(domain.AnnotationUngrounded))
}

func TestGrounding_SkipsBrokenSource(t *testing.T) {
	reg := newRegistry(
		enabledCap("broken", domain.KindDataSource),
		enabledCap("kb", domain.KindDataSource),
	)
	// The shared fake serves both names; a per-source failure is simulated
	// by pointing one config entry at an absent capability instead.
	backends := &fakeBackends{dataSource: &fakeSource{hits: []domain.Citation{
		{Source: "kb", Ref: "d1"},
	}}}
	node := nodes.NewGrounding(reg, backends, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	state.Input = "question"
	out := node.Invoke(context.Background(), groundingSpec("absent", "kb"), state)

	require.False(t, out.Failed(), "one broken source never blocks the rest")
	assert.Len(t, state.Citations, 1)
}

func TestGrounding_NoHitsTagsUngrounded(t *testing.T) {
	reg := newRegistry(enabledCap("kb", domain.KindDataSource))
	backends := &fakeBackends{dataSource: &fakeSource{}}
	node := nodes.NewGrounding(reg, backends, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	state.Input = "question"
	out := node.Invoke(context.Background(), groundingSpec("kb"), state)

	require.False(t, out.Failed())
	assert.Empty(t, state.Citations)
	assert.True(t, state.Annotated(domain.AnnotationUngrounded))
}

func TestGrounding_DownSourceSkipped(t *testing.T) {
	cap := enabledCap("kb", domain.KindDataSource)
	cap.Health = domain.HealthDown
	reg := newRegistry(cap)
	backends := &fakeBackends{dataSource: &fakeSource{hits: []domain.Citation{{Source: "kb"}}}}
	node := nodes.NewGrounding(reg, backends, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	state.Input = "question"
	out := node.Invoke(context.Background(), groundingSpec("kb"), state)

	require.False(t, out.Failed())
	assert.Empty(t, state.Citations)
	assert.True(t, state.Annotated(domain.AnnotationUngrounded))
}

func TestGrounding_NoSourcesConfigured(t *testing.T) {
	node := nodes.NewGrounding(newRegistry(), &fakeBackends{}, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	state.Input = "question"
	out := node.Invoke(context.Background(), domain.NodeSpec{ID: "ground"}, state)

	require.False(t, out.Failed())
	assert.True(t, state.Annotated(domain.AnnotationUngrounded))
}
