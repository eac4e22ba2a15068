package nodes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborflow/arbor/internal/logging"
	"github.com/arborflow/arbor/internal/nodes"
	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

func llmSpec() domain.NodeSpec {
	return domain.NodeSpec{ID: "respond", Config: map[string]any{"llm": "main-llm"}}
}

func TestLLMAgent_ProducesDraft(t *testing.T) {
	reg := newRegistry(enabledCap("main-llm", domain.KindLLM))
	model := &fakeModel{resp: &ports.ModelResponse{
		Text: "the answer",
		ToolCalls: []domain.ToolRequest{
			{ID: "c1", Name: "clock"},
		},
		Usage: domain.TokenUsage{Prompt: 10, Completion: 5, Total: 15},
	}}
	node := nodes.NewLLMAgent(reg, &fakeBackends{model: model}, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	state.Input = "question"
	out := node.Invoke(context.Background(), llmSpec(), state)

	require.False(t, out.Failed())
	assert.Equal(t, "the answer", state.Draft)
	assert.Len(t, state.ToolRequests, 1)
	assert.Equal(t, 15, state.Usage.Total)
}

func TestLLMAgent_RetriesTransientFaults(t *testing.T) {
	reg := newRegistry(enabledCap("main-llm", domain.KindLLM))
	transient := domain.NewError(domain.CodeExternalCall, "upstream 503").AsTransient()
	model := &fakeModel{
		resp: &ports.ModelResponse{Text: "recovered"},
		errs: []error{transient, transient, nil},
	}
	node := nodes.NewLLMAgent(reg, &fakeBackends{model: model}, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	state.Input = "question"
	out := node.Invoke(context.Background(), llmSpec(), state)

	require.False(t, out.Failed())
	assert.Equal(t, 3, model.calls)
	assert.Equal(t, "recovered", state.Draft)
}

func TestLLMAgent_ExhaustedRetriesFail(t *testing.T) {
	reg := newRegistry(enabledCap("main-llm", domain.KindLLM))
	transient := domain.NewError(domain.CodeExternalCall, "upstream 503").AsTransient()
	model := &fakeModel{errs: []error{transient, transient, transient}}
	node := nodes.NewLLMAgent(reg, &fakeBackends{model: model}, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	state.Input = "question"
	out := node.Invoke(context.Background(), llmSpec(), state)

	require.True(t, out.Failed())
	assert.Equal(t, 3, model.calls, "bounded retry budget")
	assert.Equal(t, domain.CodeExternalCall, domain.CodeOf(out.Err()))
}

func TestLLMAgent_NonTransientFaultDoesNotRetry(t *testing.T) {
	reg := newRegistry(enabledCap("main-llm", domain.KindLLM))
	model := &fakeModel{errs: []error{
		domain.NewError(domain.CodeExternalCall, "bad request upstream"),
	}}
	node := nodes.NewLLMAgent(reg, &fakeBackends{model: model}, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	state.Input = "question"
	out := node.Invoke(context.Background(), llmSpec(), state)

	require.True(t, out.Failed())
	assert.Equal(t, 1, model.calls)
}

func TestLLMAgent_DownCapabilitySkipsCall(t *testing.T) {
	cap := enabledCap("main-llm", domain.KindLLM)
	cap.Health = domain.HealthDown
	reg := newRegistry(cap)
	model := &fakeModel{}
	node := nodes.NewLLMAgent(reg, &fakeBackends{model: model}, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	state.Input = "question"
	out := node.Invoke(context.Background(), llmSpec(), state)

	require.True(t, out.Failed())
	assert.Equal(t, 0, model.calls, "down hint skips the backend entirely")
	assert.Equal(t, domain.CodeExternalCall, domain.CodeOf(out.Err()))
}

func TestLLMAgent_DisabledCapability(t *testing.T) {
	cap := enabledCap("main-llm", domain.KindLLM)
	cap.Enabled = false
	reg := newRegistry(cap)
	node := nodes.NewLLMAgent(reg, &fakeBackends{model: &fakeModel{}}, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	state.Input = "question"
	out := node.Invoke(context.Background(), llmSpec(), state)

	require.True(t, out.Failed())
	assert.Equal(t, domain.CodeCapabilityDisabled, domain.CodeOf(out.Err()))
}

func TestLLMAgent_MissingConfig(t *testing.T) {
	node := nodes.NewLLMAgent(newRegistry(), &fakeBackends{}, logging.NewNop())

	state := domain.NewExecutionState("default", "x", domain.SessionContext{})
	out := node.Invoke(context.Background(), domain.NodeSpec{ID: "respond"}, state)

	require.True(t, out.Failed())
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(out.Err()))
}
