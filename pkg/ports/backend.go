package ports

import (
	"context"

	"github.com/arborflow/arbor/pkg/domain"
)

// ModelRequest is the normalized input handed to reasoning backends.
type ModelRequest struct {
	System    string
	History   []domain.Turn
	Input     string
	Plan      []domain.PlanStep
	Grounding []domain.Citation
}

// ModelResponse is the normalized output of a reasoning backend: answer
// text, any proposed tool calls, and token usage.
type ModelResponse struct {
	Text      string
	ToolCalls []domain.ToolRequest
	Usage     domain.TokenUsage
}

// ModelBackend drives one LLM connection.
type ModelBackend interface {
	Generate(ctx context.Context, req ModelRequest) (*ModelResponse, error)
}

// AgentBackend drives one external conversational agent over the wire.
// Implementations normalize heterogeneous response shapes into the common
// ModelResponse schema.
type AgentBackend interface {
	Converse(ctx context.Context, req ModelRequest) (*ModelResponse, error)
}

// RouterBackend classifies input into a route label.
type RouterBackend interface {
	Classify(ctx context.Context, input string, history []domain.Turn) (string, error)
}

// PlannerBackend decomposes input into an ordered task list.
type PlannerBackend interface {
	Plan(ctx context.Context, input string) ([]domain.PlanStep, error)
}

// ToolBackend executes one tool capability.
type ToolBackend interface {
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// DataSource retrieves facts supporting an answer.
type DataSource interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Citation, error)
}

// Backends resolves capability records into live backend clients. The
// resolver interprets each record's free-form backend descriptor; nodes
// never touch provider SDKs directly.
type Backends interface {
	Model(cap domain.Capability) (ModelBackend, error)
	Agent(cap domain.Capability) (AgentBackend, error)
	Router(cap domain.Capability) (RouterBackend, error)
	Planner(cap domain.Capability) (PlannerBackend, error)
	Tool(cap domain.Capability) (ToolBackend, error)
	DataSource(cap domain.Capability) (DataSource, error)
}
