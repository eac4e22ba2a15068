package nodes_test

import (
	"context"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
	"github.com/arborflow/arbor/pkg/registry"
)

// fakeBackends resolves every capability to the injected fake, counting
// resolutions so tests can assert a stage was skipped entirely.
type fakeBackends struct {
	model      ports.ModelBackend
	agent      ports.AgentBackend
	router     ports.RouterBackend
	planner    ports.PlannerBackend
	tool       ports.ToolBackend
	dataSource ports.DataSource

	modelResolves int
}

func (f *fakeBackends) Model(cap domain.Capability) (ports.ModelBackend, error) {
	f.modelResolves++
	if f.model == nil {
		return nil, domain.NewError(domain.CodeInternal, "no model fake")
	}
	return f.model, nil
}

func (f *fakeBackends) Agent(cap domain.Capability) (ports.AgentBackend, error) {
	if f.agent == nil {
		return nil, domain.NewError(domain.CodeInternal, "no agent fake")
	}
	return f.agent, nil
}

func (f *fakeBackends) Router(cap domain.Capability) (ports.RouterBackend, error) {
	if f.router == nil {
		return nil, domain.NewError(domain.CodeInternal, "no router fake")
	}
	return f.router, nil
}

func (f *fakeBackends) Planner(cap domain.Capability) (ports.PlannerBackend, error) {
	if f.planner == nil {
		return nil, domain.NewError(domain.CodeInternal, "no planner fake")
	}
	return f.planner, nil
}

func (f *fakeBackends) Tool(cap domain.Capability) (ports.ToolBackend, error) {
	if f.tool == nil {
		return nil, domain.NewError(domain.CodeInternal, "no tool fake")
	}
	return f.tool, nil
}

func (f *fakeBackends) DataSource(cap domain.Capability) (ports.DataSource, error) {
	if f.dataSource == nil {
		return nil, domain.NewError(domain.CodeInternal, "no data source fake")
	}
	return f.dataSource, nil
}

type fakeModel struct {
	calls int
	resp  *ports.ModelResponse
	errs  []error // consumed per call; nil entry means success
}

func (m *fakeModel) Generate(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	call := m.calls
	m.calls++
	if call < len(m.errs) && m.errs[call] != nil {
		return nil, m.errs[call]
	}
	if m.resp != nil {
		return m.resp, nil
	}
	return &ports.ModelResponse{Text: "draft answer"}, nil
}

type fakeAgent struct {
	calls int
	resp  *ports.ModelResponse
	err   error
}

func (a *fakeAgent) Converse(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	if a.resp != nil {
		return a.resp, nil
	}
	return &ports.ModelResponse{Text: "remote answer"}, nil
}

type fakeRouter struct {
	route string
	err   error
}

func (r *fakeRouter) Classify(ctx context.Context, input string, history []domain.Turn) (string, error) {
	return r.route, r.err
}

type fakePlanner struct {
	steps []domain.PlanStep
	err   error
}

func (p *fakePlanner) Plan(ctx context.Context, input string) ([]domain.PlanStep, error) {
	return p.steps, p.err
}

type fakeTool struct {
	calls int
	out   any
	err   error
}

func (t *fakeTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	t.calls++
	if t.err != nil {
		return nil, t.err
	}
	return t.out, nil
}

type fakeSource struct {
	hits []domain.Citation
	err  error
}

func (s *fakeSource) Search(ctx context.Context, query string, limit int) ([]domain.Citation, error) {
	return s.hits, s.err
}

// newRegistry seeds an in-memory registry with the given capabilities.
func newRegistry(caps ...domain.Capability) *registry.InMemory {
	reg := registry.NewInMemory()
	for _, c := range caps {
		reg.Put(c)
	}
	return reg
}

func enabledCap(name string, kind domain.CapabilityKind) domain.Capability {
	return domain.Capability{Name: name, Kind: kind, Enabled: true, Health: domain.HealthUp}
}
