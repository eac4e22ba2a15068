// Package backends resolves capability records into live backend clients.
// Each record's free-form backend descriptor names a provider; the resolver
// decodes the rest of the descriptor into that provider's options and
// constructs the client. Nodes stay unaware of provider SDKs.
package backends

import (
	"log/slog"
	"net/http"

	"github.com/mitchellh/mapstructure"

	"github.com/arborflow/arbor/internal/backends/anthropic"
	"github.com/arborflow/arbor/internal/backends/httpagent"
	"github.com/arborflow/arbor/internal/backends/local"
	"github.com/arborflow/arbor/internal/backends/openai"
	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

// Resolver implements ports.Backends.
type Resolver struct {
	logger     *slog.Logger
	tools      *local.ToolSet
	httpClient *http.Client
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithToolSet injects the builtin tool functions.
func WithToolSet(ts *local.ToolSet) Option {
	return func(r *Resolver) { r.tools = ts }
}

// WithHTTPClient injects the client used for external HTTP backends.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

// NewResolver creates a resolver.
func NewResolver(logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{logger: logger, tools: local.NewToolSet()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ToolSet exposes the builtin functions for registration by the host.
func (r *Resolver) ToolSet() *local.ToolSet { return r.tools }

func provider(cap domain.Capability) string {
	if p, ok := cap.Backend["provider"].(string); ok {
		return p
	}
	return ""
}

func decode(cap domain.Capability, out any) error {
	if err := mapstructure.Decode(cap.Backend, out); err != nil {
		return domain.WrapError(domain.CodeInternal, err, "capability %q has a malformed backend descriptor", cap.Name)
	}
	return nil
}

func unknownProvider(cap domain.Capability) error {
	return domain.NewError(domain.CodeInternal, "capability %q (%s) names unknown provider %q", cap.Name, cap.Kind, provider(cap))
}

// Model resolves an LLM capability.
func (r *Resolver) Model(cap domain.Capability) (ports.ModelBackend, error) {
	switch provider(cap) {
	case "openai":
		var opts openai.Options
		if err := decode(cap, &opts); err != nil {
			return nil, err
		}
		return openai.New(func(o *openai.Options) { merge(o, opts) }), nil
	case "anthropic":
		var opts anthropic.Options
		if err := decode(cap, &opts); err != nil {
			return nil, err
		}
		return anthropic.New(func(o *anthropic.Options) { mergeAnthropic(o, opts) }), nil
	case "echo":
		prefix, _ := cap.Backend["prefix"].(string)
		return local.NewEchoModel(prefix), nil
	default:
		return nil, unknownProvider(cap)
	}
}

// Agent resolves an external agent capability.
func (r *Resolver) Agent(cap domain.Capability) (ports.AgentBackend, error) {
	switch provider(cap) {
	case "http":
		var opts httpagent.Options
		if err := decode(cap, &opts); err != nil {
			return nil, err
		}
		return httpagent.New(opts, r.httpClient)
	default:
		return nil, unknownProvider(cap)
	}
}

// Router resolves a router capability.
func (r *Resolver) Router(cap domain.Capability) (ports.RouterBackend, error) {
	switch provider(cap) {
	case "rules":
		var cfg struct {
			Rules    []local.Rule `mapstructure:"rules"`
			Fallback string       `mapstructure:"fallback"`
		}
		if err := decode(cap, &cfg); err != nil {
			return nil, err
		}
		router, err := local.NewRuleRouter(cfg.Rules, cfg.Fallback)
		if err != nil {
			return nil, domain.WrapError(domain.CodeInternal, err, "capability %q", cap.Name)
		}
		return router, nil
	default:
		return nil, unknownProvider(cap)
	}
}

// Planner resolves a planner capability.
func (r *Resolver) Planner(cap domain.Capability) (ports.PlannerBackend, error) {
	switch provider(cap) {
	case "split":
		delimiter, _ := cap.Backend["delimiter"].(string)
		return local.NewSplitPlanner(delimiter), nil
	default:
		return nil, unknownProvider(cap)
	}
}

// Tool resolves a tool capability.
func (r *Resolver) Tool(cap domain.Capability) (ports.ToolBackend, error) {
	switch provider(cap) {
	case "builtin":
		name, _ := cap.Backend["name"].(string)
		if name == "" {
			name = cap.Name
		}
		fn, err := r.tools.Func(name)
		if err != nil {
			return nil, err
		}
		return local.NewFuncTool(fn), nil
	case "http":
		var opts httpagent.Options
		if err := decode(cap, &opts); err != nil {
			return nil, err
		}
		return httpagent.New(opts, r.httpClient)
	default:
		return nil, unknownProvider(cap)
	}
}

// DataSource resolves a datasource capability.
func (r *Resolver) DataSource(cap domain.Capability) (ports.DataSource, error) {
	switch provider(cap) {
	case "static":
		var cfg struct {
			Documents []local.Document `mapstructure:"documents"`
		}
		if err := decode(cap, &cfg); err != nil {
			return nil, err
		}
		return local.NewStaticSource(cap.Name, cfg.Documents), nil
	case "http":
		var opts httpagent.Options
		if err := decode(cap, &opts); err != nil {
			return nil, err
		}
		return httpagent.New(opts, r.httpClient)
	default:
		return nil, unknownProvider(cap)
	}
}

// merge overlays non-zero decoded options onto the defaults.
func merge(dst *openai.Options, src openai.Options) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Temperature != 0 {
		dst.Temperature = src.Temperature
	}
	if src.MaxCompletionTokens != 0 {
		dst.MaxCompletionTokens = src.MaxCompletionTokens
	}
	dst.APIKey = src.APIKey
	dst.BaseURL = src.BaseURL
}

func mergeAnthropic(dst *anthropic.Options, src anthropic.Options) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Temperature != 0 {
		dst.Temperature = src.Temperature
	}
	if src.MaxTokens != 0 {
		dst.MaxTokens = src.MaxTokens
	}
	dst.APIKey = src.APIKey
}
