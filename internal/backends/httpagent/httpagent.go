// Package httpagent calls external conversational agents, tools and
// datasources over HTTP, normalizing their heterogeneous response shapes
// into the common answer/tool-call schema.
package httpagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

// Options configure one external HTTP backend.
type Options struct {
	URL     string            `mapstructure:"url"`
	APIKey  string            `mapstructure:"api_key"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// Backend implements ports.AgentBackend, ports.ToolBackend and
// ports.DataSource over one endpoint.
type Backend struct {
	client *http.Client
	opts   Options
}

// New creates a backend. A zero Timeout leaves deadlines to the caller's
// context, which the engine always bounds.
func New(opts Options, client *http.Client) (*Backend, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("httpagent: missing url")
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Backend{client: client, opts: opts}, nil
}

type conversePayload struct {
	Input     string        `json:"input"`
	System    string        `json:"system,omitempty"`
	History   []domain.Turn `json:"history,omitempty"`
	PlanSteps []string      `json:"plan_steps,omitempty"`
}

// Converse implements ports.AgentBackend.
func (b *Backend) Converse(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	payload := conversePayload{
		Input:   req.Input,
		System:  req.System,
		History: req.History,
	}
	for _, step := range req.Plan {
		payload.PlanSteps = append(payload.PlanSteps, step.Description)
	}

	raw, err := b.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	return normalize(raw)
}

// Execute implements ports.ToolBackend: the endpoint receives the raw
// arguments and its JSON body is the result.
func (b *Backend) Execute(ctx context.Context, args map[string]any) (any, error) {
	raw, err := b.post(ctx, args)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, domain.WrapError(domain.CodeExternalCall, err, "malformed tool response from %s", b.opts.URL)
	}
	if m, ok := out.(map[string]any); ok {
		if result, ok := m["result"]; ok {
			return result, nil
		}
	}
	return out, nil
}

// Search implements ports.DataSource against endpoints returning
// {"results": [{"ref","snippet","score"}]}.
func (b *Backend) Search(ctx context.Context, query string, limit int) ([]domain.Citation, error) {
	raw, err := b.post(ctx, map[string]any{"query": query, "limit": limit})
	if err != nil {
		return nil, err
	}
	var body struct {
		Results []struct {
			Ref     string  `json:"ref"`
			Snippet string  `json:"snippet"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, domain.WrapError(domain.CodeExternalCall, err, "malformed search response from %s", b.opts.URL)
	}
	citations := make([]domain.Citation, 0, len(body.Results))
	for _, r := range body.Results {
		citations = append(citations, domain.Citation{
			Source:  b.opts.URL,
			Ref:     r.Ref,
			Snippet: r.Snippet,
			Score:   r.Score,
		})
	}
	return citations, nil
}

func (b *Backend) post(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("httpagent: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opts.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpagent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.opts.APIKey)
	}
	for k, v := range b.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		// Timeouts and connection faults are worth retrying.
		return nil, domain.WrapError(domain.CodeExternalCall, err, "call %s", b.opts.URL).AsTransient()
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.WrapError(domain.CodeExternalCall, err, "read response from %s", b.opts.URL).AsTransient()
	}
	if resp.StatusCode >= 500 {
		return nil, domain.NewError(domain.CodeExternalCall, "%s returned status %d", b.opts.URL, resp.StatusCode).AsTransient()
	}
	if resp.StatusCode >= 300 {
		return nil, domain.NewError(domain.CodeExternalCall, "%s returned status %d", b.opts.URL, resp.StatusCode)
	}
	return data, nil
}

// normalize folds the answer shapes seen in the wild into ModelResponse:
// the answer under "answer", "output", "text" or "message" (string or
// {"content": ...}), tool calls under "tool_calls" with "args" or
// "arguments".
func normalize(raw []byte) (*ports.ModelResponse, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, domain.WrapError(domain.CodeExternalCall, err, "malformed agent response")
	}

	out := &ports.ModelResponse{}
	for _, key := range []string{"answer", "output", "text", "message"} {
		v, ok := body[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			out.Text = t
		case map[string]any:
			if content, ok := t["content"].(string); ok {
				out.Text = content
			}
		}
		if out.Text != "" {
			break
		}
	}

	calls, _ := body["tool_calls"].([]any)
	for i, c := range calls {
		call, ok := c.(map[string]any)
		if !ok {
			continue
		}
		req := domain.ToolRequest{}
		req.ID, _ = call["id"].(string)
		if req.ID == "" {
			req.ID = fmt.Sprintf("call-%d", i)
		}
		req.Name, _ = call["name"].(string)
		if req.Name == "" {
			continue
		}
		switch args := call["args"].(type) {
		case map[string]any:
			req.Args = args
		default:
			if args, ok := call["arguments"].(map[string]any); ok {
				req.Args = args
			} else if s, ok := call["arguments"].(string); ok && s != "" {
				var parsed map[string]any
				if json.Unmarshal([]byte(s), &parsed) == nil {
					req.Args = parsed
				}
			}
		}
		out.ToolCalls = append(out.ToolCalls, req)
	}

	if usage, ok := body["usage"].(map[string]any); ok {
		out.Usage = domain.TokenUsage{
			Prompt:     intField(usage, "prompt_tokens"),
			Completion: intField(usage, "completion_tokens"),
			Total:      intField(usage, "total_tokens"),
		}
	}

	if out.Text == "" && len(out.ToolCalls) == 0 {
		return nil, domain.NewError(domain.CodeExternalCall, "agent response carries neither answer nor tool calls")
	}
	return out, nil
}

func intField(m map[string]any, key string) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return 0
}
