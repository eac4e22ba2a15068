// Package openai implements ports.ModelBackend over the OpenAI Chat
// Completions API, adapting the orchestrator's normalized request and
// response structures onto the SDK's message format.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

// Options configure the adapter. Fields mirror a minimal subset of the
// Chat Completion parameters.
type Options struct {
	Model               string  `mapstructure:"model"`
	Temperature         float64 `mapstructure:"temperature"`
	MaxCompletionTokens int64   `mapstructure:"max_completion_tokens"`
	APIKey              string  `mapstructure:"api_key"`
	BaseURL             string  `mapstructure:"base_url"`
}

// Backend wraps the OpenAI client behind ports.ModelBackend.
type Backend struct {
	client *openai.Client
	opts   Options
}

func defaults() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
}

// New creates a backend with its own client.
func New(optFns ...func(o *Options)) *Backend {
	opts := defaults()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(clientOpts...)
	return &Backend{client: &client, opts: opts}
}

// NewFromClient creates a backend over an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Backend {
	opts := defaults()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{client: client, opts: opts}
}

// Generate implements ports.ModelBackend.
func (b *Backend) Generate(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               b.opts.Model,
		Temperature:         openai.Float(b.opts.Temperature),
		MaxCompletionTokens: openai.Int(b.opts.MaxCompletionTokens),
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		// The SDK retries some faults itself; anything surfacing here is
		// still worth one more round at the node's retry policy.
		return nil, domain.WrapError(domain.CodeExternalCall, err, "openai api error").AsTransient()
	}
	if len(resp.Choices) == 0 {
		return nil, domain.NewError(domain.CodeExternalCall, "openai returned no choices")
	}

	choice := resp.Choices[0]
	out := &ports.ModelResponse{
		Text: choice.Message.Content,
		Usage: domain.TokenUsage{
			Prompt:     int(resp.Usage.PromptTokens),
			Completion: int(resp.Usage.CompletionTokens),
			Total:      int(resp.Usage.TotalTokens),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		call := domain.ToolRequest{ID: tc.ID, Name: tc.Function.Name}
		if tc.Function.Arguments != "" {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err == nil {
				call.Args = args
			}
		}
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out, nil
}

// buildMessages converts the normalized request into chat messages:
// system prompt, plan and grounding context folded into the system turn,
// then history and the user input.
func buildMessages(req ports.ModelRequest) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if system := composeSystem(req); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, turn := range req.History {
		switch turn.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(turn.Text))
		default:
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}
	messages = append(messages, openai.UserMessage(req.Input))
	return messages
}

func composeSystem(req ports.ModelRequest) string {
	system := req.System
	if len(req.Plan) > 0 {
		system += "\n\nWork through these steps in order:"
		for _, step := range req.Plan {
			system += fmt.Sprintf("\n%d. %s", step.Seq, step.Description)
		}
	}
	if len(req.Grounding) > 0 {
		system += "\n\nGround the answer in these retrieved facts:"
		for _, c := range req.Grounding {
			system += fmt.Sprintf("\n- [%s] %s", c.Ref, c.Snippet)
		}
	}
	return system
}
