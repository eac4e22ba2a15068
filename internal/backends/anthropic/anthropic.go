// Package anthropic implements ports.ModelBackend over the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

// Options configure the adapter.
type Options struct {
	Model       anthropic.Model `mapstructure:"model"`
	Temperature float64         `mapstructure:"temperature"`
	MaxTokens   int64           `mapstructure:"max_tokens"`
	APIKey      string          `mapstructure:"api_key"`
}

// Backend wraps the Anthropic client behind ports.ModelBackend.
type Backend struct {
	client *anthropic.Client
	opts   Options
}

func defaults() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
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
	client := anthropic.NewClient(clientOpts...)
	return &Backend{client: &client, opts: opts}
}

// NewFromClient creates a backend over an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Backend {
	opts := defaults()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{client: client, opts: opts}
}

// Generate implements ports.ModelBackend.
func (b *Backend) Generate(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       b.opts.Model,
		Messages:    buildMessages(req),
		MaxTokens:   b.opts.MaxTokens,
		Temperature: anthropic.Float(b.opts.Temperature),
	}
	if system := composeSystem(req); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, domain.WrapError(domain.CodeExternalCall, err, "anthropic api error").AsTransient()
	}

	out := &ports.ModelResponse{
		Usage: domain.TokenUsage{
			Prompt:     int(resp.Usage.InputTokens),
			Completion: int(resp.Usage.OutputTokens),
			Total:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			call := domain.ToolRequest{ID: toolBlock.ID, Name: toolBlock.Name}
			if len(toolBlock.Input) > 0 {
				var args map[string]any
				if err := json.Unmarshal(toolBlock.Input, &args); err == nil {
					call.Args = args
				}
			}
			out.ToolCalls = append(out.ToolCalls, call)
		}
	}
	if out.Text == "" && len(out.ToolCalls) == 0 {
		return nil, domain.NewError(domain.CodeExternalCall, "anthropic returned no content")
	}
	return out, nil
}

func buildMessages(req ports.ModelRequest) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, turn := range req.History {
		block := anthropic.NewTextBlock(turn.Text)
		switch turn.Role {
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(block))
		default:
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Input)))
	return messages
}

func composeSystem(req ports.ModelRequest) string {
	system := req.System
	if len(req.Plan) > 0 {
		system += "\n\nWork through these steps in order:"
		for _, step := range req.Plan {
			system += "\n" + step.Description
		}
	}
	if len(req.Grounding) > 0 {
		system += "\n\nGround the answer in these retrieved facts:"
		for _, c := range req.Grounding {
			system += "\n- " + c.Snippet
		}
	}
	return system
}
