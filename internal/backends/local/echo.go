package local

import (
	"context"
	"fmt"

	"github.com/arborflow/arbor/pkg/ports"
)

// EchoModel is a deterministic ModelBackend for development and tests. It
// returns a canned response when one is registered for the exact input,
// otherwise a prefixed echo of the input.
type EchoModel struct {
	prefix    string
	responses map[string]string
}

// NewEchoModel creates an echo model with the given reply prefix.
func NewEchoModel(prefix string) *EchoModel {
	if prefix == "" {
		prefix = "echo: "
	}
	return &EchoModel{prefix: prefix, responses: map[string]string{}}
}

// AddResponse registers a canned completion for an exact input.
func (m *EchoModel) AddResponse(input, response string) {
	m.responses[input] = response
}

// Generate implements ports.ModelBackend.
func (m *EchoModel) Generate(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, ok := m.responses[req.Input]
	if !ok {
		text = fmt.Sprintf("%s%s", m.prefix, req.Input)
	}
	return &ports.ModelResponse{Text: text}, nil
}
