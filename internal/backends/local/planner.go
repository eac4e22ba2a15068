package local

import (
	"context"
	"strings"

	"github.com/arborflow/arbor/pkg/domain"
)

// SplitPlanner decomposes input into ordered steps by splitting on a
// delimiter phrase (default "then"). A request with no delimiter yields a
// single step equal to the input.
type SplitPlanner struct {
	delimiter string
}

// NewSplitPlanner creates a planner splitting on the given phrase.
func NewSplitPlanner(delimiter string) *SplitPlanner {
	if delimiter == "" {
		delimiter = "then"
	}
	return &SplitPlanner{delimiter: delimiter}
}

// Plan implements ports.PlannerBackend.
func (p *SplitPlanner) Plan(ctx context.Context, input string) ([]domain.PlanStep, error) {
	parts := strings.Split(input, " "+p.delimiter+" ")
	steps := make([]domain.PlanStep, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(strings.Trim(part, ",;."))
		if part == "" {
			continue
		}
		steps = append(steps, domain.PlanStep{Seq: len(steps) + 1, Description: part})
	}
	if len(steps) == 0 {
		steps = append(steps, domain.PlanStep{Seq: 1, Description: strings.TrimSpace(input)})
	}
	return steps, nil
}
