package llm

import (
	"context"
	"fmt"
	"strings"
)

// disabledGenerator stands in when no LLM backend credentials are present.
// Every call fails with ErrNotConfigured so the pipeline degrades in-band
// and the single-shot endpoints answer 500.
type disabledGenerator struct {
	model string
}

func NewDisabledGenerator(model string) Generator {
	if strings.TrimSpace(model) == "" {
		model = "gemini-1.5-flash"
	}
	return &disabledGenerator{model: model}
}

func (g *disabledGenerator) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("%s: %w", g.model, ErrNotConfigured)
}

func (g *disabledGenerator) Model() string { return g.model }
