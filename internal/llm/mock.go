package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator provides deterministic local replies when no real backend
// is configured, and doubles as the test stub.
type MockGenerator struct {
	Reply   string
	Err     error
	Fn      func(prompt string) (string, error)
	Prompts []string
}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (g *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	g.Prompts = append(g.Prompts, prompt)
	if g.Fn != nil {
		return g.Fn(prompt)
	}
	if g.Err != nil {
		return "", g.Err
	}
	if g.Reply != "" {
		return g.Reply, nil
	}
	return fmt.Sprintf("I heard you: %s", lastUserLine(prompt)), nil
}

func (g *MockGenerator) Model() string { return "mock" }

func lastUserLine(prompt string) string {
	lines := strings.Split(prompt, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(lines[i]), "User: "); ok {
			return rest
		}
	}
	return strings.TrimSpace(prompt)
}
