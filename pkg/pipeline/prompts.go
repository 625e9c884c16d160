package pipeline

import (
	"fmt"
	"strings"

	"github.com/darkrai19/ai-powered-analyst/pkg/pipeline/prompts"
)

// Prompts contains all the pipeline prompts loaded from embedded files.
type Prompts struct {
	Plan    string // Prompt for SQL + transform planning
	Narrate string // Prompt for insight narration
	Chart   string // Prompt for chart code generation
}

// LoadPrompts loads all prompts from the embedded filesystem.
func LoadPrompts() (*Prompts, error) {
	p := &Prompts{}

	var err error
	if p.Plan, err = loadPrompt("PLAN.md"); err != nil {
		return nil, fmt.Errorf("failed to load PLAN: %w", err)
	}
	if p.Narrate, err = loadPrompt("NARRATE.md"); err != nil {
		return nil, fmt.Errorf("failed to load NARRATE: %w", err)
	}
	if p.Chart, err = loadPrompt("CHART.md"); err != nil {
		return nil, fmt.Errorf("failed to load CHART: %w", err)
	}

	return p, nil
}

func loadPrompt(path string) (string, error) {
	data, err := prompts.PromptsFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
