package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

// Template is a Go-template prompt with optional fixed variables.
type Template struct {
	text     string
	inputs   []string
	partials map[string]any
}

func NewTemplate(text string, inputs ...string) Template {
	return Template{text: text, inputs: inputs}
}

// WithPartials returns a copy of t with the given variables bound.
func (t Template) WithPartials(partials map[string]any) Template {
	merged := make(map[string]any, len(t.partials)+len(partials))
	for k, v := range t.partials {
		merged[k] = v
	}
	for k, v := range partials {
		merged[k] = v
	}
	t.partials = merged
	return t
}

func (t Template) Render(values map[string]any) (string, error) {
	tmpl := prompts.NewPromptTemplate(t.text, t.inputs)
	tmpl.PartialVariables = t.partials

	out, err := tmpl.Format(values)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return out, nil
}
