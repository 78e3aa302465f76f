package request

import (
	"fmt"

	"gyreclient/generation"
)

type promptKind int

const (
	promptInvalid promptKind = iota
	promptText
	promptStructured
)

// PromptInput is one caller-supplied prompt: plain text, or a prebuilt
// wire prompt. The zero value is invalid and fails normalization with
// ErrInvalidArgument.
type PromptInput struct {
	kind   promptKind
	text   string
	prompt *generation.Prompt
}

// Text wraps a plain text prompt.
func Text(s string) PromptInput {
	return PromptInput{kind: promptText, text: s}
}

// Structured wraps a prebuilt wire prompt.
func Structured(p *generation.Prompt) PromptInput {
	return PromptInput{kind: promptStructured, prompt: p}
}

// resolve converts the input to its canonical wire form.
func (p PromptInput) resolve() (*generation.Prompt, error) {
	switch p.kind {
	case promptText:
		return &generation.Prompt{Text: p.text}, nil
	case promptStructured:
		if p.prompt == nil {
			return nil, fmt.Errorf("%w: structured prompt must not be nil", generation.ErrInvalidArgument)
		}
		return p.prompt, nil
	default:
		return nil, fmt.Errorf("%w: prompt must be text or a structured prompt", generation.ErrInvalidArgument)
	}
}

// normalizePrompts resolves every input to the canonical wire form,
// preserving order.
func normalizePrompts(inputs []PromptInput) ([]*generation.Prompt, error) {
	prompts := make([]*generation.Prompt, 0, len(inputs))
	for i, in := range inputs {
		p, err := in.resolve()
		if err != nil {
			return nil, fmt.Errorf("prompt %d: %w", i, err)
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}
