package request

import (
	"fmt"
	"strconv"
	"strings"

	"gyreclient/generation"
	"gyreclient/safetensors"
)

// Model names the per-model LoRA weights apply to, consumed in argument
// order: first the primary model, then the text encoder.
var loraModelNames = [...]string{"unet", "text_encoder"}

// LoraSpec is one LoRA attachment: a safetensors path plus up to two
// weight scalars. Weights beyond the second are ignored.
type LoraSpec struct {
	Path    string
	Weights []float64
}

// ParseLoraSpec parses the CLI form "path[:weight[:weight]]", e.g.
// "./lora.safetensors:0.5:0.5".
func ParseLoraSpec(s string) (LoraSpec, error) {
	parts := strings.Split(s, ":")
	if parts[0] == "" {
		return LoraSpec{}, fmt.Errorf("%w: lora spec %q has no path", generation.ErrInvalidArgument, s)
	}

	spec := LoraSpec{Path: parts[0]}
	for _, part := range parts[1:] {
		weight, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return LoraSpec{}, fmt.Errorf("%w: lora weight %q is not a number", generation.ErrInvalidArgument, part)
		}
		spec.Weights = append(spec.Weights, weight)
	}
	return spec, nil
}

// loraToPrompt reads the weights file and wraps it as a LoRA artifact
// prompt. Weight scalars beyond the known model names are silently
// dropped, matching the service client convention.
func loraToPrompt(spec LoraSpec) (*generation.Prompt, error) {
	file, err := safetensors.Open(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("reading lora %s: %w", spec.Path, err)
	}

	lora := &generation.Lora{Lora: file.Bundle()}
	for i, weight := range spec.Weights {
		if i >= len(loraModelNames) {
			break
		}
		lora.Weights = append(lora.Weights, &generation.LoraWeight{
			ModelName: loraModelNames[i],
			Weight:    weight,
		})
	}

	return &generation.Prompt{
		Artifact: &generation.Artifact{
			Type: generation.ArtifactLora,
			Lora: lora,
		},
	}, nil
}
