package request

import (
	"fmt"
	"image"

	"github.com/google/uuid"

	"gyreclient/generation"
	"gyreclient/imaging"
)

// negativeWeight inverts a text prompt's contribution. A convention, not
// a probability.
const negativeWeight = -1

// buildPrompts assembles the ordered prompt sequence. Order is
// load-bearing: the server resolves artifact references by scanning
// prompts in sequence and by UUID, and a mask or depth reference must
// follow the init-image prompt it points at.
func buildPrompts(p Params) ([]*generation.Prompt, error) {
	prompts, err := normalizePrompts(p.Prompts)
	if err != nil {
		return nil, err
	}

	if p.NegativePrompt != "" {
		prompts = append(prompts, &generation.Prompt{
			Text:       p.NegativePrompt,
			Parameters: &generation.PromptParameters{Weight: negativeWeight},
		})
	}

	if p.InitImage != nil {
		initPrompt, err := imageToPrompt(p.InitImage, generation.ArtifactImage, true)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, initPrompt)

		switch {
		case p.MaskImage != nil:
			maskPrompt, err := imageToPrompt(p.MaskImage, generation.ArtifactMask, false)
			if err != nil {
				return nil, err
			}
			prompts = append(prompts, maskPrompt)

		case p.MaskFromImageAlpha:
			prompts = append(prompts, alphaMaskPrompt(initPrompt.Artifact.UUID))
		}

		if p.DepthImage != nil {
			depthPrompt, err := imageToPrompt(p.DepthImage, generation.ArtifactDepth, false)
			if err != nil {
				return nil, err
			}
			prompts = append(prompts, depthPrompt)
		}

		if p.DepthFromImage {
			prompts = append(prompts, depthFromImagePrompt(initPrompt.Artifact.UUID))
		}
	}

	for _, spec := range p.Lora {
		loraPrompt, err := loraToPrompt(spec)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, loraPrompt)
	}

	return prompts, nil
}

// imageToPrompt encodes an image as an inline PNG artifact prompt with a
// freshly minted UUID. The UUID is referenceable within the same request
// only.
func imageToPrompt(im image.Image, artifactType generation.ArtifactType, init bool) (*generation.Prompt, error) {
	binary, err := imaging.EncodePNG(im)
	if err != nil {
		return nil, fmt.Errorf("encoding %v prompt: %w", artifactType, err)
	}

	prompt := &generation.Prompt{
		Artifact: &generation.Artifact{
			Type:   artifactType,
			UUID:   uuid.NewString(),
			Binary: binary,
		},
	}
	if init {
		prompt.Parameters = &generation.PromptParameters{Init: true}
	}
	return prompt, nil
}

// refToPrompt builds a prompt referencing another prompt's artifact
// after its adjustments have been applied.
func refToPrompt(refUUID string, artifactType generation.ArtifactType) *generation.Prompt {
	return &generation.Prompt{
		Artifact: &generation.Artifact{
			Type: artifactType,
			Ref: &generation.ArtifactReference{
				UUID:  refUUID,
				Stage: generation.StageAfterAdjustments,
			},
		},
	}
}

// alphaMaskPrompt synthesizes a mask from the init image's alpha channel
// server-side: replicate alpha into the color channels, then invert.
// The adjustment order matters.
func alphaMaskPrompt(initUUID string) *generation.Prompt {
	mask := refToPrompt(initUUID, generation.ArtifactMask)
	mask.Artifact.Adjustments = []*generation.ImageAdjustment{
		{
			Channels: &generation.ImageAdjustmentChannels{
				R: generation.ChannelA,
				G: generation.ChannelA,
				B: generation.ChannelA,
				A: generation.ChannelDiscard,
			},
		},
		{
			Invert: &generation.ImageAdjustmentInvert{},
		},
	}
	return mask
}

// depthFromImagePrompt asks the server to infer a depth map from the
// init image.
func depthFromImagePrompt(initUUID string) *generation.Prompt {
	depth := refToPrompt(initUUID, generation.ArtifactDepth)
	depth.Artifact.Adjustments = []*generation.ImageAdjustment{
		{Depth: &generation.ImageAdjustmentDepth{}},
	}
	return depth
}
