// Package request turns the flat, caller-facing generation parameters
// into the service's nested request message.
//
// Assembly is pure and synchronous: every optional sub-block is built by
// a function from sparse inputs to a possibly-nil block, and a nil block
// is never serialized. All validation happens here, before any network
// traffic.
package request

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"image"

	"gyreclient/generation"
)

// Params is the flat parameter set accepted by the client. The zero
// value is not useful; start from DefaultParams.
type Params struct {
	// Prompts are the caller's prompt inputs, in order. At least one
	// prompt or an init image is required.
	Prompts        []PromptInput
	NegativePrompt string

	InitImage          image.Image
	MaskImage          image.Image
	MaskFromImageAlpha bool
	DepthImage         image.Image
	DepthFromImage     bool

	Height uint32
	Width  uint32

	StartSchedule float64
	EndSchedule   float64

	CfgScale  float64
	Eta       *float64
	Churn     *float64
	ChurnTmin *float64
	ChurnTmax *float64
	SigmaMin  *float64
	SigmaMax  *float64
	KarrasRho *float64
	NoiseType *generation.NoiseType
	Sampler   generation.DiffusionSampler

	Steps   uint32
	Samples uint32

	// Seeds is the per-sample seed sequence. Empty means one random
	// seed is generated at build time.
	Seeds []uint32

	GuidancePreset   generation.GuidancePreset
	GuidanceCuts     uint32
	GuidanceStrength *float64
	GuidancePrompt   *PromptInput
	GuidanceModels   []string

	HiresFix         *bool
	HiresOosFraction *float64

	Tiling bool

	// Lora lists weight files to attach, in order.
	Lora []LoraSpec

	// Async selects the submit/poll protocol instead of streaming.
	Async bool

	// EngineID and RequestID override the client defaults when set.
	EngineID  string
	RequestID string
}

// DefaultParams returns Params with the service's documented defaults.
func DefaultParams() Params {
	return Params{
		Height:        512,
		Width:         512,
		StartSchedule: 1.0,
		EndSchedule:   0.01,
		CfgScale:      7.0,
		Sampler:       generation.SamplerKLMS,
		Steps:         50,
		Samples:       1,
	}
}

// validate checks the assembly preconditions. It runs before any prompt
// is built, so a failed request has no side effects.
func validate(p Params) error {
	if len(p.Prompts) == 0 && p.InitImage == nil {
		return fmt.Errorf("%w: prompt and/or init image must be provided", generation.ErrInvalidArgument)
	}
	if p.MaskImage != nil && p.InitImage == nil {
		return fmt.Errorf("%w: mask image requires an init image", generation.ErrInvalidArgument)
	}
	return nil
}

// ResolveSeeds normalizes the seed input: empty produces a single random
// seed, anything else passes through unchanged. The result is the final
// seed sequence for the request; it is never mutated afterwards.
func ResolveSeeds(seeds []uint32) []uint32 {
	if len(seeds) == 0 {
		return []uint32{RandomSeed()}
	}
	return seeds
}

// RandomSeed returns a uniformly random seed in [0, 2^32). Uses
// crypto/rand; on the (extremely rare) failure to read entropy it falls
// back to a fixed seed rather than aborting a generation.
func RandomSeed() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 42
	}
	return binary.LittleEndian.Uint32(buf[:])
}
