// Package generation defines the wire-level message schema of the Gyre
// generation service as consumed by this client.
//
// The schema is externally defined; this package only models it. Message
// structs mirror the service's nested request/response shapes, and the
// JSON tags define the optional-field omission contract: a nil pointer
// block is never sent, a present block carries exactly the fields that
// were supplied.
package generation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidArgument is the sentinel for all synchronous input errors:
// unknown enum names, malformed prompt inputs, and precondition
// violations. It is always raised before any network call.
var ErrInvalidArgument = errors.New("generation: invalid argument")

// DiffusionSampler selects the sampling algorithm used by the service.
type DiffusionSampler int32

const (
	SamplerDDIM               DiffusionSampler = 0
	SamplerDDPM               DiffusionSampler = 1
	SamplerKEuler             DiffusionSampler = 2
	SamplerKEulerAncestral    DiffusionSampler = 3
	SamplerKHeun              DiffusionSampler = 4
	SamplerKDPM2              DiffusionSampler = 5
	SamplerKDPM2Ancestral     DiffusionSampler = 6
	SamplerKLMS               DiffusionSampler = 7
	SamplerDPMFast            DiffusionSampler = 8
	SamplerDPMAdaptive        DiffusionSampler = 9
	SamplerDPMSolverPP1Order  DiffusionSampler = 10
	SamplerDPMSolverPP2Order  DiffusionSampler = 11
	SamplerDPMSolverPP3Order  DiffusionSampler = 12
	SamplerDPMSolverPP2SAnc   DiffusionSampler = 13
	SamplerDPMSolverPPSDE     DiffusionSampler = 14
	SamplerDPMSolverPP2M      DiffusionSampler = 15
)

// samplers maps CLI-facing names onto the sampler enum.
var samplers = map[string]DiffusionSampler{
	"ddim":                SamplerDDIM,
	"plms":                SamplerDDPM,
	"k_euler":             SamplerKEuler,
	"k_euler_ancestral":   SamplerKEulerAncestral,
	"k_heun":              SamplerKHeun,
	"k_dpm_2":             SamplerKDPM2,
	"k_dpm_2_ancestral":   SamplerKDPM2Ancestral,
	"k_lms":               SamplerKLMS,
	"dpm_fast":            SamplerDPMFast,
	"dpm_adaptive":        SamplerDPMAdaptive,
	"dpmspp_1":            SamplerDPMSolverPP1Order,
	"dpmspp_2":            SamplerDPMSolverPP2Order,
	"dpmspp_3":            SamplerDPMSolverPP3Order,
	"dpmspp_2s_ancestral": SamplerDPMSolverPP2SAnc,
	"dpmspp_sde":          SamplerDPMSolverPPSDE,
	"dpmspp_2m":           SamplerDPMSolverPP2M,
}

// SamplerFromString resolves a sampler name (case-insensitive, surrounding
// whitespace ignored) to its enum value. Unknown names fail with
// ErrInvalidArgument.
func SamplerFromString(s string) (DiffusionSampler, error) {
	sampler, ok := samplers[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown sampler %q", ErrInvalidArgument, s)
	}
	return sampler, nil
}

// SamplerNames returns the known sampler names for help text.
func SamplerNames() []string {
	return sortedKeys(samplers)
}

// NoiseType selects the sampler noise source.
type NoiseType int32

const (
	NoiseNormal   NoiseType = 0
	NoiseBrownian NoiseType = 1
)

var noiseTypes = map[string]NoiseType{
	"normal":   NoiseNormal,
	"brownian": NoiseBrownian,
}

// NoiseTypeFromString resolves a noise type name to its enum value.
// Unknown names fail with ErrInvalidArgument.
func NoiseTypeFromString(s string) (NoiseType, error) {
	nt, ok := noiseTypes[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown noise type %q", ErrInvalidArgument, s)
	}
	return nt, nil
}

// NoiseTypeNames returns the known noise type names for help text.
func NoiseTypeNames() []string {
	return sortedKeys(noiseTypes)
}

// ArtifactType tags the payload carried by an Artifact.
type ArtifactType int32

const (
	ArtifactNone            ArtifactType = 0
	ArtifactImage           ArtifactType = 1
	ArtifactVideo           ArtifactType = 2
	ArtifactText            ArtifactType = 3
	ArtifactTokens          ArtifactType = 4
	ArtifactEmbedding       ArtifactType = 5
	ArtifactClassifications ArtifactType = 6
	ArtifactMask            ArtifactType = 7
	ArtifactLatent          ArtifactType = 8
	ArtifactTensor          ArtifactType = 9
	ArtifactDepth           ArtifactType = 10
	ArtifactLora            ArtifactType = 11
)

// String returns the schema name of the artifact type, used in verbose
// logging of received artifacts.
func (t ArtifactType) String() string {
	switch t {
	case ArtifactNone:
		return "ARTIFACT_NONE"
	case ArtifactImage:
		return "ARTIFACT_IMAGE"
	case ArtifactVideo:
		return "ARTIFACT_VIDEO"
	case ArtifactText:
		return "ARTIFACT_TEXT"
	case ArtifactTokens:
		return "ARTIFACT_TOKENS"
	case ArtifactEmbedding:
		return "ARTIFACT_EMBEDDING"
	case ArtifactClassifications:
		return "ARTIFACT_CLASSIFICATIONS"
	case ArtifactMask:
		return "ARTIFACT_MASK"
	case ArtifactLatent:
		return "ARTIFACT_LATENT"
	case ArtifactTensor:
		return "ARTIFACT_TENSOR"
	case ArtifactDepth:
		return "ARTIFACT_DEPTH"
	case ArtifactLora:
		return "ARTIFACT_LORA"
	default:
		return fmt.Sprintf("ARTIFACT_UNKNOWN(%d)", int32(t))
	}
}

// GuidancePreset selects a classifier guidance preset.
type GuidancePreset int32

const (
	GuidancePresetNone      GuidancePreset = 0
	GuidancePresetSimple    GuidancePreset = 1
	GuidancePresetFastBlue  GuidancePreset = 2
	GuidancePresetFastGreen GuidancePreset = 3
	GuidancePresetSlow      GuidancePreset = 4
	GuidancePresetSlower    GuidancePreset = 5
	GuidancePresetSlowest   GuidancePreset = 6
)

// FinishReason reports why the service stopped producing an artifact.
type FinishReason int32

const (
	FinishNull   FinishReason = 0
	FinishLength FinishReason = 1
	FinishStop   FinishReason = 2
	FinishError  FinishReason = 3
	// FinishFilter marks an artifact flagged by the service's content
	// moderation. The client reports it but does not block persistence.
	FinishFilter FinishReason = 4
)

// Channel names one source channel in a channel-remap adjustment.
type Channel int32

const (
	ChannelR       Channel = 0
	ChannelG       Channel = 1
	ChannelB       Channel = 2
	ChannelA       Channel = 3
	ChannelDiscard Channel = 4
)

// ArtifactStage selects the point in the server pipeline a reference
// resolves at.
type ArtifactStage int32

const (
	StageBeforeAdjustments ArtifactStage = 0
	StageAfterAdjustments  ArtifactStage = 1
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
