package generation

// Request is the top-level message submitted to the service. Prompt order
// is semantically meaningful: later entries may reference earlier ones by
// artifact UUID.
type Request struct {
	EngineID  string           `json:"engine_id"`
	RequestID string           `json:"request_id"`
	Prompt    []*Prompt        `json:"prompt,omitempty"`
	Image     *ImageParameters `json:"image,omitempty"`
}

// Prompt is one input element to generation: weighted text, or an
// artifact carried inline or by reference.
type Prompt struct {
	Text       string            `json:"text,omitempty"`
	Artifact   *Artifact         `json:"artifact,omitempty"`
	Parameters *PromptParameters `json:"parameters,omitempty"`
}

// PromptParameters qualify a prompt entry. Weight -1 inverts the text's
// semantic contribution (the negative prompt convention); Init marks the
// initialization image.
type PromptParameters struct {
	Init   bool    `json:"init,omitempty"`
	Weight float64 `json:"weight,omitempty"`
}

// Artifact is one unit of content exchanged with the service, tagged by
// Type. Exactly one payload field is populated.
type Artifact struct {
	Type         ArtifactType          `json:"type"`
	UUID         string                `json:"uuid,omitempty"`
	Mime         string                `json:"mime,omitempty"`
	Binary       []byte                `json:"binary,omitempty"`
	Text         string                `json:"text,omitempty"`
	Classifier   *ClassifierParameters `json:"classifier,omitempty"`
	Lora         *Lora                 `json:"lora,omitempty"`
	Ref          *ArtifactReference    `json:"ref,omitempty"`
	Adjustments  []*ImageAdjustment    `json:"adjustments,omitempty"`
	Index        uint32                `json:"index,omitempty"`
	Seed         uint32                `json:"seed,omitempty"`
	FinishReason FinishReason          `json:"finish_reason,omitempty"`
}

// ArtifactReference points at another prompt's artifact by UUID within
// the same request. Cross-request references are not resolvable.
type ArtifactReference struct {
	UUID  string        `json:"uuid"`
	Stage ArtifactStage `json:"stage,omitempty"`
}

// ImageAdjustment is a server-side transform applied to a referenced
// artifact. Exactly one variant is set.
type ImageAdjustment struct {
	Channels *ImageAdjustmentChannels `json:"channels,omitempty"`
	Invert   *ImageAdjustmentInvert   `json:"invert,omitempty"`
	Depth    *ImageAdjustmentDepth    `json:"depth,omitempty"`
}

// ImageAdjustmentChannels remaps the source channels of an image.
type ImageAdjustmentChannels struct {
	R Channel `json:"r"`
	G Channel `json:"g"`
	B Channel `json:"b"`
	A Channel `json:"a"`
}

// ImageAdjustmentInvert inverts the image.
type ImageAdjustmentInvert struct{}

// ImageAdjustmentDepth infers a depth map from the image.
type ImageAdjustmentDepth struct{}

// Lora carries a supplementary weight-delta payload plus per-model
// application weights.
type Lora struct {
	Lora    *Safetensors  `json:"lora,omitempty"`
	Weights []*LoraWeight `json:"weights,omitempty"`
}

// LoraWeight scales a LoRA's effect on one named model.
type LoraWeight struct {
	ModelName string  `json:"model_name"`
	Weight    float64 `json:"weight"`
}

// Safetensors is the serialized form of a tensor archive.
type Safetensors struct {
	Metadata map[string]string `json:"metadata,omitempty"`
	Tensors  []*Tensor         `json:"tensors,omitempty"`
}

// Tensor is one named tensor within a Safetensors bundle.
type Tensor struct {
	Name  string   `json:"name"`
	Dtype string   `json:"dtype"`
	Shape []uint64 `json:"shape"`
	Data  []byte   `json:"data"`
}

// ClassifierParameters is the structured result of a content classifier.
type ClassifierParameters struct {
	Categories     []*ClassifierCategory `json:"categories,omitempty"`
	Exceeds        []*ClassifierCategory `json:"exceeds,omitempty"`
	RealizedAction *int32                `json:"realized_action,omitempty"`
}

// ClassifierCategory is one scored classifier category.
type ClassifierCategory struct {
	Name     string               `json:"name"`
	Concepts []*ClassifierConcept `json:"concepts,omitempty"`
}

// ClassifierConcept is one concept score within a category.
type ClassifierConcept struct {
	Concept   string  `json:"concept"`
	Threshold float64 `json:"threshold,omitempty"`
}

// ImageParameters configure one image generation pass.
type ImageParameters struct {
	Transform  *TransformType      `json:"transform,omitempty"`
	Height     uint32              `json:"height,omitempty"`
	Width      uint32              `json:"width,omitempty"`
	Seed       []uint32            `json:"seed,omitempty"`
	Steps      uint32              `json:"steps,omitempty"`
	Samples    uint32              `json:"samples,omitempty"`
	Parameters []*StepParameter    `json:"parameters,omitempty"`
	Hires      *HiresFixParameters `json:"hires,omitempty"`
	Tiling     bool                `json:"tiling,omitempty"`
}

// TransformType selects the diffusion sampler. A pointer field because
// the zero enum value (ddim) is a valid explicit choice.
type TransformType struct {
	Diffusion *DiffusionSampler `json:"diffusion,omitempty"`
}

// StepParameter is the container for the optional per-step sub-blocks.
// Absent blocks are nil and never serialized.
type StepParameter struct {
	ScaledStep float64             `json:"scaled_step"`
	Sampler    *SamplerParameters  `json:"sampler,omitempty"`
	Schedule   *ScheduleParameters `json:"schedule,omitempty"`
	Guidance   *GuidanceParameters `json:"guidance,omitempty"`
}

// SamplerParameters tune the sampler. CfgScale is always present; all
// other fields are carried only when supplied. Sigma is always present,
// even when empty: the protocol treats the sigma container differently
// from churn, and that asymmetry is preserved here.
type SamplerParameters struct {
	CfgScale  float64          `json:"cfg_scale"`
	Eta       *float64         `json:"eta,omitempty"`
	NoiseType *NoiseType       `json:"noise_type,omitempty"`
	Churn     *ChurnSettings   `json:"churn,omitempty"`
	Sigma     *SigmaParameters `json:"sigma"`
}

// ChurnSettings tune stochastic churn for the Karras-family samplers.
type ChurnSettings struct {
	Churn     float64  `json:"churn"`
	ChurnTmin *float64 `json:"churn_tmin,omitempty"`
	ChurnTmax *float64 `json:"churn_tmax,omitempty"`
}

// SigmaParameters tune the sigma schedule.
type SigmaParameters struct {
	SigmaMin  *float64 `json:"sigma_min,omitempty"`
	SigmaMax  *float64 `json:"sigma_max,omitempty"`
	KarrasRho *float64 `json:"karras_rho,omitempty"`
}

// ScheduleParameters set the init-image strength schedule. Sending a
// schedule without an init image degrades output quality, so the block
// only exists when an init image does.
type ScheduleParameters struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// GuidanceParameters configure classifier guidance.
type GuidanceParameters struct {
	GuidancePreset GuidancePreset                `json:"guidance_preset"`
	Instances      []*GuidanceInstanceParameters `json:"instances,omitempty"`
}

// GuidanceInstanceParameters configure one guidance instance.
type GuidanceInstanceParameters struct {
	GuidanceStrength *float64          `json:"guidance_strength,omitempty"`
	Models           []*Model          `json:"models,omitempty"`
	Cutouts          *CutoutParameters `json:"cutouts,omitempty"`
	Prompt           *Prompt           `json:"prompt,omitempty"`
}

// Model names one guidance model by alias.
type Model struct {
	Alias string `json:"alias"`
}

// CutoutParameters set the guidance cutout count.
type CutoutParameters struct {
	Count uint32 `json:"count"`
}

// HiresFixParameters enable higher-than-native resolution handling.
type HiresFixParameters struct {
	Enable      bool     `json:"enable"`
	OosFraction *float64 `json:"oos_fraction,omitempty"`
}

// Answer is one unit of the response stream. An answer with no artifacts
// is a keep-alive.
type Answer struct {
	AnswerID  string      `json:"answer_id"`
	RequestID string      `json:"request_id"`
	Received  uint64      `json:"received,omitempty"`
	Created   uint64      `json:"created,omitempty"`
	Artifacts []*Artifact `json:"artifacts,omitempty"`
}

// AsyncHandle is the opaque handle returned by an async submission.
type AsyncHandle struct {
	RequestID   string `json:"request_id"`
	AsyncHandle string `json:"async_handle"`
}

// AsyncAnswer is one poll result: the answers produced since the last
// poll, plus the completion flag.
type AsyncAnswer struct {
	Answer   []*Answer `json:"answer,omitempty"`
	Complete bool      `json:"complete,omitempty"`
}

// AsyncCancelAnswer acknowledges an async cancel.
type AsyncCancelAnswer struct{}

// ListEnginesRequest asks the service for its available engines.
type ListEnginesRequest struct{}

// Engines is the engine listing response.
type Engines struct {
	Engine []*EngineInfo `json:"engine,omitempty"`
}

// EngineInfo describes one generation engine.
type EngineInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Ready       bool   `json:"ready,omitempty"`
	Type        string `json:"type,omitempty"`
}
