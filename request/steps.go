package request

import (
	"gyreclient/generation"
)

// Build validates the parameters and assembles the full request message.
// Validation failures abort before any prompt is built; a returned
// request is complete and ready to submit.
func Build(p Params) (*generation.Request, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	prompts, err := buildPrompts(p)
	if err != nil {
		return nil, err
	}

	step, err := buildStep(p, prompts)
	if err != nil {
		return nil, err
	}

	sampler := p.Sampler
	image := &generation.ImageParameters{
		Transform:  &generation.TransformType{Diffusion: &sampler},
		Height:     p.Height,
		Width:      p.Width,
		Seed:       ResolveSeeds(p.Seeds),
		Steps:      p.Steps,
		Samples:    p.Samples,
		Parameters: []*generation.StepParameter{step},
		Hires:      buildHires(p),
		Tiling:     p.Tiling,
	}

	return &generation.Request{
		EngineID:  p.EngineID,
		RequestID: p.RequestID,
		Prompt:    prompts,
		Image:     image,
	}, nil
}

// buildStep assembles the single step parameter block this client emits.
func buildStep(p Params, prompts []*generation.Prompt) (*generation.StepParameter, error) {
	guidance, err := buildGuidance(p, prompts)
	if err != nil {
		return nil, err
	}
	return &generation.StepParameter{
		ScaledStep: 0,
		Sampler:    buildSampler(p),
		Schedule:   buildSchedule(p),
		Guidance:   guidance,
	}, nil
}

// buildSampler always includes cfg_scale; everything else is carried
// only when supplied. The sigma container is always present, even empty.
func buildSampler(p Params) *generation.SamplerParameters {
	return &generation.SamplerParameters{
		CfgScale:  p.CfgScale,
		Eta:       p.Eta,
		NoiseType: p.NoiseType,
		Churn:     buildChurn(p),
		Sigma:     buildSigma(p),
	}
}

// buildChurn returns nil unless a churn value was supplied; tmin/tmax
// only ride along with it.
func buildChurn(p Params) *generation.ChurnSettings {
	if p.Churn == nil {
		return nil
	}
	return &generation.ChurnSettings{
		Churn:     *p.Churn,
		ChurnTmin: p.ChurnTmin,
		ChurnTmax: p.ChurnTmax,
	}
}

func buildSigma(p Params) *generation.SigmaParameters {
	return &generation.SigmaParameters{
		SigmaMin:  p.SigmaMin,
		SigmaMax:  p.SigmaMax,
		KarrasRho: p.KarrasRho,
	}
}

// buildSchedule exists only alongside an init image. Sending a schedule
// without one degrades output quality in the service, so the block is
// omitted, not zeroed.
func buildSchedule(p Params) *generation.ScheduleParameters {
	if p.InitImage == nil {
		return nil
	}
	return &generation.ScheduleParameters{
		Start: p.StartSchedule,
		End:   p.EndSchedule,
	}
}

// buildGuidance gates on a non-default preset or an explicit strength.
// The single instance's prompt defaults to the first assembled prompt
// when the caller gave none.
func buildGuidance(p Params, prompts []*generation.Prompt) (*generation.GuidanceParameters, error) {
	if p.GuidancePreset == generation.GuidancePresetNone && p.GuidanceStrength == nil {
		return nil, nil
	}

	var models []*generation.Model
	for _, alias := range p.GuidanceModels {
		models = append(models, &generation.Model{Alias: alias})
	}

	var cutouts *generation.CutoutParameters
	if p.GuidanceCuts > 0 {
		cutouts = &generation.CutoutParameters{Count: p.GuidanceCuts}
	}

	var prompt *generation.Prompt
	if p.GuidancePrompt != nil {
		resolved, err := p.GuidancePrompt.resolve()
		if err != nil {
			return nil, err
		}
		prompt = resolved
	} else if len(prompts) > 0 {
		prompt = prompts[0]
	}

	return &generation.GuidanceParameters{
		GuidancePreset: p.GuidancePreset,
		Instances: []*generation.GuidanceInstanceParameters{
			{
				GuidanceStrength: p.GuidanceStrength,
				Models:           models,
				Cutouts:          cutouts,
				Prompt:           prompt,
			},
		},
	}, nil
}

// buildHires forces enable on when only an out-of-square fraction was
// given, and omits the block entirely when neither field is set.
func buildHires(p Params) *generation.HiresFixParameters {
	enable := p.HiresFix
	if enable == nil && p.HiresOosFraction != nil {
		on := true
		enable = &on
	}
	if enable == nil {
		return nil
	}
	return &generation.HiresFixParameters{
		Enable:      *enable,
		OosFraction: p.HiresOosFraction,
	}
}
