// Command gyreclient generates images against a Gyre/Stability
// compatible generation service: it assembles a generation request from
// CLI flags, submits it (streaming or async), and writes the returned
// artifacts to disk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gyreclient/artifacts"
	"gyreclient/client"
	"gyreclient/config"
	"gyreclient/generation"
	"gyreclient/imaging"
	"gyreclient/logging"
	"gyreclient/request"
	"gyreclient/shutdown"
	"gyreclient/transport"
)

// Exit codes. Cancellation is a success path: an interrupted generation
// exits 0 after the remote cancel is attempted.
const (
	exitSuccess = 0
	exitError   = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists. Use fmt here since the logger isn't
	// initialized yet.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}

	cfg := config.Load()

	var (
		configPath = flag.String("config", "", "optional YAML config file")
		engine     = flag.String("engine", cfg.Engine, "engine to use for inference")

		height = flag.Uint("height", 512, "height of image")
		width  = flag.Uint("width", 512, "width of image")

		startSchedule = flag.Float64("start_schedule", 0.5, "start schedule for init image (1 is full strength text prompt)")
		endSchedule   = flag.Float64("end_schedule", 0.01, "end schedule for init image")

		cfgScale    = flag.Float64("cfg_scale", 7.0, "CFG scale factor")
		samplerName = flag.String("sampler", "k_lms", "sampler ("+strings.Join(generation.SamplerNames(), ", ")+")")
		noiseName   = flag.String("noise_type", "normal", "sampler noise ("+strings.Join(generation.NoiseTypeNames(), ", ")+")")

		steps   = flag.Uint("steps", 50, "number of steps")
		samples = flag.Uint("num_samples", 1, "number of samples to generate")

		prefix  = flag.String("prefix", "generation_", "output prefix for artifacts")
		noStore = flag.Bool("no-store", false, "do not write out artifacts")

		initImagePath  = flag.String("init_image", "", "init image path")
		maskImagePath  = flag.String("mask_image", "", "mask image path")
		maskFromAlpha  = flag.Bool("mask_from_image_alpha", false, "derive the mask from the init image alpha channel")
		depthImagePath = flag.String("depth_image", "", "depth image path")
		depthFromImage = flag.Bool("depth_from_image", false, "infer the depth map from the init image")

		negativePrompt = flag.String("negative_prompt", "", "negative prompt")

		tiling      = flag.Bool("tiling", false, "produce a tileable result")
		listEngines = flag.Bool("list_engines", false, "list the engines available on the server")
		asAsync     = flag.Bool("as_async", false, "submit asynchronously and poll for results")

		eta              optFloat
		churn            optFloat
		churnTmin        optFloat
		churnTmax        optFloat
		sigmaMin         optFloat
		sigmaMax         optFloat
		karrasRho        optFloat
		guidanceStrength optFloat
		hiresFix         optBool
		hiresOos         optFloat
		loraSpecs        stringList
		seed             uint32Value
	)
	flag.Var(&seed, "seed", "random seed to use (0 picks one)")
	flag.Var(&eta, "eta", "ETA factor (for the DDIM sampler)")
	flag.Var(&churn, "churn", "churn factor (Euler, Heun, DPM2 samplers)")
	flag.Var(&churnTmin, "churn_tmin", "churn sigma minimum")
	flag.Var(&churnTmax, "churn_tmax", "churn sigma maximum")
	flag.Var(&sigmaMin, "sigma_min", "sigma minimum")
	flag.Var(&sigmaMax, "sigma_max", "sigma maximum")
	flag.Var(&karrasRho, "karras_rho", "use a Karras sigma schedule with this rho")
	flag.Var(&guidanceStrength, "guidance_strength", "CLIP guidance strength, 0..1 (0.25 is a good start)")
	flag.Var(&hiresFix, "hires_fix", "enable or disable the hires fix (true/false)")
	flag.Var(&hiresOos, "hires_oos_fraction", "0..1, out-of-square fraction for non-square hires fix")
	flag.Var(&loraSpecs, "lora", "add a safetensors LoRA: path[:unet_weight[:text_encoder_weight]] (repeatable)")
	flag.Parse()

	if *configPath != "" {
		if err := cfg.ApplyFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitError
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}

	// The -engine default was captured before the config file overlay;
	// an explicit flag still wins over the file.
	engineID := cfg.Engine
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "engine" {
			engineID = *engine
		}
	})

	log := logging.New(cfg.DevMode, cfg.LogFile)
	defer log.Sync()

	dialOpts := transport.Options{
		Host:         cfg.Host,
		Key:          cfg.Key,
		WaitForReady: cfg.WaitForReady,
	}
	if dialOpts.PlaintextWithKey() {
		color.Yellow("key provided but channel is not TLS - assuming a local network")
	}

	conn, err := transport.Dial(dialOpts)
	if err != nil {
		log.Error("dial failed", zap.Error(err))
		return exitError
	}
	defer conn.Close()

	cli := client.New(transport.NewService(conn), client.Config{
		Engine: engineID,
		Logger: log,
	})

	ctx := context.Background()

	if *listEngines {
		engines, err := cli.ListEngines(ctx)
		if err != nil {
			log.Error("list engines failed", zap.Error(err))
			return exitError
		}
		for _, e := range engines.Engine {
			fmt.Printf("%-40s ready=%-5t %s\n", e.ID, e.Ready, e.Description)
		}
		return exitSuccess
	}

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" && *initImagePath == "" {
		fmt.Fprintln(os.Stderr, "a prompt or an init image must be provided")
		flag.Usage()
		return exitError
	}

	params := request.DefaultParams()
	params.Height = uint32(*height)
	params.Width = uint32(*width)
	params.StartSchedule = *startSchedule
	params.EndSchedule = *endSchedule
	params.CfgScale = *cfgScale
	params.Steps = uint32(*steps)
	params.Samples = uint32(*samples)
	params.Tiling = *tiling
	params.Async = *asAsync
	params.EngineID = engineID
	if prompt != "" {
		params.Prompts = []request.PromptInput{request.Text(prompt)}
	}
	if *negativePrompt != "" {
		params.NegativePrompt = *negativePrompt
	}
	if seed != 0 {
		params.Seeds = []uint32{uint32(seed)}
	}

	params.Sampler, err = generation.SamplerFromString(*samplerName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	noise, err := generation.NoiseTypeFromString(*noiseName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	// Normal noise is the server default, so only non-default noise is
	// carried on the wire.
	if noise != generation.NoiseNormal {
		params.NoiseType = &noise
	}

	eta.assign(&params.Eta)
	churn.assign(&params.Churn)
	churnTmin.assign(&params.ChurnTmin)
	churnTmax.assign(&params.ChurnTmax)
	sigmaMin.assign(&params.SigmaMin)
	sigmaMax.assign(&params.SigmaMax)
	karrasRho.assign(&params.KarrasRho)
	guidanceStrength.assign(&params.GuidanceStrength)
	hiresFix.assign(&params.HiresFix)
	hiresOos.assign(&params.HiresOosFraction)

	if *initImagePath != "" {
		img, err := imaging.Load(*initImagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "init image: %v\n", err)
			return exitError
		}
		params.InitImage = img
	}
	if *maskImagePath != "" {
		img, err := imaging.Load(*maskImagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mask image: %v\n", err)
			return exitError
		}
		params.MaskImage = img
	}
	params.MaskFromImageAlpha = *maskFromAlpha
	if *depthImagePath != "" {
		img, err := imaging.Load(*depthImagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "depth image: %v\n", err)
			return exitError
		}
		params.DepthImage = img
	}
	params.DepthFromImage = *depthFromImage

	for _, spec := range loraSpecs {
		lora, err := request.ParseLoraSpec(spec)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitError
		}
		params.Lora = append(params.Lora, lora)
	}

	stream, err := cli.Generate(ctx, params)
	if err != nil {
		if errors.Is(err, generation.ErrInvalidArgument) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			log.Error("request failed", zap.Error(err))
		}
		return exitError
	}

	// First interrupt cancels the in-flight request and exits cleanly;
	// a second force-exits.
	stop := shutdown.OnInterrupt(func() {
		color.Yellow("cancelling")
		stream.Cancel()
		log.Sync()
		os.Exit(exitSuccess)
	})
	defer stop()

	outputs := artifacts.NewProcessor(*prefix, !*noStore, log).Outputs(stream)
	for {
		out, err := outputs.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return exitSuccess
			}
			log.Error("generation failed", zap.Error(err))
			return exitError
		}
		if out.Filtered {
			color.Yellow("%s was flagged by the service's content filter", out.Path)
		}
	}
}
