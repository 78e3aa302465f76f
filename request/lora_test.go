package request

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gyreclient/generation"
)

func TestParseLoraSpec(t *testing.T) {
	tests := []struct {
		spec        string
		wantPath    string
		wantWeights []float64
		wantErr     bool
	}{
		{spec: "lora.safetensors", wantPath: "lora.safetensors"},
		{spec: "lora.safetensors:0.8", wantPath: "lora.safetensors", wantWeights: []float64{0.8}},
		{spec: "lora.safetensors:0.8:0.2", wantPath: "lora.safetensors", wantWeights: []float64{0.8, 0.2}},
		{spec: "./dir/w.safetensors:-0.5", wantPath: "./dir/w.safetensors", wantWeights: []float64{-0.5}},
		{spec: "", wantErr: true},
		{spec: ":0.5", wantErr: true},
		{spec: "lora.safetensors:abc", wantErr: true},
	}

	for _, tt := range tests {
		spec, err := ParseLoraSpec(tt.spec)
		if tt.wantErr {
			if !errors.Is(err, generation.ErrInvalidArgument) {
				t.Errorf("ParseLoraSpec(%q): expected ErrInvalidArgument, got %v", tt.spec, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLoraSpec(%q) returned error: %v", tt.spec, err)
			continue
		}
		if spec.Path != tt.wantPath {
			t.Errorf("ParseLoraSpec(%q) path = %q, want %q", tt.spec, spec.Path, tt.wantPath)
		}
		if len(spec.Weights) != len(tt.wantWeights) {
			t.Errorf("ParseLoraSpec(%q) weights = %v, want %v", tt.spec, spec.Weights, tt.wantWeights)
			continue
		}
		for i, w := range spec.Weights {
			if w != tt.wantWeights[i] {
				t.Errorf("ParseLoraSpec(%q) weight %d = %v, want %v", tt.spec, i, w, tt.wantWeights[i])
			}
		}
	}
}

// writeTestArchive creates a minimal single-tensor safetensors file.
func writeTestArchive(t *testing.T) string {
	t.Helper()

	header := []byte(`{"alpha":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}}`)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	raw := make([]byte, 8, 8+len(header)+len(data))
	binary.LittleEndian.PutUint64(raw, uint64(len(header)))
	raw = append(raw, header...)
	raw = append(raw, data...)

	path := filepath.Join(t.TempDir(), "test.safetensors")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("failed to write test archive: %v", err)
	}
	return path
}

func TestBuild_LoraPrompt(t *testing.T) {
	p := DefaultParams()
	p.Prompts = []PromptInput{Text("a cat")}
	p.Lora = []LoraSpec{{Path: writeTestArchive(t), Weights: []float64{0.8, 0.2}}}

	req, err := Build(p)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	lora := req.Prompt[1]
	if lora.Artifact == nil || lora.Artifact.Type != generation.ArtifactLora {
		t.Fatalf("expected a lora artifact prompt, got %+v", lora)
	}
	if lora.Artifact.Lora == nil || lora.Artifact.Lora.Lora == nil {
		t.Fatal("lora artifact carries no tensor bundle")
	}
	if len(lora.Artifact.Lora.Lora.Tensors) != 1 {
		t.Fatalf("expected 1 tensor, got %d", len(lora.Artifact.Lora.Lora.Tensors))
	}

	weights := lora.Artifact.Lora.Weights
	if len(weights) != 2 {
		t.Fatalf("expected 2 weights, got %d", len(weights))
	}
	if weights[0].ModelName != "unet" || weights[0].Weight != 0.8 {
		t.Errorf("first weight: got %s=%v, want unet=0.8", weights[0].ModelName, weights[0].Weight)
	}
	if weights[1].ModelName != "text_encoder" || weights[1].Weight != 0.2 {
		t.Errorf("second weight: got %s=%v, want text_encoder=0.2", weights[1].ModelName, weights[1].Weight)
	}
}

func TestBuild_LoraExtraWeightsDropped(t *testing.T) {
	p := DefaultParams()
	p.Prompts = []PromptInput{Text("a cat")}
	p.Lora = []LoraSpec{{Path: writeTestArchive(t), Weights: []float64{0.8, 0.2, 0.9}}}

	req, err := Build(p)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if got := len(req.Prompt[1].Artifact.Lora.Weights); got != 2 {
		t.Errorf("expected extra weights to be dropped, got %d weights", got)
	}
}

func TestBuild_LoraMissingFile(t *testing.T) {
	p := DefaultParams()
	p.Prompts = []PromptInput{Text("a cat")}
	p.Lora = []LoraSpec{{Path: filepath.Join(t.TempDir(), "missing.safetensors")}}

	_, err := Build(p)
	if err == nil {
		t.Fatal("expected error for missing lora file, got nil")
	}
}
