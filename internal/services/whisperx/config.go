package whisperx

import (
	"scribe/internal/config"
)

// Config captures runtime settings shared by all WhisperX workers.
type Config struct {
	// UVX is the uvx binary used to provision and run the workers.
	UVX string
	// Device is the default inference device ("cpu" or "cuda").
	Device string
	// VADMethod selects the voice activity detection backend.
	VADMethod string
	// VADOnset and VADOffset tune voice activity boundaries.
	VADOnset  float64
	VADOffset float64
	// HFToken authenticates against gated Hugging Face models
	// (pyannote VAD and diarization).
	HFToken string
	// ToolLogDir receives per-worker stderr logs. Empty discards them.
	ToolLogDir string
}

// WhisperX invocation constants.
const (
	UVXCommand   = "uvx"
	PackageSpec  = "whisperx"
	CUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL = "https://pypi.org/simple"
	CPUDevice    = "cpu"
	CUDADevice   = "cuda"
)

// FromConfig derives worker settings from the resolved configuration.
func FromConfig(cfg *config.Config) Config {
	return Config{
		UVX:        cfg.UVXBinary(),
		Device:     cfg.Whisper.Device,
		VADMethod:  cfg.VAD.Method,
		VADOnset:   cfg.VAD.Onset,
		VADOffset:  cfg.VAD.Offset,
		HFToken:    cfg.Diarization.HFToken,
		ToolLogDir: cfg.ToolLogDir(),
	}
}
