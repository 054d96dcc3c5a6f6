package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"scribe/internal/config"
	"scribe/internal/services"
)

// Options describes one transcription request. Speaker bounds stay strings
// until Validate so malformed values surface as configuration errors before
// any inference capability is touched.
type Options struct {
	Model       string
	Device      string
	ComputeType string
	BatchSize   int
	ChunkSize   int
	Task        string
	Language    string

	SkipAlignment        bool
	AlignModel           string
	InterpolateMethod    string
	ReturnCharAlignments bool

	Diarize     bool
	MinSpeakers string
	MaxSpeakers string
}

// FromConfig builds request options from the resolved configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Model:                cfg.Whisper.Model,
		Device:               cfg.Whisper.Device,
		ComputeType:          cfg.Whisper.ComputeType,
		BatchSize:            cfg.Whisper.BatchSize,
		ChunkSize:            cfg.Whisper.ChunkSize,
		Task:                 cfg.Whisper.Task,
		Language:             cfg.Whisper.Language,
		SkipAlignment:        cfg.Alignment.Skip,
		AlignModel:           cfg.Alignment.Model,
		InterpolateMethod:    cfg.Alignment.InterpolateMethod,
		ReturnCharAlignments: cfg.Alignment.ReturnCharAlignments,
		Diarize:              cfg.Diarization.Enabled,
		MinSpeakers:          cfg.Diarization.MinSpeakers,
		MaxSpeakers:          cfg.Diarization.MaxSpeakers,
	}
}

// ModelKey returns the cache key for the requested transcription model.
func (o Options) ModelKey() ModelKey {
	return ModelKey{Model: o.Model, Device: o.Device, ComputeType: o.ComputeType}
}

// SpeakerBounds holds parsed diarization bounds. Zero means unbounded.
type SpeakerBounds struct {
	Min int
	Max int
}

// SpeakerBounds parses the configured speaker-count bounds.
func (o Options) SpeakerBounds() (SpeakerBounds, error) {
	min, err := parseSpeakerBound("min_speakers", o.MinSpeakers)
	if err != nil {
		return SpeakerBounds{}, err
	}
	max, err := parseSpeakerBound("max_speakers", o.MaxSpeakers)
	if err != nil {
		return SpeakerBounds{}, err
	}
	if min > 0 && max > 0 && min > max {
		return SpeakerBounds{}, services.Wrap(
			services.ErrConfiguration, "pipeline", "parse speaker bounds",
			fmt.Sprintf("min_speakers %d must not exceed max_speakers %d", min, max), nil)
	}
	return SpeakerBounds{Min: min, Max: max}, nil
}

func parseSpeakerBound(key, value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, services.Wrap(
			services.ErrConfiguration, "pipeline", "parse speaker bounds",
			fmt.Sprintf("%s must be a positive integer, got %q", key, value), nil)
	}
	return parsed, nil
}

// Validate rejects option combinations no stage could execute. It runs
// before the first stage so bad input never reaches a loader.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Model) == "" {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate options", "model is required", nil)
	}
	if o.BatchSize <= 0 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate options",
			fmt.Sprintf("batch size must be positive, got %d", o.BatchSize), nil)
	}
	if o.ChunkSize <= 0 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate options",
			fmt.Sprintf("chunk size must be positive, got %d", o.ChunkSize), nil)
	}
	if o.Diarize {
		if _, err := o.SpeakerBounds(); err != nil {
			return err
		}
	}
	return nil
}
