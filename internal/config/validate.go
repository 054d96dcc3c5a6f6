package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	computeTypeChoices       = []string{"float16", "float32", "int8"}
	taskChoices              = []string{"transcribe", "translate"}
	interpolateChoices       = []string{"nearest", "linear", "ignore"}
	vadMethodChoices         = []string{"pyannote", "silero"}
	segmentResolutionChoices = []string{"sentence", "chunk"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateVAD(); err != nil {
		return err
	}
	if err := c.validateDiarization(); err != nil {
		return err
	}
	if err := c.validateFormat(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWhisper() error {
	if !oneOf(c.Whisper.ComputeType, computeTypeChoices) {
		return fmt.Errorf("whisper.compute_type must be one of %s", strings.Join(computeTypeChoices, ", "))
	}
	if !oneOf(c.Whisper.Task, taskChoices) {
		return fmt.Errorf("whisper.task must be one of %s", strings.Join(taskChoices, ", "))
	}
	if err := ensurePositiveMap(map[string]int{
		"whisper.batch_size": c.Whisper.BatchSize,
		"whisper.chunk_size": c.Whisper.ChunkSize,
		"whisper.best_of":    c.Whisper.BestOf,
		"whisper.beam_size":  c.Whisper.BeamSize,
	}); err != nil {
		return err
	}
	if c.Whisper.Temperature < 0 {
		return errors.New("whisper.temperature must be >= 0")
	}
	if c.Whisper.NoSpeechThreshold < 0 || c.Whisper.NoSpeechThreshold > 1 {
		return errors.New("whisper.no_speech_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	if !oneOf(c.Alignment.InterpolateMethod, interpolateChoices) {
		return fmt.Errorf("alignment.interpolate_method must be one of %s", strings.Join(interpolateChoices, ", "))
	}
	return nil
}

func (c *Config) validateVAD() error {
	if !oneOf(c.VAD.Method, vadMethodChoices) {
		return fmt.Errorf("vad.method must be one of %s", strings.Join(vadMethodChoices, ", "))
	}
	if c.VAD.Onset <= 0 || c.VAD.Onset >= 1 {
		return errors.New("vad.onset must be between 0 and 1")
	}
	if c.VAD.Offset <= 0 || c.VAD.Offset >= 1 {
		return errors.New("vad.offset must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateDiarization() error {
	min, err := parseSpeakerBound("diarization.min_speakers", c.Diarization.MinSpeakers)
	if err != nil {
		return err
	}
	max, err := parseSpeakerBound("diarization.max_speakers", c.Diarization.MaxSpeakers)
	if err != nil {
		return err
	}
	if min > 0 && max > 0 && min > max {
		return errors.New("diarization.min_speakers must not exceed diarization.max_speakers")
	}
	return nil
}

func (c *Config) validateFormat() error {
	if !oneOf(c.Format.SegmentResolution, segmentResolutionChoices) {
		return fmt.Errorf("format.segment_resolution must be one of %s", strings.Join(segmentResolutionChoices, ", "))
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.poll_interval":       c.Workflow.PollInterval,
		"workflow.file_settle_seconds": c.Workflow.FileSettleSeconds,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func parseSpeakerBound(key, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return parsed, nil
}

func oneOf(value string, choices []string) bool {
	for _, choice := range choices {
		if value == choice {
			return true
		}
	}
	return false
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
