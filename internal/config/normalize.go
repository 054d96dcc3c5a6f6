package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWhisper()
	c.normalizeAlignment()
	c.normalizeVAD()
	c.normalizeDiarization()
	c.normalizeFormat()
	c.normalizeWorkflow()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.IncomingDir, err = expandPath(c.Paths.IncomingDir); err != nil {
		return fmt.Errorf("paths.incoming_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeWhisper() {
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	if c.Whisper.Model == "" {
		c.Whisper.Model = defaultModel
	}
	c.Whisper.Device = strings.ToLower(strings.TrimSpace(c.Whisper.Device))
	if c.Whisper.Device == "" {
		c.Whisper.Device = defaultDevice
	}
	c.Whisper.ComputeType = strings.ToLower(strings.TrimSpace(c.Whisper.ComputeType))
	if c.Whisper.ComputeType == "" {
		c.Whisper.ComputeType = defaultComputeType
	}
	if c.Whisper.BatchSize <= 0 {
		c.Whisper.BatchSize = defaultBatchSize
	}
	if c.Whisper.ChunkSize <= 0 {
		c.Whisper.ChunkSize = defaultChunkSize
	}
	c.Whisper.Task = strings.ToLower(strings.TrimSpace(c.Whisper.Task))
	if c.Whisper.Task == "" {
		c.Whisper.Task = defaultTask
	}
	c.Whisper.Language = strings.TrimSpace(c.Whisper.Language)
	c.Whisper.SuppressTokens = strings.TrimSpace(c.Whisper.SuppressTokens)
	c.Whisper.InitialPrompt = strings.TrimSpace(c.Whisper.InitialPrompt)
	c.Whisper.Hotwords = strings.TrimSpace(c.Whisper.Hotwords)
}

func (c *Config) normalizeAlignment() {
	c.Alignment.Model = strings.TrimSpace(c.Alignment.Model)
	c.Alignment.InterpolateMethod = strings.ToLower(strings.TrimSpace(c.Alignment.InterpolateMethod))
	if c.Alignment.InterpolateMethod == "" {
		c.Alignment.InterpolateMethod = defaultInterpolateMethod
	}
}

func (c *Config) normalizeVAD() {
	c.VAD.Method = strings.ToLower(strings.TrimSpace(c.VAD.Method))
	if c.VAD.Method == "" {
		c.VAD.Method = defaultVADMethod
	}
	if c.VAD.Onset <= 0 {
		c.VAD.Onset = defaultVADOnset
	}
	if c.VAD.Offset <= 0 {
		c.VAD.Offset = defaultVADOffset
	}
}

func (c *Config) normalizeDiarization() {
	c.Diarization.MinSpeakers = strings.TrimSpace(c.Diarization.MinSpeakers)
	c.Diarization.MaxSpeakers = strings.TrimSpace(c.Diarization.MaxSpeakers)
	c.Diarization.HFToken = strings.TrimSpace(c.Diarization.HFToken)
	if c.Diarization.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Diarization.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Diarization.HFToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeFormat() {
	c.Format.SegmentResolution = strings.ToLower(strings.TrimSpace(c.Format.SegmentResolution))
	if c.Format.SegmentResolution == "" {
		c.Format.SegmentResolution = defaultSegmentResolution
	}
	if c.Format.MaxLineWidth < 0 {
		c.Format.MaxLineWidth = 0
	}
	if c.Format.MaxLineCount < 0 {
		c.Format.MaxLineCount = 0
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = defaultPollInterval
	}
	if c.Workflow.FileSettleSeconds <= 0 {
		c.Workflow.FileSettleSeconds = defaultFileSettleSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}
