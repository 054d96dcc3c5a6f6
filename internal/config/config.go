package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	IncomingDir string `toml:"incoming_dir"`
	OutputDir   string `toml:"output_dir"`
	WorkDir     string `toml:"work_dir"`
	LogDir      string `toml:"log_dir"`
	APIBind     string `toml:"api_bind"`
}

// Whisper contains the transcription engine settings: which model to load,
// where to run it, and the decoding knobs forwarded to the engine.
type Whisper struct {
	Model       string `toml:"model"`
	Device      string `toml:"device"`
	ComputeType string `toml:"compute_type"`
	BatchSize   int    `toml:"batch_size"`
	ChunkSize   int    `toml:"chunk_size"`
	Task        string `toml:"task"`
	// Language forces the transcription language when set (e.g. "en", "fr").
	// Empty means detect from audio.
	Language string `toml:"language"`

	Temperature               float64 `toml:"temperature"`
	BestOf                    int     `toml:"best_of"`
	BeamSize                  int     `toml:"beam_size"`
	Patience                  float64 `toml:"patience"`
	LengthPenalty             float64 `toml:"length_penalty"`
	RepetitionPenalty         float64 `toml:"repetition_penalty"`
	CompressionRatioThreshold float64 `toml:"compression_ratio_threshold"`
	LogProbThreshold          float64 `toml:"log_prob_threshold"`
	NoSpeechThreshold         float64 `toml:"no_speech_threshold"`
	SuppressTokens            string  `toml:"suppress_tokens"`
	SuppressNumerals          bool    `toml:"suppress_numerals"`
	ConditionOnPreviousText   bool    `toml:"condition_on_previous_text"`
	InitialPrompt             string  `toml:"initial_prompt"`
	Hotwords                  string  `toml:"hotwords"`
}

// Alignment contains configuration for the word-level alignment stage.
type Alignment struct {
	// Skip disables alignment entirely; segments keep engine timestamps.
	Skip bool `toml:"skip"`
	// Model overrides the per-language default alignment model when set.
	Model                string `toml:"model"`
	InterpolateMethod    string `toml:"interpolate_method"`
	ReturnCharAlignments bool   `toml:"return_char_alignments"`
}

// VAD contains voice activity detection tuning.
type VAD struct {
	Method string  `toml:"method"`
	Onset  float64 `toml:"onset"`
	Offset float64 `toml:"offset"`
}

// Diarization contains speaker diarization settings.
type Diarization struct {
	Enabled bool `toml:"enabled"`
	// MinSpeakers and MaxSpeakers bound the speaker count when set. They are
	// kept as strings so CLI/form input flows through a single parse path;
	// non-numeric values are rejected during validation.
	MinSpeakers string `toml:"min_speakers"`
	MaxSpeakers string `toml:"max_speakers"`
	// HFToken authenticates against the gated diarization models. Falls back
	// to HUGGING_FACE_HUB_TOKEN then HF_TOKEN environment variables.
	HFToken string `toml:"hf_token"`
}

// Format contains subtitle rendering preferences carried alongside exports.
type Format struct {
	HighlightWords    bool   `toml:"highlight_words"`
	MaxLineWidth      int    `toml:"max_line_width"`
	MaxLineCount      int    `toml:"max_line_count"`
	SegmentResolution string `toml:"segment_resolution"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	PollInterval int `toml:"poll_interval"`
	// FileSettleSeconds is how long a newly seen file must stop growing
	// before the watcher enqueues it.
	FileSettleSeconds int `toml:"file_settle_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completions    bool   `toml:"completions"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for Scribe.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - Whisper: transcription model, device, precision, and decoding knobs
//   - Alignment: word-level alignment stage settings
//   - VAD: voice activity detection tuning
//   - Diarization: speaker labeling and Hugging Face credentials
//   - Format: subtitle rendering preferences
//   - Workflow: daemon polling and file-settle intervals
//   - Logging: log format, level, and retention
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Whisper       Whisper       `toml:"whisper"`
	Alignment     Alignment     `toml:"alignment"`
	VAD           VAD           `toml:"vad"`
	Diarization   Diarization   `toml:"diarization"`
	Format        Format        `toml:"format"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/scribe/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.IncomingDir, c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the run history database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.WorkDir, "scribe.db")
}

// LockPath returns the location of the daemon instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "scribe.lock")
}

// ToolLogDir returns the directory external tool output is captured into.
func (c *Config) ToolLogDir() string {
	return filepath.Join(c.Paths.LogDir, "tools")
}

// UVXBinary returns the uv tool runner executable used to launch the engine.
func (c *Config) UVXBinary() string {
	return "uvx"
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
