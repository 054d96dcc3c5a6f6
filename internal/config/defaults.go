package config

const (
	defaultIncomingDir       = "~/.local/share/scribe/incoming"
	defaultOutputDir         = "~/transcripts"
	defaultWorkDir           = "~/.local/share/scribe/work"
	defaultLogDir            = "~/.local/share/scribe/logs"
	defaultAPIBind           = "127.0.0.1:8591"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 60
	defaultModel             = "medium"
	defaultDevice            = "cpu"
	defaultComputeType       = "float16"
	defaultBatchSize         = 16
	defaultChunkSize         = 30
	defaultTask              = "transcribe"
	defaultInterpolateMethod = "nearest"
	defaultVADMethod         = "pyannote"
	defaultVADOnset          = 0.500
	defaultVADOffset         = 0.363
	defaultSegmentResolution = "sentence"
	defaultPollInterval      = 5
	defaultFileSettleSeconds = 2
	defaultNotifyTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IncomingDir: defaultIncomingDir,
			OutputDir:   defaultOutputDir,
			WorkDir:     defaultWorkDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Whisper: Whisper{
			Model:                     defaultModel,
			Device:                    defaultDevice,
			ComputeType:               defaultComputeType,
			BatchSize:                 defaultBatchSize,
			ChunkSize:                 defaultChunkSize,
			Task:                      defaultTask,
			Temperature:               0,
			BestOf:                    5,
			BeamSize:                  5,
			Patience:                  1.0,
			LengthPenalty:             1.0,
			RepetitionPenalty:         1.0,
			CompressionRatioThreshold: 2.4,
			LogProbThreshold:          -1.0,
			NoSpeechThreshold:         0.6,
			SuppressTokens:            "-1",
			ConditionOnPreviousText:   true,
		},
		Alignment: Alignment{
			InterpolateMethod: defaultInterpolateMethod,
		},
		VAD: VAD{
			Method: defaultVADMethod,
			Onset:  defaultVADOnset,
			Offset: defaultVADOffset,
		},
		Format: Format{
			SegmentResolution: defaultSegmentResolution,
		},
		Workflow: Workflow{
			PollInterval:      defaultPollInterval,
			FileSettleSeconds: defaultFileSettleSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completions:    true,
			Errors:         true,
		},
	}
}
