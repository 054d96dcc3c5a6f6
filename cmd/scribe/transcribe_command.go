package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/export"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/runner"
	"scribe/internal/runs"
	"scribe/internal/services/whisperx"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		modelFlag       string
		deviceFlag      string
		computeTypeFlag string
		languageFlag    string
		taskFlag        string
		noAlign         bool
		alignModelFlag  string
		diarize         bool
		minSpeakers     string
		maxSpeakers     string
		outputDirFlag   string
	)

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>...",
		Short: "Transcribe audio files and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			paths := make([]string, 0, len(args))
			for _, arg := range args {
				absPath, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve path: %w", err)
				}
				info, err := os.Stat(absPath)
				if err != nil {
					if errors.Is(err, os.ErrNotExist) {
						return fmt.Errorf("file does not exist: %s", absPath)
					}
					return fmt.Errorf("inspect file: %w", err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory", absPath)
				}
				if !daemon.IsAudioFile(absPath) {
					return fmt.Errorf("unsupported file extension %q", filepath.Ext(absPath))
				}
				paths = append(paths, absPath)
			}

			// Config structs hold no reference types, so a shallow copy
			// keeps flag overrides out of the shared configuration.
			runCfg := *cfg
			flags := cmd.Flags()
			if flags.Changed("model") {
				runCfg.Whisper.Model = modelFlag
			}
			if flags.Changed("device") {
				runCfg.Whisper.Device = deviceFlag
			}
			if flags.Changed("compute-type") {
				runCfg.Whisper.ComputeType = computeTypeFlag
			}
			if flags.Changed("language") {
				runCfg.Whisper.Language = languageFlag
			}
			if flags.Changed("task") {
				runCfg.Whisper.Task = taskFlag
			}
			if noAlign {
				runCfg.Alignment.Skip = true
			}
			if flags.Changed("align-model") {
				runCfg.Alignment.Model = alignModelFlag
			}
			if diarize {
				runCfg.Diarization.Enabled = true
			}
			if flags.Changed("min-speakers") {
				runCfg.Diarization.MinSpeakers = minSpeakers
			}
			if flags.Changed("max-speakers") {
				runCfg.Diarization.MaxSpeakers = maxSpeakers
			}
			if flags.Changed("output-dir") {
				expanded, err := config.ExpandPath(outputDirFlag)
				if err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
				if err := os.MkdirAll(expanded, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				runCfg.Paths.OutputDir = expanded
			}

			opts := pipeline.FromConfig(&runCfg)
			if err := opts.Validate(); err != nil {
				return err
			}

			// Logs go to stderr so stdout carries only the transcript.
			logger, err := logging.New(logging.Options{
				Level:            runCfg.Logging.Level,
				Format:           runCfg.Logging.Format,
				OutputPaths:      []string{"stderr"},
				ErrorOutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			return transcribeFiles(cmd, &runCfg, opts, paths, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&modelFlag, "model", "", "Whisper model to load (overrides config)")
	flags.StringVar(&deviceFlag, "device", "", "Inference device: cpu or cuda")
	flags.StringVar(&computeTypeFlag, "compute-type", "", "Inference precision, e.g. int8 or float16")
	flags.StringVar(&languageFlag, "language", "", "Audio language code; empty enables detection")
	flags.StringVar(&taskFlag, "task", "", "Whisper task: transcribe or translate")
	flags.BoolVar(&noAlign, "no-align", false, "Skip word-level alignment")
	flags.StringVar(&alignModelFlag, "align-model", "", "Alignment model override")
	flags.BoolVar(&diarize, "diarize", false, "Assign speaker labels")
	flags.StringVar(&minSpeakers, "min-speakers", "", "Minimum speaker count for diarization")
	flags.StringVar(&maxSpeakers, "max-speakers", "", "Maximum speaker count for diarization")
	flags.StringVarP(&outputDirFlag, "output-dir", "o", "", "Directory for exported documents")

	return cmd
}

func transcribeFiles(cmd *cobra.Command, cfg *config.Config, opts pipeline.Options, paths []string, logger *slog.Logger) error {
	store, err := runs.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	provider := whisperx.NewProvider(whisperx.FromConfig(cfg), logger)
	cache := pipeline.NewCache(provider, logger)
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close model cache", logging.Error(err))
		}
	}()

	orch := pipeline.New(cache, provider, provider, logger)
	exporter := export.New(cfg.Paths.OutputDir, logger)
	notifier := notifications.NewService(cfg)
	r := runner.New(cfg, store, orch, exporter, notifier, logger)

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	var failed int
	for _, path := range paths {
		run, err := store.NewRun(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		result, err := r.Execute(cmd.Context(), run, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			failed++
			fmt.Fprintf(errOut, "failed: %s: %v\n", path, err)
			continue
		}

		if len(paths) > 1 {
			fmt.Fprintf(out, "==> %s\n", filepath.Base(path))
		}
		fmt.Fprint(out, result.Display)
		if !strings.HasSuffix(result.Display, "\n") {
			fmt.Fprintln(out)
		}

		// The artifact summary goes to stderr so stdout stays pipeable.
		if len(result.Artifacts) > 0 {
			rows := make([][]string, 0, len(result.Artifacts))
			for _, artifact := range result.Artifacts {
				rows = append(rows, []string{strings.ToUpper(artifact.Format), artifact.Path})
			}
			fmt.Fprintln(errOut, renderTable([]tableColumn{{title: "Format"}, {title: "Path"}}, rows))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}
