package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/export"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/runs"
	"scribe/internal/services"
)

// inspectAudio is swapped by tests to script probe results.
var inspectAudio = ffprobe.Inspect

// stageStatuses maps pipeline stage names to the ledger status a run holds
// while that stage executes.
var stageStatuses = map[string]runs.Status{
	pipeline.StageTranscribe: runs.StatusTranscribing,
	pipeline.StageAlign:      runs.StatusAligning,
	pipeline.StageDiarize:    runs.StatusDiarizing,
}

// Result carries the caller-facing output of a completed run.
type Result struct {
	// Display is the plain-text transcript exactly as written to disk.
	Display string
	// Artifacts lists every exported file in write order.
	Artifacts []export.Artifact
}

// Runner drives runs through the pipeline and owns their ledger
// transitions. Executions serialize so the stage observer and the single
// model slot see one run at a time.
type Runner struct {
	cfg      *config.Config
	store    *runs.Store
	orch     *pipeline.Orchestrator
	exporter *export.Exporter
	notifier notifications.Service
	logger   *slog.Logger

	mu      sync.Mutex
	current *runs.Run
}

// New wires a runner around an orchestrator and registers itself as the
// orchestrator's stage observer.
func New(cfg *config.Config, store *runs.Store, orch *pipeline.Orchestrator, exporter *export.Exporter, notifier notifications.Service, logger *slog.Logger) *Runner {
	r := &Runner{
		cfg:      cfg,
		store:    store,
		orch:     orch,
		exporter: exporter,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "runner"),
	}
	orch.SetObserver(&statusObserver{runner: r})
	return r
}

// Execute drives one run to its terminal status. The run is mutated in
// place; on success the result carries the rendered transcript and the
// exported artifact list. A context cancellation returns without marking
// the run failed so shutdown handling can reclaim it.
func (r *Runner) Execute(ctx context.Context, run *runs.Run, opts pipeline.Options) (*Result, error) {
	if run == nil {
		return nil, errors.New("run is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = run
	defer func() { r.current = nil }()

	runCtx := services.WithRequestID(services.WithRunID(ctx, run.ID), uuid.NewString())
	runLogger := logging.WithContext(runCtx, r.logger).With(
		logging.String(logging.FieldAudio, run.AudioPath),
	)

	runStart := time.Now()
	runLogger.Info("run started",
		logging.String(logging.FieldModel, opts.Model),
		logging.String("device", opts.Device),
		logging.String("task", opts.Task),
	)

	started := time.Now().UTC()
	run.StartedAt = &started
	run.ErrorMessage = ""
	run.Model = opts.Model
	run.Device = opts.Device
	run.ComputeType = opts.ComputeType
	run.Task = opts.Task
	if err := r.store.Update(runCtx, run); err != nil {
		return nil, fmt.Errorf("persist run start: %w", err)
	}

	duration, err := r.probeAudio(runCtx, runLogger, run.AudioPath)
	if err != nil {
		return nil, r.fail(runCtx, runLogger, run, err)
	}
	run.DurationSeconds = duration

	job := &pipeline.Job{
		RunID:     run.ID,
		Token:     run.Token,
		AudioPath: run.AudioPath,
		Options:   opts,
	}

	if err := r.orch.Run(runCtx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			runLogger.Debug("run interrupted by shutdown")
			return nil, err
		}
		return nil, r.fail(runCtx, runLogger, run, err)
	}

	run.Status = runs.StatusExporting
	run.Language = job.Language
	run.Diarized = job.Diarized
	run.SegmentCount = job.SegmentCount()
	if err := r.store.Update(runCtx, run); err != nil {
		return nil, fmt.Errorf("persist exporting transition: %w", err)
	}

	display, artifacts, err := r.exporter.Export(job.Document, run.Token, job.Diarized)
	if err != nil {
		return nil, r.fail(runCtx, runLogger, run, err)
	}

	records := make([]runs.Artifact, 0, len(artifacts))
	for _, artifact := range artifacts {
		records = append(records, runs.Artifact{RunID: run.ID, Format: artifact.Format, Path: artifact.Path})
	}
	if err := r.store.AddArtifacts(runCtx, run.ID, records); err != nil {
		return nil, fmt.Errorf("persist artifacts: %w", err)
	}

	finished := time.Now().UTC()
	run.Status = runs.StatusCompleted
	run.FinishedAt = &finished
	if err := r.store.Update(runCtx, run); err != nil {
		return nil, fmt.Errorf("persist run result: %w", err)
	}

	runLogger.Info("run completed",
		logging.String(logging.FieldLanguage, run.Language),
		logging.Int("segments", run.SegmentCount),
		logging.Bool("diarized", run.Diarized),
		logging.Duration("run_duration", time.Since(runStart)),
	)
	r.notifyCompleted(runCtx, runLogger, run, artifacts)

	return &Result{Display: display, Artifacts: artifacts}, nil
}

// probeAudio inspects the source before any model is loaded. A probe tool
// failure degrades to an unknown duration; a readable file without an audio
// stream fails the run outright.
func (r *Runner) probeAudio(ctx context.Context, logger *slog.Logger, audioPath string) (float64, error) {
	binary := deps.ResolveFFprobePath(r.cfg.FFprobeBinary())
	result, err := inspectAudio(ctx, binary, audioPath)
	if err != nil {
		logger.Warn("audio probe failed", logging.Error(err))
		return 0, nil
	}
	if !result.HasAudio() {
		return 0, services.Wrap(services.ErrConfiguration, "probe", "inspect audio",
			fmt.Sprintf("no audio stream in %s", filepath.Base(audioPath)), nil)
	}
	return result.DurationSeconds(), nil
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, run *runs.Run, runErr error) error {
	message := strings.TrimSpace(runErr.Error())
	run.SetFailed(message)
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if err := r.store.Update(ctx, run); err != nil {
		logger.Error("failed to persist run failure", logging.Error(err))
	}

	logger.Error("run failed",
		logging.String("error_kind", services.Kind(runErr)),
		logging.Error(runErr),
	)

	if r.notifier != nil {
		payload := notifications.Payload{
			"audio": filepath.Base(run.AudioPath),
			"error": message,
		}
		if err := r.notifier.Publish(ctx, notifications.EventRunFailed, payload); err != nil {
			logger.Debug("failure notification failed", logging.Error(err))
		}
	}
	return runErr
}

func (r *Runner) notifyCompleted(ctx context.Context, logger *slog.Logger, run *runs.Run, artifacts []export.Artifact) {
	if r.notifier == nil {
		return
	}
	payload := notifications.Payload{
		"audio":    filepath.Base(run.AudioPath),
		"language": run.Language,
		"segments": strconv.Itoa(run.SegmentCount),
	}
	for _, artifact := range artifacts {
		if artifact.Format == "txt" {
			payload["output"] = artifact.Path
			break
		}
	}
	if err := r.notifier.Publish(ctx, notifications.EventRunCompleted, payload); err != nil {
		logger.Debug("completion notification failed", logging.Error(err))
	}
}

// statusObserver mirrors pipeline stage lifecycle into the run ledger.
// Callbacks run on the Execute goroutine, so reading the current run
// needs no extra synchronization.
type statusObserver struct {
	runner *Runner
}

func (s *statusObserver) StageStarted(ctx context.Context, job *pipeline.Job, stage string) {
	status, ok := stageStatuses[stage]
	if !ok {
		return
	}
	run := s.runner.current
	if run == nil || run.ID != job.RunID {
		return
	}
	run.Status = status
	if err := s.runner.store.Update(ctx, run); err != nil {
		logging.WithContext(ctx, s.runner.logger).Warn("failed to persist stage transition", logging.Error(err))
	}
}

func (s *statusObserver) StageCompleted(ctx context.Context, job *pipeline.Job, stage string) {
	run := s.runner.current
	if run == nil || run.ID != job.RunID {
		return
	}
	run.Language = job.Language
	run.Diarized = job.Diarized
	run.SegmentCount = job.SegmentCount()
	if err := s.runner.store.Update(ctx, run); err != nil {
		logging.WithContext(ctx, s.runner.logger).Warn("failed to persist stage progress", logging.Error(err))
	}
}
