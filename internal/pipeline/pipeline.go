package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"scribe/internal/logging"
	"scribe/internal/services"
)

// defaultLanguage is used when no language was requested and detection
// produced nothing.
const defaultLanguage = "en"

// Observer receives stage lifecycle callbacks, letting callers persist
// status transitions without the pipeline knowing about storage.
type Observer interface {
	StageStarted(ctx context.Context, job *Job, stage string)
	StageCompleted(ctx context.Context, job *Job, stage string)
}

// Orchestrator executes the registered stages in order against one job at
// a time. It owns no storage; failures abort the remaining stages and
// surface to the caller with the failing stage attached.
type Orchestrator struct {
	models    *Cache
	aligners  AlignerLoader
	diarizers DiarizerLoader
	logger    *slog.Logger
	observer  Observer
	stages    []Stage
}

// New assembles the standard transcribe/align/diarize sequence.
func New(models *Cache, aligners AlignerLoader, diarizers DiarizerLoader, logger *slog.Logger) *Orchestrator {
	orch := &Orchestrator{
		models:    models,
		aligners:  aligners,
		diarizers: diarizers,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
	orch.stages = []Stage{
		&transcribeStage{orch: orch},
		&alignStage{orch: orch},
		&diarizeStage{orch: orch},
	}
	return orch
}

// SetObserver registers a stage lifecycle observer.
func (o *Orchestrator) SetObserver(observer Observer) {
	o.observer = observer
}

// Stages returns the ordered stage list.
func (o *Orchestrator) Stages() []Stage {
	out := make([]Stage, len(o.stages))
	copy(out, o.stages)
	return out
}

// Run drives the job through every enabled stage. On success the job holds
// a fully processed document; on failure the job's document must not be
// used and the error names the failing stage.
func (o *Orchestrator) Run(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("pipeline job is required")
	}
	if o.models == nil {
		return errors.New("model cache is required")
	}
	if err := job.Options.Validate(); err != nil {
		return err
	}

	for _, stage := range o.stages {
		if !stage.Enabled(job.Options) {
			o.logger.Debug("stage skipped", logging.String(logging.FieldStage, stage.Name()))
			continue
		}

		stageCtx := services.WithStage(ctx, stage.Name())
		stageLogger := logging.WithContext(stageCtx, o.logger)
		if o.observer != nil {
			o.observer.StageStarted(stageCtx, job, stage.Name())
		}
		stageLogger.Info("stage started",
			logging.String(logging.FieldAudio, job.AudioPath),
		)

		if err := stage.Run(stageCtx, job); err != nil {
			stageLogger.Error("stage failed", logging.Error(err))
			return err
		}

		stageLogger.Info("stage completed")
		if o.observer != nil {
			o.observer.StageCompleted(stageCtx, job, stage.Name())
		}
	}
	return nil
}
