package pipeline

import (
	"context"
	"fmt"
	"strings"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Stage is one step of the pipeline. Stages are executed in registration
// order; a disabled stage is skipped without touching the job.
type Stage interface {
	Name() string
	Enabled(opts Options) bool
	Run(ctx context.Context, job *Job) error
}

const (
	StageTranscribe = "transcribe"
	StageAlign      = "align"
	StageDiarize    = "diarize"
)

type transcribeStage struct {
	orch *Orchestrator
}

func (s *transcribeStage) Name() string { return StageTranscribe }

func (s *transcribeStage) Enabled(Options) bool { return true }

func (s *transcribeStage) Run(ctx context.Context, job *Job) error {
	opts := job.Options
	model, err := s.orch.models.Get(ctx, opts.ModelKey())
	if err != nil {
		return services.Wrap(services.ErrModelLoad, StageTranscribe, "load model",
			fmt.Sprintf("model %s unavailable on %s/%s", opts.Model, opts.Device, opts.ComputeType), err)
	}

	requested := strings.TrimSpace(opts.Language)
	result, err := model.Transcribe(ctx, TranscribeRequest{
		AudioPath: job.AudioPath,
		Language:  requested,
		Task:      opts.Task,
		BatchSize: opts.BatchSize,
		ChunkSize: opts.ChunkSize,
	})
	if err != nil {
		return services.Wrap(services.ErrStage, StageTranscribe, "transcribe audio", "transcription failed", err)
	}
	if result.Document == nil {
		return services.Wrap(services.ErrStage, StageTranscribe, "transcribe audio", "engine returned no document", nil)
	}
	if err := result.Document.Validate(); err != nil {
		return services.Wrap(services.ErrStage, StageTranscribe, "validate document", "engine returned malformed segments", err)
	}

	job.Document = result.Document
	job.DetectedLanguage = strings.TrimSpace(result.Language)

	switch {
	case requested != "":
		job.Language = requested
	case job.DetectedLanguage != "":
		job.Language = job.DetectedLanguage
	default:
		job.Language = defaultLanguage
	}
	job.Document.Language = job.Language

	s.orch.logger.Info("transcription complete",
		logging.String(logging.FieldLanguage, job.Language),
		logging.Int("segments", job.SegmentCount()),
	)
	return nil
}

type alignStage struct {
	orch *Orchestrator
}

func (s *alignStage) Name() string { return StageAlign }

func (s *alignStage) Enabled(opts Options) bool { return !opts.SkipAlignment }

func (s *alignStage) Run(ctx context.Context, job *Job) error {
	if s.orch.aligners == nil {
		return services.Wrap(services.ErrStage, StageAlign, "load align model", "alignment capability unavailable", nil)
	}

	opts := job.Options
	aligner, err := s.orch.aligners.LoadAligner(ctx, job.Language, strings.TrimSpace(opts.AlignModel))
	if err != nil {
		return services.Wrap(services.ErrModelLoad, StageAlign, "load align model",
			fmt.Sprintf("alignment model for language %q unavailable", job.Language), err)
	}
	defer func() {
		if closeErr := aligner.Close(); closeErr != nil {
			s.orch.logger.Warn("aligner close failed", logging.Error(closeErr))
		}
	}()

	before := job.SegmentCount()
	aligned, err := aligner.Align(ctx, AlignRequest{
		Document:             job.Document,
		AudioPath:            job.AudioPath,
		InterpolateMethod:    opts.InterpolateMethod,
		ReturnCharAlignments: opts.ReturnCharAlignments,
	})
	if err != nil {
		return services.Wrap(services.ErrStage, StageAlign, "align segments", "alignment failed", err)
	}
	if aligned == nil {
		return services.Wrap(services.ErrStage, StageAlign, "align segments", "aligner returned no document", nil)
	}
	if len(aligned.Segments) != before {
		return services.Wrap(services.ErrStage, StageAlign, "align segments",
			fmt.Sprintf("aligner changed segment count from %d to %d", before, len(aligned.Segments)), nil)
	}
	if err := aligned.Validate(); err != nil {
		return services.Wrap(services.ErrStage, StageAlign, "validate document", "aligner returned malformed segments", err)
	}

	if aligned.Language == "" {
		aligned.Language = job.Language
	}
	job.Document = aligned

	s.orch.logger.Info("alignment complete",
		logging.String(logging.FieldLanguage, job.Language),
		logging.Int("segments", job.SegmentCount()),
	)
	return nil
}

type diarizeStage struct {
	orch *Orchestrator
}

func (s *diarizeStage) Name() string { return StageDiarize }

func (s *diarizeStage) Enabled(opts Options) bool { return opts.Diarize }

func (s *diarizeStage) Run(ctx context.Context, job *Job) error {
	// Bounds are parsed before the diarization capability is touched so
	// malformed values never cost an inference pass.
	bounds, err := job.Options.SpeakerBounds()
	if err != nil {
		return err
	}
	if s.orch.diarizers == nil {
		return services.Wrap(services.ErrStage, StageDiarize, "load diarizer", "diarization capability unavailable", nil)
	}

	diarizer, err := s.orch.diarizers.LoadDiarizer(ctx)
	if err != nil {
		return services.Wrap(services.ErrModelLoad, StageDiarize, "load diarizer", "diarization model unavailable", err)
	}
	defer func() {
		if closeErr := diarizer.Close(); closeErr != nil {
			s.orch.logger.Warn("diarizer close failed", logging.Error(closeErr))
		}
	}()

	turns, err := diarizer.Diarize(ctx, DiarizeRequest{
		AudioPath:   job.AudioPath,
		MinSpeakers: bounds.Min,
		MaxSpeakers: bounds.Max,
	})
	if err != nil {
		return services.Wrap(services.ErrStage, StageDiarize, "diarize audio", "diarization failed", err)
	}

	transcript.AssignSpeakers(turns, job.Document)
	job.Diarized = true

	s.orch.logger.Info("diarization complete",
		logging.Int("turns", len(turns)),
		logging.Int("segments", job.SegmentCount()),
	)
	return nil
}
